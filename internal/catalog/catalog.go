// Package catalog содержит упорядоченный список шаблонов тайлов, доступных для выбора.
// Редактор только читает каталог.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/annel0/tilemap-editor/internal/tilemap"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTemplate шаблон отсутствует в каталоге
var ErrUnknownTemplate = errors.New("catalog: unknown template")

// Template описание шаблона тайла
type Template struct {
	Name  string `yaml:"name"`
	Glyph string `yaml:"glyph"` // Символ для терминального отображения
	Color string `yaml:"color"` // Имя цвета tcell / #rrggbb
}

// Ref возвращает ссылку на шаблон для хранилища тайлов
func (t Template) Ref() tilemap.TemplateRef {
	return tilemap.TemplateRef(t.Name)
}

// Catalog упорядоченный набор шаблонов
type Catalog struct {
	Name      string     `yaml:"name"`
	Templates []Template `yaml:"templates"`
	byName    map[string]int
}

// New создаёт каталог; имена шаблонов должны быть уникальными и непустыми
func New(name string, templates []Template) (*Catalog, error) {
	c := &Catalog{Name: name, Templates: templates}
	if err := c.reindex(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reindex() error {
	c.byName = make(map[string]int, len(c.Templates))
	for i, t := range c.Templates {
		if t.Name == "" {
			return fmt.Errorf("catalog %q: template #%d has empty name", c.Name, i)
		}
		if _, dup := c.byName[t.Name]; dup {
			return fmt.Errorf("catalog %q: duplicate template %q", c.Name, t.Name)
		}
		if t.Glyph == "" {
			c.Templates[i].Glyph = t.Name[:1]
		}
		c.byName[t.Name] = i
	}
	return nil
}

// Load читает каталог из YAML файла
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML описание каталога
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.reindex(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Len возвращает количество шаблонов
func (c *Catalog) Len() int {
	return len(c.Templates)
}

// At возвращает шаблон по индексу
func (c *Catalog) At(i int) (Template, bool) {
	if i < 0 || i >= len(c.Templates) {
		return Template{}, false
	}
	return c.Templates[i], true
}

// Get возвращает шаблон по ссылке
func (c *Catalog) Get(ref tilemap.TemplateRef) (Template, error) {
	i, ok := c.byName[string(ref)]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, ref)
	}
	return c.Templates[i], nil
}

// Next возвращает шаблон, следующий за ref по кругу (для переключения клавишами)
func (c *Catalog) Next(ref tilemap.TemplateRef, step int) tilemap.TemplateRef {
	if len(c.Templates) == 0 {
		return tilemap.NoTemplate
	}
	i, ok := c.byName[string(ref)]
	if !ok {
		return c.Templates[0].Ref()
	}
	n := len(c.Templates)
	return c.Templates[((i+step)%n+n)%n].Ref()
}

// PickerOptions возвращает пункты выбора: текущий шаблон первым, затем весь каталог
func (c *Catalog) PickerOptions(current tilemap.TemplateRef) []string {
	names := make([]string, 0, len(c.Templates)+1)
	names = append(names, string(current))
	for _, t := range c.Templates {
		names = append(names, t.Name)
	}
	return names
}

// Pick разрешает индекс пункта PickerOptions; индекс 0 означает «без изменений»
func (c *Catalog) Pick(index int) (tilemap.TemplateRef, bool) {
	if index <= 0 {
		return tilemap.NoTemplate, false
	}
	t, ok := c.At(index - 1)
	if !ok {
		return tilemap.NoTemplate, false
	}
	return t.Ref(), true
}
