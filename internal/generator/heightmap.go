// Package generator заполняет документ рельефом по шуму Перлина одной пакетной правкой.
package generator

import (
	"errors"
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/tilemap-editor/internal/tilemap"
	"github.com/annel0/tilemap-editor/internal/vec"
)

// LabelGenerate метка правки в журнале отмены
const LabelGenerate = "Generate Terrain"

// ErrEmptyArea область генерации пуста
var ErrEmptyArea = errors.New("generator: empty area")

// Applier выполняет пакет правок как одну отменяемую операцию
type Applier interface {
	Apply(label string, fn func(m *tilemap.Mutator) error) error
}

// Params параметры рельефа
type Params struct {
	Seed      int64
	Frequency float64 // шаг выборки шума на ячейку
	MaxHeight int     // максимальная высота столбца над BaseY
	BaseY     int
	// Surface шаблон верхней ячейки столбца, Fill: нижних
	Surface     tilemap.TemplateRef
	Fill        tilemap.TemplateRef
	Orientation tilemap.Orientation
}

// Heightmap карта высот на основе шума Перлина
type Heightmap struct {
	params Params
	noise  *perlin.Perlin
}

// New создаёт карту высот
func New(p Params) *Heightmap {
	if p.Frequency <= 0 {
		p.Frequency = 0.08
	}
	if p.MaxHeight <= 0 {
		p.MaxHeight = 4
	}
	if p.Fill.IsNone() {
		p.Fill = p.Surface
	}
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Heightmap{
		params: p,
		noise:  perlin.NewPerlin(alpha, beta, n, p.Seed),
	}
}

// Height высота верхней ячейки столбца (x, z)
func (h *Heightmap) Height(x, z int) int {
	v := h.noise.Noise2D(float64(x)*h.params.Frequency, float64(z)*h.params.Frequency)
	// Шум в [-1, 1] переводим в [0, 1]
	v = math.Max(0, math.Min(1, (v+1)/2))
	return h.params.BaseY + int(math.Round(v*float64(h.params.MaxHeight)))
}

// Generate заполняет столбцы области area (по X и Z; Y области игнорируется).
// Каждый столбец заполняется регионом от BaseY до высоты рельефа.
func (h *Heightmap) Generate(target Applier, area tilemap.Region) error {
	if area.Size.X <= 0 || area.Size.Z <= 0 {
		return ErrEmptyArea
	}
	p := h.params
	return target.Apply(LabelGenerate, func(m *tilemap.Mutator) error {
		for x := area.Min.X; x < area.Min.X+area.Size.X; x++ {
			for z := area.Min.Z; z < area.Min.Z+area.Size.Z; z++ {
				top := h.Height(x, z)
				if top > p.BaseY {
					column := tilemap.Region{
						Min:  vec.Vec3{X: x, Y: p.BaseY, Z: z},
						Size: vec.Vec3{X: 1, Y: top - p.BaseY, Z: 1},
					}
					if _, err := m.SetRegion(column, p.Fill, p.Orientation); err != nil {
						return err
					}
				}
				if _, err := m.SetTile(x, top, z, p.Surface, p.Orientation); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
