// Package scene хранит визуальные экземпляры тайлов в памяти хоста.
// Реализует возможность создания экземпляров для синхронизатора и подсветку контуров.
package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/tilemap-editor/internal/catalog"
	"github.com/annel0/tilemap-editor/internal/logging"
	"github.com/annel0/tilemap-editor/internal/tilemap"
	"github.com/annel0/tilemap-editor/internal/vec"
)

// ErrUnknownInstance обращение к уничтоженному или чужому экземпляру
var ErrUnknownInstance = errors.New("scene: unknown instance")

// TemplateSource проверяет, что шаблон существует
type TemplateSource interface {
	Get(ref tilemap.TemplateRef) (catalog.Template, error)
}

// Node визуальный экземпляр тайла
type Node struct {
	Handle      tilemap.InstanceHandle
	Template    catalog.Template
	Position    vec.Vec3Float
	Rotation    mgl64.Quat
	Orientation tilemap.Orientation
	// Highlighted контур экземпляра виден
	Highlighted bool
}

// Forward направление «вперёд» экземпляра в плоскости XZ
func (n Node) Forward() mgl64.Vec3 {
	return n.Rotation.Rotate(mgl64.Vec3{0, 0, 1})
}

// Scene набор живых экземпляров
type Scene struct {
	mu        sync.RWMutex
	templates TemplateSource
	nodes     map[tilemap.InstanceHandle]*Node
	next      tilemap.InstanceHandle
	destroyed uint64
	log       *logging.Logger
}

// New создаёт пустую сцену. С nil templates принимается любой шаблон.
func New(templates TemplateSource) *Scene {
	return &Scene{
		templates: templates,
		nodes:     make(map[tilemap.InstanceHandle]*Node),
		log:       logging.GetComponentLogger(logging.ComponentScene),
	}
}

// Instantiate создаёт экземпляр шаблона
func (s *Scene) Instantiate(ref tilemap.TemplateRef, pos vec.Vec3Float, o tilemap.Orientation) (tilemap.InstanceHandle, error) {
	tpl := catalog.Template{Name: string(ref)}
	if s.templates != nil {
		var err error
		if tpl, err = s.templates.Get(ref); err != nil {
			return tilemap.NoInstance, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.nodes[h] = &Node{
		Handle:      h,
		Template:    tpl,
		Position:    pos,
		Rotation:    mgl64.QuatRotate(mgl64.DegToRad(o.Degrees()), mgl64.Vec3{0, 1, 0}),
		Orientation: o,
		Highlighted: true,
	}
	return h, nil
}

// Destroy уничтожает экземпляр. Повторное уничтожение логируется.
func (s *Scene) Destroy(h tilemap.InstanceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[h]; !ok {
		s.log.Warn("Destroy: %v %d", ErrUnknownInstance, h)
		return
	}
	delete(s.nodes, h)
	s.destroyed++
}

// Reposition перемещает экземпляр, сохраняя его состояние
func (s *Scene) Reposition(h tilemap.InstanceHandle, pos vec.Vec3Float) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[h]; ok {
		n.Position = pos
	}
}

// SetHighlighted включает или выключает контуры экземпляров
func (s *Scene) SetHighlighted(handles []tilemap.InstanceHandle, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range handles {
		if n, ok := s.nodes[h]; ok {
			n.Highlighted = on
		}
	}
}

// Node возвращает копию экземпляра
func (s *Scene) Node(h tilemap.InstanceHandle) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[h]
	if !ok {
		return Node{}, fmt.Errorf("%w: %d", ErrUnknownInstance, h)
	}
	return *n, nil
}

// Nodes возвращает копии всех экземпляров в порядке создания
func (s *Scene) Nodes() []Node {
	s.mu.RLock()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Len количество живых экземпляров
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Stats счётчики созданных и уничтоженных экземпляров
func (s *Scene) Stats() (created, destroyed uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(s.next), s.destroyed
}

var _ tilemap.Instancer = (*Scene)(nil)
