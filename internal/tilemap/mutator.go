package tilemap

import (
	"fmt"
	"math/rand"

	"github.com/annel0/tilemap-editor/internal/vec"
)

// RegionResult итог пакетной правки
type RegionResult struct {
	Placed  int
	Removed int
	// Created экземпляры, созданные в ходе правки
	Created []InstanceHandle
}

func (r *RegionResult) merge(other RegionResult) {
	r.Placed += other.Placed
	r.Removed += other.Removed
	r.Created = append(r.Created, other.Created...)
}

// Mutator единственный владелец изменений хранилища: создаёт, заменяет и удаляет тайлы
type Mutator struct {
	codec   Codec
	store   *Store
	sync    *Synchronizer
	rng     *rand.Rand
	metrics *Metrics
}

// NewMutator создаёт мутатор. rng задаёт последовательность случайных ориентаций.
func NewMutator(codec Codec, store *Store, sync *Synchronizer, rng *rand.Rand, metrics *Metrics) *Mutator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Mutator{
		codec:   codec,
		store:   store,
		sync:    sync,
		rng:     rng,
		metrics: metrics,
	}
}

// Codec возвращает кодек координат
func (m *Mutator) Codec() Codec {
	return m.codec
}

// Store возвращает хранилище (только для чтения вызывающим кодом)
func (m *Mutator) Store() *Store {
	return m.store
}

// Get возвращает запись в ячейке
func (m *Mutator) Get(x, y, z int) (TileEntry, bool) {
	e, ok := m.store.Lookup(m.codec.Encode(x, y, z))
	if !ok {
		return TileEntry{}, false
	}
	return *e, true
}

func (m *Mutator) resolve(o Orientation) Orientation {
	if o == OrientationRandom {
		return Orientation(m.rng.Intn(4))
	}
	return o
}

// SetTile создаёт, заменяет или удаляет тайл в ячейке.
// Возвращает true, если после вызова в ячейке есть визуальный экземпляр.
func (m *Mutator) SetTile(x, y, z int, template TemplateRef, o Orientation) (bool, error) {
	res, err := m.setTile(x, y, z, template, o)
	m.metrics.setTiles(m.store.Count())
	return len(res.Created) > 0, err
}

func (m *Mutator) setTile(x, y, z int, template TemplateRef, o Orientation) (RegionResult, error) {
	var res RegionResult
	if !o.Valid() {
		return res, fmt.Errorf("%w: %d", ErrInvalidOrientation, o)
	}
	if !m.codec.Contains(x, y, z) {
		return res, fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfBounds, x, y, z)
	}

	key := m.codec.Encode(x, y, z)
	if e, ok := m.store.Lookup(key); ok {
		// Замена существующего тайла: всегда пересоздаём экземпляр
		prevTemplate, prevOrientation := e.Template, e.Orientation
		e.Template = template
		e.Orientation = m.resolve(o)
		present, err := m.sync.Rebuild(e)
		if err != nil {
			m.restore(key, e, prevTemplate, prevOrientation)
			return res, err
		}
		if present {
			res.Placed++
			res.Created = append(res.Created, e.Instance)
			return res, nil
		}

		pos, _ := m.store.Find(key)
		if _, err := m.store.RemoveAt(pos); err != nil {
			return res, err
		}
		res.Removed++
		return res, nil
	}

	if template.IsNone() {
		return res, nil
	}

	pos, err := m.store.Insert(TileEntry{Key: key, Template: template, Orientation: m.resolve(o)})
	if err != nil {
		return res, err
	}
	if _, err := m.sync.Rebuild(m.store.At(pos)); err != nil {
		// Запись без экземпляра не оставляем
		_, _ = m.store.RemoveAt(pos)
		return res, err
	}
	res.Placed++
	res.Created = append(res.Created, m.store.At(pos).Instance)
	return res, nil
}

// restore возвращает записи прежний тайл после неудачной замены.
// Если прежний экземпляр тоже не создаётся, запись удаляется.
func (m *Mutator) restore(key Key, e *TileEntry, template TemplateRef, o Orientation) {
	e.Template = template
	e.Orientation = o
	if present, err := m.sync.Rebuild(e); err == nil && present {
		return
	}
	if pos, ok := m.store.Find(key); ok {
		_, _ = m.store.RemoveAt(pos)
	}
}

// SetRegion применяет SetTile ко всем ячейкам региона в порядке x, y, z.
// Размер и границы проверяются до изменения первой ячейки.
func (m *Mutator) SetRegion(r Region, template TemplateRef, o Orientation) (RegionResult, error) {
	var res RegionResult
	if !r.Valid() {
		return res, fmt.Errorf("%w: %s", ErrInvalidRegion, r)
	}
	if !o.Valid() {
		return res, fmt.Errorf("%w: %d", ErrInvalidOrientation, o)
	}
	last := r.Max()
	if !m.codec.Contains(r.Min.X, r.Min.Y, r.Min.Z) || !m.codec.Contains(last.X, last.Y, last.Z) {
		return res, fmt.Errorf("%w: %s", ErrOutOfBounds, r)
	}

	err := r.Each(func(v vec.Vec3) error {
		step, err := m.setTile(v.X, v.Y, v.Z, template, o)
		res.merge(step)
		return err
	})
	m.metrics.edit("region")
	m.metrics.setTiles(m.store.Count())
	return res, err
}

// RebuildAll пересоздаёт экземпляры всех тайлов с их текущими шаблоном и ориентацией
func (m *Mutator) RebuildAll() (RegionResult, error) {
	var res RegionResult
	for _, key := range m.store.Keys() {
		e, ok := m.store.Lookup(key)
		if !ok {
			continue
		}
		x, y, z := m.codec.Decode(key)
		step, err := m.setTile(x, y, z, e.Template, e.Orientation)
		res.merge(step)
		if err != nil {
			return res, err
		}
	}
	m.metrics.edit("rebuild")
	m.metrics.setTiles(m.store.Count())
	return res, nil
}

// ClearAll удаляет тайлы по одному через SetTile, чтобы каждое удаление шло общим путём
func (m *Mutator) ClearAll() (int, error) {
	removed := 0
	for m.store.Count() > 0 {
		x, y, z := m.codec.Decode(m.store.At(0).Key)
		step, err := m.setTile(x, y, z, NoTemplate, OrientationNorth)
		removed += step.Removed
		if err != nil {
			return removed, err
		}
	}
	m.metrics.edit("clear")
	m.metrics.setTiles(0)
	return removed, nil
}

// RepositionAll перемещает экземпляры после смены размера тайла
func (m *Mutator) RepositionAll() {
	m.sync.RepositionAll(m.store)
}
