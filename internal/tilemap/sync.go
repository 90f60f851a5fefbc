package tilemap

import (
	"fmt"

	"github.com/annel0/tilemap-editor/internal/vec"
)

// Instancer непрозрачная возможность хоста создавать визуальные объекты из шаблонов
type Instancer interface {
	// Instantiate создаёт экземпляр шаблона в мировой позиции с поворотом
	Instantiate(template TemplateRef, pos vec.Vec3Float, o Orientation) (InstanceHandle, error)
	// Destroy уничтожает экземпляр
	Destroy(h InstanceHandle)
	// Reposition перемещает экземпляр, не трогая его состояние
	Reposition(h InstanceHandle, pos vec.Vec3Float)
}

// Synchronizer согласует логическое содержимое хранилища с экземплярами хоста.
// Каждый созданный экземпляр уничтожается ровно один раз.
type Synchronizer struct {
	instancer Instancer
	codec     Codec
	tileSize  float64
	live      map[InstanceHandle]Key
	metrics   *Metrics
}

// NewSynchronizer создаёт синхронизатор
func NewSynchronizer(instancer Instancer, codec Codec, tileSize float64, metrics *Metrics) *Synchronizer {
	return &Synchronizer{
		instancer: instancer,
		codec:     codec,
		tileSize:  tileSize,
		live:      make(map[InstanceHandle]Key),
		metrics:   metrics,
	}
}

// TileSize возвращает текущий размер тайла
func (s *Synchronizer) TileSize() float64 {
	return s.tileSize
}

// SetTileSize меняет размер тайла; позиции экземпляров обновляет RepositionAll
func (s *Synchronizer) SetTileSize(size float64) {
	s.tileSize = size
}

// Live возвращает число живых экземпляров
func (s *Synchronizer) Live() int {
	return len(s.live)
}

// Handles возвращает все живые экземпляры
func (s *Synchronizer) Handles() []InstanceHandle {
	out := make([]InstanceHandle, 0, len(s.live))
	for h := range s.live {
		out = append(out, h)
	}
	return out
}

// WorldPosition возвращает локальную позицию центра ячейки
func (s *Synchronizer) WorldPosition(key Key) vec.Vec3Float {
	return s.codec.DecodeVec(key).Scale(s.tileSize)
}

// Rebuild уничтожает прежний экземпляр записи и, если шаблон задан, создаёт новый.
// Возвращает true, если после вызова экземпляр существует.
func (s *Synchronizer) Rebuild(e *TileEntry) (bool, error) {
	s.Release(e)
	if e.Template.IsNone() {
		return false, nil
	}

	h, err := s.instancer.Instantiate(e.Template, s.WorldPosition(e.Key), e.Orientation)
	if err != nil {
		return false, fmt.Errorf("instantiate %q at %d: %w", e.Template, e.Key, err)
	}
	e.Instance = h
	s.live[h] = e.Key
	s.metrics.instanceCreated()
	return true, nil
}

// Release уничтожает экземпляр записи, если он есть
func (s *Synchronizer) Release(e *TileEntry) {
	if e.Instance == NoInstance {
		return
	}
	s.instancer.Destroy(e.Instance)
	delete(s.live, e.Instance)
	e.Instance = NoInstance
	s.metrics.instanceDestroyed()
}

// RepositionAll пересчитывает позиции всех экземпляров без пересоздания
func (s *Synchronizer) RepositionAll(store *Store) {
	store.Each(func(_ int, e *TileEntry) bool {
		if e.Instance != NoInstance {
			s.instancer.Reposition(e.Instance, s.WorldPosition(e.Key))
		}
		return true
	})
}

// Reconcile приводит экземпляры в соответствие с восстановленным содержимым хранилища.
// previous: записи до восстановления вместе с их экземплярами. Неизменённые записи
// сохраняют экземпляр и только перемещаются; изменённые пересоздаются; лишние уничтожаются.
func (s *Synchronizer) Reconcile(store *Store, previous map[Key]TileEntry) error {
	var firstErr error
	store.Each(func(_ int, e *TileEntry) bool {
		old, had := previous[e.Key]
		delete(previous, e.Key)

		e.Instance = NoInstance
		if had && old.Instance != NoInstance && old.Template == e.Template && old.Orientation == e.Orientation {
			e.Instance = old.Instance
			s.instancer.Reposition(e.Instance, s.WorldPosition(e.Key))
			return true
		}
		if had {
			s.Release(&old)
		}
		if _, err := s.Rebuild(e); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})

	for _, old := range previous {
		s.Release(&old)
	}
	s.metrics.setTiles(store.Count())
	return firstErr
}
