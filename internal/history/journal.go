// Package history журнал отмены/повтора правок документа.
// Контрольные точки двух видов: объектные (только скалярные поля) и глубокие
// (весь документ вместе со списком тайлов). Глубокие снимки сжимаются zstd.
package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrNoTarget возвращается при контрольной точке без цели
var ErrNoTarget = errors.New("history: nil target")

// Kind вид контрольной точки
type Kind int

const (
	KindObject Kind = iota // одно скалярное поле
	KindDeep               // весь документ
)

func (k Kind) String() string {
	if k == KindDeep {
		return "deep"
	}
	return "object"
}

// Target объект, состояние которого журнал умеет снимать и восстанавливать.
// Экземпляры визуальных объектов в снимки не входят.
type Target interface {
	CaptureObject() ([]byte, error)
	RestoreObject(data []byte) error
	CaptureDeep() ([]byte, error)
	RestoreDeep(data []byte) error
}

// RestoreFunc вызывается после каждого Undo/Redo
type RestoreFunc func(t Target, kind Kind)

// Subscription позволяет отписаться от уведомлений о восстановлении
type Subscription interface {
	Unsubscribe()
}

// Entry описание контрольной точки для UI
type Entry struct {
	Label string
	Kind  Kind
	At    time.Time
}

type checkpoint struct {
	Entry
	target Target
	data   []byte
	// redo стек на момент записи, возвращается при Abort
	redo []checkpoint
}

// Journal ограниченные стеки отмены и повтора
type Journal struct {
	mu      sync.Mutex
	depth   int
	undo    []checkpoint
	redo    []checkpoint
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	subs    map[int]RestoreFunc
	nextSub int
}

// NewJournal создаёт журнал глубиной depth (<= 0: без ограничения)
func NewJournal(depth int) (*Journal, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Journal{
		depth: depth,
		enc:   enc,
		dec:   dec,
		subs:  make(map[int]RestoreFunc),
	}, nil
}

// Close освобождает кодеки zstd
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dec.Close()
	return j.enc.Close()
}

// CheckpointObject фиксирует состояние перед изменением одного поля
func (j *Journal) CheckpointObject(t Target, label string) error {
	return j.record(t, label, KindObject)
}

// CheckpointDeep фиксирует состояние всего документа перед групповой правкой
func (j *Journal) CheckpointDeep(t Target, label string) error {
	return j.record(t, label, KindDeep)
}

func (j *Journal) record(t Target, label string, kind Kind) error {
	if t == nil {
		return ErrNoTarget
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cp, err := j.capture(t, label, kind)
	if err != nil {
		return err
	}
	cp.redo = j.redo
	j.redo = nil
	j.undo = append(j.undo, cp)
	if j.depth > 0 && len(j.undo) > j.depth {
		j.undo = append(j.undo[:0], j.undo[len(j.undo)-j.depth:]...)
	}
	return nil
}

func (j *Journal) capture(t Target, label string, kind Kind) (checkpoint, error) {
	var (
		data []byte
		err  error
	)
	if kind == KindDeep {
		data, err = t.CaptureDeep()
	} else {
		data, err = t.CaptureObject()
	}
	if err != nil {
		return checkpoint{}, fmt.Errorf("capture %s %q: %w", kind, label, err)
	}
	if kind == KindDeep {
		data = j.enc.EncodeAll(data, make([]byte, 0, len(data)/4))
	}
	return checkpoint{
		Entry:  Entry{Label: label, Kind: kind, At: time.Now()},
		target: t,
		data:   data,
	}, nil
}

func (j *Journal) apply(cp checkpoint) error {
	data := cp.data
	if cp.Kind == KindDeep {
		raw, err := j.dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompress %q: %w", cp.Label, err)
		}
		return cp.target.RestoreDeep(raw)
	}
	return cp.target.RestoreObject(data)
}

// Undo откатывает последнюю контрольную точку. Возвращает false, если отменять нечего.
func (j *Journal) Undo() (bool, error) {
	return j.step(&j.undo, &j.redo)
}

// Redo повторяет последнюю отменённую правку
func (j *Journal) Redo() (bool, error) {
	return j.step(&j.redo, &j.undo)
}

func (j *Journal) step(from, to *[]checkpoint) (bool, error) {
	j.mu.Lock()
	if len(*from) == 0 {
		j.mu.Unlock()
		return false, nil
	}
	cp := (*from)[len(*from)-1]

	// Текущее состояние уходит в противоположный стек тем же видом снимка
	current, err := j.capture(cp.target, cp.Label, cp.Kind)
	if err != nil {
		j.mu.Unlock()
		return false, err
	}
	if err := j.apply(cp); err != nil {
		j.mu.Unlock()
		return false, fmt.Errorf("restore %q: %w", cp.Label, err)
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, current)
	subs := j.subscribers()
	j.mu.Unlock()

	notify(subs, cp.target, cp.Kind)
	return true, nil
}

// Abort восстанавливает состояние последней контрольной точки и удаляет её.
// Используется, когда правка после контрольной точки завершилась ошибкой.
func (j *Journal) Abort() error {
	j.mu.Lock()
	if len(j.undo) == 0 {
		j.mu.Unlock()
		return nil
	}
	cp := j.undo[len(j.undo)-1]
	if err := j.apply(cp); err != nil {
		j.mu.Unlock()
		return fmt.Errorf("abort %q: %w", cp.Label, err)
	}
	j.undo = j.undo[:len(j.undo)-1]
	j.redo = cp.redo
	subs := j.subscribers()
	j.mu.Unlock()

	notify(subs, cp.target, cp.Kind)
	return nil
}

// Subscribe регистрирует обработчик восстановления
func (j *Journal) Subscribe(fn RestoreFunc) Subscription {
	j.mu.Lock()
	defer j.mu.Unlock()
	id := j.nextSub
	j.nextSub++
	j.subs[id] = fn
	return &journalSub{j: j, id: id}
}

func (j *Journal) subscribers() []RestoreFunc {
	out := make([]RestoreFunc, 0, len(j.subs))
	for id := 0; id < j.nextSub; id++ {
		if fn, ok := j.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(subs []RestoreFunc, t Target, kind Kind) {
	for _, fn := range subs {
		fn(t, kind)
	}
}

type journalSub struct {
	j  *Journal
	id int
}

func (s *journalSub) Unsubscribe() {
	s.j.mu.Lock()
	delete(s.j.subs, s.id)
	s.j.mu.Unlock()
}

// CanUndo сообщает, есть ли что отменять
func (j *Journal) CanUndo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undo) > 0
}

// CanRedo сообщает, есть ли что повторять
func (j *Journal) CanRedo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.redo) > 0
}

// UndoEntries возвращает контрольные точки от старой к новой
func (j *Journal) UndoEntries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.undo))
	for i, cp := range j.undo {
		out[i] = cp.Entry
	}
	return out
}

// SnapshotSize возвращает суммарный размер хранимых снимков в байтах
func (j *Journal) SnapshotSize() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, cp := range j.undo {
		n += len(cp.data)
	}
	for _, cp := range j.redo {
		n += len(cp.data)
	}
	return n
}
