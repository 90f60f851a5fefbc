// Package document владеет сохраняемым состоянием карты тайлов и применяет
// политику контрольных точек: групповые правки предваряются глубоким снимком,
// правки одного поля объектным.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/tilemap-editor/internal/eventbus"
	"github.com/annel0/tilemap-editor/internal/history"
	"github.com/annel0/tilemap-editor/internal/logging"
	"github.com/annel0/tilemap-editor/internal/tilemap"
)

var (
	// ErrInvalidTileSize размер тайла должен быть положительным
	ErrInvalidTileSize = errors.New("document: tile size must be positive")
	// ErrNoInstancer документ без возможности создавать экземпляры
	ErrNoInstancer = errors.New("document: instancer is required")
)

// eventSource имя источника событий документа
const eventSource = "document"

// Options параметры создания документа
type Options struct {
	Width           int
	TileSize        float64
	DefaultTemplate tilemap.TemplateRef
	CatalogName     string
	Instancer       tilemap.Instancer
	// Rand последовательность случайных ориентаций; nil: из Seed
	Rand *rand.Rand
	Seed int64
	// Journal журнал отмены; nil: правки без контрольных точек
	Journal *history.Journal
	// Bus шина уведомлений об изменениях; nil: без событий
	Bus     eventbus.EventBus
	Metrics *tilemap.Metrics
}

// Document карта тайлов с настройками, хранилищем и экземплярами
type Document struct {
	id              uuid.UUID
	tileSize        float64
	defaultTemplate tilemap.TemplateRef
	catalogName     string

	codec   tilemap.Codec
	store   *tilemap.Store
	sync    *tilemap.Synchronizer
	mutator *tilemap.Mutator

	journal    *history.Journal
	restoreSub history.Subscription
	bus        eventbus.EventBus

	// pending записи с экземплярами до глубокого восстановления, ждут согласования
	pending map[tilemap.Key]tilemap.TileEntry
	dirty   bool
	log     *logging.Logger
}

// New создаёт пустой документ
func New(opts Options) (*Document, error) {
	if opts.Instancer == nil {
		return nil, ErrNoInstancer
	}
	if opts.Width == 0 {
		opts.Width = tilemap.DefaultWidth
	}
	if opts.TileSize == 0 {
		opts.TileSize = 1
	}
	if opts.TileSize < 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidTileSize, opts.TileSize)
	}
	codec, err := tilemap.NewCodec(opts.Width)
	if err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	store := tilemap.NewStore()
	sync := tilemap.NewSynchronizer(opts.Instancer, codec, opts.TileSize, opts.Metrics)
	d := &Document{
		id:              uuid.New(),
		tileSize:        opts.TileSize,
		defaultTemplate: opts.DefaultTemplate,
		catalogName:     opts.CatalogName,
		codec:           codec,
		store:           store,
		sync:            sync,
		mutator:         tilemap.NewMutator(codec, store, sync, rng, opts.Metrics),
		journal:         opts.Journal,
		bus:             opts.Bus,
		log:             logging.GetDocumentLogger(),
	}
	if d.journal != nil {
		d.restoreSub = d.journal.Subscribe(d.onRestore)
	}
	return d, nil
}

// Open создаёт документ из сохранённой записи и строит экземпляры
func Open(opts Options, rec *Record) (*Document, error) {
	if rec.TileSize > 0 {
		opts.TileSize = rec.TileSize
	}
	opts.DefaultTemplate = rec.DefaultTemplate
	opts.CatalogName = rec.Catalog
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := d.LoadRecord(rec); err != nil {
		d.Close()
		return nil, err
	}
	d.dirty = false
	return d, nil
}

// Close отписывается от журнала и уничтожает все экземпляры
func (d *Document) Close() {
	if d.restoreSub != nil {
		d.restoreSub.Unsubscribe()
		d.restoreSub = nil
	}
	d.store.Each(func(_ int, e *tilemap.TileEntry) bool {
		d.sync.Release(e)
		return true
	})
}

// ID идентификатор документа
func (d *Document) ID() uuid.UUID { return d.id }

// TileSize размер тайла в мировых единицах
func (d *Document) TileSize() float64 { return d.tileSize }

// DefaultTemplate шаблон, выбранный по умолчанию
func (d *Document) DefaultTemplate() tilemap.TemplateRef { return d.defaultTemplate }

// CatalogName имя каталога шаблонов
func (d *Document) CatalogName() string { return d.catalogName }

// Codec кодек координат документа
func (d *Document) Codec() tilemap.Codec { return d.codec }

// Count количество тайлов
func (d *Document) Count() int { return d.store.Count() }

// Live количество живых экземпляров
func (d *Document) Live() int { return d.sync.Live() }

// Get возвращает тайл в ячейке
func (d *Document) Get(x, y, z int) (tilemap.TileEntry, bool) {
	return d.mutator.Get(x, y, z)
}

// Each обходит тайлы в порядке хранения
func (d *Document) Each(fn func(e tilemap.TileEntry) bool) {
	d.store.Each(func(_ int, e *tilemap.TileEntry) bool {
		return fn(*e)
	})
}

// Handles возвращает экземпляры всех тайлов
func (d *Document) Handles() []tilemap.InstanceHandle {
	return d.sync.Handles()
}

// Validate проверяет инварианты хранилища и экземпляров
func (d *Document) Validate() error {
	if err := d.store.Validate(); err != nil {
		return err
	}
	withInstance := 0
	d.store.Each(func(_ int, e *tilemap.TileEntry) bool {
		if e.Instance != tilemap.NoInstance {
			withInstance++
		}
		return true
	})
	if withInstance != d.sync.Live() {
		return fmt.Errorf("document: %d entries with instances, %d live", withInstance, d.sync.Live())
	}
	return nil
}

// MarkDirty помечает документ изменённым
func (d *Document) MarkDirty() { d.dirty = true }

// Dirty сообщает, есть ли несохранённые изменения
func (d *Document) Dirty() bool { return d.dirty }

// ClearDirty сбрасывает флаг после сохранения
func (d *Document) ClearDirty() { d.dirty = false }

func (d *Document) checkpointDeep(label string) error {
	if d.journal == nil {
		return nil
	}
	return d.journal.CheckpointDeep(d, label)
}

func (d *Document) checkpointObject(label string) error {
	if d.journal == nil {
		return nil
	}
	return d.journal.CheckpointObject(d, label)
}

// abort откатывает незавершённую правку к её контрольной точке
func (d *Document) abort(label string, cause error) error {
	if d.journal == nil {
		return cause
	}
	if err := d.journal.Abort(); err != nil {
		d.log.Error("откат правки %q не удался: %v", label, err)
		return errors.Join(cause, err)
	}
	d.log.Warn("правка %q отменена: %v", label, cause)
	return cause
}

// SetRegion применяет шаблон ко всем ячейкам региона одной отменяемой правкой
func (d *Document) SetRegion(label string, r tilemap.Region, t tilemap.TemplateRef, o tilemap.Orientation) (tilemap.RegionResult, error) {
	if err := d.checkpointDeep(label); err != nil {
		return tilemap.RegionResult{}, err
	}
	res, err := d.mutator.SetRegion(r, t, o)
	if err != nil {
		return tilemap.RegionResult{}, d.abort(label, err)
	}
	d.MarkDirty()

	origin, size := [3]int{r.Min.X, r.Min.Y, r.Min.Z}, [3]int{r.Size.X, r.Size.Y, r.Size.Z}
	d.publish(eventbus.TypeRegionChanged, eventbus.TileChange{
		Op:          label,
		Min:         &origin,
		Size:        &size,
		Template:    string(t),
		Orientation: int(o),
		Placed:      res.Placed,
		Removed:     res.Removed,
	})
	d.log.Debug("%s %s %q: +%d -%d", label, r, t, res.Placed, res.Removed)
	return res, nil
}

// SetTile меняет одну ячейку. Замена может и удалить, и создать экземпляр, поэтому снимок глубокий.
func (d *Document) SetTile(x, y, z int, t tilemap.TemplateRef, o tilemap.Orientation) (bool, error) {
	const label = "Set Tile"
	if err := d.checkpointDeep(label); err != nil {
		return false, err
	}
	present, err := d.mutator.SetTile(x, y, z, t, o)
	if err != nil {
		return false, d.abort(label, err)
	}
	d.MarkDirty()
	return present, nil
}

// RebuildAll пересоздаёт экземпляры всех тайлов
func (d *Document) RebuildAll() (tilemap.RegionResult, error) {
	const label = "Update All"
	if err := d.checkpointDeep(label); err != nil {
		return tilemap.RegionResult{}, err
	}
	res, err := d.mutator.RebuildAll()
	if err != nil {
		return res, d.abort(label, err)
	}
	d.MarkDirty()
	d.publish(eventbus.TypeTilesRebuilt, eventbus.TileChange{Op: label, Placed: res.Placed})
	return res, nil
}

// ClearAll удаляет все тайлы
func (d *Document) ClearAll() (int, error) {
	const label = "Clear"
	if err := d.checkpointDeep(label); err != nil {
		return 0, err
	}
	removed, err := d.mutator.ClearAll()
	if err != nil {
		return removed, d.abort(label, err)
	}
	d.MarkDirty()
	d.publish(eventbus.TypeTilesCleared, eventbus.TileChange{Op: label, Removed: removed})
	return removed, nil
}

// Apply выполняет произвольный пакет правок как одну отменяемую операцию
func (d *Document) Apply(label string, fn func(m *tilemap.Mutator) error) error {
	if err := d.checkpointDeep(label); err != nil {
		return err
	}
	before := d.store.Count()
	if err := fn(d.mutator); err != nil {
		return d.abort(label, err)
	}
	d.MarkDirty()
	d.publish(eventbus.TypeRegionChanged, eventbus.TileChange{Op: label, Placed: d.store.Count() - before})
	return nil
}

// SetTileSize меняет размер тайла и перемещает экземпляры без пересоздания
func (d *Document) SetTileSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidTileSize, size)
	}
	if size == d.tileSize {
		return nil
	}
	if err := d.checkpointDeep("Tile Size"); err != nil {
		return err
	}
	d.tileSize = size
	d.sync.SetTileSize(size)
	d.mutator.RepositionAll()
	d.MarkDirty()
	d.publish(eventbus.TypeTileSizeChanged, eventbus.TileChange{Op: "Tile Size", TileSize: size})
	return nil
}

// SetDefaultTemplate меняет шаблон по умолчанию
func (d *Document) SetDefaultTemplate(t tilemap.TemplateRef) error {
	if t == d.defaultTemplate {
		return nil
	}
	if err := d.checkpointObject("Default Template"); err != nil {
		return err
	}
	d.defaultTemplate = t
	d.MarkDirty()
	d.publish(eventbus.TypeSettingsChanged, eventbus.TileChange{Op: "Default Template", Template: string(t)})
	return nil
}

// SetCatalogName меняет ссылку на каталог шаблонов
func (d *Document) SetCatalogName(name string) error {
	if name == d.catalogName {
		return nil
	}
	if err := d.checkpointObject("Catalog"); err != nil {
		return err
	}
	d.catalogName = name
	d.MarkDirty()
	d.publish(eventbus.TypeSettingsChanged, eventbus.TileChange{Op: "Catalog"})
	return nil
}

func (d *Document) publish(eventType string, change eventbus.TileChange) {
	if d.bus == nil {
		return
	}
	change.DocumentID = d.id.String()
	ev, err := eventbus.NewEnvelope(eventSource, eventType, change)
	if err != nil {
		d.log.Warn("событие %s не сериализовано: %v", eventType, err)
		return
	}
	ev.CorrelationID = d.id.String()
	if err := d.bus.Publish(context.Background(), ev); err != nil {
		d.log.Warn("событие %s не опубликовано: %v", eventType, err)
	}
}

// Record возвращает сохраняемую форму документа
func (d *Document) Record() *Record {
	return &Record{
		ID:              d.id.String(),
		Width:           d.codec.Width(),
		TileSize:        d.tileSize,
		DefaultTemplate: d.defaultTemplate,
		Catalog:         d.catalogName,
		Entries:         d.store.Records(),
	}
}

// LoadRecord заменяет содержимое документа сохранённой записью.
// Неизменённые тайлы сохраняют экземпляры, остальные пересоздаются.
func (d *Document) LoadRecord(rec *Record) error {
	if rec.ID != "" {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return fmt.Errorf("document id: %w", err)
		}
		d.id = id
	}
	if err := d.replace(rec); err != nil {
		return err
	}
	d.MarkDirty()
	return d.reconcile()
}

// replace заменяет логические данные; экземпляры согласует reconcile
func (d *Document) replace(rec *Record) error {
	if rec.TileSize < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidTileSize, rec.TileSize)
	}
	entries := rec.Entries
	if rec.Width != 0 && rec.Width != d.codec.Width() {
		from, err := tilemap.NewCodec(rec.Width)
		if err != nil {
			return err
		}
		entries = rekey(entries, from, d.codec)
	}

	previous := d.pending
	if previous == nil {
		previous = make(map[tilemap.Key]tilemap.TileEntry, d.store.Count())
		d.store.Each(func(_ int, e *tilemap.TileEntry) bool {
			previous[e.Key] = *e
			return true
		})
	}

	d.store.Reset()
	for _, r := range entries {
		if r.Template.IsNone() || !r.Orientation.Valid() || r.Orientation == tilemap.OrientationRandom {
			d.log.Warn("пропущена некорректная запись тайла %d", r.Key)
			continue
		}
		if _, err := d.store.Insert(tilemap.TileEntry{Key: r.Key, Template: r.Template, Orientation: r.Orientation}); err != nil {
			d.log.Warn("пропущена запись тайла: %v", err)
		}
	}
	if rec.TileSize > 0 {
		d.tileSize = rec.TileSize
	}
	d.defaultTemplate = rec.DefaultTemplate
	d.catalogName = rec.Catalog
	d.pending = previous
	return nil
}

// reconcile приводит экземпляры в соответствие с хранилищем после замены данных
func (d *Document) reconcile() error {
	d.sync.SetTileSize(d.tileSize)
	previous := d.pending
	d.pending = nil
	if previous == nil {
		d.sync.RepositionAll(d.store)
		return nil
	}
	return d.sync.Reconcile(d.store, previous)
}

// CaptureObject снимок скалярных полей
func (d *Document) CaptureObject() ([]byte, error) {
	return json.Marshal(settings{
		TileSize:        d.tileSize,
		DefaultTemplate: d.defaultTemplate,
		Catalog:         d.catalogName,
	})
}

// RestoreObject восстанавливает скалярные поля
func (d *Document) RestoreObject(data []byte) error {
	var s settings
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.TileSize > 0 {
		d.tileSize = s.TileSize
	}
	d.defaultTemplate = s.DefaultTemplate
	d.catalogName = s.Catalog
	d.MarkDirty()
	return nil
}

// CaptureDeep снимок всего документа без экземпляров
func (d *Document) CaptureDeep() ([]byte, error) {
	rec := d.Record()
	rec.ID = ""
	return json.Marshal(rec)
}

// RestoreDeep восстанавливает логические данные; экземпляры согласует onRestore
func (d *Document) RestoreDeep(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if err := d.replace(&rec); err != nil {
		return err
	}
	d.MarkDirty()
	return nil
}

// onRestore вызывается журналом после Undo/Redo/Abort
func (d *Document) onRestore(t history.Target, kind history.Kind) {
	if t != history.Target(d) {
		return
	}
	if err := d.reconcile(); err != nil {
		d.log.Error("согласование экземпляров после восстановления: %v", err)
	}
	d.publish(eventbus.TypeDocumentRestore, eventbus.TileChange{Op: kind.String(), TileSize: d.tileSize})
}

var _ history.Target = (*Document)(nil)
