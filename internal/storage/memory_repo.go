package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/annel0/tilemap-editor/internal/document"
)

// MemoryRepo реализует DocumentRepo в памяти.
// Используется в тестах и когда постоянное хранилище не нужно.
// ВНИМАНИЕ: данные теряются при выходе из редактора!
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]byte // id -> JSON
}

// NewMemoryRepo создаёт пустое хранилище в памяти
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]byte),
	}
}

// Save сохраняет копию документа
func (r *MemoryRepo) Save(ctx context.Context, rec *document.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rec.ID] = data
	return nil
}

// Load загружает документ
func (r *MemoryRepo) Load(ctx context.Context, id string) (*document.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.RLock()
	data, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	rec, err := decode(id, data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Delete удаляет документ
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// List возвращает идентификаторы документов
func (r *MemoryRepo) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := make([]string, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// Close ничего не делает
func (r *MemoryRepo) Close() error {
	return nil
}
