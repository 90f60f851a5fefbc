package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/tilemap-editor/internal/document"
	"github.com/annel0/tilemap-editor/internal/logging"
)

// badgerPrefix префикс ключей документов
const badgerPrefix = "tilemap:"

// BadgerRepo хранит документы во встроенной BadgerDB: ключ tilemap:<id>, значение JSON
type BadgerRepo struct {
	db      *badger.DB
	path    string
	mu      sync.RWMutex
	isReady bool
}

// NewBadgerRepo открывает (или создаёт) базу в директории path
func NewBadgerRepo(path string) (*BadgerRepo, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	logging.GetStorageLogger().Info("BadgerDB открыта: %s", path)

	return &BadgerRepo{
		db:      db,
		path:    path,
		isReady: true,
	}, nil
}

func documentKey(id string) []byte {
	return []byte(badgerPrefix + id)
}

func (r *BadgerRepo) ready() error {
	if !r.isReady {
		return fmt.Errorf("хранилище %s закрыто", r.path)
	}
	return nil
}

// Save сохраняет документ
func (r *BadgerRepo) Save(ctx context.Context, rec *document.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(rec.ID), data)
	})
}

// Load загружает документ
func (r *BadgerRepo) Load(ctx context.Context, id string) (*document.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return nil, false, err
	}

	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения документа %s: %w", id, err)
	}

	rec, err := decode(id, data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Delete удаляет документ
func (r *BadgerRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(documentKey(id))
	})
}

// List возвращает идентификаторы документов в порядке ключей
func (r *BadgerRepo) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return nil, err
	}

	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), badgerPrefix))
		}
		return nil
	})
	return ids, err
}

// Close закрывает базу
func (r *BadgerRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isReady {
		return nil
	}
	r.isReady = false
	return r.db.Close()
}
