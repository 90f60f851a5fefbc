// Package storage сохраняет документы карт тайлов между сессиями редактора.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annel0/tilemap-editor/internal/config"
	"github.com/annel0/tilemap-editor/internal/document"
)

// ErrEmptyID документ без идентификатора
var ErrEmptyID = errors.New("storage: empty document id")

// DocumentRepo определяет интерфейс хранилища документов.
// Хранится только сохраняемая форма документа (document.Record), экземпляры никогда.
type DocumentRepo interface {
	// Save сохраняет документ, перезаписывая прежнюю версию
	Save(ctx context.Context, rec *document.Record) error

	// Load загружает документ. false: документ не найден (первый запуск).
	Load(ctx context.Context, id string) (*document.Record, bool, error)

	// Delete удаляет документ; отсутствие документа не ошибка
	Delete(ctx context.Context, id string) error

	// List возвращает идентификаторы сохранённых документов по возрастанию
	List(ctx context.Context) ([]string, error)

	Close() error
}

func encode(rec *document.Record) ([]byte, error) {
	if rec == nil || rec.ID == "" {
		return nil, ErrEmptyID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", rec.ID, err)
	}
	return data, nil
}

func decode(id string, data []byte) (*document.Record, error) {
	var rec document.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &rec, nil
}

// Open создаёт хранилище по конфигурации: badger, redis или memory
func Open(ctx context.Context, cfg config.StorageConfig) (DocumentRepo, error) {
	switch cfg.Backend {
	case "", "badger":
		return NewBadgerRepo(cfg.Path)
	case "redis":
		return NewRedisRepo(ctx, RedisOptions{
			Addr:      cfg.Redis.GetRedisAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL(),
		})
	case "memory":
		return NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
