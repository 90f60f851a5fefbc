package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/tilemap-editor/internal/document"
	"github.com/annel0/tilemap-editor/internal/logging"
)

// RedisOptions параметры подключения к Redis
type RedisOptions struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // 0: без истечения
}

// RedisRepo хранит документы в Redis: JSON по ключу <prefix><id> и множество идентификаторов
type RedisRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRepo подключается к Redis и проверяет соединение
func NewRedisRepo(ctx context.Context, opts RedisOptions) (*RedisRepo, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "tilemap:doc:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logging.GetStorageLogger().Info("Connected to Redis at %s", opts.Addr)

	return &RedisRepo{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		ttl:       opts.TTL,
	}, nil
}

func (r *RedisRepo) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisRepo) indexKey() string {
	return r.keyPrefix + "index"
}

// Save сохраняет документ и добавляет его в индекс
func (r *RedisRepo) Save(ctx context.Context, rec *document.Record) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(rec.ID), data, r.ttl)
	pipe.SAdd(ctx, r.indexKey(), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", rec.ID, err)
	}
	return nil
}

// Load загружает документ
func (r *RedisRepo) Load(ctx context.Context, id string) (*document.Record, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis load %s: %w", id, err)
	}
	rec, err := decode(id, data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Delete удаляет документ и его запись в индексе
func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(id))
	pipe.SRem(ctx, r.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List возвращает идентификаторы документов. Истёкшие по TTL документы
// удаляются из индекса.
func (r *RedisRepo) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	live := ids[:0]
	for _, id := range ids {
		n, err := r.client.Exists(ctx, r.key(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			r.client.SRem(ctx, r.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	sort.Strings(live)
	return live, nil
}

// Close закрывает клиент
func (r *RedisRepo) Close() error {
	return r.client.Close()
}
