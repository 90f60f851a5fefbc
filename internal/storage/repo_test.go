package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilemap-editor/internal/config"
	"github.com/annel0/tilemap-editor/internal/document"
	"github.com/annel0/tilemap-editor/internal/tilemap"
)

func sampleRecord() *document.Record {
	return &document.Record{
		ID:              uuid.NewString(),
		Width:           tilemap.DefaultWidth,
		TileSize:        1.5,
		DefaultTemplate: "grass",
		Catalog:         "default",
		Entries: []tilemap.Record{
			{Key: 10, Template: "grass", Orientation: tilemap.OrientationEast},
			{Key: 11, Template: "stone", Orientation: tilemap.OrientationNorth},
		},
	}
}

// exerciseRepo общий сценарий для всех реализаций DocumentRepo
func exerciseRepo(t *testing.T, repo DocumentRepo) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		rec := sampleRecord()
		require.NoError(t, repo.Save(ctx, rec))

		got, found, err := repo.Load(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, found, "документ должен найтись")
		assert.Equal(t, rec, got)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		got, found, err := repo.Load(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		rec := sampleRecord()
		require.NoError(t, repo.Save(ctx, rec))
		rec.Entries = rec.Entries[:1]
		rec.TileSize = 3
		require.NoError(t, repo.Save(ctx, rec))

		got, _, err := repo.Load(ctx, rec.ID)
		require.NoError(t, err)
		assert.Len(t, got.Entries, 1)
		assert.Equal(t, 3.0, got.TileSize)
	})

	t.Run("Delete and List", func(t *testing.T) {
		a, b := sampleRecord(), sampleRecord()
		require.NoError(t, repo.Save(ctx, a))
		require.NoError(t, repo.Save(ctx, b))

		ids, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, a.ID)
		assert.Contains(t, ids, b.ID)
		assert.IsIncreasing(t, ids)

		require.NoError(t, repo.Delete(ctx, a.ID))
		require.NoError(t, repo.Delete(ctx, a.ID), "повторное удаление не ошибка")
		_, found, err := repo.Load(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, found)

		ids, err = repo.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, a.ID)
	})

	t.Run("Empty ID", func(t *testing.T) {
		assert.ErrorIs(t, repo.Save(ctx, &document.Record{}), ErrEmptyID)
	})
}

func TestMemoryRepo(t *testing.T) {
	repo := NewMemoryRepo()
	defer repo.Close()
	exerciseRepo(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.Save(ctx, sampleRecord()), context.Canceled)
}

func TestBadgerRepo(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewBadgerRepo(dir)
	require.NoError(t, err)
	exerciseRepo(t, repo)

	rec := sampleRecord()
	require.NoError(t, repo.Save(context.Background(), rec))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "повторное закрытие безопасно")
	assert.Error(t, repo.Save(context.Background(), rec), "закрытое хранилище отказывает")

	reopened, err := NewBadgerRepo(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, found, err := reopened.Load(context.Background(), rec.ID)
	require.NoError(t, err)
	require.True(t, found, "данные переживают переоткрытие")
	assert.Equal(t, rec.Entries, got.Entries)
}

func TestRedisRepo(t *testing.T) {
	addr := os.Getenv("TILEMAP_REDIS_ADDR")
	if addr == "" {
		t.Skip("TILEMAP_REDIS_ADDR not set")
	}
	repo, err := NewRedisRepo(context.Background(), RedisOptions{Addr: addr, KeyPrefix: "tilemap:test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	defer repo.Close()
	exerciseRepo(t, repo)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, config.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepo{}, repo)

	repo, err = Open(ctx, config.StorageConfig{Backend: "badger", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &BadgerRepo{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, config.StorageConfig{Backend: "mongo"})
	assert.Error(t, err)
}
