package eventbus

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	for _, typ := range []string{TypeRegionChanged, TypeTilesCleared, TypeTilesRebuilt} {
		ev, err := NewEnvelope("doc", typ, TileChange{Op: typ})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{TypeRegionChanged, TypeTilesCleared, TypeTilesRebuilt}, got)
	mu.Unlock()
}

func TestMemoryBus_Filter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []*Envelope
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeTilesCleared}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	region, _ := NewEnvelope("doc", TypeRegionChanged, TileChange{})
	cleared, _ := NewEnvelope("doc", TypeTilesCleared, TileChange{Removed: 4})
	require.NoError(t, bus.Publish(context.Background(), region))
	require.NoError(t, bus.Publish(context.Background(), cleared))
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	tc, err := DecodeTileChange(got[0])
	require.NoError(t, err)
	assert.Equal(t, 4, tc.Removed)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := 0
	var mu sync.Mutex
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewEnvelope("doc", TypeTilesRebuilt, TileChange{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
	assert.Equal(t, uint64(1), bus.Metrics().Published)
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "повторное закрытие допустимо")

	ev, _ := NewEnvelope("doc", TypeTilesCleared, TileChange{})
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrClosed)
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	block := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		<-block
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ev, _ := NewEnvelope("doc", TypeRegionChanged, TileChange{})
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	close(block)

	stats := bus.Metrics()
	assert.NotZero(t, stats.Dropped)
	assert.Equal(t, uint64(5), stats.Published+stats.Dropped)
}

func TestNewEnvelope_UniqueIDs(t *testing.T) {
	a, err := NewEnvelope("doc", TypeRegionChanged, TileChange{})
	require.NoError(t, err)
	b, err := NewEnvelope("doc", TypeRegionChanged, TileChange{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.Equal(t, 1, a.Version)
}

func TestMetricsExporter_Collect(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	for i := 0; i < 3; i++ {
		ev, _ := NewEnvelope("doc", TypeTilesCleared, TileChange{})
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	me.Collect()
	me.Collect()

	assert.Equal(t, 3.0, testutil.ToFloat64(me.published))
}

func TestJetStreamBus_RoundTrip(t *testing.T) {
	url := os.Getenv("TILEMAP_NATS_URL")
	if url == "" {
		t.Skip("TILEMAP_NATS_URL not set")
	}
	bus, err := NewJetStreamBus(url, "TILEMAP_TEST", time.Minute)
	require.NoError(t, err)
	defer bus.Close()

	got := make(chan *Envelope, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeTileSizeChanged}}, func(ctx context.Context, ev *Envelope) {
		select {
		case got <- ev:
		default:
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev, err := NewEnvelope("doc", TypeTileSizeChanged, TileChange{TileSize: 2})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case recv := <-got:
		assert.Equal(t, ev.ID, recv.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "tilemap.tiles.region", Subject(TypeRegionChanged))
	assert.Equal(t, "tilemap.tiles.restored", Subject(" "+TypeDocumentRestore))
}
