package tilemap

import (
	"testing"

	"github.com/annel0/tilemap-editor/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotEntries копия записей хранилища с экземплярами, как перед восстановлением
func snapshotEntries(s *Store) map[Key]TileEntry {
	out := make(map[Key]TileEntry)
	s.Each(func(_ int, e *TileEntry) bool {
		out[e.Key] = *e
		return true
	})
	return out
}

func TestSynchronizer_ReconcileKeepsUnchangedInstances(t *testing.T) {
	m, inst := newTestMutator(t, 1)
	_, err := m.SetRegion(Region{Min: vec.Vec3{}, Size: vec.Vec3{X: 3, Y: 1, Z: 1}}, "grass", OrientationNorth)
	require.NoError(t, err)
	kept, _ := m.Get(0, 0, 0)
	changed, _ := m.Get(1, 0, 0)

	previous := snapshotEntries(m.Store())
	// Восстановленное содержимое: (0,0,0) без изменений, (1,0,0) другой шаблон,
	// (2,0,0) исчезла, (5,0,0) появилась
	codec := m.Codec()
	m.Store().Reset()
	for _, e := range []TileEntry{
		{Key: codec.Encode(0, 0, 0), Template: "grass", Orientation: OrientationNorth},
		{Key: codec.Encode(1, 0, 0), Template: "stone", Orientation: OrientationNorth},
		{Key: codec.Encode(5, 0, 0), Template: "water", Orientation: OrientationEast},
	} {
		_, err := m.Store().Insert(e)
		require.NoError(t, err)
	}
	createdBefore, destroyedBefore := inst.created, inst.destroyed

	require.NoError(t, m.sync.Reconcile(m.Store(), previous))

	got, _ := m.Get(0, 0, 0)
	assert.Equal(t, kept.Instance, got.Instance, "неизменённая запись сохраняет экземпляр")
	got, _ = m.Get(1, 0, 0)
	assert.NotEqual(t, changed.Instance, got.Instance)
	assert.Equal(t, TemplateRef("stone"), inst.live[got.Instance].template)

	assert.Equal(t, 2, inst.created-createdBefore, "пересоздан (1,0,0) и создан (5,0,0)")
	assert.Equal(t, 2, inst.destroyed-destroyedBefore, "уничтожены старые (1,0,0) и (2,0,0)")
	assertConsistent(t, m, inst)
}

func TestRepositionAllKeepsInstances(t *testing.T) {
	m, inst := newTestMutator(t, 1)
	_, err := m.SetTile(2, 1, -3, "grass", OrientationWest)
	require.NoError(t, err)
	before, _ := m.Get(2, 1, -3)

	m.sync.SetTileSize(2)
	m.RepositionAll()

	after, _ := m.Get(2, 1, -3)
	assert.Equal(t, before.Instance, after.Instance)
	assert.Equal(t, vec.Vec3Float{X: 4, Y: 2, Z: -6}, inst.live[after.Instance].pos)
	assert.Equal(t, 1, inst.created)
	assert.Equal(t, 1, inst.moved)
}

func TestWorldPosition(t *testing.T) {
	s := NewSynchronizer(newFakeInstancer(), MustCodec(100), 0.5, nil)
	key := MustCodec(100).Encode(-4, 2, 10)
	assert.Equal(t, vec.Vec3Float{X: -2, Y: 1, Z: 5}, s.WorldPosition(key))
}
