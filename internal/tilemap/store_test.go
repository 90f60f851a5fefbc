package tilemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInsertFind(t *testing.T) {
	s := NewStore()

	pos, err := s.Insert(TileEntry{Key: 10, Template: "grass"})
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	pos, err = s.Insert(TileEntry{Key: 20, Template: "stone"})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	found, ok := s.Find(20)
	require.True(t, ok)
	assert.Equal(t, 1, found)
	assert.Equal(t, TemplateRef("stone"), s.At(found).Template)

	_, ok = s.Find(30)
	assert.False(t, ok)
	assert.Equal(t, 2, s.Count())
	require.NoError(t, s.Validate())
}

func TestStoreInsertDuplicateKeyLeavesStateUnchanged(t *testing.T) {
	s := NewStore()
	_, err := s.Insert(TileEntry{Key: 7, Template: "grass", Orientation: 1})
	require.NoError(t, err)

	_, err = s.Insert(TileEntry{Key: 7, Template: "stone", Orientation: 2})
	require.ErrorIs(t, err, ErrDuplicateKey)

	assert.Equal(t, 1, s.Count())
	e, ok := s.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, TemplateRef("grass"), e.Template, "дубликат не должен перезаписывать запись")
	require.NoError(t, s.Validate())
}

func TestStoreRemoveAtReindexes(t *testing.T) {
	s := NewStore()
	for _, k := range []Key{1, 2, 3, 4} {
		_, err := s.Insert(TileEntry{Key: k, Template: "t"})
		require.NoError(t, err)
	}

	removed, err := s.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, Key(2), removed.Key)

	assert.Equal(t, []Key{1, 3, 4}, s.Keys(), "порядок остальных записей сохраняется")
	pos, ok := s.Find(4)
	require.True(t, ok)
	assert.Equal(t, 2, pos, "позиции после удалённой сдвигаются")
	_, ok = s.Find(2)
	assert.False(t, ok)
	require.NoError(t, s.Validate())

	_, err = s.RemoveAt(3)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
	assert.Nil(t, s.At(-1))
}

func TestStoreResetAndRecords(t *testing.T) {
	s := NewStore()
	_, _ = s.Insert(TileEntry{Key: 5, Template: "a", Orientation: 3, Instance: 99})

	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, Record{Key: 5, Template: "a", Orientation: 3}, recs[0], "экземпляр не попадает в сохраняемые данные")

	s.Reset()
	assert.Equal(t, 0, s.Count())
	_, ok := s.Find(5)
	assert.False(t, ok)
}
