package tilemap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	c := MustCodec(DefaultWidth)
	half := DefaultWidth / 2

	corners := []int{-half, -half + 1, -1, 0, 1, half - 2, half - 1}
	for _, x := range corners {
		for _, y := range corners {
			for _, z := range corners {
				gx, gy, gz := c.Decode(c.Encode(x, y, z))
				require.Equal(t, []int{x, y, z}, []int{gx, gy, gz}, "decode(encode) должен возвращать исходную координату")
			}
		}
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		x := rng.Intn(DefaultWidth) - half
		y := rng.Intn(DefaultWidth) - half
		z := rng.Intn(DefaultWidth) - half
		gx, gy, gz := c.Decode(c.Encode(x, y, z))
		require.Equal(t, []int{x, y, z}, []int{gx, gy, gz})
	}
}

func TestCodecKeysAreUniqueAndNonNegative(t *testing.T) {
	c := MustCodec(8)
	seen := make(map[Key]struct{})
	for x := -4; x < 4; x++ {
		for y := -4; y < 4; y++ {
			for z := -4; z < 4; z++ {
				k := c.Encode(x, y, z)
				assert.GreaterOrEqual(t, int64(k), int64(0), "ключ должен быть неотрицательным")
				_, dup := seen[k]
				require.False(t, dup, "коллизия ключа для (%d,%d,%d)", x, y, z)
				seen[k] = struct{}{}
			}
		}
	}
	assert.Len(t, seen, 8*8*8)
	assert.Equal(t, Key(0), c.Encode(-4, -4, -4))
	assert.Equal(t, Key(8*8*8-1), c.Encode(3, 3, 3))
}

func TestCodecMixedRadixLayout(t *testing.T) {
	c := MustCodec(DefaultWidth)
	half := int64(DefaultWidth / 2)
	w := int64(DefaultWidth)

	assert.Equal(t, Key(half+half*w+half*w*w), c.Encode(0, 0, 0))
	assert.Equal(t, c.Encode(0, 0, 0)+1, c.Encode(1, 0, 0))
	assert.Equal(t, c.Encode(0, 0, 0)+Key(w), c.Encode(0, 1, 0))
	assert.Equal(t, c.Encode(0, 0, 0)+Key(w*w), c.Encode(0, 0, 1))
}

func TestCodecContains(t *testing.T) {
	c := MustCodec(10)
	assert.True(t, c.Contains(-5, 0, 4))
	assert.False(t, c.Contains(5, 0, 0), "верхняя граница не входит в диапазон")
	assert.False(t, c.Contains(0, -6, 0))
}

func TestNewCodecRejectsInvalidWidth(t *testing.T) {
	for _, w := range []int{0, -2, 7, maxWidth + 2} {
		_, err := NewCodec(w)
		assert.ErrorIs(t, err, ErrInvalidWidth, "ширина %d должна быть отклонена", w)
	}

	c, err := NewCodec(maxWidth)
	require.NoError(t, err)
	half := maxWidth / 2
	x, y, z := c.Decode(c.Encode(half-1, half-1, half-1))
	assert.Equal(t, []int{half - 1, half - 1, half - 1}, []int{x, y, z}, "крайняя ячейка должна помещаться в int64")
}
