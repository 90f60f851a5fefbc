package tilemap

import (
	"testing"

	"github.com/annel0/tilemap-editor/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestBoxFromCorners(t *testing.T) {
	r := Box(vec.Vec3{X: 5, Y: 1, Z: 1}, vec.Vec3{X: 2, Y: 0, Z: 3})
	assert.Equal(t, vec.Vec3{X: 2, Y: 0, Z: 1}, r.Min)
	assert.Equal(t, vec.Vec3{X: 4, Y: 2, Z: 3}, r.Size)
	assert.Equal(t, vec.Vec3{X: 5, Y: 1, Z: 3}, r.Max())
	assert.True(t, r.Valid())
	assert.Equal(t, "(2,0,1)+(4,2,3)", r.String())
}

func TestRegionEachCountsCells(t *testing.T) {
	r := Region{Min: vec.Vec3{X: -1, Y: 0, Z: -1}, Size: vec.Vec3{X: 2, Y: 3, Z: 2}}
	n := 0
	_ = r.Each(func(v vec.Vec3) error {
		assert.True(t, r.Contains(v))
		n++
		return nil
	})
	assert.Equal(t, r.Size.Volume(), n)
	assert.False(t, r.Contains(vec.Vec3{X: 1, Y: 0, Z: 0}))
	assert.False(t, Region{Size: vec.Vec3{X: 1, Y: -1, Z: 1}}.Valid())
}
