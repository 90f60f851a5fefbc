package tilemap

import (
	"fmt"
	"math"

	"github.com/annel0/tilemap-editor/internal/vec"
)

// DefaultWidth ширина диапазона по каждой оси по умолчанию
const DefaultWidth = 10000

// maxWidth наибольшая четная ширина, для которой W^3 помещается в int64
const maxWidth = 2097150

// Key закодированный идентификатор ячейки сетки
type Key int64

// Codec взаимно однозначно отображает (x, y, z) из [-W/2, W/2) в Key.
// Ключ строится как число со смешанным основанием W: xs + ys*W + zs*W*W,
// где xs, ys, zs: координаты, сдвинутые на W/2.
type Codec struct {
	width int64
	half  int64
}

// NewCodec создает кодек для сетки шириной width по каждой оси
func NewCodec(width int) (Codec, error) {
	if width <= 0 || width%2 != 0 || width > maxWidth {
		return Codec{}, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	w := int64(width)
	if w > math.MaxInt64/w/w {
		return Codec{}, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	return Codec{width: w, half: w / 2}, nil
}

// MustCodec как NewCodec, но паникует при неверной ширине
func MustCodec(width int) Codec {
	c, err := NewCodec(width)
	if err != nil {
		panic(err)
	}
	return c
}

// Width возвращает ширину сетки
func (c Codec) Width() int {
	return int(c.width)
}

// Contains проверяет, что координата лежит в [-W/2, W/2) по всем осям
func (c Codec) Contains(x, y, z int) bool {
	return c.axisContains(x) && c.axisContains(y) && c.axisContains(z)
}

func (c Codec) axisContains(v int) bool {
	return int64(v) >= -c.half && int64(v) < c.half
}

// Encode кодирует координату в ключ. Координаты вне диапазона не проверяются.
func (c Codec) Encode(x, y, z int) Key {
	xs := int64(x) + c.half
	ys := int64(y) + c.half
	zs := int64(z) + c.half
	return Key(xs + ys*c.width + zs*c.width*c.width)
}

// Decode восстанавливает координату из ключа
func (c Codec) Decode(k Key) (x, y, z int) {
	v := int64(k)
	x = int(v%c.width - c.half)
	y = int(v/c.width%c.width - c.half)
	z = int(v/c.width/c.width - c.half)
	return x, y, z
}

// EncodeVec кодирует Vec3
func (c Codec) EncodeVec(v vec.Vec3) Key {
	return c.Encode(v.X, v.Y, v.Z)
}

// DecodeVec декодирует ключ в Vec3
func (c Codec) DecodeVec(k Key) vec.Vec3 {
	x, y, z := c.Decode(k)
	return vec.Vec3{X: x, Y: y, Z: z}
}
