package tilemap

import (
	"fmt"

	"github.com/annel0/tilemap-editor/internal/vec"
)

// Region прямоугольный объём [Min, Min+Size) по трём осям
type Region struct {
	Min  vec.Vec3 `json:"min"`
	Size vec.Vec3 `json:"size"`
}

// Cell регион из одной ячейки
func Cell(x, y, z int) Region {
	return Region{Min: vec.Vec3{X: x, Y: y, Z: z}, Size: vec.Vec3{X: 1, Y: 1, Z: 1}}
}

// Box регион между двумя углами включительно
func Box(a, b vec.Vec3) Region {
	return Region{Min: a.Min(b), Size: a.Span(b)}
}

// Max возвращает последнюю ячейку региона (включительно)
func (r Region) Max() vec.Vec3 {
	return vec.Vec3{X: r.Min.X + r.Size.X - 1, Y: r.Min.Y + r.Size.Y - 1, Z: r.Min.Z + r.Size.Z - 1}
}

// Valid проверяет, что размер положителен по всем осям
func (r Region) Valid() bool {
	return r.Size.X > 0 && r.Size.Y > 0 && r.Size.Z > 0
}

// Contains проверяет принадлежность ячейки региону
func (r Region) Contains(v vec.Vec3) bool {
	return v.X >= r.Min.X && v.X < r.Min.X+r.Size.X &&
		v.Y >= r.Min.Y && v.Y < r.Min.Y+r.Size.Y &&
		v.Z >= r.Min.Z && v.Z < r.Min.Z+r.Size.Z
}

// Each обходит ячейки в фиксированном порядке: x внешний, y средний, z внутренний
func (r Region) Each(fn func(v vec.Vec3) error) error {
	for dx := 0; dx < r.Size.X; dx++ {
		for dy := 0; dy < r.Size.Y; dy++ {
			for dz := 0; dz < r.Size.Z; dz++ {
				if err := fn(vec.Vec3{X: r.Min.X + dx, Y: r.Min.Y + dy, Z: r.Min.Z + dz}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d,%d)+(%d,%d,%d)", r.Min.X, r.Min.Y, r.Min.Z, r.Size.X, r.Size.Y, r.Size.Z)
}
