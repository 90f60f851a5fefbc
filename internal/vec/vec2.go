package vec

// Vec2 представляет 2D координаты ячейки на плоскости земли (X, Z)
type Vec2 struct {
	X, Y int
}

// Min возвращает покомпонентный минимум
func (v Vec2) Min(other Vec2) Vec2 {
	return Vec2{X: min(v.X, other.X), Y: min(v.Y, other.Y)}
}

// Equals проверяет равенство векторов
func (v Vec2) Equals(other Vec2) bool {
	return v.X == other.X && v.Y == other.Y
}
