package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой (позиция указателя на экране)
type Vec2Float struct {
	X, Y float64
}

// Round округляет координаты до ближайшей ячейки
func (v Vec2Float) Round() Vec2 {
	return Vec2{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}
