package vec

import "math"

// Vec3 представляет трехмерный вектор с целочисленными координатами (ячейка сетки тайлов)
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Vec3Float представляет трехмерный вектор с плавающими координатами (мировая позиция)
type Vec3Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ToVec2 возвращает проекцию на плоскость земли (X, Z)
func (v Vec3) ToVec2() Vec2 {
	return Vec2{X: v.X, Y: v.Z}
}

// FromGround создает Vec3 из ячейки плоскости земли и высоты
func FromGround(v Vec2, y int) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Y}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Min возвращает покомпонентный минимум
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{X: min(v.X, other.X), Y: min(v.Y, other.Y), Z: min(v.Z, other.Z)}
}

// Span возвращает размер включающего диапазона между двумя точками: |delta|+1 по каждой оси
func (v Vec3) Span(other Vec3) Vec3 {
	return Vec3{X: absInt(v.X-other.X) + 1, Y: absInt(v.Y-other.Y) + 1, Z: absInt(v.Z-other.Z) + 1}
}

// Volume возвращает произведение компонент
func (v Vec3) Volume() int {
	return v.X * v.Y * v.Z
}

// Scale переводит ячейку в мировые координаты с заданным размером тайла
func (v Vec3) Scale(size float64) Vec3Float {
	return Vec3Float{X: float64(v.X) * size, Y: float64(v.Y) * size, Z: float64(v.Z) * size}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// DistanceTo возвращает расстояние до другой точки
func (v Vec3Float) DistanceTo(other Vec3Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
