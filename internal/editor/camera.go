package editor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/tilemap-editor/internal/vec"
)

// Ray луч в мировых координатах
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// Camera превращает экранную позицию в луч
type Camera interface {
	ScreenRay(p vec.Vec2Float) Ray
}

const parallelEpsilon = 1e-9

// IntersectHorizontal пересекает луч с горизонтальной плоскостью y = height.
// false, если луч параллелен плоскости или направлен от неё.
func IntersectHorizontal(r Ray, height float64) (mgl64.Vec3, bool) {
	dy := r.Dir.Y()
	if math.Abs(dy) < parallelEpsilon {
		return mgl64.Vec3{}, false
	}
	t := (height - r.Origin.Y()) / dy
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.Origin.Add(r.Dir.Mul(t)), true
}

// TopDownCamera ортографическая камера, смотрящая вертикально вниз.
// Экранная точка (0,0) соответствует мировой точке Origin на плоскости XZ.
type TopDownCamera struct {
	Origin mgl64.Vec2 // мировые (x, z) левого верхнего угла экрана
	Scale  float64    // экранных единиц на мировую единицу
	Height float64    // высота камеры над сценой
}

// ScreenRay луч вниз из точки экрана
func (c TopDownCamera) ScreenRay(p vec.Vec2Float) Ray {
	scale := c.Scale
	if scale == 0 {
		scale = 1
	}
	return Ray{
		Origin: mgl64.Vec3{c.Origin.X() + p.X/scale, c.Height, c.Origin.Y() + p.Y/scale},
		Dir:    mgl64.Vec3{0, -1, 0},
	}
}

// PerspectiveCamera перспективная камера с точкой обзора
type PerspectiveCamera struct {
	Eye, Center   mgl64.Vec3
	FovY          float64 // градусы
	Width, Height int     // размер вьюпорта
	Near, Far     float64
}

// ScreenRay луч из глаза через точку экрана (y экрана растёт вниз)
func (c PerspectiveCamera) ScreenRay(p vec.Vec2Float) Ray {
	near, far := c.Near, c.Far
	if near <= 0 {
		near = 0.1
	}
	if far <= near {
		far = 1000
	}
	aspect := float64(c.Width) / float64(c.Height)
	proj := mgl64.Perspective(mgl64.DegToRad(c.FovY), aspect, near, far)
	view := mgl64.LookAtV(c.Eye, c.Center, mgl64.Vec3{0, 1, 0})

	win := mgl64.Vec3{p.X, float64(c.Height) - p.Y, 0}
	from, err := mgl64.UnProject(win, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return Ray{Origin: c.Eye, Dir: c.Center.Sub(c.Eye).Normalize()}
	}
	win[2] = 1
	to, err := mgl64.UnProject(win, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return Ray{Origin: c.Eye, Dir: c.Center.Sub(c.Eye).Normalize()}
	}
	return Ray{Origin: from, Dir: to.Sub(from).Normalize()}
}

// cellAt переводит точку на плоскости в ячейку сетки
func cellAt(hit mgl64.Vec3, tileSize float64) vec.Vec2 {
	return vec.Vec2Float{X: hit.X() / tileSize, Y: hit.Z() / tileSize}.Round()
}
