// Package editor превращает события указателя и клавиатуры в координаты сетки
// и прямоугольные правки документа.
package editor

import (
	"github.com/annel0/tilemap-editor/internal/logging"
)

// Controller точка входа событий: переключает режим редактирования,
// фильтрует ввод и передаёт события сессии
type Controller struct {
	target  Target
	host    Host
	session *Session
	misses  int
	log     *logging.Logger
}

// NewController создаёт контроллер вне режима редактирования
func NewController(target Target, host Host) *Controller {
	return &Controller{
		target: target,
		host:   host,
		log:    logging.GetEditorLogger(),
	}
}

// Editing включён ли режим редактирования
func (c *Controller) Editing() bool {
	return c.session != nil
}

// Session активная сессия или nil
func (c *Controller) Session() *Session {
	return c.session
}

// Misses количество событий, пропущенных из-за промаха луча мимо плоскости
func (c *Controller) Misses() int {
	return c.misses
}

// SetEditing входит в режим редактирования или выходит из него
func (c *Controller) SetEditing(on bool) {
	if on == c.Editing() {
		return
	}
	if on {
		c.session = NewSession(c.target, c.host)
		// Контуры экземпляров мешают видеть сетку
		c.host.SetHighlighted(c.target.Handles(), false)
		c.log.Info("режим редактирования включён")
	} else {
		c.session.close()
		c.session = nil
		c.host.SetHighlighted(c.target.Handles(), true)
		c.log.Info("режим редактирования выключен")
	}
	c.host.MarkDirty()
}

// HandleEvent обрабатывает событие хоста. Возвращает true, если событие поглощено;
// иначе хост обрабатывает его сам.
func (c *Controller) HandleEvent(ev Event) bool {
	if ev.Kind == EventKeyDown && ev.Key == KeyToggleEdit {
		c.SetEditing(!c.Editing())
		return true
	}
	if !c.Editing() {
		return false
	}

	switch {
	case ev.Kind == EventKeyDown && ev.Key == KeyToolSwitch:
		return false
	case ev.PanModifier:
		return false
	case ev.isPointer() && ev.Button >= ButtonMiddle:
		return false
	}
	cam, ok := c.host.Camera()
	if !ok || ev.Kind == EventScroll {
		return false
	}
	if ev.Kind == EventLayout {
		return true
	}

	tileSize := c.target.TileSize()
	s := c.session
	hit, ok := IntersectHorizontal(cam.ScreenRay(ev.Pointer), float64(s.planeY)*tileSize)
	if !ok {
		c.misses++
		c.log.Trace("луч не пересекает плоскость y=%d", s.planeY)
		return false
	}
	return s.Step(ev, cellAt(hit, tileSize))
}
