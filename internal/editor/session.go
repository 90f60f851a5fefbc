package editor

import (
	"fmt"

	"github.com/annel0/tilemap-editor/internal/logging"
	"github.com/annel0/tilemap-editor/internal/tilemap"
	"github.com/annel0/tilemap-editor/internal/vec"
)

// Метки правок в журнале отмены
const (
	LabelPaint = "Paint Region"
	LabelErase = "Erase Region"
)

// Target документ, в который сессия коммитит правки
type Target interface {
	TileSize() float64
	DefaultTemplate() tilemap.TemplateRef
	SetDefaultTemplate(t tilemap.TemplateRef) error
	SetRegion(label string, r tilemap.Region, t tilemap.TemplateRef, o tilemap.Orientation) (tilemap.RegionResult, error)
	Handles() []tilemap.InstanceHandle
}

// Host возможности хоста, которыми пользуется редактор
type Host interface {
	// Camera активная камера вьюпорта; false, если вьюпорта нет
	Camera() (Camera, bool)
	MarkDirty()
	SetHighlighted(handles []tilemap.InstanceHandle, on bool)
}

// Picker разрешает индекс пункта выбора шаблона
type Picker interface {
	Pick(index int) (tilemap.TemplateRef, bool)
}

// Session состояние одной сессии редактирования. Хранилищем не владеет,
// держит только временные координаты.
type Session struct {
	target Target
	host   Host
	state  state

	cursor     vec.Vec2 // X: ось x, Y: ось z
	planeY     int
	currentY   int
	dragOrigin vec.Vec2
	dragging   bool
	deleting   bool

	template    tilemap.TemplateRef
	orientation tilemap.Orientation

	lastErr error
	log     *logging.Logger
}

// NewSession создаёт сессию в режиме наведения
func NewSession(target Target, host Host) *Session {
	s := &Session{
		target:   target,
		host:     host,
		template: target.DefaultTemplate(),
		log:      logging.GetEditorLogger(),
	}
	s.setState(hoverState{})
	return s
}

func (s *Session) setState(next state) {
	if s.state != nil {
		s.state.exit(s)
	}
	s.state = next
	if s.state != nil {
		s.state.enter(s)
	}
}

// Step обрабатывает событие с уже вычисленной ячейкой под указателем.
// Возвращает true, если событие поглощено.
func (s *Session) Step(ev Event, cell vec.Vec2) bool {
	s.cursor = cell
	next, consumed := s.state.handle(s, ev)
	if next.mode() != s.state.mode() {
		s.setState(next)
	}
	return consumed
}

// close завершает сессию без коммита
func (s *Session) close() {
	s.setState(nil)
}

// release завершает протягивание отпусканием кнопки
func (s *Session) release(button Button) {
	switch {
	case s.deleting && button == ButtonSecondary:
		s.commit(LabelErase, tilemap.NoTemplate)
	case !s.deleting && button == ButtonPrimary:
		s.commit(LabelPaint, s.template)
	default:
		s.log.Debug("протягивание отменено кнопкой %d", button)
	}
	s.planeY = s.currentY
}

func (s *Session) commit(label string, t tilemap.TemplateRef) {
	r := s.Selection()
	res, err := s.target.SetRegion(label, r, t, s.orientation)
	if err != nil {
		s.lastErr = fmt.Errorf("%s %s: %w", label, r, err)
		s.log.Warn("%v", s.lastErr)
		return
	}
	s.lastErr = nil
	if len(res.Created) > 0 {
		s.host.SetHighlighted(res.Created, false)
	}
	s.host.MarkDirty()
	s.log.Debug("%s %s: +%d -%d", label, r, res.Placed, res.Removed)
}

// Mode текущий режим
func (s *Session) Mode() Mode {
	if s.state == nil {
		return ModeHover
	}
	return s.state.mode()
}

// Cursor ячейка под указателем (X: x, Y: z)
func (s *Session) Cursor() vec.Vec2 { return s.cursor }

// PlaneY высота плоскости наведения
func (s *Session) PlaneY() int { return s.planeY }

// CurrentY текущая высота протягивания
func (s *Session) CurrentY() int { return s.currentY }

// DragOrigin начало протягивания; false вне режима протягивания
func (s *Session) DragOrigin() (vec.Vec2, bool) { return s.dragOrigin, s.dragging }

// Deleting протягивание удаляет тайлы
func (s *Session) Deleting() bool { return s.deleting }

// Err ошибка последнего коммита
func (s *Session) Err() error { return s.lastErr }

// SelectedTemplate шаблон для размещения
func (s *Session) SelectedTemplate() tilemap.TemplateRef { return s.template }

// SelectTemplate выбирает шаблон только для этой сессии
func (s *Session) SelectTemplate(t tilemap.TemplateRef) { s.template = t }

// SelectedOrientation ориентация для размещения (-1: случайная)
func (s *Session) SelectedOrientation() tilemap.Orientation { return s.orientation }

// SetOrientation выбирает ориентацию
func (s *Session) SetOrientation(o tilemap.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("%w: %d", tilemap.ErrInvalidOrientation, o)
	}
	s.orientation = o
	return nil
}

// Pick выбирает шаблон пунктом пикера. Индекс 0: текущий шаблон, без изменений.
// Выбор становится и шаблоном документа по умолчанию.
func (s *Session) Pick(p Picker, index int) error {
	t, ok := p.Pick(index)
	if !ok {
		return nil
	}
	s.template = t
	return s.target.SetDefaultTemplate(t)
}

// Selection текущий бокс: одна ячейка при наведении, прямоугольник при протягивании
func (s *Session) Selection() tilemap.Region {
	if !s.dragging {
		return tilemap.Cell(s.cursor.X, s.planeY, s.cursor.Y)
	}
	return tilemap.Box(
		vec.Vec3{X: s.dragOrigin.X, Y: s.planeY, Z: s.dragOrigin.Y},
		vec.Vec3{X: s.cursor.X, Y: s.currentY, Z: s.cursor.Y},
	)
}
