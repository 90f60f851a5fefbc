package editor

// Mode режим сессии редактирования
type Mode int

const (
	ModeHover Mode = iota
	ModeBoxSelect
)

func (m Mode) String() string {
	if m == ModeBoxSelect {
		return "box"
	}
	return "hover"
}

// state состояние конечного автомата сессии
type state interface {
	mode() Mode
	enter(s *Session)
	// handle обрабатывает событие и возвращает следующее состояние
	handle(s *Session, ev Event) (state, bool)
	exit(s *Session)
}

// hoverState курсор следует за указателем на плоскости planeY
type hoverState struct{}

func (hoverState) mode() Mode { return ModeHover }

func (hoverState) enter(s *Session) {}

func (st hoverState) handle(s *Session, ev Event) (state, bool) {
	switch ev.Kind {
	case EventPointerMove:
		return st, true
	case EventPointerDown:
		s.dragOrigin = s.cursor
		s.deleting = ev.Button == ButtonSecondary
		return boxSelectState{}, true
	case EventKeyDown:
		switch ev.Key {
		case KeyRaise:
			s.planeY++
			s.currentY++
			s.host.MarkDirty()
			return st, true
		case KeyLower:
			if s.currentY > 0 {
				s.planeY--
				s.currentY--
				s.host.MarkDirty()
			}
			return st, true
		}
	}
	return st, false
}

func (hoverState) exit(s *Session) {}

// boxSelectState протягивание прямоугольника от dragOrigin
type boxSelectState struct{}

func (boxSelectState) mode() Mode { return ModeBoxSelect }

func (boxSelectState) enter(s *Session) {
	s.dragging = true
}

func (st boxSelectState) handle(s *Session, ev Event) (state, bool) {
	switch ev.Kind {
	case EventPointerMove, EventPointerDown:
		return st, true
	case EventPointerUp:
		s.release(ev.Button)
		return hoverState{}, true
	case EventKeyDown:
		switch ev.Key {
		case KeyRaise:
			s.currentY++
			s.host.MarkDirty()
			return st, true
		case KeyLower:
			if s.currentY > 0 {
				s.currentY--
				s.host.MarkDirty()
			}
			return st, true
		}
	}
	return st, false
}

func (boxSelectState) exit(s *Session) {
	s.dragging = false
	s.deleting = false
}
