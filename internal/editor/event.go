package editor

import (
	"github.com/annel0/tilemap-editor/internal/vec"
)

// EventKind тип входного события хоста
type EventKind int

const (
	EventLayout EventKind = iota // проход раскладки, без действия
	EventPointerMove
	EventPointerDown
	EventPointerUp
	EventKeyDown
	EventScroll
)

func (k EventKind) String() string {
	switch k {
	case EventLayout:
		return "layout"
	case EventPointerMove:
		return "move"
	case EventPointerDown:
		return "down"
	case EventPointerUp:
		return "up"
	case EventKeyDown:
		return "key"
	case EventScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// Button идентификатор кнопки указателя
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonSecondary Button = 1
	ButtonMiddle    Button = 2 // и все кнопки >= 2 игнорируются
)

// Key логическая клавиша редактора
type Key int

const (
	KeyOther Key = iota
	KeyRaise
	KeyLower
	KeyToggleEdit
	// KeyToolSwitch переключение инструмента хоста (перемещение, поворот…)
	KeyToolSwitch
)

// Event входное событие. Pointer: экранная позиция указателя,
// для клавиш: последняя известная позиция.
type Event struct {
	Kind        EventKind
	Pointer     vec.Vec2Float
	Button      Button
	Key         Key
	PanModifier bool // зажат модификатор панорамирования/вращения камеры
}

func (e Event) isPointer() bool {
	return e.Kind == EventPointerMove || e.Kind == EventPointerDown || e.Kind == EventPointerUp
}
