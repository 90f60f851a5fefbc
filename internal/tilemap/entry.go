package tilemap

// TemplateRef ссылка на шаблон (префаб) по имени. Пустая строка означает отсутствие шаблона.
type TemplateRef string

// NoTemplate нулевая ссылка: тайл без шаблона не существует
const NoTemplate TemplateRef = ""

// IsNone проверяет, что ссылка пустая
func (t TemplateRef) IsNone() bool {
	return t == NoTemplate
}

// Orientation один из четырех поворотов вокруг вертикальной оси
type Orientation int8

// OrientationRandom запрашивает случайную ориентацию для каждого тайла
const OrientationRandom Orientation = -1

const (
	OrientationNorth Orientation = iota // 0°
	OrientationEast                     // 90°
	OrientationSouth                    // 180°
	OrientationWest                     // 270°
)

// Orientations варианты выбора в порядке пикера
var Orientations = []Orientation{OrientationRandom, OrientationNorth, OrientationEast, OrientationSouth, OrientationWest}

// Valid проверяет, что значение допустимо как запрос (включая случайную)
func (o Orientation) Valid() bool {
	return o >= OrientationRandom && o <= OrientationWest
}

// Degrees возвращает угол поворота в градусах
func (o Orientation) Degrees() float64 {
	if o < 0 {
		return 0
	}
	return float64(o) * 90
}

// Glyph символ ориентации для пикера
func (o Orientation) Glyph() string {
	switch o {
	case OrientationNorth:
		return "^"
	case OrientationEast:
		return ">"
	case OrientationSouth:
		return "v"
	case OrientationWest:
		return "<"
	default:
		return "?"
	}
}

// InstanceHandle непрозрачный идентификатор визуального экземпляра
type InstanceHandle uint64

// NoInstance отсутствие экземпляра
const NoInstance InstanceHandle = 0

// TileEntry один размещенный тайл
type TileEntry struct {
	Key         Key
	Template    TemplateRef
	Orientation Orientation
	// Instance принадлежит хранилищу; создается и уничтожается только синхронизатором
	Instance InstanceHandle
}

// Record сохраняемая часть тайла (без экземпляра)
type Record struct {
	Key         Key         `json:"key" yaml:"key"`
	Template    TemplateRef `json:"template" yaml:"template"`
	Orientation Orientation `json:"orientation" yaml:"orientation"`
}

// Record возвращает сохраняемую часть записи
func (e TileEntry) Record() Record {
	return Record{Key: e.Key, Template: e.Template, Orientation: e.Orientation}
}
