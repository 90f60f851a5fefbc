package tilemap

import "errors"

var (
	// ErrInvalidWidth ширина сетки должна быть положительной, четной и W^3 должно помещаться в int64
	ErrInvalidWidth = errors.New("tilemap: invalid grid width")
	// ErrDuplicateKey повторная вставка ключа в хранилище
	ErrDuplicateKey = errors.New("tilemap: duplicate tile key")
	// ErrPositionOutOfRange обращение по позиции за пределами хранилища
	ErrPositionOutOfRange = errors.New("tilemap: store position out of range")
	// ErrInvalidRegion размер региона <= 0 по одной из осей
	ErrInvalidRegion = errors.New("tilemap: region size must be positive")
	// ErrOutOfBounds координата вне диапазона кодека
	ErrOutOfBounds = errors.New("tilemap: coordinate out of bounds")
	// ErrInvalidOrientation ориентация вне {-1,0,1,2,3}
	ErrInvalidOrientation = errors.New("tilemap: invalid orientation")
)
