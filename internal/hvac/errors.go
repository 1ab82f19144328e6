package hvac

import "errors"

var (
	ErrInvalidSystemType = errors.New("invalid hvac system type")
	ErrInvalidSystemAge  = errors.New("hvac system age must not be negative")
	ErrInvalidFloorArea  = errors.New("floor area must be positive")
)
