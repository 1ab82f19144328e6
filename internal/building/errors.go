package building

import "errors"

var (
	ErrInvalidInsulation = errors.New("invalid insulation grade")
	ErrInvalidFloorArea  = errors.New("floor area must be positive")
	ErrInvalidAge        = errors.New("building age must not be negative")
)
