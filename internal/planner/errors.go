package planner

import "errors"

var (
	ErrInvalidProfile    = errors.New("building profile is missing or invalid")
	ErrInvalidSystem     = errors.New("hvac system is missing or invalid")
	ErrTargetOutOfRange  = errors.New("target temperature out of range")
	ErrInvalidBand       = errors.New("comfort band must be positive")
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative and smaller than the comfort band")
	ErrInvalidOccupancy  = errors.New("invalid occupancy mode")
	ErrNoPricer          = errors.New("price source is required")
)
