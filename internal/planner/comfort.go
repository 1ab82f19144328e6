package planner

import "fmt"

// Occupancy is an integer enum.
type Occupancy int

const (
	OccupancyUnknown Occupancy = iota
	OccupancyHome
	OccupancyAway
	OccupancyNight
)

func (o Occupancy) Valid() bool {
	return o == OccupancyHome || o == OccupancyAway || o == OccupancyNight
}

func (o Occupancy) String() string {
	switch o {
	case OccupancyHome:
		return "home"
	case OccupancyAway:
		return "away"
	case OccupancyNight:
		return "night"
	default:
		return "unknown"
	}
}

func ParseOccupancy(s string) (Occupancy, error) {
	switch s {
	case "home":
		return OccupancyHome, nil
	case "away":
		return OccupancyAway, nil
	case "night":
		return OccupancyNight, nil
	default:
		return OccupancyUnknown, fmt.Errorf("invalid occupancy mode: %q", s)
	}
}

// bandMultiplier loosens the comfort band when nobody is paying attention.
func (o Occupancy) bandMultiplier() float64 {
	switch o {
	case OccupancyAway:
		return 2.0
	case OccupancyNight:
		return 1.5
	default:
		return 1.0
	}
}

const (
	minTargetC = 10.0
	maxTargetC = 35.0

	nightStartHour = 22
	nightEndHour   = 6
	nightBandScale = 1.5
)

// Comfort holds the user's temperature preferences.
type Comfort struct {
	TargetC     float64
	BandC       float64 // base half-width of the comfort band
	HysteresisC float64 // stop margin inside the band, must be < BandC
	Occupancy   Occupancy
}

func (c Comfort) Validate() error {
	if c.TargetC < minTargetC || c.TargetC > maxTargetC {
		return ErrTargetOutOfRange
	}
	if c.BandC <= 0 {
		return ErrInvalidBand
	}
	if c.HysteresisC < 0 || c.HysteresisC >= c.BandC {
		return ErrInvalidHysteresis
	}
	if !c.Occupancy.Valid() {
		return ErrInvalidOccupancy
	}
	return nil
}

// BandAt returns the effective band half-width for an hour of day: wider
// overnight and when the house is unoccupied, the base width during active
// hours.
func (c Comfort) BandAt(hour int) float64 {
	band := c.BandC * c.Occupancy.bandMultiplier()
	if hour >= nightStartHour || hour < nightEndHour {
		band *= nightBandScale
	}
	return band
}

// DefaultComfort matches the typical setup: 22°C with a ±1°C band.
func DefaultComfort() Comfort {
	return Comfort{
		TargetC:     22,
		BandC:       1,
		HysteresisC: 0.3,
		Occupancy:   OccupancyHome,
	}
}
