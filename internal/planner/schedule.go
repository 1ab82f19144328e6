package planner

import (
	"fmt"
	"time"
)

// Mode is an integer enum.
type Mode int

const (
	ModeOff Mode = iota
	ModeHeat
	ModeCool
	ModePreHeat
	ModePreCool
)

func (m Mode) Valid() bool {
	switch m {
	case ModeOff, ModeHeat, ModeCool, ModePreHeat, ModePreCool:
		return true
	default:
		return false
	}
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	case ModePreHeat:
		return "pre-heat"
	case ModePreCool:
		return "pre-cool"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "off":
		return ModeOff, nil
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	case "pre-heat":
		return ModePreHeat, nil
	case "pre-cool":
		return ModePreCool, nil
	default:
		return ModeOff, fmt.Errorf("invalid schedule mode: %q", s)
	}
}

// IsHeating groups heat and pre-heat.
func (m Mode) IsHeating() bool { return m == ModeHeat || m == ModePreHeat }

// IsCooling groups cool and pre-cool.
func (m Mode) IsCooling() bool { return m == ModeCool || m == ModePreCool }

// Entry is one timestep of the generated schedule.
type Entry struct {
	Start          time.Time `json:"start_time"`
	End            time.Time `json:"end_time"`
	Mode           Mode      `json:"-"`
	ModeName       string    `json:"mode"`
	PowerKW        float64   `json:"power_kw"`
	EnergyKWh      float64   `json:"energy_kwh"`
	Cost           float64   `json:"cost"`
	PredictedTempC float64   `json:"predicted_temp_c"`
	Reason         string    `json:"reason"`
}

// Schedule is the planner's output for one horizon.
type Schedule struct {
	Entries        []Entry   `json:"actions"`
	TotalCost      float64   `json:"total_cost"`
	TotalEnergyKWh float64   `json:"total_energy_kwh"`
	ComfortScore   float64   `json:"comfort_score"`
	GeneratedAt    time.Time `json:"generated_at"`
	ForecastPadded bool      `json:"forecast_padded,omitempty"`
}

// EntryAt returns the entry covering t, if any.
func (s Schedule) EntryAt(t time.Time) (Entry, bool) {
	for _, e := range s.Entries {
		if !t.Before(e.Start) && t.Before(e.End) {
			return e, true
		}
	}
	return Entry{}, false
}

// Stale reports whether the schedule should be regenerated at time now.
// Schedules are valid for the calendar day they were generated on.
func (s Schedule) Stale(now time.Time) bool {
	if len(s.Entries) == 0 {
		return true
	}
	gy, gm, gd := s.GeneratedAt.Date()
	ny, nm, nd := now.Date()
	return gy != ny || gm != nm || gd != nd
}
