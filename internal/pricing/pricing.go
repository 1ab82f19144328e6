// Package pricing supplies electricity rates to the schedule planner.
package pricing

import (
	"errors"
	"time"
)

var ErrInvalidRates = errors.New("rates must be positive")

// Pricer maps a point in time to an electricity rate in $/kWh.
type Pricer interface {
	RateAt(t time.Time) float64
	IsPeak(t time.Time) bool
}

// TOU is a three-tier time-of-use tariff keyed by hour of day.
type TOU struct {
	OffPeakRate float64
	MidPeakRate float64
	PeakRate    float64

	// Hour windows, end exclusive. Off-peak may wrap past midnight.
	OffPeakStartHour int
	OffPeakEndHour   int
	PeakStartHour    int
	PeakEndHour      int
}

// DefaultTOU is the residential default: off-peak overnight, peak in the
// early evening, mid-peak otherwise.
func DefaultTOU() *TOU {
	return &TOU{
		OffPeakRate:      0.08,
		MidPeakRate:      0.12,
		PeakRate:         0.20,
		OffPeakStartHour: 22,
		OffPeakEndHour:   6,
		PeakStartHour:    16,
		PeakEndHour:      21,
	}
}

func (p *TOU) Validate() error {
	if p.OffPeakRate <= 0 || p.MidPeakRate <= 0 || p.PeakRate <= 0 {
		return ErrInvalidRates
	}
	return nil
}

func (p *TOU) RateAt(t time.Time) float64 {
	hour := t.Hour()
	switch {
	case inWindow(hour, p.OffPeakStartHour, p.OffPeakEndHour):
		return p.OffPeakRate
	case inWindow(hour, p.PeakStartHour, p.PeakEndHour):
		return p.PeakRate
	default:
		return p.MidPeakRate
	}
}

func (p *TOU) IsPeak(t time.Time) bool {
	return inWindow(t.Hour(), p.PeakStartHour, p.PeakEndHour)
}

// inWindow treats [start, end) as wrapping when start > end.
func inWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// Flat charges the same rate at every hour. Used by tests and by callers
// without a time-of-use tariff.
type Flat struct {
	Rate float64
}

func (f Flat) RateAt(time.Time) float64 { return f.Rate }
func (f Flat) IsPeak(time.Time) bool    { return false }
