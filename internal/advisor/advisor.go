// Package advisor turns the tariff and the active schedule into concrete
// "run it then" suggestions for deferrable household loads.
package advisor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/pricing"
)

// Appliance is a deferrable load with a known draw and runtime.
type Appliance struct {
	Name     string
	PowerKW  float64
	Duration time.Duration
}

// DefaultAppliances covers the usual shiftable loads.
func DefaultAppliances() []Appliance {
	return []Appliance{
		{Name: "dishwasher", PowerKW: 1.8, Duration: 2 * time.Hour},
		{Name: "laundry", PowerKW: 2.2, Duration: 90 * time.Minute},
		{Name: "ev_charger", PowerKW: 7.2, Duration: 4 * time.Hour},
		{Name: "water_heater_boost", PowerKW: 4.5, Duration: time.Hour},
	}
}

// Recommendation is the cheapest start window found for one appliance.
type Recommendation struct {
	Appliance string    `json:"appliance"`
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	Cost      float64   `json:"estimated_cost"`
	Savings   float64   `json:"savings_vs_peak"`
	Reason    string    `json:"reason"`
}

// Recommend scans the next day of tariff hours for the cheapest contiguous
// window per appliance. Windows overlapping hours where the HVAC schedule is
// already drawing heavily are skipped, to keep the combined load flat.
func Recommend(appliances []Appliance, pricer pricing.Pricer, sched planner.Schedule, now time.Time) []Recommendation {
	if pricer == nil || len(appliances) == 0 {
		return nil
	}

	start := now.Truncate(time.Hour).Add(time.Hour)
	recs := make([]Recommendation, 0, len(appliances))

	for _, a := range appliances {
		if a.PowerKW <= 0 || a.Duration <= 0 {
			continue
		}
		steps := int((a.Duration + time.Hour - 1) / time.Hour)

		bestCost := -1.0
		var bestStart time.Time
		worstCost := 0.0

		for h := 0; h < 24-steps+1; h++ {
			ws := start.Add(time.Duration(h) * time.Hour)
			cost, busy := windowCost(a, pricer, sched, ws, steps)
			if cost > worstCost {
				worstCost = cost
			}
			if busy {
				continue
			}
			if bestCost < 0 || cost < bestCost {
				bestCost, bestStart = cost, ws
			}
		}
		if bestCost < 0 {
			continue
		}

		recs = append(recs, Recommendation{
			Appliance: a.Name,
			Start:     bestStart,
			End:       bestStart.Add(a.Duration),
			Cost:      round2(bestCost),
			Savings:   round2(worstCost - bestCost),
			Reason: fmt.Sprintf("cheapest %s window in the next 24h starts at %s ($%.2f/kWh)",
				a.Duration, bestStart.Format("15:04"), pricer.RateAt(bestStart)),
		})
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Start.Before(recs[j].Start) })
	return recs
}

// windowCost prices the appliance run hour by hour and reports whether any
// hour collides with a high-draw HVAC step.
func windowCost(a Appliance, pricer pricing.Pricer, sched planner.Schedule, start time.Time, steps int) (float64, bool) {
	const hvacBusyKW = 2.0

	total := 0.0
	remaining := a.Duration
	busy := false
	for i := 0; i < steps; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		hours := time.Hour
		if remaining < time.Hour {
			hours = remaining
		}
		total += a.PowerKW * hours.Hours() * pricer.RateAt(t)
		remaining -= hours

		if e, ok := sched.EntryAt(t); ok && e.PowerKW >= hvacBusyKW {
			busy = true
		}
	}
	return total, busy
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
