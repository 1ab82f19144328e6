package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/hvac"
	"github.com/wattsmith/thermoplan/internal/pricing"
	"github.com/wattsmith/thermoplan/internal/thermal"
	"github.com/wattsmith/thermoplan/internal/weather"
)

const (
	defaultHorizonSteps   = 24
	defaultStep           = time.Hour
	defaultInternalGainsW = 200.0
	defaultComfortPenalty = 12.0 // score points per °C of average deviation

	// Steps of forecast needed beyond the horizon for lookahead.
	lookaheadMargin = 2
)

// Planner turns a forecast into a timestepped heating/cooling schedule. It
// simulates the house forward under candidate actions and picks per step,
// shifting load into cheap-rate windows when thermal lag allows it.
type Planner struct {
	Horizon        int           // steps in the schedule
	StepSize       time.Duration // length of one step
	InternalGainsW float64       // people and appliances
	ComfortPenalty float64
}

func New() *Planner {
	return &Planner{
		Horizon:        defaultHorizonSteps,
		StepSize:       defaultStep,
		InternalGainsW: defaultInternalGainsW,
		ComfortPenalty: defaultComfortPenalty,
	}
}

// Generate produces a schedule starting at start. It refuses to run with
// invalid physical parameters: every downstream cost and comfort number
// depends on them. A forecast shorter than the horizon is padded instead.
func (pl *Planner) Generate(
	profile building.Profile,
	sys hvac.System,
	fc weather.Forecast,
	currentTempC float64,
	comfort Comfort,
	pricer pricing.Pricer,
	start time.Time,
) (Schedule, error) {
	if !profile.Valid() {
		return Schedule{}, ErrInvalidProfile
	}
	if !sys.Valid() {
		return Schedule{}, ErrInvalidSystem
	}
	if err := comfort.Validate(); err != nil {
		return Schedule{}, err
	}
	if pricer == nil {
		return Schedule{}, ErrNoPricer
	}
	if len(fc) == 0 {
		return Schedule{}, weather.ErrEmptyForecast
	}

	horizon := pl.Horizon
	if horizon <= 0 {
		horizon = defaultHorizonSteps
	}
	step := pl.StepSize
	if step <= 0 {
		step = defaultStep
	}
	gains := pl.InternalGainsW
	penalty := pl.ComfortPenalty
	if penalty <= 0 {
		penalty = defaultComfortPenalty
	}

	fc, padded := fc.Pad(horizon + lookaheadMargin)

	state := thermal.State{IndoorTempC: currentTempC}
	cur := ModeOff
	target := comfort.TargetC

	entries := make([]Entry, 0, horizon)
	var totalCost, totalEnergy, deviationSum float64

	for i := 0; i < horizon; i++ {
		t := start.Add(time.Duration(i) * step)
		w := fc.At(i)
		band := comfort.BandAt(t.Hour())
		lo, hi := target-band, target+band

		// Coast predictions: where does the house go if we do nothing?
		oneAhead := thermal.Step(state, profile, w, 0, gains, step).IndoorTempC
		twoAhead := thermal.Step(thermal.State{IndoorTempC: oneAhead}, profile, fc.At(i+1), 0, gains, step).IndoorTempC

		next, reason := pl.decide(cur, state.IndoorTempC, oneAhead, twoAhead, t, step, comfort, sys, pricer)

		var hvacW, elecKW, cop float64
		switch {
		case next.IsHeating():
			frac := thermal.OutputFraction(state.IndoorTempC, target, band)
			hvacW = sys.HeatingCapacityW * frac
			cop = hvac.HeatingCOP(sys.Type, w.TempC, target, frac, sys.AgeYears)
			elecKW = hvacW / (cop * 1000)
		case next.IsCooling():
			frac := thermal.OutputFraction(state.IndoorTempC, target, band)
			hvacW = -sys.CoolingCapacityW * frac
			cop = hvac.CoolingCOP(sys.Type, w.TempC, target, frac, sys.AgeYears)
			elecKW = -hvacW / (cop * 1000)
		}

		state = thermal.Step(state, profile, w, hvacW, gains, step)

		energy := round(elecKW*step.Hours(), 4)
		cost := round(energy*pricer.RateAt(t), 4)

		entries = append(entries, Entry{
			Start:          t,
			End:            t.Add(step),
			Mode:           next,
			ModeName:       next.String(),
			PowerKW:        round(elecKW, 3),
			EnergyKWh:      energy,
			Cost:           cost,
			PredictedTempC: round(state.IndoorTempC, 2),
			Reason:         reason,
		})
		totalEnergy += energy
		totalCost += cost
		deviationSum += math.Abs(state.IndoorTempC - target)

		// Once pre-conditioning has pulled the house out of the comfort
		// band's reach it behaves like regular conditioning.
		if next == ModePreHeat && state.IndoorTempC < lo {
			next = ModeHeat
		}
		if next == ModePreCool && state.IndoorTempC > hi {
			next = ModeCool
		}
		cur = next
	}

	score := 100 - deviationSum/float64(horizon)*penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Schedule{
		Entries:        entries,
		TotalCost:      round(totalCost, 4),
		TotalEnergyKWh: round(totalEnergy, 4),
		ComfortScore:   round(score, 1),
		GeneratedAt:    start,
		ForecastPadded: padded,
	}, nil
}

// decide is the per-step transition rule: hysteresis around the comfort band,
// with a two-step lookahead that starts conditioning early when the current
// rate beats the rate at the predicted breach.
func (pl *Planner) decide(
	cur Mode,
	indoor, oneAhead, twoAhead float64,
	t time.Time,
	step time.Duration,
	comfort Comfort,
	sys hvac.System,
	pricer pricing.Pricer,
) (Mode, string) {
	target := comfort.TargetC
	band := comfort.BandAt(t.Hour())
	lo, hi := target-band, target+band

	switch {
	case cur.IsHeating():
		if oneAhead >= target-(band-comfort.HysteresisC) {
			return ModeOff, fmt.Sprintf("indoor holding at %.1f°C, within comfort margin", oneAhead)
		}
		if cur == ModePreHeat && indoor >= lo {
			return ModePreHeat, fmt.Sprintf("banking heat ahead of expected drop, indoor %.1f°C", indoor)
		}
		return ModeHeat, fmt.Sprintf("heating toward %.1f°C, indoor %.1f°C", target, indoor)

	case cur.IsCooling():
		if oneAhead <= target+(band-comfort.HysteresisC) {
			return ModeOff, fmt.Sprintf("indoor holding at %.1f°C, within comfort margin", oneAhead)
		}
		if cur == ModePreCool && indoor <= hi {
			return ModePreCool, fmt.Sprintf("banking cool ahead of expected rise, indoor %.1f°C", indoor)
		}
		return ModeCool, fmt.Sprintf("cooling toward %.1f°C, indoor %.1f°C", target, indoor)
	}

	heatTrig := oneAhead < lo
	coolTrig := oneAhead > hi
	if heatTrig && coolTrig {
		// Cannot happen with a consistent band; guard anyway.
		if oneAhead < target {
			coolTrig = false
		} else {
			heatTrig = false
		}
	}

	switch {
	case heatTrig:
		return ModeHeat, fmt.Sprintf("predicted %.1f°C next hour, below comfort minimum %.1f°C", oneAhead, lo)
	case coolTrig && sys.CanCool():
		return ModeCool, fmt.Sprintf("predicted %.1f°C next hour, above comfort maximum %.1f°C", oneAhead, hi)
	case coolTrig:
		return ModeOff, "indoor will exceed comfort maximum but system has no cooling capacity"
	}

	// Pre-conditioning: still comfortable next hour, but a breach two steps
	// out while energy is cheaper now than it will be then.
	breachAt := t.Add(2 * step)
	bandThen := comfort.BandAt(breachAt.Hour())
	rateNow, rateThen := pricer.RateAt(t), pricer.RateAt(breachAt)
	if rateNow < rateThen {
		if twoAhead < target-bandThen {
			return ModePreHeat, fmt.Sprintf("drop below %.1f°C expected by %s; $%.2f/kWh now vs $%.2f/kWh then",
				target-bandThen, breachAt.Format("15:04"), rateNow, rateThen)
		}
		if twoAhead > target+bandThen && sys.CanCool() {
			return ModePreCool, fmt.Sprintf("rise above %.1f°C expected by %s; $%.2f/kWh now vs $%.2f/kWh then",
				target+bandThen, breachAt.Format("15:04"), rateNow, rateThen)
		}
	}

	return ModeOff, "comfortable, no action needed"
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
