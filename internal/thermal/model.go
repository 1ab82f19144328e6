package thermal

import (
	"math"
	"time"

	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/weather"
)

const (
	airDensityKgM3   = 1.225
	airSpecificHeatJ = 1005.0

	// Absolute safety envelope for the simulated indoor temperature.
	MinIndoorTempC = -50.0
	MaxIndoorTempC = 70.0

	// Magnitude clamp on the change per step, scaled to the step length.
	// 6°C per hour works out to 0.5°C per 5-minute step.
	maxDeltaCPerHour = 6.0

	// Wind raises the effective envelope conductance (pressure-driven
	// convection at the outer surface).
	windUValueFactor = 0.12
	windUValueCapMS  = 10.0

	// Rain pulls the boundary temperature toward a wet-bulb estimate.
	rainThresholdMM  = 0.5
	rainWetBulbBlend = 0.5

	// Heavy snow: an insulating blanket on the envelope and a reflective
	// cover over the glazing.
	snowThresholdMM   = 2.0
	snowUValueFactor  = 0.9
	snowSolarFactor   = 0.3
	solarOrientFactor = 0.5
)

// State is the single mutable quantity owned by the simulation loop.
type State struct {
	IndoorTempC float64
}

// Step advances the indoor temperature by one timestep.
//
// hvacHeatW is the signed thermal power delivered by the equipment (positive
// heating, negative cooling); internalGainsW covers people and appliances.
// The update is the discrete form of the lumped-capacitance balance
//
//	C dT/dt = G (T_eff - T)
//
// with the approach coefficient clamped to (0, 1] so the integration cannot
// diverge for any timestep choice. Arithmetic anomalies resolve to the
// previous temperature; the function never returns NaN or Inf.
func Step(st State, p building.Profile, w weather.Sample, hvacHeatW, internalGainsW float64, dt time.Duration) State {
	prev := clampTemp(st.IndoorTempC)
	if !p.Valid() || dt <= 0 {
		return State{IndoorTempC: prev}
	}

	uValue := p.UValueWPerM2K
	if w.WindMS > 0 {
		frac := w.WindMS / windUValueCapMS
		if frac > 2 {
			frac = 2
		}
		uValue *= 1 + windUValueFactor*frac
	}

	outdoor := w.TempC
	solar := math.Max(0, w.SolarWM2)
	switch {
	case w.PrecipMM >= snowThresholdMM && w.TempC <= 0:
		uValue *= snowUValueFactor
		solar *= snowSolarFactor
	case w.PrecipMM >= rainThresholdMM:
		outdoor = outdoor - (outdoor-wetBulbEstimate(w.TempC, w.Humidity()))*rainWetBulbBlend
	}

	// Conductance through the envelope plus infiltration, W/K.
	envelopeWK := uValue * p.EnvelopeAreaM2
	ach := p.ACHBase + p.WindACHPerMS*math.Max(0, w.WindMS)
	infiltrationWK := airDensityKgM3 * airSpecificHeatJ * p.VolumeM3 * ach / 3600

	totalWK := envelopeWK + infiltrationWK
	gains := p.WindowAreaM2*p.SHGC*solar*solarOrientFactor + internalGainsW + hvacHeatW

	var next float64
	if totalWK > 0 {
		// Exponential approach toward the gain-shifted equilibrium.
		equilibrium := outdoor + gains/totalWK
		alpha := totalWK * dt.Seconds() / p.ThermalMassJPerK
		if alpha > 1 || math.IsNaN(alpha) {
			alpha = 1
		}
		next = prev + alpha*(equilibrium-prev)
	} else {
		next = prev + gains*dt.Seconds()/p.ThermalMassJPerK
	}

	if math.IsNaN(next) || math.IsInf(next, 0) {
		return State{IndoorTempC: prev}
	}

	maxDelta := maxDeltaCPerHour * dt.Hours()
	if next > prev+maxDelta {
		next = prev + maxDelta
	} else if next < prev-maxDelta {
		next = prev - maxDelta
	}
	return State{IndoorTempC: clampTemp(next)}
}

// OutputFraction is the proportional modulation rule: full output far from
// target, tapering as the gap closes to avoid overshoot, with a floor so the
// equipment never idles at a uselessly low level while running.
func OutputFraction(currentC, targetC, bandC float64) float64 {
	if bandC <= 0 {
		bandC = 0.5
	}
	gap := math.Abs(targetC - currentC)
	frac := gap / (2 * bandC)
	if frac > 1 {
		return 1
	}
	if frac < 0.2 {
		return 0.2
	}
	return frac
}

// Crude psychrometric shortcut, adequate for the rain boundary adjustment.
func wetBulbEstimate(tempC, humidityPct float64) float64 {
	wb := tempC - (100-humidityPct)/5
	if wb > tempC {
		return tempC
	}
	return wb
}

func clampTemp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MinIndoorTempC
	}
	if v < MinIndoorTempC {
		return MinIndoorTempC
	}
	if v > MaxIndoorTempC {
		return MaxIndoorTempC
	}
	return v
}
