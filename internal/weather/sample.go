package weather

import (
	"errors"
	"time"
)

var ErrEmptyForecast = errors.New("forecast has no samples")

// Sample is one observed or forecast hour of outdoor conditions. Only the
// temperature is mandatory; the other fields default to neutral values when a
// provider does not supply them.
type Sample struct {
	Time        time.Time `json:"time"`
	TempC       float64   `json:"temperature_c"`
	HumidityPct float64   `json:"humidity_pct"`
	SolarWM2    float64   `json:"solar_w_m2"`
	WindMS      float64   `json:"wind_m_s"`
	PrecipMM    float64   `json:"precipitation_mm"`
}

// Humidity returns the relative humidity, substituting a neutral 50% when the
// field was absent from the source data.
func (s Sample) Humidity() float64 {
	if s.HumidityPct <= 0 {
		return 50
	}
	return s.HumidityPct
}

// Forecast is an ordered sequence of samples, one per timestep.
type Forecast []Sample

// At returns the i-th sample, holding the last known sample for indexes past
// the end. Short forecasts degrade instead of crashing.
func (f Forecast) At(i int) Sample {
	if len(f) == 0 {
		return Sample{}
	}
	if i < 0 {
		i = 0
	}
	if i >= len(f) {
		i = len(f) - 1
	}
	return f[i]
}

// Pad extends the forecast to at least n samples by repeating the last one,
// stepping its timestamp forward by the spacing of the final two samples.
// The second return value reports whether padding was needed, so callers can
// log the degraded-confidence condition.
func (f Forecast) Pad(n int) (Forecast, bool) {
	if len(f) == 0 || len(f) >= n {
		return f, false
	}
	step := time.Hour
	if len(f) >= 2 {
		if d := f[len(f)-1].Time.Sub(f[len(f)-2].Time); d > 0 {
			step = d
		}
	}
	out := make(Forecast, len(f), n)
	copy(out, f)
	last := f[len(f)-1]
	for len(out) < n {
		last.Time = last.Time.Add(step)
		out = append(out, last)
	}
	return out, true
}

// Nearest returns the sample closest in time to t.
func (f Forecast) Nearest(t time.Time) (Sample, error) {
	if len(f) == 0 {
		return Sample{}, ErrEmptyForecast
	}
	best := f[0]
	bestDelta := absDuration(f[0].Time.Sub(t))
	for _, s := range f[1:] {
		if d := absDuration(s.Time.Sub(t)); d < bestDelta {
			best, bestDelta = s, d
		}
	}
	return best, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
