package weather

import (
	"math"
	"time"
)

// Synthetic builds an hourly forecast following a sinusoidal day curve,
// coldest around 3AM and warmest around 3PM. Used when no live provider is
// configured and by offline tooling.
func Synthetic(start time.Time, hours int, meanC, swingC float64) Forecast {
	if hours <= 0 {
		return nil
	}
	fc := make(Forecast, 0, hours)
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		h := float64(ts.Hour())
		temp := meanC + swingC*math.Sin((h-9)/24*2*math.Pi)
		fc = append(fc, Sample{Time: ts, TempC: temp, HumidityPct: 55})
	}
	return fc
}
