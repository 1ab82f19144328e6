package planner

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/hvac"
	"github.com/wattsmith/thermoplan/internal/pricing"
	"github.com/wattsmith/thermoplan/internal/weather"
)

func testProfile(t *testing.T, sqft float64, grade building.Insulation, ageYears int) building.Profile {
	t.Helper()
	p, err := building.NewProfile(building.HouseInput{
		HomeSizeSqft: sqft,
		Insulation:   grade,
		AgeYears:     ageYears,
	}, building.DefaultParamSet())
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	return p
}

func testSystem(t *testing.T, typ hvac.SystemType, ageYears int, floorM2 float64) hvac.System {
	t.Helper()
	s, err := hvac.NewSystem(typ, ageYears, floorM2)
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	return s
}

func flatForecast(start time.Time, hours int, tempC float64) weather.Forecast {
	fc := make(weather.Forecast, hours)
	for i := range fc {
		fc[i] = weather.Sample{Time: start.Add(time.Duration(i) * time.Hour), TempC: tempC}
	}
	return fc
}

func modeTransitions(s Schedule) int {
	n := 0
	for i := 1; i < len(s.Entries); i++ {
		if s.Entries[i].Mode != s.Entries[i-1].Mode {
			n++
		}
	}
	return n
}

func TestGenerateSeeksTarget(t *testing.T) {
	profile := testProfile(t, 1500, building.InsulationAverage, 10)
	sys := testSystem(t, hvac.SystemHeatPump, 5, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 24, 15)
	comfort := DefaultComfort()

	sched, err := New().Generate(profile, sys, fc, 15, comfort, pricing.Flat{Rate: 0.10}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(sched.Entries) != 24 {
		t.Fatalf("entries = %d, want 24", len(sched.Entries))
	}
	if !sched.Entries[0].Mode.IsHeating() {
		t.Errorf("first entry mode = %s, want heating (indoor 7°C below target)", sched.Entries[0].Mode)
	}
	for i, e := range sched.Entries {
		if e.PredictedTempC > comfort.TargetC+comfort.BandAt(e.Start.Hour())+0.5 {
			t.Errorf("entry %d: predicted %.2f°C overshoots the comfort band", i, e.PredictedTempC)
		}
	}
	for _, e := range sched.Entries[18:] {
		band := comfort.BandAt(e.Start.Hour())
		if math.Abs(e.PredictedTempC-comfort.TargetC) > band+0.5 {
			t.Errorf("late entry at %s: predicted %.2f°C, want near %.1f±%.1f",
				e.Start.Format("15:04"), e.PredictedTempC, comfort.TargetC, band)
		}
	}
}

func TestGenerateCoolsDownHotHouse(t *testing.T) {
	profile := testProfile(t, 1500, building.InsulationAverage, 10)
	sys := testSystem(t, hvac.SystemHeatPump, 5, profile.FloorAreaM2)
	start := time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 24, 32)

	sched, err := New().Generate(profile, sys, fc, 26, DefaultComfort(), pricing.Flat{Rate: 0.10}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !sched.Entries[0].Mode.IsCooling() {
		t.Fatalf("first entry mode = %s, want cooling", sched.Entries[0].Mode)
	}
	if got := sched.Entries[0].PredictedTempC; got >= 26 {
		t.Errorf("cooling step raised the temperature: %.2f°C", got)
	}
	last := sched.Entries[len(sched.Entries)-1].PredictedTempC
	if last > 24 {
		t.Errorf("final predicted temp %.2f°C, want pulled down toward 22", last)
	}
}

func TestGenerateNeverFlipsHeatToCoolDirectly(t *testing.T) {
	profile := testProfile(t, 1500, building.InsulationPoor, 30)
	sys := testSystem(t, hvac.SystemCentral, 10, profile.FloorAreaM2)
	start := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	fc := make(weather.Forecast, 24)
	for i := range fc {
		temp := 8.0
		if i%2 == 1 {
			temp = 34.0
		}
		fc[i] = weather.Sample{Time: start.Add(time.Duration(i) * time.Hour), TempC: temp}
	}

	sched, err := New().Generate(profile, sys, fc, 22, DefaultComfort(), pricing.Flat{Rate: 0.10}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 1; i < len(sched.Entries); i++ {
		prev, cur := sched.Entries[i-1].Mode, sched.Entries[i].Mode
		if (prev.IsHeating() && cur.IsCooling()) || (prev.IsCooling() && cur.IsHeating()) {
			t.Fatalf("entry %d: direct %s -> %s transition without an off step", i, prev, cur)
		}
	}
}

func TestGenerateHysteresisLimitsCycling(t *testing.T) {
	// A tight house near the band edge is the worst case for chattering:
	// without the stop margin the controller would toggle nearly every step.
	profile := testProfile(t, 1500, building.InsulationExcellent, 0)
	sys := testSystem(t, hvac.SystemHeatPump, 0, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 24, 15)

	sched, err := New().Generate(profile, sys, fc, 20.5, DefaultComfort(), pricing.Flat{Rate: 0.10}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n := modeTransitions(sched); n > 10 {
		t.Errorf("mode transitions = %d over 24 steps, hysteresis should keep cycling rare", n)
	}
}

func TestGenerateTotalsReconcile(t *testing.T) {
	profile := testProfile(t, 2000, building.InsulationAverage, 15)
	sys := testSystem(t, hvac.SystemCentral, 8, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 24, 2)

	sched, err := New().Generate(profile, sys, fc, 17, DefaultComfort(), pricing.DefaultTOU(), start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var energy, cost float64
	for _, e := range sched.Entries {
		if e.EnergyKWh < 0 || e.Cost < 0 {
			t.Fatalf("entry at %s has negative energy or cost", e.Start.Format("15:04"))
		}
		// One-hour steps: energy in kWh equals average power in kW.
		if math.Abs(e.EnergyKWh-e.PowerKW) > 0.01 {
			t.Errorf("entry at %s: energy %.4f kWh vs power %.3f kW", e.Start.Format("15:04"), e.EnergyKWh, e.PowerKW)
		}
		energy += e.EnergyKWh
		cost += e.Cost
	}
	if math.Abs(energy-sched.TotalEnergyKWh) > 1e-3 {
		t.Errorf("TotalEnergyKWh = %.4f, sum of entries = %.4f", sched.TotalEnergyKWh, energy)
	}
	if math.Abs(cost-sched.TotalCost) > 1e-3 {
		t.Errorf("TotalCost = %.4f, sum of entries = %.4f", sched.TotalCost, cost)
	}
	if sched.TotalEnergyKWh <= 0 {
		t.Error("a 2°C day should need some heating energy")
	}
}

func TestGenerateWinterDay(t *testing.T) {
	// 1500 sqft average house, 5-year heat pump, outdoor swinging 5°C
	// overnight up to 18°C at midday and back. The plan should heat through
	// the cold morning, coast through the mild midday, and heat again in the
	// evening while keeping the house close to target.
	profile := testProfile(t, 1500, building.InsulationAverage, 10)
	sys := testSystem(t, hvac.SystemHeatPump, 5, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	fc := make(weather.Forecast, 24)
	for i := range fc {
		var temp float64
		switch {
		case i < 7:
			temp = 5
		case i < 13:
			temp = 5 + float64(i-6)*13.0/6.0
		case i < 15:
			temp = 18
		case i < 23:
			temp = 18 - float64(i-14)*13.0/8.0
		default:
			temp = 5
		}
		fc[i] = weather.Sample{Time: start.Add(time.Duration(i) * time.Hour), TempC: temp}
	}

	comfort := Comfort{TargetC: 21, BandC: 1, HysteresisC: 0.3, Occupancy: OccupancyHome}
	sched, err := New().Generate(profile, sys, fc, 20, comfort, pricing.Flat{Rate: 0.08}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if sched.ComfortScore < 80 {
		t.Errorf("ComfortScore = %.1f, want >= 80", sched.ComfortScore)
	}

	heatsIn := func(from, to int) bool {
		for _, e := range sched.Entries[from:to] {
			if e.Mode.IsHeating() {
				return true
			}
		}
		return false
	}
	if !heatsIn(0, 9) {
		t.Error("no heating during the cold morning")
	}
	if !heatsIn(18, 24) {
		t.Error("no heating during the cold evening")
	}
	coasted := false
	for _, e := range sched.Entries[11:16] {
		if e.Mode == ModeOff {
			coasted = true
			break
		}
	}
	if !coasted {
		t.Error("no off entry during the mild midday")
	}
}

func TestGeneratePreHeatsBeforePriceRise(t *testing.T) {
	// Tight house drifting slowly: comfortable next hour, band breach two
	// hours out, and the TOU peak starts at 16:00. Starting at 14:00 the
	// current mid-peak rate beats the rate at the predicted breach, so the
	// planner banks heat early.
	profile := testProfile(t, 1500, building.InsulationExcellent, 0)
	sys := testSystem(t, hvac.SystemHeatPump, 0, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 26, 10)
	comfort := Comfort{TargetC: 21, BandC: 1, HysteresisC: 0.3, Occupancy: OccupancyHome}

	sched, err := New().Generate(profile, sys, fc, 20.6, comfort, pricing.DefaultTOU(), start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := sched.Entries[0].Mode; got != ModePreHeat {
		t.Fatalf("first entry mode = %s, want pre-heat", got)
	}

	// Same physics under a flat tariff: nothing to arbitrage, so the first
	// step stays off.
	flat, err := New().Generate(profile, sys, fc, 20.6, comfort, pricing.Flat{Rate: 0.12}, start)
	if err != nil {
		t.Fatalf("Generate flat: %v", err)
	}
	if got := flat.Entries[0].Mode; got != ModeOff {
		t.Errorf("flat-rate first entry mode = %s, want off", got)
	}
}

func TestGenerateFurnaceNeverCools(t *testing.T) {
	profile := testProfile(t, 1500, building.InsulationAverage, 10)
	sys := testSystem(t, hvac.SystemFurnace, 5, profile.FloorAreaM2)
	start := time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 24, 35)

	sched, err := New().Generate(profile, sys, fc, 28, DefaultComfort(), pricing.Flat{Rate: 0.10}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, e := range sched.Entries {
		if e.Mode.IsCooling() {
			t.Fatalf("entry %d: furnace schedule contains %s", i, e.Mode)
		}
	}
	if got := sched.Entries[0].Mode; got != ModeOff {
		t.Errorf("first entry mode = %s, want off (nothing a furnace can do in July)", got)
	}
}

func TestGenerateRejectsBadInputs(t *testing.T) {
	profile := testProfile(t, 1500, building.InsulationAverage, 10)
	sys := testSystem(t, hvac.SystemHeatPump, 5, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 24, 10)
	comfort := DefaultComfort()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "zero profile",
			run: func() error {
				_, err := New().Generate(building.Profile{}, sys, fc, 20, comfort, pricing.Flat{Rate: 0.1}, start)
				return err
			},
			want: ErrInvalidProfile,
		},
		{
			name: "zero system",
			run: func() error {
				_, err := New().Generate(profile, hvac.System{}, fc, 20, comfort, pricing.Flat{Rate: 0.1}, start)
				return err
			},
			want: ErrInvalidSystem,
		},
		{
			name: "target out of range",
			run: func() error {
				bad := comfort
				bad.TargetC = 50
				_, err := New().Generate(profile, sys, fc, 20, bad, pricing.Flat{Rate: 0.1}, start)
				return err
			},
			want: ErrTargetOutOfRange,
		},
		{
			name: "hysteresis wider than band",
			run: func() error {
				bad := comfort
				bad.HysteresisC = 2
				_, err := New().Generate(profile, sys, fc, 20, bad, pricing.Flat{Rate: 0.1}, start)
				return err
			},
			want: ErrInvalidHysteresis,
		},
		{
			name: "nil pricer",
			run: func() error {
				_, err := New().Generate(profile, sys, fc, 20, comfort, nil, start)
				return err
			},
			want: ErrNoPricer,
		},
		{
			name: "empty forecast",
			run: func() error {
				_, err := New().Generate(profile, sys, weather.Forecast{}, 20, comfort, pricing.Flat{Rate: 0.1}, start)
				return err
			},
			want: weather.ErrEmptyForecast,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGeneratePadsShortForecast(t *testing.T) {
	profile := testProfile(t, 1500, building.InsulationAverage, 10)
	sys := testSystem(t, hvac.SystemHeatPump, 5, profile.FloorAreaM2)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	fc := flatForecast(start, 6, 5)

	sched, err := New().Generate(profile, sys, fc, 20, DefaultComfort(), pricing.Flat{Rate: 0.10}, start)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(sched.Entries) != 24 {
		t.Errorf("entries = %d, want full 24-step horizon", len(sched.Entries))
	}
	if !sched.ForecastPadded {
		t.Error("ForecastPadded = false, want true for a 6-sample forecast")
	}
}

func TestScheduleEntryAt(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	s := Schedule{
		Entries: []Entry{
			{Start: start, End: start.Add(time.Hour), ModeName: "heat"},
			{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), ModeName: "off"},
		},
		GeneratedAt: start,
	}

	e, ok := s.EntryAt(start.Add(30 * time.Minute))
	if !ok || e.ModeName != "heat" {
		t.Errorf("EntryAt(00:30) = %q, %v; want heat entry", e.ModeName, ok)
	}
	e, ok = s.EntryAt(start.Add(time.Hour))
	if !ok || e.ModeName != "off" {
		t.Errorf("EntryAt(01:00) = %q, %v; want off entry (boundary belongs to the next step)", e.ModeName, ok)
	}
	if _, ok := s.EntryAt(start.Add(5 * time.Hour)); ok {
		t.Error("EntryAt past the horizon should report no entry")
	}
}

func TestScheduleStale(t *testing.T) {
	start := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	s := Schedule{
		Entries:     []Entry{{Start: start, End: start.Add(time.Hour)}},
		GeneratedAt: start,
	}
	if s.Stale(start.Add(10 * time.Hour)) {
		t.Error("schedule stale on the day it was generated")
	}
	if !s.Stale(start.Add(24 * time.Hour)) {
		t.Error("schedule not stale the next day")
	}
	if !(Schedule{}).Stale(start) {
		t.Error("empty schedule should always be stale")
	}
}

func TestComfortBandAt(t *testing.T) {
	c := Comfort{TargetC: 22, BandC: 1, HysteresisC: 0.3, Occupancy: OccupancyHome}
	if got := c.BandAt(12); got != 1.0 {
		t.Errorf("daytime band = %.2f, want 1.0", got)
	}
	if got := c.BandAt(23); got != 1.5 {
		t.Errorf("night band = %.2f, want 1.5", got)
	}
	c.Occupancy = OccupancyAway
	if got := c.BandAt(12); got != 2.0 {
		t.Errorf("away daytime band = %.2f, want 2.0", got)
	}
	if got := c.BandAt(2); got != 3.0 {
		t.Errorf("away night band = %.2f, want 3.0", got)
	}
}

func TestParseModeRoundTrip(t *testing.T) {
	for _, m := range []Mode{ModeOff, ModeHeat, ModeCool, ModePreHeat, ModePreCool} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("defrost"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}
