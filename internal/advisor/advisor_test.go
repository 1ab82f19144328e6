package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/pricing"
)

func TestRecommendPrefersOffPeak(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 15, 0, 0, time.UTC)
	recs := Recommend(DefaultAppliances(), pricing.DefaultTOU(), planner.Schedule{}, now)
	require.Len(t, recs, len(DefaultAppliances()))

	for _, r := range recs {
		h := r.Start.Hour()
		assert.True(t, h >= 22 || h < 6, "%s starts at %d:00, want an off-peak hour", r.Appliance, h)
		assert.Greater(t, r.Savings, 0.0, "%s should save vs the worst window", r.Appliance)
		assert.True(t, r.End.After(r.Start))
	}
}

func TestRecommendCostMatchesRate(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	apps := []Appliance{{Name: "dishwasher", PowerKW: 2.0, Duration: 2 * time.Hour}}
	recs := Recommend(apps, pricing.Flat{Rate: 0.10}, planner.Schedule{}, now)
	require.Len(t, recs, 1)

	// 2 kW for 2 h at a flat $0.10/kWh.
	assert.InDelta(t, 0.40, recs[0].Cost, 1e-9)
	assert.InDelta(t, 0.0, recs[0].Savings, 1e-9, "flat tariff leaves nothing to save")
}

func TestRecommendAvoidsHvacHeavyHours(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	// HVAC drawing hard through the whole off-peak night.
	var entries []planner.Entry
	for h := 0; h < 24; h++ {
		start := now.Truncate(time.Hour).Add(time.Duration(h+1) * time.Hour)
		power := 0.0
		if start.Hour() >= 22 || start.Hour() < 6 {
			power = 3.0
		}
		entries = append(entries, planner.Entry{
			Start:   start,
			End:     start.Add(time.Hour),
			PowerKW: power,
		})
	}
	sched := planner.Schedule{Entries: entries, GeneratedAt: now}

	apps := []Appliance{{Name: "laundry", PowerKW: 2.2, Duration: 90 * time.Minute}}
	recs := Recommend(apps, pricing.DefaultTOU(), sched, now)
	require.Len(t, recs, 1)

	h := recs[0].Start.Hour()
	assert.False(t, h >= 22 || h < 6, "laundry at %d:00 collides with the busy HVAC night", h)
	assert.False(t, h >= 16 && h < 21, "laundry at %d:00 lands on the peak window", h)
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{-1.236, -1.24},
		{-0.006, -0.01},
		{0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, round2(tt.in), 1e-9, "round2(%v)", tt.in)
	}
}

func TestRecommendHandlesDegenerateInput(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	assert.Nil(t, Recommend(nil, pricing.DefaultTOU(), planner.Schedule{}, now))
	assert.Nil(t, Recommend(DefaultAppliances(), nil, planner.Schedule{}, now))

	bad := []Appliance{{Name: "broken", PowerKW: 0, Duration: time.Hour}}
	assert.Empty(t, Recommend(bad, pricing.DefaultTOU(), planner.Schedule{}, now))
}
