package testutil

import (
	"time"

	"github.com/wattsmith/thermoplan/internal/advisor"
	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/service"
	"github.com/wattsmith/thermoplan/internal/weather"
)

// FakeClimateService is a reusable fake implementing ports.ClimateService.
// Put ONLY what multiple test packages need here.
type FakeClimateService struct {
	S     service.Snapshot
	Sched planner.Schedule
	Recs  []advisor.Recommendation

	ScheduleErr error
	AdviceErr   error

	SetEnabledCalled bool
	SetEnabledArg    bool

	SetTargetCalled bool
	SetTargetArg    float64
	SetTargetErr    error

	SetBandCalled bool
	SetBandArg    float64
	SetBandErr    error

	SetOccupancyCalled bool
	SetOccupancyArg    planner.Occupancy
	SetOccupancyErr    error

	SetForecastCalled bool
	SetForecastArg    weather.Forecast
	SetForecastErr    error
}

func NewFakeClimateService() *FakeClimateService {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	return &FakeClimateService{
		S: service.Snapshot{
			Enabled:      true,
			IndoorTempC:  21.2,
			OutdoorTempC: 5,
			TargetC:      22,
			BandC:        1,
			Occupancy:    planner.OccupancyHome,
			Mode:         planner.ModeHeat,
			PowerKW:      1.8,
			ComfortScore: 91.5,
			UpdatedAt:    now,
		},
		Sched: planner.Schedule{
			Entries: []planner.Entry{{
				Start:          now,
				End:            now.Add(time.Hour),
				Mode:           planner.ModeHeat,
				ModeName:       "heat",
				PowerKW:        1.8,
				EnergyKWh:      1.8,
				Cost:           0.144,
				PredictedTempC: 21.6,
				Reason:         "heating toward 22.0°C, indoor 21.2°C",
			}},
			TotalCost:      0.144,
			TotalEnergyKWh: 1.8,
			ComfortScore:   91.5,
			GeneratedAt:    now,
		},
	}
}

func (f *FakeClimateService) Get() service.Snapshot { return f.S }

func (f *FakeClimateService) Schedule() (planner.Schedule, error) {
	if f.ScheduleErr != nil {
		return planner.Schedule{}, f.ScheduleErr
	}
	return f.Sched, nil
}

func (f *FakeClimateService) Advice() ([]advisor.Recommendation, error) {
	if f.AdviceErr != nil {
		return nil, f.AdviceErr
	}
	return f.Recs, nil
}

func (f *FakeClimateService) SetEnabled(b bool) {
	f.SetEnabledCalled = true
	f.SetEnabledArg = b
	f.S.Enabled = b
}

func (f *FakeClimateService) SetTargetTemperature(v float64) error {
	f.SetTargetCalled = true
	f.SetTargetArg = v
	if f.SetTargetErr != nil {
		return f.SetTargetErr
	}
	f.S.TargetC = v
	return nil
}

func (f *FakeClimateService) SetComfortBand(v float64) error {
	f.SetBandCalled = true
	f.SetBandArg = v
	if f.SetBandErr != nil {
		return f.SetBandErr
	}
	f.S.BandC = v
	return nil
}

func (f *FakeClimateService) SetOccupancy(o planner.Occupancy) error {
	f.SetOccupancyCalled = true
	f.SetOccupancyArg = o
	if f.SetOccupancyErr != nil {
		return f.SetOccupancyErr
	}
	f.S.Occupancy = o
	return nil
}

func (f *FakeClimateService) SetForecast(fc weather.Forecast) error {
	f.SetForecastCalled = true
	f.SetForecastArg = fc
	if f.SetForecastErr != nil {
		return f.SetForecastErr
	}
	return nil
}
