package ports

import (
	"github.com/wattsmith/thermoplan/internal/advisor"
	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/service"
	"github.com/wattsmith/thermoplan/internal/weather"
)

// ClimateService is the control-plane port used by controllers (HTTP/MQTT/etc).
type ClimateService interface {
	Get() service.Snapshot
	Schedule() (planner.Schedule, error)
	Advice() ([]advisor.Recommendation, error)
	SetEnabled(bool)
	SetTargetTemperature(float64) error
	SetComfortBand(float64) error
	SetOccupancy(planner.Occupancy) error
	SetForecast(weather.Forecast) error
}
