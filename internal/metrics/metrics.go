// Package metrics exposes the simulation and planner gauges on a Prometheus
// registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	IndoorTemp     prometheus.Gauge
	OutdoorTemp    prometheus.Gauge
	TargetTemp     prometheus.Gauge
	HvacMode       prometheus.Gauge
	HvacPowerKW    prometheus.Gauge
	ComfortScore   prometheus.Gauge
	EnergyKWhTotal prometheus.Counter
	CostTotal      prometheus.Counter
	PlansTotal     prometheus.Counter
	PlanFailures   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IndoorTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thermoplan",
			Name:      "indoor_temperature_celsius",
			Help:      "Simulated indoor air temperature",
		}),
		OutdoorTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thermoplan",
			Name:      "outdoor_temperature_celsius",
			Help:      "Outdoor temperature from the active forecast sample",
		}),
		TargetTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thermoplan",
			Name:      "target_temperature_celsius",
			Help:      "Current comfort target",
		}),
		HvacMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thermoplan",
			Name:      "hvac_mode",
			Help:      "Scheduled HVAC mode as its enum value (0=off 1=heat 2=cool 3=pre-heat 4=pre-cool)",
		}),
		HvacPowerKW: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thermoplan",
			Name:      "hvac_power_kilowatts",
			Help:      "Scheduled electrical draw for the current step",
		}),
		ComfortScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thermoplan",
			Name:      "comfort_score",
			Help:      "Comfort score of the active schedule, 0-100",
		}),
		EnergyKWhTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thermoplan",
			Name:      "energy_kwh_total",
			Help:      "Accumulated simulated electrical consumption",
		}),
		CostTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thermoplan",
			Name:      "cost_dollars_total",
			Help:      "Accumulated simulated energy cost",
		}),
		PlansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thermoplan",
			Name:      "plans_generated_total",
			Help:      "Schedules generated since start",
		}),
		PlanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thermoplan",
			Name:      "plan_failures_total",
			Help:      "Schedule generation attempts that returned an error",
		}),
	}

	reg.MustRegister(
		m.IndoorTemp,
		m.OutdoorTemp,
		m.TargetTemp,
		m.HvacMode,
		m.HvacPowerKW,
		m.ComfortScore,
		m.EnergyKWhTotal,
		m.CostTotal,
		m.PlansTotal,
		m.PlanFailures,
	)
	return m
}
