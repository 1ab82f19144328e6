// Package service owns the mutable simulation state and coordinates the
// thermal model, the planner and persistence behind a single mutex.
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wattsmith/thermoplan/internal/advisor"
	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/hvac"
	"github.com/wattsmith/thermoplan/internal/metrics"
	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/pricing"
	"github.com/wattsmith/thermoplan/internal/store"
	"github.com/wattsmith/thermoplan/internal/thermal"
	"github.com/wattsmith/thermoplan/internal/weather"
)

const (
	// Compressor protection: once switched on, the equipment runs at least
	// this long, and rests at least minOffTime after switching off.
	minRunTime = 15 * time.Minute
	minOffTime = 10 * time.Minute

	internalGainsW = 200.0
)

// Snapshot is the externally visible state of the simulated home.
type Snapshot struct {
	Enabled        bool
	IndoorTempC    float64
	OutdoorTempC   float64
	TargetC        float64
	BandC          float64
	Occupancy      planner.Occupancy
	Mode           planner.Mode
	PowerKW        float64
	EnergyKWhToday float64
	CostToday      float64
	ComfortScore   float64
	UpdatedAt      time.Time
}

// Config assembles the dependencies of a Climate service. Store and Metrics
// are optional; everything else is required.
type Config struct {
	Profile      building.Profile
	System       hvac.System
	Comfort      planner.Comfort
	Pricer       pricing.Pricer
	Forecast     weather.Forecast
	InitialTempC float64
	Enabled      bool

	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

// Climate is the single owner of the simulation state.
type Climate struct {
	mu sync.RWMutex

	profile building.Profile
	sys     hvac.System
	comfort planner.Comfort
	pricer  pricing.Pricer
	fc      weather.Forecast

	state   thermal.State
	enabled bool
	mode    planner.Mode
	powerKW float64

	sched planner.Schedule

	energyToday float64
	costToday   float64
	accountDay  time.Time

	lastSwitch time.Time

	pl  *planner.Planner
	st  *store.Store
	m   *metrics.Metrics
	log *log.Logger
	now func() time.Time
}

func New(cfg Config) (*Climate, error) {
	if !cfg.Profile.Valid() {
		return nil, planner.ErrInvalidProfile
	}
	if !cfg.System.Valid() {
		return nil, planner.ErrInvalidSystem
	}
	if err := cfg.Comfort.Validate(); err != nil {
		return nil, err
	}
	if cfg.Pricer == nil {
		return nil, planner.ErrNoPricer
	}
	if len(cfg.Forecast) == 0 {
		return nil, weather.ErrEmptyForecast
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Climate{
		profile: cfg.Profile,
		sys:     cfg.System,
		comfort: cfg.Comfort,
		pricer:  cfg.Pricer,
		fc:      cfg.Forecast,
		state:   thermal.State{IndoorTempC: cfg.InitialTempC},
		enabled: cfg.Enabled,
		pl:      planner.New(),
		st:      cfg.Store,
		m:       cfg.Metrics,
		log:     logger,
		now:     time.Now,
	}

	if c.st != nil {
		if st, ok, err := c.st.LoadState(); err != nil {
			return nil, err
		} else if ok {
			c.state.IndoorTempC = st.IndoorTempC
			c.enabled = st.Enabled
			logger.Printf("restored indoor temperature %.1f°C from store", st.IndoorTempC)
		}
		if sched, ok, err := c.st.LoadLatestSchedule(); err != nil {
			return nil, err
		} else if ok && !sched.Stale(c.now()) {
			c.sched = sched
		}
	}
	return c, nil
}

// Get returns the current snapshot.
func (c *Climate) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Climate) snapshotLocked() Snapshot {
	out := Snapshot{
		Enabled:        c.enabled,
		IndoorTempC:    c.state.IndoorTempC,
		TargetC:        c.comfort.TargetC,
		BandC:          c.comfort.BandC,
		Occupancy:      c.comfort.Occupancy,
		Mode:           c.mode,
		PowerKW:        c.powerKW,
		EnergyKWhToday: c.energyToday,
		CostToday:      c.costToday,
		ComfortScore:   c.sched.ComfortScore,
		UpdatedAt:      c.now(),
	}
	if s, err := c.fc.Nearest(c.now()); err == nil {
		out.OutdoorTempC = s.TempC
	}
	return out
}

// Schedule returns the cached plan, regenerating it first if it has gone
// stale or a preference changed since it was built.
func (c *Climate) Schedule() (planner.Schedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureScheduleLocked(); err != nil {
		return planner.Schedule{}, err
	}
	return c.sched, nil
}

func (c *Climate) ensureScheduleLocked() error {
	now := c.now()
	if !c.sched.Stale(now) {
		return nil
	}
	sched, err := c.pl.Generate(c.profile, c.sys, c.fc, c.state.IndoorTempC, c.comfort, c.pricer, now)
	if err != nil {
		if c.m != nil {
			c.m.PlanFailures.Inc()
		}
		return err
	}
	c.sched = sched
	if c.m != nil {
		c.m.PlansTotal.Inc()
		c.m.ComfortScore.Set(sched.ComfortScore)
	}
	if sched.ForecastPadded {
		c.log.Printf("forecast shorter than horizon, padded with last sample")
	}
	if c.st != nil {
		if err := c.st.SaveSchedule(sched); err != nil {
			c.log.Printf("persist schedule: %v", err)
		}
	}
	c.log.Printf("generated schedule: %d steps, %.2f kWh, $%.2f, comfort %.1f",
		len(sched.Entries), sched.TotalEnergyKWh, sched.TotalCost, sched.ComfortScore)
	return nil
}

// Advice recommends cheap windows for deferrable loads against the current
// tariff and schedule.
func (c *Climate) Advice() ([]advisor.Recommendation, error) {
	sched, err := c.Schedule()
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	pricer, now := c.pricer, c.now()
	c.mu.RUnlock()
	return advisor.Recommend(advisor.DefaultAppliances(), pricer, sched, now), nil
}

// SetEnabled switches the whole system on or off. Disabling lets the house
// coast; the schedule is kept so re-enabling resumes it.
func (c *Climate) SetEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = on
	if !on {
		c.mode = planner.ModeOff
		c.powerKW = 0
	}
}

// SetTargetTemperature changes the comfort target and invalidates the plan.
func (c *Climate) SetTargetTemperature(target float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.comfort
	next.TargetC = target
	if err := next.Validate(); err != nil {
		return err
	}
	c.comfort = next
	c.invalidateScheduleLocked()
	return nil
}

// SetComfortBand changes the band half-width and invalidates the plan.
func (c *Climate) SetComfortBand(band float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.comfort
	next.BandC = band
	if err := next.Validate(); err != nil {
		return err
	}
	c.comfort = next
	c.invalidateScheduleLocked()
	return nil
}

// SetOccupancy changes the occupancy mode and invalidates the plan.
func (c *Climate) SetOccupancy(o planner.Occupancy) error {
	if !o.Valid() {
		return planner.ErrInvalidOccupancy
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comfort.Occupancy = o
	c.invalidateScheduleLocked()
	return nil
}

// SetForecast swaps in fresh weather data and invalidates the plan.
func (c *Climate) SetForecast(fc weather.Forecast) error {
	if len(fc) == 0 {
		return weather.ErrEmptyForecast
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fc = fc
	c.invalidateScheduleLocked()
	return nil
}

func (c *Climate) invalidateScheduleLocked() {
	c.sched = planner.Schedule{}
}

// Run drives the simulation until the context is cancelled.
func (c *Climate) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.step(interval)
		}
	}
}

// step advances the simulation by dt.
func (c *Climate) step(dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.rollAccountingDayLocked(now)

	w, err := c.fc.Nearest(now)
	if err != nil {
		c.log.Printf("no weather sample available: %v", err)
		return
	}

	desired := planner.ModeOff
	if c.enabled {
		if err := c.ensureScheduleLocked(); err != nil {
			c.log.Printf("schedule unavailable, coasting: %v", err)
		} else if e, ok := c.sched.EntryAt(now); ok {
			desired = e.Mode
		}
	}
	mode := c.applyLockoutLocked(desired, now)

	var hvacW, elecKW float64
	switch {
	case mode.IsHeating():
		frac := thermal.OutputFraction(c.state.IndoorTempC, c.comfort.TargetC, c.comfort.BandAt(now.Hour()))
		hvacW = c.sys.HeatingCapacityW * frac
		cop := hvac.HeatingCOP(c.sys.Type, w.TempC, c.comfort.TargetC, frac, c.sys.AgeYears)
		elecKW = hvacW / (cop * 1000)
	case mode.IsCooling():
		frac := thermal.OutputFraction(c.state.IndoorTempC, c.comfort.TargetC, c.comfort.BandAt(now.Hour()))
		hvacW = -c.sys.CoolingCapacityW * frac
		cop := hvac.CoolingCOP(c.sys.Type, w.TempC, c.comfort.TargetC, frac, c.sys.AgeYears)
		elecKW = -hvacW / (cop * 1000)
	}

	c.state = thermal.Step(c.state, c.profile, w, hvacW, internalGainsW, dt)
	c.mode = mode
	c.powerKW = elecKW

	energy := elecKW * dt.Hours()
	cost := energy * c.pricer.RateAt(now)
	c.energyToday += energy
	c.costToday += cost

	if c.st != nil {
		if err := c.st.SaveState(store.DeviceState{
			IndoorTempC: c.state.IndoorTempC,
			Enabled:     c.enabled,
			TargetC:     c.comfort.TargetC,
			UpdatedAt:   now,
		}); err != nil {
			c.log.Printf("persist state: %v", err)
		}
		if energy > 0 {
			if err := c.st.AppendEnergy(store.EnergyRecord{
				Time: now, Mode: mode.String(), EnergyKWh: energy, Cost: cost,
			}); err != nil {
				c.log.Printf("persist energy record: %v", err)
			}
		}
	}
	c.publishMetricsLocked(w, energy, cost)
}

// applyLockoutLocked keeps short-cycling out of the simulated equipment: a
// running system finishes its minimum run, a stopped one finishes its rest.
func (c *Climate) applyLockoutLocked(desired planner.Mode, now time.Time) planner.Mode {
	if desired == c.mode {
		return c.mode
	}
	if c.lastSwitch.IsZero() {
		c.lastSwitch = now
		return desired
	}
	since := now.Sub(c.lastSwitch)
	if c.mode == planner.ModeOff && since < minOffTime {
		return c.mode
	}
	if c.mode != planner.ModeOff && since < minRunTime {
		// Switching between heat and pre-heat keeps the compressor running;
		// only on/off and heat/cool changes are held back.
		if desired.IsHeating() == c.mode.IsHeating() && desired.IsCooling() == c.mode.IsCooling() {
			return desired
		}
		return c.mode
	}
	c.lastSwitch = now
	return desired
}

func (c *Climate) rollAccountingDayLocked(now time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !day.Equal(c.accountDay) {
		c.accountDay = day
		c.energyToday = 0
		c.costToday = 0
	}
}

func (c *Climate) publishMetricsLocked(w weather.Sample, energy, cost float64) {
	if c.m == nil {
		return
	}
	c.m.IndoorTemp.Set(c.state.IndoorTempC)
	c.m.OutdoorTemp.Set(w.TempC)
	c.m.TargetTemp.Set(c.comfort.TargetC)
	c.m.HvacMode.Set(float64(c.mode))
	c.m.HvacPowerKW.Set(c.powerKW)
	if energy > 0 {
		c.m.EnergyKWhTotal.Add(energy)
		c.m.CostTotal.Add(cost)
	}
}
