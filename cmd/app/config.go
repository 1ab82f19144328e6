package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/hvac"
	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/pricing"
)

type Config struct {
	DeviceID    string `koanf:"device_id"`
	Controllers struct {
		HTTP    HTTPConfig    `koanf:"http"`
		MQTT    MQTTConfig    `koanf:"mqtt"`
		MODBUS  ModbusConfig  `koanf:"modbus"`
		WS      WSConfig      `koanf:"ws"`
		Metrics MetricsConfig `koanf:"metrics"`
	} `koanf:"controllers"`

	House   HouseConfig   `koanf:"house"`
	HVAC    HVACConfig    `koanf:"hvac"`
	Comfort ComfortConfig `koanf:"comfort"`
	Pricing PricingConfig `koanf:"pricing"`
	Weather WeatherConfig `koanf:"weather"`
	Store   StoreConfig   `koanf:"store"`
	Sim     SimConfig     `koanf:"sim"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Addr         string        `koanf:"addr"`
	UnitID       byte          `koanf:"unit_id"`
	SyncInterval time.Duration `koanf:"sync_interval"`
}

type WSConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Addr              string        `koanf:"addr"`
	BroadcastInterval time.Duration `koanf:"broadcast_interval"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// HouseConfig describes the building. Optional fields fall back to the
// representative 1500 sqft average-insulation house.
type HouseConfig struct {
	SizeSqft   *float64 `koanf:"size_sqft"`
	Insulation *string  `koanf:"insulation"`
	AgeYears   *int     `koanf:"age_years"`
}

type HVACConfig struct {
	SystemType *string `koanf:"system_type"` // "central" | "heat_pump" | "mini_split" | "window" | "furnace"
	AgeYears   *int    `koanf:"age_years"`
}

type ComfortConfig struct {
	Target     *float64 `koanf:"target"`
	Band       *float64 `koanf:"band"`
	Hysteresis *float64 `koanf:"hysteresis"`
	Occupancy  *string  `koanf:"occupancy"` // "home" | "away" | "night"
}

type PricingConfig struct {
	Tariff   string   `koanf:"tariff"` // "tou" | "flat"
	FlatRate *float64 `koanf:"flat_rate"`
	OffPeak  *float64 `koanf:"off_peak"`
	MidPeak  *float64 `koanf:"mid_peak"`
	Peak     *float64 `koanf:"peak"`
}

// WeatherConfig selects the Open-Meteo location. A zero latitude and
// longitude means no live forecast; the binary falls back to a synthetic one.
type WeatherConfig struct {
	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`
	Hours     int     `koanf:"hours"`
}

type StoreConfig struct {
	Path          string `koanf:"path"`
	RetentionDays int    `koanf:"retention_days"`
}

type SimConfig struct {
	Interval           time.Duration `koanf:"interval"`
	InitialTemperature *float64      `koanf:"initial_temperature"`
	Enabled            *bool         `koanf:"enabled"`
}

const envPrefix = "THERMOPLAN_"

func defaultConfig() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.Controllers.HTTP.Enabled = true
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.QoS = 1
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.MODBUS.UnitID = 1
	cfg.Controllers.MODBUS.SyncInterval = 1 * time.Second
	cfg.Controllers.WS.Addr = ":8081"
	cfg.Controllers.WS.BroadcastInterval = 2 * time.Second
	cfg.Controllers.Metrics.Addr = ":9090"
	cfg.Pricing.Tariff = "tou"
	cfg.Weather.Hours = 48
	cfg.Store.Path = "thermoplan.db"
	cfg.Store.RetentionDays = 90
	cfg.Sim.Interval = 1 * time.Minute
	return cfg
}

// LoadConfig layers defaults, an optional yaml/json file and THERMOPLAN_*
// environment variables, later layers winning. A missing file is not an
// error; defaults apply.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
			// Config file missing → defaults apply
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			return envKeyTransform(key), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// configSections are the key prefixes that map an env var onto a nested
// config path. Longest prefixes first so controllers_http wins over a
// hypothetical controllers section var.
var configSections = []string{
	"controllers_http",
	"controllers_mqtt",
	"controllers_modbus",
	"controllers_ws",
	"controllers_metrics",
	"house",
	"hvac",
	"comfort",
	"pricing",
	"weather",
	"store",
	"sim",
}

// envKeyTransform maps CONTROLLERS_HTTP_ADDR to controllers.http.addr and
// HOUSE_SIZE_SQFT to house.size_sqft. Keys outside a known section pass
// through lowercased, so DEVICE_ID stays device_id.
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	for _, section := range configSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return strings.ReplaceAll(section, "_", ".") + "." + rest
		}
	}
	return key
}

// ApplyEnvOverrides handles the container conventions that do not fit the
// THERMOPLAN_ naming. Explicit addr prefered, else support PORT.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" && os.Getenv(envPrefix+"CONTROLLERS_HTTP_ADDR") == "" {
		// listen on all interfaces on that port
		cfg.Controllers.HTTP.Addr = ":" + v
	}
}

// ---- builders from config to domain inputs ----

func (c Config) HouseInput() (building.HouseInput, error) {
	in := building.HouseInput{
		HomeSizeSqft: 1500,
		Insulation:   building.InsulationAverage,
		AgeYears:     10,
	}
	if c.House.SizeSqft != nil {
		in.HomeSizeSqft = *c.House.SizeSqft
	}
	if c.House.Insulation != nil {
		g, err := building.ParseInsulation(*c.House.Insulation)
		if err != nil {
			return building.HouseInput{}, err
		}
		in.Insulation = g
	}
	if c.House.AgeYears != nil {
		in.AgeYears = *c.House.AgeYears
	}
	return in, nil
}

func (c Config) System(floorAreaM2 float64) (hvac.System, error) {
	t := hvac.SystemHeatPump
	age := 5
	if c.HVAC.SystemType != nil {
		var err error
		t, err = hvac.ParseSystemType(*c.HVAC.SystemType)
		if err != nil {
			return hvac.System{}, err
		}
	}
	if c.HVAC.AgeYears != nil {
		age = *c.HVAC.AgeYears
	}
	return hvac.NewSystem(t, age, floorAreaM2)
}

func (c Config) ComfortPrefs() (planner.Comfort, error) {
	prefs := planner.DefaultComfort()
	if c.Comfort.Target != nil {
		prefs.TargetC = *c.Comfort.Target
	}
	if c.Comfort.Band != nil {
		prefs.BandC = *c.Comfort.Band
	}
	if c.Comfort.Hysteresis != nil {
		prefs.HysteresisC = *c.Comfort.Hysteresis
	}
	if c.Comfort.Occupancy != nil {
		o, err := planner.ParseOccupancy(*c.Comfort.Occupancy)
		if err != nil {
			return planner.Comfort{}, err
		}
		prefs.Occupancy = o
	}
	if err := prefs.Validate(); err != nil {
		return planner.Comfort{}, err
	}
	return prefs, nil
}

func (c Config) Pricer() (pricing.Pricer, error) {
	switch c.Pricing.Tariff {
	case "", "tou":
		tou := pricing.DefaultTOU()
		if c.Pricing.OffPeak != nil {
			tou.OffPeakRate = *c.Pricing.OffPeak
		}
		if c.Pricing.MidPeak != nil {
			tou.MidPeakRate = *c.Pricing.MidPeak
		}
		if c.Pricing.Peak != nil {
			tou.PeakRate = *c.Pricing.Peak
		}
		if err := tou.Validate(); err != nil {
			return nil, err
		}
		return tou, nil
	case "flat":
		rate := 0.12
		if c.Pricing.FlatRate != nil {
			rate = *c.Pricing.FlatRate
		}
		if rate <= 0 {
			return nil, pricing.ErrInvalidRates
		}
		return pricing.Flat{Rate: rate}, nil
	default:
		return nil, fmt.Errorf("unknown tariff %q", c.Pricing.Tariff)
	}
}
