package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wattsmith/thermoplan/cmd/app"
	"github.com/wattsmith/thermoplan/internal/building"
	httpctrl "github.com/wattsmith/thermoplan/internal/controllers/http"
	modbusctrl "github.com/wattsmith/thermoplan/internal/controllers/modbus"
	mqttctrl "github.com/wattsmith/thermoplan/internal/controllers/mqtt"
	"github.com/wattsmith/thermoplan/internal/controllers/ws"
	"github.com/wattsmith/thermoplan/internal/metrics"
	"github.com/wattsmith/thermoplan/internal/service"
	"github.com/wattsmith/thermoplan/internal/store"
	"github.com/wattsmith/thermoplan/internal/weather"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	app.ApplyEnvOverrides(&cfg)

	logger := log.New(os.Stdout, "", log.LstdFlags)

	in, err := cfg.HouseInput()
	if err != nil {
		log.Fatal(err)
	}
	profile, err := building.NewProfile(in, building.DefaultParamSet())
	if err != nil {
		log.Fatal(err)
	}
	sys, err := cfg.System(profile.FloorAreaM2)
	if err != nil {
		log.Fatal(err)
	}
	comfort, err := cfg.ComfortPrefs()
	if err != nil {
		log.Fatal(err)
	}
	pricer, err := cfg.Pricer()
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()
	if cfg.Store.RetentionDays > 0 {
		retention := time.Duration(cfg.Store.RetentionDays) * 24 * time.Hour
		if err := st.Cleanup(retention, time.Now()); err != nil {
			logger.Printf("store cleanup: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	forecast := loadForecast(ctx, cfg, logger)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	initialTemp := 21.0
	if cfg.Sim.InitialTemperature != nil {
		initialTemp = *cfg.Sim.InitialTemperature
	}
	enabled := true
	if cfg.Sim.Enabled != nil {
		enabled = *cfg.Sim.Enabled
	}

	climate, err := service.New(service.Config{
		Profile:      profile,
		System:       sys,
		Comfort:      comfort,
		Pricer:       pricer,
		Forecast:     forecast,
		InitialTempC: initialTemp,
		Enabled:      enabled,
		Store:        st,
		Metrics:      m,
		Logger:       logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return climate.Run(ctx, cfg.Sim.Interval)
	})

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(climate, cfg.Controllers.HTTP.Addr, cfg.DeviceID)
		logger.Printf("http listening on %s", cfg.Controllers.HTTP.Addr)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if cfg.Controllers.MQTT.Enabled {
		ctrl, err := mqttctrl.New(climate, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainSnapshot:  cfg.Controllers.MQTT.RetainSnapshot,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if cfg.Controllers.MODBUS.Enabled {
		ctrl, err := modbusctrl.New(climate, modbusctrl.Config{
			DeviceID:     cfg.DeviceID,
			Addr:         cfg.Controllers.MODBUS.Addr,
			UnitID:       cfg.Controllers.MODBUS.UnitID,
			SyncInterval: cfg.Controllers.MODBUS.SyncInterval,
		})
		if err != nil {
			log.Fatal(err)
		}
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if cfg.Controllers.WS.Enabled {
		hub := ws.NewHub(logger)
		handler := ws.NewHandler(hub, climate)
		mux := http.NewServeMux()
		mux.Handle("/ws", handler)
		srv := &http.Server{
			Addr:              cfg.Controllers.WS.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		logger.Printf("websocket listening on %s", cfg.Controllers.WS.Addr)
		g.Go(func() error { return serveHTTP(ctx, srv) })
		g.Go(func() error { return handler.Run(ctx, cfg.Controllers.WS.BroadcastInterval) })
	}

	if cfg.Controllers.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{
			Addr:              cfg.Controllers.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		logger.Printf("metrics listening on %s", cfg.Controllers.Metrics.Addr)
		g.Go(func() error { return serveHTTP(ctx, srv) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("exited: %v", err)
	}
}

// loadForecast fetches a live forecast when a location is configured,
// falling back to a synthetic day curve so the simulation always has
// outdoor conditions to work with.
func loadForecast(ctx context.Context, cfg app.Config, logger *log.Logger) weather.Forecast {
	hours := cfg.Weather.Hours
	if hours <= 0 {
		hours = 48
	}
	start := time.Now().Truncate(time.Hour)

	if cfg.Weather.Latitude == 0 && cfg.Weather.Longitude == 0 {
		logger.Printf("no weather location configured, using synthetic forecast")
		return weather.Synthetic(start, hours, 12, 6)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fc, err := weather.NewClient().Hourly(fetchCtx, cfg.Weather.Latitude, cfg.Weather.Longitude, hours)
	if err != nil {
		logger.Printf("weather fetch failed, using synthetic forecast: %v", err)
		return weather.Synthetic(start, hours, 12, 6)
	}
	logger.Printf("fetched %d hourly samples for %.2f,%.2f", len(fc), cfg.Weather.Latitude, cfg.Weather.Longitude)
	return fc
}

func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
