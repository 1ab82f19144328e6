package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/ports"
	"github.com/wattsmith/thermoplan/internal/service"
)

type Server struct {
	svc      ports.ClimateService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server.
func New(svc ports.ClimateService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/schedule", s.handleGetSchedule)
	mux.HandleFunc("GET /v1/advice", s.handleGetAdvice)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/enabled", s.handlePostEnabled)
	mux.HandleFunc("POST /v1/target_temperature", s.handlePostTarget)
	mux.HandleFunc("POST /v1/comfort_band", s.handlePostBand)
	mux.HandleFunc("POST /v1/occupancy", s.handlePostOccupancy)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID       string  `json:"device_id"`
	Enabled        bool    `json:"enabled"`
	IndoorTempC    float64 `json:"indoor_temperature"`
	OutdoorTempC   float64 `json:"outdoor_temperature"`
	TargetC        float64 `json:"target_temperature"`
	BandC          float64 `json:"comfort_band"`
	Occupancy      string  `json:"occupancy"`
	Mode           string  `json:"mode"`
	PowerKW        float64 `json:"power_kw"`
	EnergyKWhToday float64 `json:"energy_kwh_today"`
	CostToday      float64 `json:"cost_today"`
	ComfortScore   float64 `json:"comfort_score"`
}

func toDTO(s service.Snapshot) snapshotDTO {
	return snapshotDTO{
		Enabled:        s.Enabled,
		IndoorTempC:    s.IndoorTempC,
		OutdoorTempC:   s.OutdoorTempC,
		TargetC:        s.TargetC,
		BandC:          s.BandC,
		Occupancy:      s.Occupancy.String(),
		Mode:           s.Mode.String(),
		PowerKW:        s.PowerKW,
		EnergyKWhToday: s.EnergyKWhToday,
		CostToday:      s.CostToday,
		ComfortScore:   s.ComfortScore,
	}
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	sched, err := s.svc.Schedule()
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleGetAdvice(w http.ResponseWriter, _ *http.Request) {
	recs, err := s.svc.Advice()
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *Server) handlePostEnabled(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v bool) error {
		s.svc.SetEnabled(v)
		return nil
	})
}

func (s *Server) handlePostTarget(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetTargetTemperature(v)
	})
}

func (s *Server) handlePostBand(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetComfortBand(v)
	})
}

func (s *Server) handlePostOccupancy(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "away"}
	postValue(s, w, r, func(v string) error {
		o, err := planner.ParseOccupancy(v)
		if err != nil {
			return err
		}
		return s.svc.SetOccupancy(o)
	})
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
