package modbusctrl

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/wattsmith/thermoplan/internal/advisor"
	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/service"
	"github.com/wattsmith/thermoplan/internal/weather"
)

// fake service for tests
type spyClimateService struct {
	mu sync.Mutex
	s  service.Snapshot

	// record calls
	setEnabledCalls   []bool
	setTargetCalls    []float64
	setBandCalls      []float64
	setOccupancyCalls []planner.Occupancy
}

func (f *spyClimateService) Get() service.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}
func (f *spyClimateService) Schedule() (planner.Schedule, error) {
	return planner.Schedule{}, nil
}
func (f *spyClimateService) Advice() ([]advisor.Recommendation, error) {
	return nil, nil
}
func (f *spyClimateService) SetEnabled(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Enabled = v
	f.setEnabledCalls = append(f.setEnabledCalls, v)
}
func (f *spyClimateService) SetTargetTemperature(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.TargetC = v
	f.setTargetCalls = append(f.setTargetCalls, v)
	return nil
}
func (f *spyClimateService) SetComfortBand(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.BandC = v
	f.setBandCalls = append(f.setBandCalls, v)
	return nil
}
func (f *spyClimateService) SetOccupancy(o planner.Occupancy) error {
	if !o.Valid() {
		return planner.ErrInvalidOccupancy
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Occupancy = o
	f.setOccupancyCalls = append(f.setOccupancyCalls, o)
	return nil
}
func (f *spyClimateService) SetForecast(_ weather.Forecast) error { return nil }

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const SyncInterval = 50 * time.Millisecond

func TestModbusControllerHandlers(t *testing.T) {
	fs := &spyClimateService{}
	fs.s = service.Snapshot{
		Enabled:      true,
		IndoorTempC:  21.25,
		OutdoorTempC: 4.5,
		TargetC:      22.5,
		BandC:        1.0,
		Occupancy:    planner.OccupancyHome,
		Mode:         planner.ModeHeat,
		PowerKW:      1.75,
	}

	addr := findFreeTCPAddr(t)

	ctrl, err := New(fs, Config{
		DeviceID:     "dev",
		Addr:         addr,
		UnitID:       1,
		SyncInterval: SyncInterval,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()

	time.Sleep(SyncInterval)

	handler := modbus.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	// Read holding registers 0..4
	res, err := client.ReadHoldingRegisters(0, 5)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	if len(res) != 10 {
		t.Fatalf("expected 10 bytes got %d", len(res))
	}
	get := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }
	if get(0) != encodeTemp(fs.s.TargetC) {
		t.Fatalf("target mismatch")
	}
	if get(2) != uint16(fs.s.Occupancy) {
		t.Fatalf("occupancy mismatch")
	}
	if get(3) != uint16(fs.s.Mode) {
		t.Fatalf("mode mismatch")
	}
	if get(4) != encodeTemp(fs.s.PowerKW) {
		t.Fatalf("power mismatch")
	}

	// Read input registers 0..1 (indoor/outdoor)
	res, err = client.ReadInputRegisters(0, 2)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if binary.BigEndian.Uint16(res[0:2]) != encodeTemp(21.25) {
		t.Fatalf("indoor temp mismatch")
	}
	if binary.BigEndian.Uint16(res[2:4]) != encodeTemp(4.5) {
		t.Fatalf("outdoor temp mismatch")
	}

	// Write target register
	newTarget := encodeTemp(20.75)
	if _, err := client.WriteSingleRegister(0, newTarget); err != nil {
		t.Fatalf("write register: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setTargetCalls) == 0 || fs.setTargetCalls[len(fs.setTargetCalls)-1] != decodeTemp(newTarget) {
		fs.mu.Unlock()
		t.Fatalf("setTargetTemperature not called")
	}
	fs.mu.Unlock()

	// Write occupancy register
	if _, err := client.WriteSingleRegister(2, uint16(planner.OccupancyAway)); err != nil {
		t.Fatalf("write occupancy: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setOccupancyCalls) == 0 || fs.setOccupancyCalls[len(fs.setOccupancyCalls)-1] != planner.OccupancyAway {
		fs.mu.Unlock()
		t.Fatalf("setOccupancy not called")
	}
	fs.mu.Unlock()

	// Writes to the read-only mode register fail
	if _, err := client.WriteSingleRegister(3, 1); err == nil {
		t.Fatalf("expected error writing read-only register")
	}

	// Write coil 0 disabled
	if _, err := client.WriteSingleCoil(0, 0x0000); err != nil {
		t.Fatalf("write coil: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setEnabledCalls) == 0 || fs.setEnabledCalls[len(fs.setEnabledCalls)-1] != false {
		fs.mu.Unlock()
		t.Fatalf("setEnabled not called")
	}
	fs.mu.Unlock()
}
