// Package store persists the small amount of state that should survive a
// restart: the last simulated indoor temperature, the most recent schedule,
// and a running energy log.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wattsmith/thermoplan/internal/planner"
)

var ErrClosed = errors.New("store is closed")

const deviceRowID = 1

// DeviceState is the persisted snapshot of the simulated device.
type DeviceState struct {
	IndoorTempC float64
	Enabled     bool
	TargetC     float64
	UpdatedAt   time.Time
}

// EnergyRecord is one accounting entry in the energy log.
type EnergyRecord struct {
	Time      time.Time
	Mode      string
	EnergyKWh float64
	Cost      float64
}

// Store wraps a local SQLite database. Safe for use from a single service
// goroutine; it does not add its own locking on top of database/sql.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating parent directories and
// the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS device_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		indoor_temp_c REAL NOT NULL,
		enabled INTEGER NOT NULL,
		target_c REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generated_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_schedules_generated_at ON schedules(generated_at);

	CREATE TABLE IF NOT EXISTS energy_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		mode TEXT NOT NULL,
		energy_kwh REAL NOT NULL,
		cost REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_energy_log_ts ON energy_log(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveState upserts the single device row.
func (s *Store) SaveState(st DeviceState) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO device_state (id, indoor_temp_c, enabled, target_c, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			indoor_temp_c = excluded.indoor_temp_c,
			enabled = excluded.enabled,
			target_c = excluded.target_c,
			updated_at = excluded.updated_at`,
		deviceRowID, st.IndoorTempC, st.Enabled, st.TargetC, st.UpdatedAt.UTC())
	return err
}

// LoadState returns the persisted device state, with ok=false when the store
// has never been written.
func (s *Store) LoadState() (DeviceState, bool, error) {
	if s.db == nil {
		return DeviceState{}, false, ErrClosed
	}
	var st DeviceState
	err := s.db.QueryRow(`
		SELECT indoor_temp_c, enabled, target_c, updated_at
		FROM device_state WHERE id = ?`, deviceRowID).
		Scan(&st.IndoorTempC, &st.Enabled, &st.TargetC, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DeviceState{}, false, nil
	}
	if err != nil {
		return DeviceState{}, false, err
	}
	return st, true, nil
}

// SaveSchedule appends a generated schedule, serialized as JSON.
func (s *Store) SaveSchedule(sched planner.Schedule) error {
	if s.db == nil {
		return ErrClosed
	}
	payload, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO schedules (generated_at, payload) VALUES (?, ?)`,
		sched.GeneratedAt.UTC(), string(payload))
	return err
}

// LoadLatestSchedule returns the most recently generated schedule, with
// ok=false when none has been stored yet.
func (s *Store) LoadLatestSchedule() (planner.Schedule, bool, error) {
	if s.db == nil {
		return planner.Schedule{}, false, ErrClosed
	}
	var payload string
	err := s.db.QueryRow(`
		SELECT payload FROM schedules ORDER BY generated_at DESC, id DESC LIMIT 1`).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return planner.Schedule{}, false, nil
	}
	if err != nil {
		return planner.Schedule{}, false, err
	}
	var sched planner.Schedule
	if err := json.Unmarshal([]byte(payload), &sched); err != nil {
		return planner.Schedule{}, false, fmt.Errorf("decode schedule: %w", err)
	}
	// The mode enum travels as its string name.
	for i := range sched.Entries {
		if m, err := planner.ParseMode(sched.Entries[i].ModeName); err == nil {
			sched.Entries[i].Mode = m
		}
	}
	return sched, true, nil
}

// AppendEnergy records one step of consumption.
func (s *Store) AppendEnergy(rec EnergyRecord) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.Exec(`INSERT INTO energy_log (ts, mode, energy_kwh, cost) VALUES (?, ?, ?, ?)`,
		rec.Time.UTC(), rec.Mode, rec.EnergyKWh, rec.Cost)
	return err
}

// EnergySince sums consumption and cost recorded at or after t.
func (s *Store) EnergySince(t time.Time) (kwh, cost float64, err error) {
	if s.db == nil {
		return 0, 0, ErrClosed
	}
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(energy_kwh), 0), COALESCE(SUM(cost), 0)
		FROM energy_log WHERE ts >= ?`, t.UTC()).Scan(&kwh, &cost)
	return kwh, cost, err
}

// Cleanup drops schedules and energy entries older than the retention window.
func (s *Store) Cleanup(retention time.Duration, now time.Time) error {
	if s.db == nil {
		return ErrClosed
	}
	cutoff := now.Add(-retention).UTC()
	if _, err := s.db.Exec(`DELETE FROM schedules WHERE generated_at < ?`, cutoff); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM energy_log WHERE ts < ?`, cutoff)
	return err
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
