package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/ports"
	"github.com/wattsmith/thermoplan/internal/service"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.ClimateService
	cfg Config

	client mqtt.Client
}

func New(svc ports.ClimateService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "thermoplan/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "thermoplan-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// Subscribe to all set commands under BaseTopic.
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		// If subscribe fails, paho exposes token.Error().
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	var last service.Snapshot
	var lastPlan time.Time
	first := true

	// publish immediately once
	c.publishSnapshot()
	c.publishSchedule(&lastPlan)

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			// UpdatedAt moves every tick; compare the rest.
			cur.UpdatedAt = last.UpdatedAt
			if first || !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
				first = false
			}
			c.publishSchedule(&lastPlan)
		}
	}
}

func (c *Controller) publishSnapshot() {
	s := c.svc.Get()
	dto := snapshotDTO{
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
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

// publishSchedule pushes the plan only when a new one has been generated.
func (c *Controller) publishSchedule(lastPlan *time.Time) {
	sched, err := c.svc.Schedule()
	if err != nil {
		return
	}
	if sched.GeneratedAt.Equal(*lastPlan) {
		return
	}
	b, _ := json.Marshal(sched)
	c.client.Publish(c.topic("schedule"), c.cfg.QoS, true, b)
	*lastPlan = sched.GeneratedAt
}

type snapshotDTO struct {
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
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by field
	switch field {
	case "enabled":
		v, err := decodeValueStrict[bool](payload)
		if err != nil {
			return
		}
		c.svc.SetEnabled(v)

	case "target_temperature":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetTargetTemperature(v)

	case "comfort_band":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetComfortBand(v)

	case "occupancy":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		o, err := planner.ParseOccupancy(s)
		if err != nil {
			return
		}
		_ = c.svc.SetOccupancy(o)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
