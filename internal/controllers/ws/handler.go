package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/ports"
	"github.com/wattsmith/thermoplan/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and routes commands to the service.
type Handler struct {
	hub *Hub
	svc ports.ClimateService
}

func NewHandler(hub *Hub, svc ports.ClimateService) *Handler {
	return &Handler{hub: hub, svc: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := h.hub.Attach(conn)

	// Send current state and plan to the newcomer
	h.sendSnapshot(client)
	h.sendSchedule(client)

	// Read messages from client
	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Detach(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(msg)
	}
}

func (h *Handler) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeSetEnabled:
		var p SetEnabledPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid set:enabled payload: %v", err)
			return
		}
		h.svc.SetEnabled(p.Enabled)
		h.broadcastSnapshot()

	case TypeSetTarget:
		var p SetValuePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid set:target_temperature payload: %v", err)
			return
		}
		if err := h.svc.SetTargetTemperature(p.Value); err != nil {
			log.Printf("set target temperature: %v", err)
			return
		}
		h.broadcastSnapshot()

	case TypeSetBand:
		var p SetValuePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid set:comfort_band payload: %v", err)
			return
		}
		if err := h.svc.SetComfortBand(p.Value); err != nil {
			log.Printf("set comfort band: %v", err)
			return
		}
		h.broadcastSnapshot()

	case TypeSetOccupancy:
		var p SetOccupancyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid set:occupancy payload: %v", err)
			return
		}
		o, err := planner.ParseOccupancy(p.Value)
		if err != nil {
			log.Printf("set occupancy: %v", err)
			return
		}
		if err := h.svc.SetOccupancy(o); err != nil {
			log.Printf("set occupancy: %v", err)
			return
		}
		h.broadcastSnapshot()

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

// Run broadcasts snapshot updates to all clients until ctx is cancelled.
func (h *Handler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastPlan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.broadcastSnapshot()
			if sched, err := h.svc.Schedule(); err == nil && !sched.GeneratedAt.Equal(lastPlan) {
				if msg, err := NewEnvelope(TypeSchedule, sched); err == nil {
					h.hub.Broadcast(msg)
					lastPlan = sched.GeneratedAt
				}
			}
		}
	}
}

func (h *Handler) broadcastSnapshot() {
	msg, err := h.snapshotMessage()
	if err != nil {
		log.Printf("Error creating snapshot message: %v", err)
		return
	}
	h.hub.Broadcast(msg)
}

func (h *Handler) snapshotMessage() ([]byte, error) {
	return NewEnvelope(TypeSnapshot, snapshotPayload(h.svc.Get()))
}

func snapshotPayload(s service.Snapshot) SnapshotPayload {
	return SnapshotPayload{
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

func (h *Handler) sendSnapshot(c *Client) {
	msg, err := h.snapshotMessage()
	if err != nil {
		log.Printf("Error creating snapshot message: %v", err)
		return
	}
	c.TrySend(msg)
}

func (h *Handler) sendSchedule(c *Client) {
	sched, err := h.svc.Schedule()
	if err != nil {
		return
	}
	msg, err := NewEnvelope(TypeSchedule, sched)
	if err != nil {
		return
	}
	c.TrySend(msg)
}
