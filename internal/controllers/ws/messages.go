package ws

import "encoding/json"

// Message types. Server to client: snapshot and schedule. Client to server:
// the set commands.
const (
	TypeSnapshot = "snapshot"
	TypeSchedule = "schedule"

	TypeSetEnabled   = "set:enabled"
	TypeSetTarget    = "set:target_temperature"
	TypeSetBand      = "set:comfort_band"
	TypeSetOccupancy = "set:occupancy"
)

// Envelope wraps every message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

type SnapshotPayload struct {
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

type SetEnabledPayload struct {
	Enabled bool `json:"enabled"`
}

type SetValuePayload struct {
	Value float64 `json:"value"`
}

type SetOccupancyPayload struct {
	Value string `json:"value"`
}
