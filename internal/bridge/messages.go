package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/azndibs/govee-ble-core/internal/light"
)

// MQTT message types exchanged between home-automation frontends and the
// controller. Lights are addressed by their effective id (lowercased MAC
// without colons, or the configured alias).

// IntentMessage is the JSON command payload accepted on
// govee/light/{id}/set. All fields are optional; a single message may
// change any subset of power, brightness and colour. When both color and
// kelvin are present, color wins.
type IntentMessage struct {
	// Power switches the light on or off.
	Power *bool `json:"power,omitempty"`

	// Brightness is the 0-255 scale.
	Brightness *uint8 `json:"brightness,omitempty"`

	// BrightnessPct is a 0-100 convenience alternative to Brightness.
	// Ignored when brightness is also set.
	BrightnessPct *uint8 `json:"brightness_pct,omitempty"`

	// Color sets an explicit RGB colour.
	Color *ColorRGB `json:"color,omitempty"`

	// Kelvin sets a colour temperature.
	Kelvin *uint32 `json:"kelvin,omitempty"`
}

// ColorRGB is an 8-bit RGB triple.
type ColorRGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ParseIntent decodes and validates an inbound command payload.
func ParseIntent(payload []byte) (light.Intent, error) {
	var msg IntentMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return light.Intent{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if msg.Power == nil && msg.Brightness == nil && msg.BrightnessPct == nil &&
		msg.Color == nil && msg.Kelvin == nil {
		return light.Intent{}, ErrEmptyIntent
	}

	if msg.BrightnessPct != nil && *msg.BrightnessPct > 100 {
		return light.Intent{}, fmt.Errorf("%w: brightness_pct %d out of range",
			ErrInvalidPayload, *msg.BrightnessPct)
	}

	intent := light.Intent{
		Power:         msg.Power,
		Brightness:    msg.Brightness,
		BrightnessPct: msg.BrightnessPct,
		Kelvin:        msg.Kelvin,
	}
	if msg.Color != nil {
		rgb := [3]uint8{msg.Color.R, msg.Color.G, msg.Color.B}
		intent.RGB = &rgb
		// Colour and temperature are mutually exclusive control modes.
		intent.Kelvin = nil
	}
	return intent, nil
}

// StateMessage is the retained JSON payload published on
// govee/light/{id}/state whenever a light's confirmed state changes.
type StateMessage struct {
	// ID is the light's effective id, matching the topic segment.
	ID string `json:"id"`

	// Name is the human-readable light name.
	Name string `json:"name"`

	// Model is the Govee model key (e.g. "H6008").
	Model string `json:"model"`

	// Address is the BLE MAC address.
	Address string `json:"address"`

	light.State

	// Timestamp is when the snapshot was published (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// NewStateMessage builds a state message from a light snapshot.
func NewStateMessage(id string, l *light.Light, st light.State) StateMessage {
	return StateMessage{
		ID:        id,
		Name:      l.Name(),
		Model:     l.Model(),
		Address:   l.Address(),
		State:     st,
		Timestamp: time.Now().UTC(),
	}
}

// Availability payloads published on govee/light/{id}/availability.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// AvailabilityFor maps a light status to an availability payload. Only a
// light past its reconnect ceiling is offline; transient disconnects stay
// online because the state machine is still working the link.
func AvailabilityFor(status light.Status) string {
	if status == light.StatusUnavailable {
		return AvailabilityOffline
	}
	return AvailabilityOnline
}

// HealthStatus represents the operational status of the controller.
type HealthStatus string

const (
	// HealthHealthy indicates normal operation.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates reduced capability (broker disconnected,
	// or every light unavailable).
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the controller is initialising.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the controller is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the periodic health payload published on
// govee/system/health (QoS 1, retained).
type HealthMessage struct {
	ControllerID  string       `json:"controller_id"`
	Version       string       `json:"version"`
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	Lights    LightCounts      `json:"lights"`
	Slots     *SlotCounts      `json:"slots,omitempty"`
	Scheduler *SchedulerCounts `json:"scheduler,omitempty"`
}

// LightCounts summarises per-status light totals.
type LightCounts struct {
	Total       int `json:"total"`
	Connected   int `json:"connected"`
	Unavailable int `json:"unavailable"`
}

// SlotCounts is a snapshot of the connection slot pool.
type SlotCounts struct {
	Active   int `json:"active"`
	Stale    int `json:"stale"`
	Queued   int `json:"queued"`
	Capacity int `json:"capacity"`
}

// SchedulerCounts is a snapshot of the run scheduler.
type SchedulerCounts struct {
	Running int `json:"running"`
	Queued  int `json:"queued"`
}

// NewHealthMessage builds a health message with the uptime computed from
// startTime.
func NewHealthMessage(controllerID, version string, status HealthStatus, startTime time.Time) HealthMessage {
	return HealthMessage{
		ControllerID:  controllerID,
		Version:       version,
		Status:        status,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}
}
