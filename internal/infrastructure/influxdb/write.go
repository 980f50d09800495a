package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// emit enqueues a point if the client is still open. Dropping points
// after Close is deliberate: the write API's channel is gone by then.
func (c *Client) emit(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
}

// WriteLinkCycle records the outcome of one BLE connect sequence: how
// many attempts it took, how long it ran, and whether it ended with the
// light confirmed or given up as unavailable. Non-blocking.
func (c *Client) WriteLinkCycle(lightID string, attempts int, seconds float64, success bool) {
	c.emit(write.NewPoint(
		"ble_link",
		map[string]string{"light_id": lightID},
		map[string]interface{}{
			"attempts": attempts,
			"seconds":  seconds,
			"success":  success,
		},
		time.Now(),
	))
}

// WritePacket records one control frame delivered to a lamp. command is
// the frame's command name: "power", "brightness", "color" or
// "keepalive".
func (c *Client) WritePacket(lightID string, command string) {
	c.emit(write.NewPoint(
		"ble_packet",
		map[string]string{"light_id": lightID, "command": command},
		map[string]interface{}{"count": 1},
		time.Now(),
	))
}

// WriteSlotPool samples connection slot occupancy: slots carrying live
// traffic, slots held open by idle lights, and lights waiting for a
// slot. Sampled periodically from the main loop.
func (c *Client) WriteSlotPool(active, stale, queued int) {
	c.emit(write.NewPoint(
		"slot_pool",
		nil,
		map[string]interface{}{
			"active": active,
			"stale":  stale,
			"queued": queued,
		},
		time.Now(),
	))
}

// WritePoint writes an ad-hoc measurement stamped now. Keep tag
// cardinality low; light IDs are fine, payload bytes are not.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.emit(write.NewPoint(measurement, tags, fields, time.Now()))
}

// WritePointWithTime is WritePoint with an explicit timestamp, for
// telemetry recorded before the client was reachable.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	c.emit(write.NewPoint(measurement, tags, fields, timestamp))
}
