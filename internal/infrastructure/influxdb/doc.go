// Package influxdb records BLE link telemetry in InfluxDB v2.
//
// Three measurements are written:
//
//   - ble_link: one point per finished connect sequence, tagged by
//     light, with attempt count, wall-clock duration and outcome. The
//     attempt distribution is the first thing to graph when a lamp sits
//     at the edge of radio range.
//   - ble_packet: one point per frame delivered, tagged by light and
//     command (power, brightness, color).
//   - slot_pool: periodic samples of connection slot occupancy.
//
// Telemetry is optional. Connect returns ErrDisabled when the config
// switches it off, and the rest of the controller treats a nil client
// as "no telemetry" rather than an error.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    client = nil
//	}
//	...
//	client.WriteLinkCycle("desk-lamp", 2, 4.31, true)
//
// Points go through the non-blocking batched write API, so a slow or
// absent InfluxDB never delays a light update. Batch failures arrive on
// the SetOnError callback; batch size and flush interval come from
// config.yaml.
package influxdb
