// Package bridge connects the light state machines to MQTT.
//
// Inbound, it subscribes to the per-light command topics and translates
// JSON intent payloads into state-machine intents:
//
//	govee/light/{id}/set  ->  light.SetIntent
//
// Outbound, it publishes retained state snapshots and availability
// transitions whenever a light's confirmed state changes:
//
//	govee/light/{id}/state         (retained JSON snapshot)
//	govee/light/{id}/availability  (retained "online"/"offline")
//
// The package also hosts the HealthReporter, which periodically publishes
// controller health (light, slot pool and scheduler counts) to
// govee/system/health. Broker liveness itself is handled by the MQTT
// client's Last Will on govee/system/status; the reporter only covers
// what the controller knows about its own lights.
//
// The bridge never blocks on a light: SetIntent is asynchronous and the
// state machines drain intents on their own schedule.
package bridge
