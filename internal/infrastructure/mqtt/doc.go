// Package mqtt is the controller's broker client.
//
// MQTT is the host-integration surface: home automation systems publish
// light intents on govee/light/{id}/set and read retained state from
// govee/light/{id}/state, while the controller handles the BLE side.
// The Topics type builds every topic in the namespace so the scheme
// lives in one place.
//
// The client wraps paho.mqtt.golang and adds what a long-running
// controller needs on top:
//
//   - auto-reconnect with backoff, with tracked subscriptions replayed
//     after every reconnect
//   - a retained Last Will on govee/system/status, so observers can
//     tell a crashed controller ("unexpected_disconnect") from a
//     stopped one ("graceful_shutdown")
//   - panic recovery around inbound handlers
//
// Typical startup:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Subscribe(mqtt.Topics{}.AllLightSets(), 1, handleIntent)
//
// Enable cfg.Broker.TLS for anything beyond a loopback broker; paho
// negotiates TLS 1.2 or newer.
package mqtt
