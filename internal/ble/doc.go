// Package ble defines the BLE transport boundary for the controller.
//
// The light state machine never talks to a Bluetooth stack directly: it
// drives the Transport interface, which exposes exactly the three
// primitives the protocol needs (connect to an address, write a frame to
// the control characteristic, disconnect) plus an asynchronous
// disconnected callback for detecting silently dropped links.
//
// Discovery, address resolution and pairing are deliberately outside this
// boundary; the adapter is handed a MAC address and nothing else.
//
// # Implementations
//
//   - BlueZTransport: real transport over tinygo.org/x/bluetooth (BlueZ on
//     Linux).
//   - Tests implement Transport in-package with fakes.
//
// # Thread Safety
//
// A Connection is owned exclusively by one light's state machine and is
// not safe for concurrent use. The Transport itself is safe to call from
// multiple goroutines.
package ble
