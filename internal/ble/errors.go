package ble

import "errors"

// Domain errors for the BLE transport. All of them are transient from the
// state machine's point of view: the retry loop absorbs them.
var (
	// ErrAdapterUnavailable is returned when the local Bluetooth adapter
	// cannot be enabled.
	ErrAdapterUnavailable = errors.New("ble: bluetooth adapter unavailable")

	// ErrInvalidAddress is returned when a device address cannot be parsed.
	ErrInvalidAddress = errors.New("ble: invalid device address")

	// ErrConnectionFailed is returned when establishing a connection fails.
	ErrConnectionFailed = errors.New("ble: connection failed")

	// ErrCharacteristicNotFound is returned when a connected device does
	// not expose the control characteristic.
	ErrCharacteristicNotFound = errors.New("ble: control characteristic not found")

	// ErrWriteFailed is returned when writing a frame fails.
	ErrWriteFailed = errors.New("ble: write failed")

	// ErrDisconnected is returned when an operation is attempted on a
	// connection that has already dropped.
	ErrDisconnected = errors.New("ble: connection closed")
)
