package influxdb

import "errors"

// Sentinel errors, checked with errors.Is. ErrDisabled is the common
// one: callers probe it at startup to decide whether to run without
// telemetry.
var (
	// ErrNotConnected: the client has been closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed: the startup ping did not succeed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed: a synchronous write was rejected. Batched write
	// failures arrive through the SetOnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled: telemetry is switched off in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
