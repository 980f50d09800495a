package mqtt

import "errors"

// Sentinel errors for broker operations. Wrapped errors carry detail;
// check with errors.Is.
var (
	// ErrNotConnected: operation attempted while the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed: the initial broker handshake did not complete.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed: publish was not acknowledged.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed: subscribe was not acknowledged.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed: unsubscribe was not acknowledged.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS: QoS outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic: empty topic string.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
