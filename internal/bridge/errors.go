package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrNoClient is returned when a Bridge is constructed without an
	// MQTT client.
	ErrNoClient = errors.New("bridge: mqtt client is required")

	// ErrDuplicateLight is returned when a light id is registered twice.
	ErrDuplicateLight = errors.New("bridge: light already registered")

	// ErrUnknownLight is returned when a command arrives for a light id
	// that is not registered.
	ErrUnknownLight = errors.New("bridge: unknown light")

	// ErrInvalidTopic is returned when an inbound topic does not match
	// the govee/light/{id}/set shape.
	ErrInvalidTopic = errors.New("bridge: invalid topic")

	// ErrInvalidPayload is returned when an intent payload is not valid
	// JSON or carries out-of-range values.
	ErrInvalidPayload = errors.New("bridge: invalid intent payload")

	// ErrEmptyIntent is returned when an intent payload sets none of the
	// recognised fields.
	ErrEmptyIntent = errors.New("bridge: intent sets no fields")
)
