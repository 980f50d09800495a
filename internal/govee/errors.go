package govee

import "errors"

// Domain errors for the govee protocol package.
var (
	// ErrPayloadTooLong is returned when a payload exceeds the 17 bytes
	// available in a frame. This is a programming error: payloads are built
	// by this package and never reach this size in correct code.
	ErrPayloadTooLong = errors.New("govee: payload exceeds 17 bytes")

	// ErrFrameLength is returned when decoding a frame that is not exactly
	// 20 bytes.
	ErrFrameLength = errors.New("govee: frame must be 20 bytes")

	// ErrFrameMagic is returned when a decoded frame does not start with
	// the 0x33 control magic.
	ErrFrameMagic = errors.New("govee: invalid frame magic")

	// ErrChecksum is returned when a decoded frame's checksum byte does not
	// match the XOR of the preceding 19 bytes.
	ErrChecksum = errors.New("govee: checksum mismatch")
)
