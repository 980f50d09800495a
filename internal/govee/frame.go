package govee

import "fmt"

// Frame size constants.
const (
	// FrameSize is the fixed size of every control frame.
	FrameSize = 20

	// MaxPayload is the number of payload bytes a frame can carry
	// (bytes 2-18, byte 19 is the checksum).
	MaxPayload = 17

	// frameMagic marks a control packet.
	frameMagic = 0x33
)

// Encode builds a 20-byte control frame from a command and payload.
//
// The payload is left-justified at byte 2 and zero-padded to byte 18.
// Byte 19 is the XOR of all preceding bytes. Payloads longer than
// MaxPayload are rejected with ErrPayloadTooLong before any bytes are
// written; transmitting a truncated frame would put the device into an
// undefined state.
//
// Encode is deterministic and side-effect free. Callers never build
// frames by hand; every command type shares this framing.
func Encode(cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(payload))
	}

	frame := make([]byte, FrameSize)
	frame[0] = frameMagic
	frame[1] = byte(cmd)
	copy(frame[2:], payload)

	var checksum byte
	for _, b := range frame[:FrameSize-1] {
		checksum ^= b
	}
	frame[FrameSize-1] = checksum

	return frame, nil
}

// Decode validates a frame and returns its command and payload region.
//
// The returned payload is always MaxPayload bytes; trailing zeros are
// padding and indistinguishable from real zero bytes, which is fine for
// the protocol (payload length is implied by the command). Decode exists
// for tests and diagnostics; the controller only ever encodes.
func Decode(frame []byte) (Command, []byte, error) {
	if len(frame) != FrameSize {
		return 0, nil, fmt.Errorf("%w: got %d", ErrFrameLength, len(frame))
	}
	if frame[0] != frameMagic {
		return 0, nil, fmt.Errorf("%w: 0x%02x", ErrFrameMagic, frame[0])
	}

	var checksum byte
	for _, b := range frame[:FrameSize-1] {
		checksum ^= b
	}
	if checksum != frame[FrameSize-1] {
		return 0, nil, fmt.Errorf("%w: want 0x%02x got 0x%02x", ErrChecksum, checksum, frame[FrameSize-1])
	}

	payload := make([]byte, MaxPayload)
	copy(payload, frame[2:FrameSize-1])
	return Command(frame[1]), payload, nil
}
