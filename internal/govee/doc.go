// Package govee implements the Govee BLE LED control protocol.
//
// Govee lights are driven by writing fixed-size 20-byte frames to a GATT
// control characteristic. Every frame shares the same layout:
//
//	Byte 0:     0x33 (frame magic for control packets)
//	Byte 1:     command code (power, brightness, colour)
//	Bytes 2-18: payload, left-justified and zero-padded
//	Byte 19:    XOR checksum of bytes 0-18
//
// # Key Responsibilities
//
//   - Encode commands + payloads into checksummed frames
//   - Build payloads for power, brightness and colour commands
//   - Map model identifiers to per-model protocol behaviour (LED mode,
//     brightness scale, colour-temperature range and encoding policy)
//   - Approximate colour temperatures as RGB for models without a native
//     Kelvin field
//
// # Model Differences
//
// Models differ in three ways: the LED mode byte prefixing colour payloads,
// the brightness scale (0-255 vs 0-100), and how colour temperature is
// encoded. Mode 0x15 devices use a longer colour payload with trailing
// constant bytes. Devices whose firmware accepts a raw Kelvin value are
// flagged NativeKelvin in the model catalog; all others receive an RGB
// approximation of the requested temperature.
//
// Unknown models fall back to the "default" catalog entry rather than
// failing: the system degrades to generic behaviour, it never refuses to
// drive a light.
//
// # Thread Safety
//
// Everything in this package is a pure function or immutable table; all of
// it is safe for concurrent use.
package govee
