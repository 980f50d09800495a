package govee

import "encoding/binary"

// PowerPayload builds the 1-byte payload for CmdPower.
func PowerPayload(on bool) []byte {
	if on {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// BrightnessPayload builds the 1-byte payload for CmdBrightness.
//
// The caller-facing brightness is always 0-255; the wire value is scaled
// down to the model's native range with floor(v / 255 * BrightnessMax).
func BrightnessPayload(brightness uint8, spec ModelSpec) []byte {
	scaled := int(brightness) * int(spec.BrightnessMax) / 255
	return []byte{byte(scaled)}
}

// ColorPayload builds the payload for CmdColor.
//
// Two layouts exist. ModeExtended devices take a longer payload with a
// segment-select byte after the mode and two trailing constant bytes:
//
//	[mode, 0x01, R, G, B, kelvinHi, kelvinLo, 0, 0, 0, 0xFF, 0x74]
//
// Every other mode takes:
//
//	[mode, R, G, B, kelvinHi, kelvinLo, 0, 0, 0]
//
// The three zero bytes are a reserved white channel.
//
// In ControlTemperature mode the model's Kelvin policy decides the
// encoding: NativeKelvin models within their supported range are sent
// 0xFF/0xFF/0xFF with the raw Kelvin populated, everything else gets an
// RGB approximation of the temperature with the Kelvin field left zero.
// In ControlColor mode the RGB triple is sent as-is and Kelvin is zero.
func ColorPayload(spec ModelSpec, mode ControlMode, r, g, b uint8, kelvin uint32) []byte {
	var kelvinField uint16
	if mode == ControlTemperature {
		if spec.NativeKelvin && kelvin >= spec.MinKelvin && kelvin <= spec.MaxKelvin {
			r, g, b = 0xFF, 0xFF, 0xFF
			kelvinField = uint16(kelvin)
		} else {
			r, g, b = KelvinToRGB(kelvin)
		}
	}

	var kelvinBytes [2]byte
	binary.BigEndian.PutUint16(kelvinBytes[:], kelvinField)

	if spec.LedMode == ModeExtended {
		return []byte{
			byte(spec.LedMode), 0x01,
			r, g, b,
			kelvinBytes[0], kelvinBytes[1],
			0x00, 0x00, 0x00, // reserved white channel
			0xFF, 0x74,
		}
	}

	return []byte{
		byte(spec.LedMode),
		r, g, b,
		kelvinBytes[0], kelvinBytes[1],
		0x00, 0x00, 0x00, // reserved white channel
	}
}
