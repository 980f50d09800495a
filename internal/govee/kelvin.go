package govee

import "math"

// Kelvin clamp range for the RGB approximation. The algorithm is only
// meaningful over this span; values outside are clamped, not rejected.
const (
	minApproxKelvin = 1000
	maxApproxKelvin = 40000
)

// KelvinToRGB approximates a colour temperature as an RGB triple using
// Tanner Helland's curve fit of the Planckian locus.
//
// The approximation is good to a few percent between roughly 1000 K and
// 40000 K; inputs outside that range are clamped. It is used for models
// (or model ranges) whose firmware has no native Kelvin field, so a
// requested temperature must be sent as plain RGB.
func KelvinToRGB(kelvin uint32) (r, g, b uint8) {
	if kelvin < minApproxKelvin {
		kelvin = minApproxKelvin
	}
	if kelvin > maxApproxKelvin {
		kelvin = maxApproxKelvin
	}

	// The fit works on temperature / 100.
	temp := float64(kelvin) / 100.0

	var red, green, blue float64

	// Red
	if temp <= 66 {
		red = 255
	} else {
		red = 329.698727446 * math.Pow(temp-60, -0.1332047592)
	}

	// Green
	if temp <= 66 {
		green = 99.4708025861*math.Log(temp) - 161.1195681661
	} else {
		green = 288.1221695283 * math.Pow(temp-60, -0.0755148492)
	}

	// Blue
	switch {
	case temp >= 66:
		blue = 255
	case temp <= 19:
		blue = 0
	default:
		blue = 138.5177312231*math.Log(temp-10) - 305.0447927307
	}

	return clampChannel(red), clampChannel(green), clampChannel(blue)
}

// clampChannel bounds a float channel value into 0-255.
func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}
