package govee

// ModelSpec describes per-model protocol behaviour.
//
// Everything that varies between Govee models is table-driven through this
// struct: no call site branches on a model string.
type ModelSpec struct {
	// LedMode is the mode byte prefixing colour payloads.
	LedMode LedMode

	// BrightnessMax is the top of the device-native brightness scale.
	// Caller-facing brightness is always 0-255 and scaled down.
	BrightnessMax uint8

	// MinKelvin and MaxKelvin bound the colour temperatures the firmware
	// accepts natively. Both zero means the model has no native Kelvin
	// support at all.
	MinKelvin uint32
	MaxKelvin uint32

	// NativeKelvin selects the colour-temperature encoding policy: when
	// true and the requested Kelvin is inside [MinKelvin, MaxKelvin], the
	// colour payload carries 0xFF/0xFF/0xFF with the raw Kelvin field
	// populated. Otherwise the temperature is converted to an RGB
	// approximation and sent as plain colour.
	NativeKelvin bool
}

// DefaultModel is the catalog key every unknown model resolves to.
const DefaultModel = "default"

// models is the static catalog. Unknown models degrade to the "default"
// entry; the controller never refuses to drive an unrecognised light.
var models = map[string]ModelSpec{
	DefaultModel: {
		LedMode:       ModeManual2,
		BrightnessMax: 255,
		MinKelvin:     1000,
		MaxKelvin:     6500,
	},
	"H6008": {
		LedMode:       ModeManualD,
		BrightnessMax: 100,
		MinKelvin:     2700,
		MaxKelvin:     6500,
		NativeKelvin:  true,
	},
	"H6046": {
		LedMode:       ModeExtended,
		BrightnessMax: 100,
		MinKelvin:     1500,
		MaxKelvin:     6500,
		NativeKelvin:  true,
	},
	"H6072": {
		// No native Kelvin range: temperature intents are always sent as
		// an RGB approximation.
		LedMode:       ModeExtended,
		BrightnessMax: 100,
	},
	"H6076": {
		LedMode:       ModeExtended,
		BrightnessMax: 100,
		MinKelvin:     3300,
		MaxKelvin:     4300,
		NativeKelvin:  true,
	},
}

func init() {
	// The fallback entry is load-bearing: LookupModel must always be able
	// to return something usable.
	def, ok := models[DefaultModel]
	if !ok || def.BrightnessMax == 0 {
		panic("govee: model catalog missing valid default entry")
	}
}

// LookupModel returns the protocol behaviour for a model identifier.
// Unknown identifiers return the default entry.
func LookupModel(model string) ModelSpec {
	if spec, ok := models[model]; ok {
		return spec
	}
	return models[DefaultModel]
}

// KnownModel reports whether the model has a dedicated catalog entry.
// Used only for logging at startup so misconfigured model strings are
// visible without blocking the light.
func KnownModel(model string) bool {
	_, ok := models[model]
	return ok
}
