package govee

// Command identifies the type of a control packet.
type Command byte

// Control command codes.
const (
	// CmdPower switches the light on or off.
	CmdPower Command = 0x01

	// CmdBrightness sets the brightness on the device-native scale.
	CmdBrightness Command = 0x04

	// CmdColor sets the colour or colour temperature.
	CmdColor Command = 0x05
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case CmdPower:
		return "power"
	case CmdBrightness:
		return "brightness"
	case CmdColor:
		return "color"
	default:
		return "unknown"
	}
}

// LedMode is the mode byte prefixing colour payloads. It selects both the
// firmware colour engine and, for ModeExtended, a longer payload layout.
type LedMode byte

// Known LED modes.
const (
	// ModeManual2 is the common manual-colour mode.
	ModeManual2 LedMode = 0x02

	// ModeManualD is the manual-colour mode used by some bulb firmwares.
	ModeManualD LedMode = 0x0D

	// ModeExtended (0x15) carries a longer colour payload with a segment
	// mask and trailing constant bytes. Used by newer strips and lamps.
	ModeExtended LedMode = 0x15

	// ModeMicrophone and ModeScenes exist in the wire protocol but are not
	// driven by this controller.
	ModeMicrophone LedMode = 0x06
	ModeScenes     LedMode = 0x05
)

// ControlMode records which colour intent a light is currently following.
type ControlMode byte

// Control modes.
const (
	// ControlColor means the light follows an explicit RGB triple.
	ControlColor ControlMode = 0x01

	// ControlTemperature means the light follows a colour temperature in
	// Kelvin; the RGB fields sent on the wire depend on the model's
	// Kelvin policy.
	ControlTemperature ControlMode = 0x02
)

// String returns the control mode name for logging and state payloads.
func (m ControlMode) String() string {
	switch m {
	case ControlColor:
		return "rgb"
	case ControlTemperature:
		return "temperature"
	default:
		return "unknown"
	}
}
