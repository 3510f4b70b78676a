package null_backend

import "github.com/Carmen-Shannon/oxy-hal/common"

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithName sets the device name reported by Name.
func WithName(name string) DeviceBuilderOption {
	return func(d *device) {
		d.name = name
	}
}

// WithHalfFloat toggles support for the 16-bit float attribute types. Without it they resolve to size 0,
// the way GL drivers lacking the half-float extension behave.
//
// Parameters:
//   - enabled: true to support half-float attributes (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the half-float option to a device
func WithHalfFloat(enabled bool) DeviceBuilderOption {
	return func(d *device) {
		d.halfFloat = enabled
	}
}

// WithPackedColor selects the storage of RGBA attributes: 4 packed bytes (default) or 4 floats.
//
// Parameters:
//   - packed: true for 4-byte packed colors, false for 16-byte float colors
//
// Returns:
//   - DeviceBuilderOption: a function that applies the color storage option to a device
func WithPackedColor(packed bool) DeviceBuilderOption {
	return func(d *device) {
		d.packedColor = packed
	}
}

// WithLanguages restricts the shader-language families the device compiles. The first one is its default.
//
// Parameters:
//   - languages: the supported language families in preference order
//
// Returns:
//   - DeviceBuilderOption: a function that applies the languages option to a device
func WithLanguages(languages ...common.ShaderLanguage) DeviceBuilderOption {
	return func(d *device) {
		if len(languages) > 0 {
			d.languages = languages
		}
	}
}
