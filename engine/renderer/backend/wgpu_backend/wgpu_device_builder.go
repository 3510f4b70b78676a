package wgpu_backend

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback adapter option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}

// WithColorTargetFormat sets the color format linked render pipelines write to. The default is RGBA8Unorm.
//
// Parameters:
//   - format: the color target format
//
// Returns:
//   - DeviceBuilderOption: a function that applies the color target option to a device
func WithColorTargetFormat(format wgpu.TextureFormat) DeviceBuilderOption {
	return func(d *device) {
		d.colorTargetFormat = format
	}
}

// WithLabel sets the label prefix of the device and the objects it creates.
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}
