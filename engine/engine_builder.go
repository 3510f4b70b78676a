package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output. A zero profiler interval in the configuration
// disables it by default.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the Run loop rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow gives the engine a window. The engine polls it every tick, closes it on Close, and watches it and the
// monitors for device loss.
//
// Parameters:
//   - w: a created Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRuntime sets the GLFW runtime the device watcher takes its reference on. The default is
// window.DefaultRuntime.
func WithRuntime(r *window.Runtime) EngineBuilderOption {
	return func(e *engine) {
		e.runtime = r
	}
}

// WithDevice uses an already opened device instead of the one the configuration selects. The engine takes
// ownership and releases it on Close.
func WithDevice(d backend.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithTickCallback registers the function called each tick during construction.
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}
