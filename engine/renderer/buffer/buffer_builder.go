package buffer

import "github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"

// builderConfig collects the construction-time settings of a buffer.
type builderConfig struct {
	elementSize int
	tracker     resource.Tracker
	index       bool
}

// BufferBuilderOption is a functional option applied to a buffer during construction via NewBuffer.
type BufferBuilderOption func(*builderConfig)

// WithElementSize sets the byte size of one element. Buffers default to 1-byte elements.
//
// Parameters:
//   - size: the element size in bytes
//
// Returns:
//   - BufferBuilderOption: a function that applies the element size option to a buffer
func WithElementSize(size int) BufferBuilderOption {
	return func(c *builderConfig) {
		c.elementSize = size
	}
}

// WithTracker registers the buffer with a tracker, usually the renderer's resource registry,
// so that it takes part in device-loss sweeps.
//
// Parameters:
//   - tracker: the tracker to register with
//
// Returns:
//   - BufferBuilderOption: a function that applies the tracker option to a buffer
func WithTracker(tracker resource.Tracker) BufferBuilderOption {
	return func(c *builderConfig) {
		c.tracker = tracker
	}
}

func withIndex() BufferBuilderOption {
	return func(c *builderConfig) {
		c.index = true
	}
}
