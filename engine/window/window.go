// Package window owns the GLFW side of the engine: a reference-counted runtime handle, a minimal window without a
// client API for WebGPU surfaces, and the watcher that turns display changes into device-loss sweeps.
package window

import (
	"github.com/Carmen-Shannon/oxy-hal/log"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("window")

// Window is a platform window without a client API. Rendering goes through a WebGPU surface created from
// SurfaceDescriptor.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetIconifyCallback sets the function called when the window is minimized or restored.
	//
	// Parameters:
	//   - callback: function receiving true when the window was minimized
	SetIconifyCallback(callback func(iconified bool))

	// Iconified reports whether the window is currently minimized.
	Iconified() bool

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Poll processes pending window events without blocking.
	//
	// Returns:
	//   - bool: true if the window is still running
	Poll() bool

	// IsRunning returns true if the window is still active.
	IsRunning() bool

	// Close destroys the window and releases its runtime reference.
	//
	// Returns:
	//   - error: error if the window was never created or is already closed
	Close() error

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int

	// width and height are the framebuffer size, which differs from the requested size on high-DPI displays.
	width  int
	height int

	runtime *Runtime
	release func()

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any
	iconified      bool

	onResize  func(width, height int)
	onIconify func(iconified bool)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window with the specified options. The window takes a reference on its Runtime
// for as long as it is open.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: an error if GLFW could not be initialized or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-hal",
		maxWidth:  1600,
		maxHeight: 1200,
		minWidth:  600,
		minHeight: 200,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.runtime == nil {
		w.runtime = DefaultRuntime()
	}

	release, err := w.runtime.Acquire()
	if err != nil {
		return nil, err
	}
	if err := newPlatformWindow(w); err != nil {
		release()
		return nil, err
	}
	w.release = release
	logger.Debugf("window %q created at %dx%d", w.title, w.width, w.height)
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetIconifyCallback(callback func(iconified bool)) {
	w.onIconify = callback
}

func (w *engineWindow) Iconified() bool {
	return w.iconified
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) Poll() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	if err := platformCloseWindow(w); err != nil {
		return err
	}
	w.internalWindow = nil
	if w.release != nil {
		w.release()
		w.release = nil
	}
	return nil
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
