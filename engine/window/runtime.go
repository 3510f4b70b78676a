package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Runtime is a reference-counted handle on the GLFW library. GLFW is initialized when the first reference is
// acquired and terminated when the last one is released, so windows and device watchers can come and go in any
// order.
type Runtime struct {
	mu   *sync.Mutex
	refs int

	init               func() error
	terminate          func()
	setMonitorCallback func(cb func(connected bool))

	monitorListeners map[int]func(connected bool)
	nextListener     int
	monitorHooked    bool
}

// RuntimeOption is a functional option applied to a Runtime during construction via NewRuntime.
type RuntimeOption func(*Runtime)

// WithHooks replaces the GLFW calls the runtime makes. Nil arguments keep the GLFW default.
//
// Parameters:
//   - init: called on the first Acquire
//   - terminate: called on the last release
//   - setMonitorCallback: installs the single process-wide monitor callback
//
// Returns:
//   - RuntimeOption: a function that applies the hooks to a runtime
func WithHooks(init func() error, terminate func(), setMonitorCallback func(cb func(connected bool))) RuntimeOption {
	return func(r *Runtime) {
		if init != nil {
			r.init = init
		}
		if terminate != nil {
			r.terminate = terminate
		}
		if setMonitorCallback != nil {
			r.setMonitorCallback = setMonitorCallback
		}
	}
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// DefaultRuntime returns the process-wide Runtime backed by GLFW.
func DefaultRuntime() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime()
	})
	return defaultRuntime
}

// NewRuntime creates a Runtime. Outside of tests there should be exactly one, see DefaultRuntime.
//
// Parameters:
//   - options: variadic list of RuntimeOption functions to configure the Runtime
//
// Returns:
//   - *Runtime: the runtime, holding no references
func NewRuntime(options ...RuntimeOption) *Runtime {
	r := &Runtime{
		mu:                 &sync.Mutex{},
		init:               initGLFW,
		terminate:          glfw.Terminate,
		setMonitorCallback: setGLFWMonitorCallback,
		monitorListeners:   make(map[int]func(bool)),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// GLFW must be called from the main thread.
// Reference: https://www.glfw.org/docs/latest/intro_guide.html#thread_safety
func initGLFW() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}
	return nil
}

// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#SetMonitorCallback
func setGLFWMonitorCallback(cb func(connected bool)) {
	glfw.SetMonitorCallback(func(_ *glfw.Monitor, event glfw.PeripheralEvent) {
		cb(event == glfw.Connected)
	})
}

// Acquire takes a reference on GLFW, initializing it if this is the first one.
//
// Returns:
//   - func(): releases the reference; calling it more than once is a no-op
//   - error: an error if GLFW failed to initialize
func (r *Runtime) Acquire() (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 {
		if err := r.init(); err != nil {
			return nil, err
		}
	}
	r.refs++

	var once sync.Once
	return func() {
		once.Do(r.release)
	}, nil
}

func (r *Runtime) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs--
	if r.refs == 0 {
		r.monitorHooked = false
		r.terminate()
	}
}

// Refs returns the number of outstanding references.
func (r *Runtime) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// OnMonitorChange registers fn to be called whenever a monitor is connected or disconnected. The caller must hold a
// reference while the listener is registered.
//
// Parameters:
//   - fn: the listener, told whether the monitor was connected
//
// Returns:
//   - func(): removes the listener
func (r *Runtime) OnMonitorChange(fn func(connected bool)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextListener
	r.nextListener++
	r.monitorListeners[id] = fn
	if !r.monitorHooked {
		r.monitorHooked = true
		r.setMonitorCallback(r.dispatchMonitor)
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.monitorListeners, id)
	}
}

func (r *Runtime) dispatchMonitor(connected bool) {
	r.mu.Lock()
	listeners := make([]func(bool), 0, len(r.monitorListeners))
	for id := 0; id < r.nextListener; id++ {
		if fn, ok := r.monitorListeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(connected)
	}
}
