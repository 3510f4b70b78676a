package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/window"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("engine")

// engine implements the Engine interface.
type engine struct {
	cfg config.Config

	device   backend.Device
	renderer renderer.Renderer

	window  window.Window
	runtime *window.Runtime
	watcher window.DeviceWatcher

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	lastTick       time.Time

	quitChannel chan struct{}
	quitOnce    sync.Once
	closeOnce   sync.Once
}

// Engine wires a configured backend device, the renderer context on it, an optional window with its device-loss
// watcher, and the profiler into one loop.
type Engine interface {
	// Renderer returns the renderer context.
	Renderer() renderer.Renderer

	// Window returns the window, or nil for a headless engine.
	Window() window.Window

	// Tick runs one iteration: the device watcher, window events, the tick callback and the profiler.
	//
	// Returns:
	//   - bool: false once the window was closed or Quit was called
	//   - error: the restore sweep error, if the watcher ran one and it failed
	Tick() (bool, error)

	// SetTickRate sets the Run loop rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Run ticks at the configured rate on the calling goroutine until Tick reports the engine stopped.
	// GLFW needs the main thread, so call Run from main.
	Run()

	// Quit makes the next Tick report false. Safe to call multiple times.
	Quit()

	// Close shuts down the watcher, the window and the renderer, releasing the device.
	//
	// Returns:
	//   - error: the window close error, or nil
	Close() error
}

// NewEngine creates an Engine from configuration. The log level is applied, the configured backend device is
// opened unless WithDevice supplies one, and a DeviceWatcher is started when a window is given.
//
// Parameters:
//   - cfg: the engine configuration
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the configuration is invalid or the device or watcher cannot be created
func NewEngine(cfg config.Config, options ...EngineBuilderOption) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	interval, err := cfg.ProfilerInterval()
	if err != nil {
		return nil, err
	}
	language, err := cfg.Language()
	if err != nil {
		return nil, err
	}

	e := &engine{
		cfg:              cfg,
		profilingEnabled: interval > 0,
		engineTickRate:   time.Second / 60,
		quitChannel:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.device == nil {
		if e.device, err = renderer.OpenDevice(cfg); err != nil {
			return nil, err
		}
	}
	if !slices.Contains(e.device.ShaderLanguages(), language) {
		e.device.Release()
		return nil, fmt.Errorf("%s device cannot compile %s: %w", e.device.Name(), language, backend.ErrUnsupported)
	}
	e.renderer = renderer.NewRenderer(e.device, renderer.WithShaderLanguage(language))
	e.profiler = profiler.NewProfiler(profiler.WithInterval(interval), profiler.WithRendererStats(e.renderer.Stats))

	if e.window != nil {
		if e.runtime == nil {
			e.runtime = window.DefaultRuntime()
		}
		e.watcher, err = window.NewDeviceWatcher(e.runtime, e.renderer, window.WithWatchedWindow(e.window))
		if err != nil {
			e.renderer.Release()
			return nil, fmt.Errorf("device watcher: %w", err)
		}
	}

	logger.Noticef("engine started on %s (%s)", e.device.Name(), language)
	return e, nil
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Tick() (bool, error) {
	select {
	case <-e.quitChannel:
		return false, nil
	default:
	}

	var err error
	if e.watcher != nil {
		err = e.watcher.Poll()
	}
	if e.window != nil && !e.window.Poll() {
		e.Quit()
		return false, err
	}

	now := time.Now()
	if e.lastTick.IsZero() {
		e.lastTick = now
	}
	if e.tickCallback != nil {
		e.tickCallback(float32(now.Sub(e.lastTick).Seconds()))
	}
	e.lastTick = now

	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return true, err
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	e.engineTickRate = time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) Run() {
	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	for {
		running, err := e.Tick()
		if err != nil {
			logger.Errorf("tick: %v", err)
		}
		if !running {
			return
		}
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
		}
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		e.Quit()
		if e.watcher != nil {
			e.watcher.Close()
		}
		if e.window != nil && e.window.IsRunning() {
			errs = append(errs, e.window.Close())
		}
		e.renderer.Release()
		logger.Notice("engine closed")
	})
	return errors.Join(errs...)
}
