package window

import (
	"sync"
)

// DeviceTarget is what a DeviceWatcher drives: usually the renderer context.
type DeviceTarget interface {
	DeviceLost() error
	DeviceRestored() error
}

// DeviceWatcher turns display changes into device-loss sweeps. A monitor being connected or disconnected, or the
// watched window being minimized, runs the backup sweep at once; Poll runs the restore sweep after the display has
// been stable for the configured number of polls.
type DeviceWatcher interface {
	// Poll restores the device if it was lost and the display has settled. It is a no-op otherwise.
	//
	// Returns:
	//   - error: the restore sweep error, or nil
	Poll() error

	// Lost reports whether a backup sweep ran without a restore sweep yet.
	Lost() bool

	// Close stops watching and releases the runtime reference.
	Close()
}

// deviceWatcher is the implementation of the DeviceWatcher interface.
type deviceWatcher struct {
	mu     *sync.Mutex
	target DeviceTarget
	window Window

	release       func()
	removeMonitor func()

	settlePolls int
	stable      int
	lost        bool
}

var _ DeviceWatcher = &deviceWatcher{}

// DeviceWatcherOption is a functional option applied to a watcher during construction via NewDeviceWatcher.
type DeviceWatcherOption func(*deviceWatcher)

// WithWatchedWindow also treats minimizing w as a device loss. The restore waits until w is restored.
func WithWatchedWindow(w Window) DeviceWatcherOption {
	return func(d *deviceWatcher) {
		d.window = w
	}
}

// WithSettlePolls sets how many consecutive stable polls must pass before the restore sweep runs. The default is 1.
func WithSettlePolls(n int) DeviceWatcherOption {
	return func(d *deviceWatcher) {
		d.settlePolls = max(1, n)
	}
}

// NewDeviceWatcher takes a reference on r and starts watching for display changes.
//
// Parameters:
//   - r: the GLFW runtime, DefaultRuntime outside of tests
//   - target: the target whose sweeps are run
//   - options: variadic list of DeviceWatcherOption functions to configure the watcher
//
// Returns:
//   - DeviceWatcher: the watcher
//   - error: an error if GLFW could not be initialized
func NewDeviceWatcher(r *Runtime, target DeviceTarget, options ...DeviceWatcherOption) (DeviceWatcher, error) {
	d := &deviceWatcher{
		mu:          &sync.Mutex{},
		target:      target,
		settlePolls: 1,
	}
	for _, opt := range options {
		opt(d)
	}

	release, err := r.Acquire()
	if err != nil {
		return nil, err
	}
	d.release = release
	d.removeMonitor = r.OnMonitorChange(func(connected bool) {
		if connected {
			d.markLost("monitor connected")
		} else {
			d.markLost("monitor disconnected")
		}
	})
	if d.window != nil {
		d.window.SetIconifyCallback(func(iconified bool) {
			if iconified {
				d.markLost("window minimized")
			}
		})
	}
	return d, nil
}

func (d *deviceWatcher) markLost(reason string) {
	d.mu.Lock()
	d.stable = 0
	if d.lost {
		d.mu.Unlock()
		return
	}
	d.lost = true
	d.mu.Unlock()

	logger.Noticef("device lost: %s", reason)
	if err := d.target.DeviceLost(); err != nil {
		logger.Errorf("backup sweep: %v", err)
	}
}

func (d *deviceWatcher) Poll() error {
	d.mu.Lock()
	if !d.lost {
		d.mu.Unlock()
		return nil
	}
	if d.window != nil && d.window.Iconified() {
		d.stable = 0
		d.mu.Unlock()
		return nil
	}
	d.stable++
	if d.stable < d.settlePolls {
		d.mu.Unlock()
		return nil
	}
	d.lost = false
	d.stable = 0
	d.mu.Unlock()

	logger.Notice("display settled, restoring device")
	return d.target.DeviceRestored()
}

func (d *deviceWatcher) Lost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func (d *deviceWatcher) Close() {
	if d.removeMonitor != nil {
		d.removeMonitor()
		d.removeMonitor = nil
	}
	if d.window != nil {
		d.window.SetIconifyCallback(nil)
	}
	if d.release != nil {
		d.release()
		d.release = nil
	}
}
