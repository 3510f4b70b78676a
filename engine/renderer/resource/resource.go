// Package resource holds the lifecycle shared by every GPU-resident object and the device-loss
// backup/restore sweep that walks all of them.
package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLive is returned by operations attempted on a resource that was backed up and not yet restored.
	ErrNotLive = errors.New("resource is not live")

	// ErrDestroyed is returned by operations attempted on a destroyed resource.
	ErrDestroyed = errors.New("resource is destroyed")
)

// State is the lifecycle state of a Resource.
type State int

const (
	// StateVirtual is declared but not realized on the device; there is no backend handle.
	StateVirtual State = iota

	// StateLive owns a backend handle.
	StateLive

	// StateBackedUp released its backend handle during device loss and waits for Restore.
	StateBackedUp

	// StateDestroyed released its backend handle for good.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateVirtual:
		return "Virtual"
	case StateLive:
		return "Live"
	case StateBackedUp:
		return "BackedUp"
	case StateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Blob is a host-side copy of a resource's contents taken during device loss.
// A nil *Blob means no host copy was kept.
type Blob struct {
	Data []byte
}

// Size returns the number of bytes held, 0 for a nil blob.
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Free drops the host copy.
func (b *Blob) Free() {
	if b != nil {
		b.Data = nil
	}
}

// Resource is a GPU-resident object that takes part in device-loss handling.
type Resource interface {
	// Label returns the resource's debug label.
	Label() string

	// State returns the current lifecycle state.
	State() State

	// Backup prepares the resource for device loss. Resources whose contents the backend keeps itself
	// return a nil blob. Otherwise the contents are copied to the returned blob and the backend handle is
	// released. Backing up a resource without a handle is a no-op returning nil.
	//
	// Returns:
	//   - *Blob: the host copy of the contents, or nil
	//   - error: an error if the contents could not be read back
	Backup() (*Blob, error)

	// Restore recreates the backend handle after device loss and writes blob back into it.
	// A nil blob leaves the contents zeroed unless the backend restored them on its own.
	// Restoring a resource that already has a handle is a no-op.
	//
	// Parameters:
	//   - blob: the host copy returned by Backup, or nil
	//
	// Returns:
	//   - error: an error if the backend object could not be recreated
	Restore(blob *Blob) error

	// Destroy releases the backend handle and stops tracking the resource.
	Destroy()
}

// Tracker is notified of resources coming into and going out of existence.
type Tracker interface {
	Track(r Resource)
	Untrack(r Resource)
}

// Base is embedded by resource implementations to hold the label, lifecycle state and tracker.
type Base struct {
	label   string
	state   State
	tracker Tracker
}

// NewBase creates a Base in StateVirtual. tracker may be nil for untracked resources.
//
// Parameters:
//   - label: the debug label of the resource
//   - tracker: the tracker the owning resource registers with, or nil
//
// Returns:
//   - Base: the lifecycle holder to embed
func NewBase(label string, tracker Tracker) Base {
	return Base{
		label:   label,
		state:   StateVirtual,
		tracker: tracker,
	}
}

func (b *Base) Label() string {
	return b.label
}

func (b *Base) State() State {
	return b.state
}

// SetState moves the resource to s.
func (b *Base) SetState(s State) {
	b.state = s
}

// RequireLive returns nil unless the resource is backed up or destroyed.
func (b *Base) RequireLive() error {
	switch b.state {
	case StateBackedUp:
		return fmt.Errorf("%s: %w", b.label, ErrNotLive)
	case StateDestroyed:
		return fmt.Errorf("%s: %w", b.label, ErrDestroyed)
	default:
		return nil
	}
}

// Register adds self to the tracker. self must be the resource embedding this Base.
func (b *Base) Register(self Resource) {
	if b.tracker != nil {
		b.tracker.Track(self)
	}
}

// Unregister removes self from the tracker and marks the resource destroyed.
func (b *Base) Unregister(self Resource) {
	if b.tracker != nil {
		b.tracker.Untrack(self)
	}
	b.state = StateDestroyed
}
