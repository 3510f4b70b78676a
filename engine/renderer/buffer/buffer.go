package buffer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("buffer")

var (
	// ErrLockUnavailable is returned by Lock when the buffer is not allocated or the backend mapping failed.
	ErrLockUnavailable = errors.New("buffer lock unavailable")

	// ErrNotLocked is returned by Unlock when there is no outstanding lock.
	ErrNotLocked = errors.New("buffer is not locked")
)

// buffer is the implementation of the Buffer interface.
type buffer struct {
	resource.Base

	device backend.Device
	handle backend.BufferHandle

	elementSize int
	elements    int
	usage       common.Usage
	managed     bool
	index       bool

	lockCount int
	lockMode  common.LockMode
	mapping   []byte
}

// Buffer is a lockable byte region on the device, sized as a number of fixed-size elements.
//
// A Buffer starts virtual and is realized by Allocate. Locks are reference counted: nested Lock calls return the
// same mapping and only the outermost Unlock ends it. All methods are meant to be called from the render thread.
type Buffer interface {
	resource.Resource

	// Allocate realizes the buffer with room for count elements, releasing any previous allocation.
	// The new contents are zeroed.
	//
	// Parameters:
	//   - count: the number of elements, must be positive
	//   - usage: the update-frequency hint
	//   - managed: true if the backend should keep the contents across device loss itself
	//
	// Returns:
	//   - error: an error if the buffer is not live, has no element size, or the backend could not create it
	Allocate(count int, usage common.Usage, managed bool) error

	// Clear releases the allocation, returning the buffer to the virtual state. Outstanding locks are abandoned.
	//
	// Returns:
	//   - error: ErrNotLive if the buffer is backed up
	Clear() error

	// IsAllocated reports whether the buffer currently owns a backend buffer.
	IsAllocated() bool

	// Lock maps the buffer contents into host memory. A lock taken while another is outstanding increments the
	// reference count and returns the same mapping; the mode of the outermost lock applies.
	//
	// Parameters:
	//   - mode: read-only, write-only or read-write
	//
	// Returns:
	//   - []byte: the mapping, valid until the matching outermost Unlock
	//   - error: ErrLockUnavailable if the buffer is unallocated or mapping failed, ErrNotLive if backed up
	Lock(mode common.LockMode) ([]byte, error)

	// Unlock releases one lock reference, ending the mapping and flushing writes when the count reaches zero.
	//
	// Returns:
	//   - error: ErrNotLocked if no lock is outstanding
	Unlock() error

	// ForceUnlock drops every outstanding lock reference at once. Writes made through the mapping are abandoned.
	ForceUnlock()

	IsLocked() bool
	LockCount() int

	// Data returns the current mapping, or nil when the buffer is not locked.
	Data() []byte

	NumElements() int
	ElementSize() int

	// SetElementSize changes the byte size of one element. It fails while the buffer is allocated, backed up or
	// destroyed.
	SetElementSize(size int) error

	// Size returns the allocated size in bytes.
	Size() int

	Usage() common.Usage
	Managed() bool
}

var _ Buffer = &buffer{}

// NewBuffer creates a virtual Buffer on the given device.
//
// Parameters:
//   - device: the backend device the buffer is realized on
//   - label: a debug label
//   - options: variadic list of BufferBuilderOption functions to configure the Buffer
//
// Returns:
//   - Buffer: the new, unallocated buffer
func NewBuffer(device backend.Device, label string, options ...BufferBuilderOption) Buffer {
	return newBuffer(device, label, options...)
}

func newBuffer(device backend.Device, label string, options ...BufferBuilderOption) *buffer {
	if device == nil {
		panic(fmt.Sprintf("buffer: %s needs a backend device", label))
	}
	b := &buffer{
		device:      device,
		elementSize: 1,
	}
	cfg := &builderConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	if cfg.elementSize > 0 {
		b.elementSize = cfg.elementSize
	}
	b.index = cfg.index
	b.Base = resource.NewBase(label, cfg.tracker)
	b.Register(b)
	return b
}

func (b *buffer) Allocate(count int, usage common.Usage, managed bool) error {
	if err := b.RequireLive(); err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("%s: element count must be positive, got %d", b.Label(), count)
	}
	if b.elementSize <= 0 {
		return fmt.Errorf("%s: element size is not set", b.Label())
	}
	if b.handle != nil {
		b.release()
	}

	h, err := b.device.CreateBuffer(backend.BufferDescriptor{
		Label:   b.Label(),
		Size:    count * b.elementSize,
		Usage:   usage,
		Managed: managed,
		Index:   b.index,
	})
	if err != nil {
		b.SetState(resource.StateVirtual)
		return fmt.Errorf("%s: allocate: %w", b.Label(), err)
	}
	b.handle = h
	b.elements = count
	b.usage = usage
	b.managed = managed
	b.SetState(resource.StateLive)
	return nil
}

func (b *buffer) Clear() error {
	if err := b.RequireLive(); err != nil {
		return err
	}
	b.release()
	b.elements = 0
	b.SetState(resource.StateVirtual)
	return nil
}

func (b *buffer) IsAllocated() bool {
	return b.handle != nil
}

func (b *buffer) Lock(mode common.LockMode) ([]byte, error) {
	if err := b.RequireLive(); err != nil {
		return nil, err
	}
	if b.handle == nil {
		return nil, fmt.Errorf("%s: %w: not allocated", b.Label(), ErrLockUnavailable)
	}
	if b.lockCount > 0 {
		if mode != b.lockMode {
			logger.Debugf("%s: nested %s lock inside %s lock keeps the outer mode", b.Label(), mode, b.lockMode)
		}
		b.lockCount++
		return b.mapping, nil
	}

	data, err := b.handle.Map(mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", b.Label(), ErrLockUnavailable, err)
	}
	b.mapping = data
	b.lockMode = mode
	b.lockCount = 1
	return data, nil
}

func (b *buffer) Unlock() error {
	if b.lockCount == 0 {
		return fmt.Errorf("%s: %w", b.Label(), ErrNotLocked)
	}
	b.lockCount--
	if b.lockCount > 0 {
		return nil
	}
	b.mapping = nil
	return b.handle.Unmap()
}

func (b *buffer) ForceUnlock() {
	if b.lockCount == 0 {
		return
	}
	logger.Debugf("%s: force unlocking %d outstanding lock(s)", b.Label(), b.lockCount)
	b.lockCount = 0
	b.mapping = nil
	b.handle.Discard()
}

func (b *buffer) IsLocked() bool {
	return b.lockCount > 0
}

func (b *buffer) LockCount() int {
	return b.lockCount
}

func (b *buffer) Data() []byte {
	return b.mapping
}

func (b *buffer) NumElements() int {
	return b.elements
}

func (b *buffer) ElementSize() int {
	return b.elementSize
}

func (b *buffer) SetElementSize(size int) error {
	if err := b.RequireLive(); err != nil {
		return err
	}
	if b.handle != nil {
		return fmt.Errorf("%s: cannot change element size of an allocated buffer", b.Label())
	}
	if size < 0 {
		return fmt.Errorf("%s: negative element size %d", b.Label(), size)
	}
	b.elementSize = size
	return nil
}

func (b *buffer) Size() int {
	return b.elements * b.elementSize
}

func (b *buffer) Usage() common.Usage {
	return b.usage
}

func (b *buffer) Managed() bool {
	return b.managed
}

func (b *buffer) Backup() (*resource.Blob, error) {
	if b.State() != resource.StateLive || b.handle == nil {
		return nil, nil
	}
	b.ForceUnlock()

	if dm, ok := b.handle.(backend.DeviceManaged); ok && b.managed {
		dm.Suspend()
		b.SetState(resource.StateBackedUp)
		return nil, nil
	}

	data, err := b.Lock(common.LockReadOnly)
	if err != nil {
		return nil, err
	}
	blob := &resource.Blob{Data: make([]byte, len(data))}
	copy(blob.Data, data)
	if err := b.Unlock(); err != nil {
		return nil, err
	}

	b.handle.Destroy()
	b.handle = nil
	b.SetState(resource.StateBackedUp)
	return blob, nil
}

func (b *buffer) Restore(blob *resource.Blob) error {
	if b.State() != resource.StateBackedUp {
		return nil
	}

	if b.handle != nil {
		dm, ok := b.handle.(backend.DeviceManaged)
		if !ok {
			return fmt.Errorf("%s: backed-up handle is not device managed", b.Label())
		}
		if err := dm.Resume(); err != nil {
			return fmt.Errorf("%s: resume: %w", b.Label(), err)
		}
		b.SetState(resource.StateLive)
		return nil
	}

	h, err := b.device.CreateBuffer(backend.BufferDescriptor{
		Label:   b.Label(),
		Size:    b.Size(),
		Usage:   b.usage,
		Managed: b.managed,
		Index:   b.index,
	})
	if err != nil {
		return fmt.Errorf("%s: recreate: %w", b.Label(), err)
	}
	b.handle = h
	b.SetState(resource.StateLive)

	if blob == nil {
		return nil
	}
	if err := b.upload(blob); err != nil {
		// The host copy stays valid for the next restore.
		b.release()
		b.SetState(resource.StateBackedUp)
		return err
	}
	blob.Free()
	return nil
}

// upload copies a host copy into the freshly recreated backend buffer.
func (b *buffer) upload(blob *resource.Blob) error {
	if blob.Size() != b.Size() {
		return fmt.Errorf("%s: host copy holds %d bytes, buffer needs %d", b.Label(), blob.Size(), b.Size())
	}
	data, err := b.Lock(common.LockWriteOnly)
	if err != nil {
		return err
	}
	copy(data, blob.Data)
	return b.Unlock()
}

func (b *buffer) Destroy() {
	if b.State() == resource.StateDestroyed {
		return
	}
	b.release()
	b.elements = 0
	b.Unregister(b)
}

// release abandons outstanding locks and frees the backend buffer.
func (b *buffer) release() {
	if b.handle == nil {
		return
	}
	b.ForceUnlock()
	b.handle.Destroy()
	b.handle = nil
}
