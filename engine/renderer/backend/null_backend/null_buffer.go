package null_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
)

// bufferHandle is a host-memory buffer. Writable mappings hand out a staging copy that is committed on Unmap,
// so a discarded mapping leaves the contents untouched.
type bufferHandle struct {
	device *device
	label  string

	data    []byte
	staging []byte
	mode    common.LockMode
	mapped  bool

	managed   bool
	suspended bool
	kept      []byte
	destroyed bool
}

var (
	_ backend.BufferHandle  = &bufferHandle{}
	_ backend.DeviceManaged = &bufferHandle{}
)

func (b *bufferHandle) Size() int {
	if b.suspended {
		return len(b.kept)
	}
	return len(b.data)
}

func (b *bufferHandle) Map(mode common.LockMode) ([]byte, error) {
	switch {
	case b.destroyed:
		return nil, fmt.Errorf("null: buffer %q is destroyed", b.label)
	case b.suspended:
		return nil, fmt.Errorf("null: buffer %q is suspended", b.label)
	case b.mapped:
		return nil, fmt.Errorf("null: buffer %q is already mapped", b.label)
	}

	b.staging = make([]byte, len(b.data))
	copy(b.staging, b.data)
	b.mode = mode
	b.mapped = true

	b.device.mu.Lock()
	b.device.bufferMaps++
	b.device.mu.Unlock()
	return b.staging, nil
}

func (b *bufferHandle) Unmap() error {
	if !b.mapped {
		return errors.New("null: buffer " + b.label + " is not mapped")
	}
	if b.mode != common.LockReadOnly {
		copy(b.data, b.staging)
	}
	b.staging = nil
	b.mapped = false
	return nil
}

func (b *bufferHandle) Discard() {
	b.staging = nil
	b.mapped = false
}

func (b *bufferHandle) Suspend() {
	if b.suspended || b.destroyed {
		return
	}
	b.Discard()
	b.kept = b.data
	b.data = nil
	b.suspended = true
}

func (b *bufferHandle) Resume() error {
	if b.destroyed {
		return fmt.Errorf("null: buffer %q is destroyed", b.label)
	}
	if !b.suspended {
		return nil
	}
	b.data = b.kept
	b.kept = nil
	b.suspended = false
	return nil
}

func (b *bufferHandle) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.data = nil
	b.kept = nil
	b.staging = nil

	b.device.mu.Lock()
	b.device.liveBuffers--
	b.device.mu.Unlock()
}
