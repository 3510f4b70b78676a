package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// bufferHandle is a GPU buffer with a host shadow copy. Mappings are served from the shadow and writable mappings
// are uploaded through the queue on Unmap.
type bufferHandle struct {
	device *device
	label  string
	usage  wgpu.BufferUsage

	gpu     *wgpu.Buffer
	shadow  []byte
	staging []byte
	mode    common.LockMode
	mapped  bool

	managed   bool
	suspended bool
	destroyed bool
}

var (
	_ backend.BufferHandle  = &bufferHandle{}
	_ backend.DeviceManaged = &bufferHandle{}
)

func (d *device) CreateBuffer(desc backend.BufferDescriptor) (backend.BufferHandle, error) {
	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if desc.Index {
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}
	b := &bufferHandle{
		device:  d,
		label:   desc.Label,
		usage:   usage,
		shadow:  make([]byte, desc.Size),
		managed: desc.Managed,
	}
	if err := b.create(); err != nil {
		return nil, err
	}
	return b, nil
}

// create allocates the GPU buffer and uploads the shadow. WebGPU copies must be 4-byte aligned, so the GPU buffer
// is padded to the next multiple of 4.
func (b *bufferHandle) create() error {
	gpu, err := b.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            b.label,
		Size:             uint64(aligned(len(b.shadow))),
		Usage:            b.usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create buffer %q: %w", b.label, err)
	}
	b.gpu = gpu
	b.upload()
	return nil
}

func (b *bufferHandle) upload() {
	if len(b.shadow) == 0 {
		return
	}
	data := b.shadow
	if n := aligned(len(data)); n != len(data) {
		data = make([]byte, n)
		copy(data, b.shadow)
	}
	b.device.queue.WriteBuffer(b.gpu, 0, data)
}

func aligned(n int) int {
	return max(4, (n+3)&^3)
}

func (b *bufferHandle) Size() int {
	return len(b.shadow)
}

func (b *bufferHandle) Map(mode common.LockMode) ([]byte, error) {
	switch {
	case b.destroyed:
		return nil, fmt.Errorf("wgpu: buffer %q is destroyed", b.label)
	case b.suspended:
		return nil, fmt.Errorf("wgpu: buffer %q is suspended", b.label)
	case b.mapped:
		return nil, fmt.Errorf("wgpu: buffer %q is already mapped", b.label)
	}
	b.staging = make([]byte, len(b.shadow))
	copy(b.staging, b.shadow)
	b.mode = mode
	b.mapped = true
	return b.staging, nil
}

func (b *bufferHandle) Unmap() error {
	if !b.mapped {
		return errors.New("wgpu: buffer " + b.label + " is not mapped")
	}
	if b.mode != common.LockReadOnly {
		copy(b.shadow, b.staging)
		b.upload()
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
	if b.gpu != nil {
		b.gpu.Release()
		b.gpu = nil
	}
	b.suspended = true
}

func (b *bufferHandle) Resume() error {
	if !b.suspended {
		return nil
	}
	if err := b.create(); err != nil {
		return err
	}
	b.suspended = false
	return nil
}

func (b *bufferHandle) Destroy() {
	if b.destroyed {
		return
	}
	if b.gpu != nil {
		b.gpu.Release()
		b.gpu = nil
	}
	b.shadow = nil
	b.staging = nil
	b.destroyed = true
}
