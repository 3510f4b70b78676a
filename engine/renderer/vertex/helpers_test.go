package vertex

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/stretchr/testify/require"
)

func snapshot(t *testing.T, vb VertexBuffer) []byte {
	t.Helper()
	data, err := vb.Lock(common.LockReadOnly)
	require.NoError(t, err)
	out := append([]byte(nil), data...)
	require.NoError(t, vb.Unlock())
	return out
}

// flakyDevice wraps a device so that the next failWrites write mappings of its buffers fail.
type flakyDevice struct {
	backend.Device
	failWrites int
}

type flakyBuffer struct {
	backend.BufferHandle
	device *flakyDevice
}

func (d *flakyDevice) CreateBuffer(desc backend.BufferDescriptor) (backend.BufferHandle, error) {
	h, err := d.Device.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	return &flakyBuffer{BufferHandle: h, device: d}, nil
}

func (b *flakyBuffer) Map(mode common.LockMode) ([]byte, error) {
	if mode != common.LockReadOnly && b.device.failWrites > 0 {
		b.device.failWrites--
		return nil, errors.New("map for write failed")
	}
	return b.BufferHandle.Map(mode)
}
