package buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
)

// indexBuffer is the implementation of the IndexBuffer interface.
type indexBuffer struct {
	*buffer
	indexType common.IndexType
}

// IndexBuffer is a Buffer of 8, 16 or 32-bit indices.
type IndexBuffer interface {
	Buffer

	IndexType() common.IndexType

	// SetIndexType changes the index width. It fails while the buffer is allocated.
	SetIndexType(t common.IndexType) error

	// Index reads index i from the current mapping.
	//
	// Parameters:
	//   - i: the element index
	//
	// Returns:
	//   - uint32: the stored index value
	//   - error: ErrNotLocked if the buffer is not locked, or an out of range error
	Index(i int) (uint32, error)

	// SetIndex writes index i into the current mapping, truncating v to the index width.
	//
	// Parameters:
	//   - i: the element index
	//   - v: the value to store
	//
	// Returns:
	//   - error: ErrNotLocked if the buffer is not locked, or an out of range error
	SetIndex(i int, v uint32) error
}

var _ IndexBuffer = &indexBuffer{}

// NewIndexBuffer creates a virtual IndexBuffer of the given index width.
//
// Parameters:
//   - device: the backend device the buffer is realized on
//   - label: a debug label
//   - indexType: the index width
//   - options: variadic list of BufferBuilderOption functions; WithElementSize is ignored
//
// Returns:
//   - IndexBuffer: the new, unallocated index buffer
func NewIndexBuffer(device backend.Device, label string, indexType common.IndexType, options ...BufferBuilderOption) IndexBuffer {
	if indexType.Size() == 0 {
		panic(fmt.Sprintf("buffer: %s has invalid index type %d", label, indexType))
	}
	options = append(options, withIndex(), WithElementSize(indexType.Size()))
	return &indexBuffer{
		buffer:    newBuffer(device, label, options...),
		indexType: indexType,
	}
}

func (ib *indexBuffer) IndexType() common.IndexType {
	return ib.indexType
}

func (ib *indexBuffer) SetIndexType(t common.IndexType) error {
	if t.Size() == 0 {
		return fmt.Errorf("%s: invalid index type %d", ib.Label(), t)
	}
	if err := ib.SetElementSize(t.Size()); err != nil {
		return err
	}
	ib.indexType = t
	return nil
}

func (ib *indexBuffer) Index(i int) (uint32, error) {
	at, err := ib.slot(i)
	if err != nil {
		return 0, err
	}
	switch ib.indexType {
	case common.IndexUByte:
		return uint32(at[0]), nil
	case common.IndexUShort:
		return uint32(binary.LittleEndian.Uint16(at)), nil
	default:
		return binary.LittleEndian.Uint32(at), nil
	}
}

func (ib *indexBuffer) SetIndex(i int, v uint32) error {
	at, err := ib.slot(i)
	if err != nil {
		return err
	}
	switch ib.indexType {
	case common.IndexUByte:
		at[0] = byte(v)
	case common.IndexUShort:
		binary.LittleEndian.PutUint16(at, uint16(v))
	default:
		binary.LittleEndian.PutUint32(at, v)
	}
	return nil
}

func (ib *indexBuffer) slot(i int) ([]byte, error) {
	data := ib.Data()
	if data == nil {
		return nil, fmt.Errorf("%s: %w", ib.Label(), ErrNotLocked)
	}
	if i < 0 || i >= ib.NumElements() {
		return nil, fmt.Errorf("%s: index %d out of range [0, %d)", ib.Label(), i, ib.NumElements())
	}
	size := ib.indexType.Size()
	return data[i*size : (i+1)*size], nil
}
