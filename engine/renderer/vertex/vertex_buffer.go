// Package vertex implements vertex buffers whose byte layout is declared one attribute at a time. Attributes can be
// added after the buffer is allocated; the buffer is then reallocated with the wider stride and every existing
// attribute is moved to the new layout.
package vertex

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("vertex")

var (
	// ErrDeclarationConflict is returned by AddAttribute for a duplicate (semantic, channel), a type the semantic
	// does not accept, or a channel out of range.
	ErrDeclarationConflict = errors.New("vertex attribute declaration conflict")

	// ErrUnsupportedOnBackend is returned by AddAttribute when the device cannot store the attribute type.
	ErrUnsupportedOnBackend = errors.New("vertex attribute type unsupported on backend")

	// ErrLayoutFrozen is returned by ClearAttributes while the buffer is allocated.
	ErrLayoutFrozen = errors.New("vertex layout cannot be cleared while allocated")

	// ErrNoAttribute is returned by the element accessors for an undeclared (semantic, channel).
	ErrNoAttribute = errors.New("vertex attribute not declared")
)

// vertexBuffer is the implementation of the VertexBuffer interface.
type vertexBuffer struct {
	buffer.Buffer

	device     backend.Device
	attributes []Attribute
	stride     int
}

// VertexBuffer is a Buffer whose elements are vertices described by an ordered list of attributes.
// The element size of the buffer always equals the vertex stride.
type VertexBuffer interface {
	buffer.Buffer

	// AddAttribute appends an attribute to the layout. Its offset is the stride before the call. An outstanding
	// lock is forced open first, abandoning writes made through it. When the buffer is allocated it is
	// reallocated with the new stride and the bytes of every existing attribute are preserved; the bytes of the
	// new attribute are left unspecified.
	//
	// Parameters:
	//   - semantic: the logical meaning of the attribute
	//   - channel: the channel index, distinguishing attributes of the same semantic
	//   - t: the element type
	//
	// Returns:
	//   - error: ErrDeclarationConflict, ErrUnsupportedOnBackend, or an error from reallocation
	AddAttribute(semantic common.Semantic, channel int, t common.AttributeType) error

	// ClearAttributes removes every attribute. It fails with ErrLayoutFrozen while the buffer is allocated and
	// with resource.ErrNotLive while it is backed up.
	ClearAttributes() error

	// Attribute returns the attribute declared for (semantic, channel).
	//
	// Parameters:
	//   - semantic: the semantic to look up
	//   - channel: the channel to look up
	//
	// Returns:
	//   - Attribute: the attribute
	//   - bool: false if nothing is declared for (semantic, channel)
	Attribute(semantic common.Semantic, channel int) (Attribute, bool)

	// AttributeAt returns the i-th attribute in declaration order.
	AttributeAt(i int) Attribute

	// Attributes returns a copy of the layout in declaration order.
	Attributes() []Attribute

	NumAttributes() int

	// VertexSize returns the stride, the sum of the attribute sizes.
	VertexSize() int

	// AttributeData returns the bytes of one attribute of one vertex within the current mapping.
	//
	// Parameters:
	//   - index: the vertex index
	//   - semantic: the attribute semantic
	//   - channel: the attribute channel
	//
	// Returns:
	//   - []byte: a slice of the mapping, Size bytes long
	//   - error: buffer.ErrNotLocked, ErrNoAttribute, or an out of range error
	AttributeData(index int, semantic common.Semantic, channel int) ([]byte, error)

	// Float reads an attribute as up to four floats. Short types are read as their integer values, half types
	// are widened and colors are returned as normalized RGBA. Missing components are zero.
	Float(index int, semantic common.Semantic, channel int) ([4]float32, error)

	// SetFloat writes an attribute from up to four floats, converting to the declared type. Short values are
	// rounded and clamped to the int16 range, colors are clamped to [0, 1].
	SetFloat(index int, semantic common.Semantic, channel int, v [4]float32) error

	// Color reads a Color attribute as normalized RGBA.
	Color(index, channel int) ([4]float32, error)

	// SetColor writes a Color attribute from normalized RGBA.
	SetColor(index, channel int, rgba [4]float32) error

	// CopyFrom replaces the layout and contents of this buffer with those of src.
	//
	// Parameters:
	//   - src: the buffer to copy
	//
	// Returns:
	//   - error: an error if an attribute cannot be declared on this buffer's device or a lock fails
	CopyFrom(src VertexBuffer) error

	// BoundingBox computes the axis-aligned box around the Position channel 0 values. When ib is non-nil only
	// the vertices it references are considered. A layout without Position yields the zero box.
	//
	// Parameters:
	//   - ib: an optional index buffer
	//
	// Returns:
	//   - common.BoundingBox: the box
	//   - error: an error if a buffer could not be locked or an index is out of range
	BoundingBox(ib buffer.IndexBuffer) (common.BoundingBox, error)

	// BoundingSphere computes a sphere around the Position channel 0 values, centered on their average.
	// When ib is non-nil only the vertices it references are considered. A layout without Position yields
	// the zero sphere.
	BoundingSphere(ib buffer.IndexBuffer) (common.BoundingSphere, error)
}

var _ VertexBuffer = &vertexBuffer{}

// NewVertexBuffer creates a VertexBuffer with an empty layout.
//
// Parameters:
//   - device: the backend device the buffer is realized on and attributes are resolved against
//   - label: a debug label
//   - options: variadic list of buffer.BufferBuilderOption functions; the element size is managed by the layout
//
// Returns:
//   - VertexBuffer: the new, unallocated vertex buffer
func NewVertexBuffer(device backend.Device, label string, options ...buffer.BufferBuilderOption) VertexBuffer {
	b := buffer.NewBuffer(device, label, options...)
	if err := b.SetElementSize(0); err != nil {
		panic(err)
	}
	return &vertexBuffer{
		Buffer: b,
		device: device,
	}
}

func (vb *vertexBuffer) AddAttribute(semantic common.Semantic, channel int, t common.AttributeType) error {
	if err := vb.requireLive(); err != nil {
		return err
	}
	if err := checkDeclaration(semantic, channel, t); err != nil {
		return fmt.Errorf("%s: %w", vb.Label(), err)
	}
	if _, ok := vb.Attribute(semantic, channel); ok {
		return fmt.Errorf("%s: %w: %s channel %d already declared", vb.Label(), ErrDeclarationConflict, semantic, channel)
	}

	vb.ForceUnlock()

	format := vb.device.ResolveAttribute(t)
	if format.Size == 0 {
		return fmt.Errorf("%s: %w: %s on %s", vb.Label(), ErrUnsupportedOnBackend, t, vb.device.Name())
	}
	attr := Attribute{
		Semantic:   semantic,
		Channel:    channel,
		Type:       t,
		Offset:     vb.stride,
		Size:       format.Size,
		TypeCode:   format.TypeCode,
		Components: format.Components,
	}

	if !vb.IsAllocated() {
		if err := vb.SetElementSize(vb.stride + attr.Size); err != nil {
			return err
		}
		vb.attributes = append(vb.attributes, attr)
		vb.stride += attr.Size
		return nil
	}

	if err := vb.reallocate(vb.stride + attr.Size); err != nil {
		return err
	}
	vb.attributes = append(vb.attributes, attr)
	vb.stride += attr.Size
	return nil
}

// requireLive fails for backed-up and destroyed buffers, whose layout must not change until restored.
func (vb *vertexBuffer) requireLive() error {
	switch vb.State() {
	case resource.StateBackedUp:
		return fmt.Errorf("%s: %w", vb.Label(), resource.ErrNotLive)
	case resource.StateDestroyed:
		return fmt.Errorf("%s: %w", vb.Label(), resource.ErrDestroyed)
	default:
		return nil
	}
}

// reallocate moves the contents to a new allocation with the given stride. Existing attributes keep their offsets,
// so each one is copied from the same offset of the old vertex to the same offset of the new, wider vertex.
func (vb *vertexBuffer) reallocate(newStride int) error {
	oldStride := vb.stride
	count := vb.NumElements()
	usage, managed := vb.Usage(), vb.Managed()

	data, err := vb.Lock(common.LockReadOnly)
	if err != nil {
		return err
	}
	scratch := make([]byte, len(data))
	copy(scratch, data)
	if err := vb.Unlock(); err != nil {
		return err
	}

	if err := vb.Clear(); err != nil {
		return err
	}
	if err := vb.SetElementSize(newStride); err != nil {
		return err
	}
	if err := vb.Allocate(count, usage, managed); err != nil {
		vb.rollback(scratch, oldStride, count, usage, managed)
		return fmt.Errorf("%s: reallocate for stride %d: %w", vb.Label(), newStride, err)
	}

	dst, err := vb.Lock(common.LockWriteOnly)
	if err != nil {
		vb.rollback(scratch, oldStride, count, usage, managed)
		return fmt.Errorf("%s: reallocate for stride %d: %w", vb.Label(), newStride, err)
	}
	for i := range count {
		from := scratch[i*oldStride : (i+1)*oldStride]
		to := dst[i*newStride : (i+1)*newStride]
		for _, a := range vb.attributes {
			copy(to[a.Offset:a.Offset+a.Size], from[a.Offset:a.Offset+a.Size])
		}
	}
	if err := vb.Unlock(); err != nil {
		vb.rollback(scratch, oldStride, count, usage, managed)
		return fmt.Errorf("%s: reallocate for stride %d: %w", vb.Label(), newStride, err)
	}
	logger.Debugf("%s: reallocated %d vertices, stride %d -> %d", vb.Label(), count, oldStride, newStride)
	return nil
}

// rollback puts the old allocation back after a failed reallocation. A new allocation that was made before the
// failure is released first, so the element size always ends up matching the old stride.
func (vb *vertexBuffer) rollback(scratch []byte, stride, count int, usage common.Usage, managed bool) {
	if vb.IsAllocated() {
		vb.ForceUnlock()
		if err := vb.Clear(); err != nil {
			logger.Errorf("%s: could not release the failed allocation: %v", vb.Label(), err)
			return
		}
	}
	if err := vb.SetElementSize(stride); err != nil {
		logger.Errorf("%s: could not restore stride %d: %v", vb.Label(), stride, err)
		return
	}
	if err := vb.Allocate(count, usage, managed); err != nil {
		logger.Errorf("%s: could not restore the previous allocation: %v", vb.Label(), err)
		return
	}
	data, err := vb.Lock(common.LockWriteOnly)
	if err != nil {
		return
	}
	copy(data, scratch)
	_ = vb.Unlock()
}

func (vb *vertexBuffer) ClearAttributes() error {
	if err := vb.requireLive(); err != nil {
		return err
	}
	if vb.IsAllocated() {
		return fmt.Errorf("%s: %w", vb.Label(), ErrLayoutFrozen)
	}
	vb.attributes = nil
	vb.stride = 0
	return vb.SetElementSize(0)
}

func (vb *vertexBuffer) Attribute(semantic common.Semantic, channel int) (Attribute, bool) {
	for _, a := range vb.attributes {
		if a.Semantic == semantic && a.Channel == channel {
			return a, true
		}
	}
	return Attribute{}, false
}

func (vb *vertexBuffer) AttributeAt(i int) Attribute {
	return vb.attributes[i]
}

func (vb *vertexBuffer) Attributes() []Attribute {
	return slices.Clone(vb.attributes)
}

func (vb *vertexBuffer) NumAttributes() int {
	return len(vb.attributes)
}

func (vb *vertexBuffer) VertexSize() int {
	return vb.stride
}

func (vb *vertexBuffer) CopyFrom(src VertexBuffer) error {
	if src == VertexBuffer(vb) {
		return nil
	}
	if err := vb.requireLive(); err != nil {
		return err
	}
	if vb.IsAllocated() {
		if err := vb.Clear(); err != nil {
			return err
		}
	}
	if err := vb.ClearAttributes(); err != nil {
		return err
	}
	for _, a := range src.Attributes() {
		if err := vb.AddAttribute(a.Semantic, a.Channel, a.Type); err != nil {
			return err
		}
	}
	if !src.IsAllocated() {
		return nil
	}

	if err := vb.Allocate(src.NumElements(), src.Usage(), src.Managed()); err != nil {
		return err
	}
	from, err := src.Lock(common.LockReadOnly)
	if err != nil {
		return err
	}
	defer func() { _ = src.Unlock() }()
	to, err := vb.Lock(common.LockWriteOnly)
	if err != nil {
		return err
	}

	// Devices may store the same type with different sizes (packed or float colors); those attributes are
	// converted through floats, the rest are copied as bytes.
	srcStride := src.VertexSize()
	for i := range src.NumElements() {
		for j, a := range vb.attributes {
			s := src.AttributeAt(j)
			if a.Size == s.Size {
				copy(to[i*vb.stride+a.Offset:i*vb.stride+a.Offset+a.Size], from[i*srcStride+s.Offset:i*srcStride+s.Offset+s.Size])
				continue
			}
			v, err := src.Float(i, s.Semantic, s.Channel)
			if err != nil {
				vb.ForceUnlock()
				return err
			}
			if err := vb.SetFloat(i, a.Semantic, a.Channel, v); err != nil {
				vb.ForceUnlock()
				return err
			}
		}
	}
	return vb.Unlock()
}
