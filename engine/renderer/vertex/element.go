package vertex

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/buffer"
	"github.com/chewxy/math32"
	"github.com/x448/float16"
)

// packedColorSize is the size of an RGBA attribute stored as four normalized bytes; float colors take 16.
const packedColorSize = 4

func (vb *vertexBuffer) AttributeData(index int, semantic common.Semantic, channel int) ([]byte, error) {
	_, at, err := vb.element(index, semantic, channel)
	return at, err
}

// element resolves an attribute and its bytes for one vertex of the current mapping.
func (vb *vertexBuffer) element(index int, semantic common.Semantic, channel int) (Attribute, []byte, error) {
	data := vb.Data()
	if data == nil {
		return Attribute{}, nil, fmt.Errorf("%s: %w", vb.Label(), buffer.ErrNotLocked)
	}
	a, ok := vb.Attribute(semantic, channel)
	if !ok {
		return Attribute{}, nil, fmt.Errorf("%s: %w: %s channel %d", vb.Label(), ErrNoAttribute, semantic, channel)
	}
	if index < 0 || index >= vb.NumElements() {
		return Attribute{}, nil, fmt.Errorf("%s: vertex %d out of range [0, %d)", vb.Label(), index, vb.NumElements())
	}
	start := index*vb.stride + a.Offset
	return a, data[start : start+a.Size], nil
}

func (vb *vertexBuffer) Float(index int, semantic common.Semantic, channel int) ([4]float32, error) {
	a, at, err := vb.element(index, semantic, channel)
	if err != nil {
		return [4]float32{}, err
	}
	return decode(a, at), nil
}

func (vb *vertexBuffer) SetFloat(index int, semantic common.Semantic, channel int, v [4]float32) error {
	a, at, err := vb.element(index, semantic, channel)
	if err != nil {
		return err
	}
	encode(a, at, v)
	return nil
}

func (vb *vertexBuffer) Color(index, channel int) ([4]float32, error) {
	return vb.Float(index, common.SemanticColor, channel)
}

func (vb *vertexBuffer) SetColor(index, channel int, rgba [4]float32) error {
	return vb.SetFloat(index, common.SemanticColor, channel, rgba)
}

func decode(a Attribute, at []byte) [4]float32 {
	var out [4]float32
	n := a.Type.Components()
	switch {
	case a.Type == common.AttributeTypeRGBA && a.Size == packedColorSize:
		for i := range 4 {
			out[i] = float32(at[i]) / 255
		}
	case a.Type == common.AttributeTypeRGBA:
		for i := range 4 {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(at[i*4:]))
		}
	case a.Type.IsHalf():
		for i := range n {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(at[i*2:])).Float32()
		}
	case a.Type == common.AttributeTypeShort2 || a.Type == common.AttributeTypeShort4:
		for i := range n {
			out[i] = float32(int16(binary.LittleEndian.Uint16(at[i*2:])))
		}
	default:
		for i := range n {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(at[i*4:]))
		}
	}
	return out
}

func encode(a Attribute, at []byte, v [4]float32) {
	n := a.Type.Components()
	switch {
	case a.Type == common.AttributeTypeRGBA && a.Size == packedColorSize:
		for i := range 4 {
			at[i] = byte(math32.Round(clamp(v[i], 0, 1) * 255))
		}
	case a.Type == common.AttributeTypeRGBA:
		for i := range 4 {
			binary.LittleEndian.PutUint32(at[i*4:], math.Float32bits(clamp(v[i], 0, 1)))
		}
	case a.Type.IsHalf():
		for i := range n {
			binary.LittleEndian.PutUint16(at[i*2:], float16.Fromfloat32(v[i]).Bits())
		}
	case a.Type == common.AttributeTypeShort2 || a.Type == common.AttributeTypeShort4:
		for i := range n {
			s := int16(clamp(math32.Round(v[i]), math.MinInt16, math.MaxInt16))
			binary.LittleEndian.PutUint16(at[i*2:], uint16(s))
		}
	default:
		for i := range n {
			binary.LittleEndian.PutUint32(at[i*4:], math.Float32bits(v[i]))
		}
	}
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
