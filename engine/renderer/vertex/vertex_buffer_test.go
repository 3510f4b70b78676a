package vertex

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrideAndOffsets(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "layout")
	decls := []struct {
		semantic common.Semantic
		channel  int
		t        common.AttributeType
		size     int
	}{
		{common.SemanticPosition, 0, common.AttributeTypeFloat3, 12},
		{common.SemanticColor, 0, common.AttributeTypeRGBA, 4},
		{common.SemanticTexCoord, 0, common.AttributeTypeFloat2, 8},
		{common.SemanticTexCoord, 1, common.AttributeTypeHalf2, 4},
		{common.SemanticBlendIndices, 0, common.AttributeTypeShort4, 8},
	}
	offset := 0
	for _, d := range decls {
		require.NoError(t, vb.AddAttribute(d.semantic, d.channel, d.t))
		a, ok := vb.Attribute(d.semantic, d.channel)
		require.True(t, ok)
		assert.Equal(t, offset, a.Offset)
		assert.Equal(t, d.size, a.Size)
		offset += d.size
	}
	assert.Equal(t, offset, vb.VertexSize())
	assert.Equal(t, offset, vb.ElementSize())
	assert.Equal(t, len(decls), vb.NumAttributes())
	assert.Equal(t, common.SemanticTexCoord, vb.AttributeAt(3).Semantic)
}

func TestAddAttributeConflicts(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "conflicts")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))

	cases := map[string]struct {
		semantic common.Semantic
		channel  int
		t        common.AttributeType
	}{
		"duplicate":          {common.SemanticPosition, 0, common.AttributeTypeFloat4},
		"position channel 2": {common.SemanticPosition, 2, common.AttributeTypeFloat3},
		"color channel 3":    {common.SemanticColor, 3, common.AttributeTypeRGBA},
		"normal float2":      {common.SemanticNormal, 0, common.AttributeTypeFloat2},
		"tangent short4":     {common.SemanticTangent, 0, common.AttributeTypeShort4},
		"color float4":       {common.SemanticColor, 0, common.AttributeTypeFloat4},
		"negative channel":   {common.SemanticTexCoord, -1, common.AttributeTypeFloat2},
	}
	for name, c := range cases {
		err := vb.AddAttribute(c.semantic, c.channel, c.t)
		assert.ErrorIs(t, err, ErrDeclarationConflict, name)
	}
	assert.Equal(t, 1, vb.NumAttributes())
	assert.Equal(t, 12, vb.VertexSize())

	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 1, common.AttributeTypeFloat3))
	require.NoError(t, vb.AddAttribute(common.SemanticBinormal, 0, common.AttributeTypeHalf3))
	require.NoError(t, vb.AddAttribute(common.SemanticTexCoord, 7, common.AttributeTypeFloat2))
}

func TestAddAttributeUnsupported(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(null_backend.WithHalfFloat(false)), "nohalf")
	err := vb.AddAttribute(common.SemanticTexCoord, 0, common.AttributeTypeHalf2)
	assert.ErrorIs(t, err, ErrUnsupportedOnBackend)
	assert.Equal(t, 0, vb.NumAttributes())
	assert.Equal(t, 0, vb.VertexSize())
}

func TestClearAttributes(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "clear")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.Allocate(2, common.UsageStatic, false))
	assert.ErrorIs(t, vb.ClearAttributes(), ErrLayoutFrozen)

	require.NoError(t, vb.Clear())
	require.NoError(t, vb.ClearAttributes())
	assert.Equal(t, 0, vb.VertexSize())
	_, ok := vb.Attribute(common.SemanticPosition, 0)
	assert.False(t, ok)
}

func TestAllocateWithoutAttributes(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "empty")
	assert.Error(t, vb.Allocate(4, common.UsageStatic, false))
}

func TestReallocationPreservesData(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "quad")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.AddAttribute(common.SemanticTexCoord, 0, common.AttributeTypeFloat2))
	assert.Equal(t, 20, vb.VertexSize())
	tc, _ := vb.Attribute(common.SemanticTexCoord, 0)
	assert.Equal(t, 12, tc.Offset)

	require.NoError(t, vb.Allocate(4, common.UsageDynamic, false))
	_, err := vb.Lock(common.LockWriteOnly)
	require.NoError(t, err)
	require.NoError(t, vb.SetFloat(0, common.SemanticPosition, 0, [4]float32{1, 2, 3}))
	require.NoError(t, vb.Unlock())

	require.NoError(t, vb.AddAttribute(common.SemanticNormal, 0, common.AttributeTypeFloat3))
	assert.Equal(t, 32, vb.VertexSize())
	assert.Equal(t, 4, vb.NumElements())
	assert.Equal(t, 128, vb.Size())

	pos, _ := vb.Attribute(common.SemanticPosition, 0)
	tc, _ = vb.Attribute(common.SemanticTexCoord, 0)
	normal, _ := vb.Attribute(common.SemanticNormal, 0)
	assert.Equal(t, 0, pos.Offset)
	assert.Equal(t, 12, tc.Offset)
	assert.Equal(t, 20, normal.Offset)

	_, err = vb.Lock(common.LockReadOnly)
	require.NoError(t, err)
	p, err := vb.Float(0, common.SemanticPosition, 0)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{1, 2, 3, 0}, p)
	require.NoError(t, vb.Unlock())
}

func TestReallocationPreservesEveryAttribute(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "sentinel")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.AddAttribute(common.SemanticColor, 0, common.AttributeTypeRGBA))
	require.NoError(t, vb.AddAttribute(common.SemanticTexCoord, 0, common.AttributeTypeShort2))

	const count = 5
	require.NoError(t, vb.Allocate(count, common.UsageStatic, false))
	_, err := vb.Lock(common.LockReadWrite)
	require.NoError(t, err)
	for i := range count {
		for _, a := range vb.Attributes() {
			at, err := vb.AttributeData(i, a.Semantic, a.Channel)
			require.NoError(t, err)
			for j := range at {
				at[j] = byte(i*31 + a.Offset + j)
			}
		}
	}
	require.NoError(t, vb.Unlock())
	before := append([]byte(nil), snapshot(t, vb)...)
	oldStride := vb.VertexSize()

	require.NoError(t, vb.AddAttribute(common.SemanticFogCoord, 0, common.AttributeTypeFloat1))
	after := snapshot(t, vb)
	newStride := vb.VertexSize()
	require.Equal(t, oldStride+4, newStride)
	for i := range count {
		assert.Equal(t, before[i*oldStride:(i+1)*oldStride], after[i*newStride:i*newStride+oldStride], "vertex %d", i)
	}
}

func TestAddAttributeForcesUnlock(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "locked")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat1))
	require.NoError(t, vb.Allocate(1, common.UsageStatic, false))

	data, err := vb.Lock(common.LockReadWrite)
	require.NoError(t, err)
	data[0] = 0xff
	require.NoError(t, vb.AddAttribute(common.SemanticPointSize, 0, common.AttributeTypeFloat1))
	assert.False(t, vb.IsLocked())
	assert.Equal(t, byte(0), snapshot(t, vb)[0])
}

func TestCopyFrom(t *testing.T) {
	src := NewVertexBuffer(null_backend.NewDevice(), "src")
	require.NoError(t, src.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat2))
	require.NoError(t, src.AddAttribute(common.SemanticColor, 0, common.AttributeTypeRGBA))
	require.NoError(t, src.Allocate(2, common.UsageStatic, false))
	_, err := src.Lock(common.LockWriteOnly)
	require.NoError(t, err)
	require.NoError(t, src.SetFloat(1, common.SemanticPosition, 0, [4]float32{4, 5}))
	require.NoError(t, src.SetColor(1, 0, [4]float32{1, 0, 0, 1}))
	require.NoError(t, src.Unlock())

	dst := NewVertexBuffer(null_backend.NewDevice(null_backend.WithPackedColor(false)), "dst")
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, 24, dst.VertexSize())
	assert.Equal(t, 2, dst.NumElements())

	_, err = dst.Lock(common.LockReadOnly)
	require.NoError(t, err)
	p, err := dst.Float(1, common.SemanticPosition, 0)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{4, 5, 0, 0}, p)
	c, err := dst.Color(1, 0)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, c)
	require.NoError(t, dst.Unlock())
}

func TestLayoutSurvivesDeviceLoss(t *testing.T) {
	reg := resource.NewRegistry()
	d := null_backend.NewDevice()
	vb := NewVertexBuffer(d, "lost", buffer.WithTracker(reg))
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.Allocate(1, common.UsageStatic, false))
	_, err := vb.Lock(common.LockWriteOnly)
	require.NoError(t, err)
	require.NoError(t, vb.SetFloat(0, common.SemanticPosition, 0, [4]float32{7, 8, 9}))
	require.NoError(t, vb.Unlock())

	require.NoError(t, reg.BackupAll())
	assert.ErrorIs(t, vb.AddAttribute(common.SemanticNormal, 0, common.AttributeTypeFloat3), resource.ErrNotLive)
	require.NoError(t, reg.RestoreAll())

	_, err = vb.Lock(common.LockReadOnly)
	require.NoError(t, err)
	p, err := vb.Float(0, common.SemanticPosition, 0)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{7, 8, 9, 0}, p)
	require.NoError(t, vb.Unlock())
}

func TestClearAttributesWhileBackedUp(t *testing.T) {
	vb := NewVertexBuffer(null_backend.NewDevice(), "backed-up")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.Allocate(4, common.UsageStatic, false))
	_, err := vb.Lock(common.LockWriteOnly)
	require.NoError(t, err)
	for i := range 4 {
		require.NoError(t, vb.SetFloat(i, common.SemanticPosition, 0, [4]float32{float32(i), 2, 3}))
	}
	require.NoError(t, vb.Unlock())
	before := snapshot(t, vb)

	blob, err := vb.Backup()
	require.NoError(t, err)
	assert.ErrorIs(t, vb.ClearAttributes(), resource.ErrNotLive)
	assert.Equal(t, 12, vb.VertexSize())
	assert.Equal(t, 12, vb.ElementSize())
	assert.Equal(t, 1, vb.NumAttributes())

	require.NoError(t, vb.Restore(blob))
	assert.Equal(t, resource.StateLive, vb.State())
	assert.Equal(t, before, snapshot(t, vb))
}

func TestReallocationRollsBackFailedCopy(t *testing.T) {
	d := &flakyDevice{Device: null_backend.NewDevice()}
	vb := NewVertexBuffer(d, "rollback")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.Allocate(2, common.UsageStatic, false))
	_, err := vb.Lock(common.LockWriteOnly)
	require.NoError(t, err)
	require.NoError(t, vb.SetFloat(0, common.SemanticPosition, 0, [4]float32{1, 2, 3}))
	require.NoError(t, vb.SetFloat(1, common.SemanticPosition, 0, [4]float32{4, 5, 6}))
	require.NoError(t, vb.Unlock())
	before := snapshot(t, vb)

	// The copy into the wider allocation fails; the rollback's own write goes through.
	d.failWrites = 1
	require.Error(t, vb.AddAttribute(common.SemanticNormal, 0, common.AttributeTypeFloat3))

	assert.Equal(t, 12, vb.VertexSize())
	assert.Equal(t, 12, vb.ElementSize())
	assert.Equal(t, 1, vb.NumAttributes())
	assert.Equal(t, 2, vb.NumElements())
	require.True(t, vb.IsAllocated())
	assert.Equal(t, before, snapshot(t, vb))

	require.NoError(t, vb.AddAttribute(common.SemanticNormal, 0, common.AttributeTypeFloat3))
	assert.Equal(t, 24, vb.VertexSize())
}
