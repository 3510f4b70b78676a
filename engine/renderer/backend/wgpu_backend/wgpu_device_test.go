package wgpu_backend

import (
	"os"
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const meshWGSL = `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) uv: vec2<f32>,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@group(0) @binding(0) var<uniform> mvp: mat4x4<f32>;
@group(0) @binding(1) var albedo: texture_2d<f32>;
@group(0) @binding(2) var albedo_sampler: sampler;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = mvp * vec4<f32>(in.position, 1.0);
    out.uv = in.uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(albedo, albedo_sampler, in.uv);
}
`

// openDevice opens a real WebGPU device. It needs an adapter, which CI machines lack.
func openDevice(t *testing.T) backend.Device {
	t.Helper()
	if os.Getenv("OXY_HAL_GPU") != "1" {
		t.Skip("set OXY_HAL_GPU=1 to run tests against a WebGPU adapter")
	}
	d, err := NewDevice(WithForceFallbackAdapter(true), WithLabel("test"))
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func TestResolveAttribute(t *testing.T) {
	d := &device{}
	cases := []struct {
		t      common.AttributeType
		size   int
		format wgpu.VertexFormat
	}{
		{common.AttributeTypeRGBA, 4, wgpu.VertexFormatUnorm8x4},
		{common.AttributeTypeFloat3, 12, wgpu.VertexFormatFloat32x3},
		{common.AttributeTypeShort2, 4, wgpu.VertexFormatSint16x2},
		{common.AttributeTypeHalf4, 8, wgpu.VertexFormatFloat16x4},
	}
	for _, c := range cases {
		f := d.ResolveAttribute(c.t)
		assert.Equal(t, c.size, f.Size, c.t.String())
		assert.Equal(t, uint32(c.format), f.TypeCode, c.t.String())
		assert.Equal(t, c.t.Components(), f.Components, c.t.String())
	}

	assert.Zero(t, d.ResolveAttribute(common.AttributeTypeHalf1).Size)
	assert.Zero(t, d.ResolveAttribute(common.AttributeTypeHalf3).Size)
}

func TestOnlyWGSLIsAccepted(t *testing.T) {
	d := &device{}
	assert.Equal(t, []common.ShaderLanguage{common.LanguageWGSL}, d.ShaderLanguages())

	_, err := d.CreateProgram(common.LanguageGLSL)
	assert.ErrorIs(t, err, backend.ErrUnsupported)

	_, err = d.CompileStage(backend.StageDescriptor{Label: "legacy", Kind: common.StageVertex, Language: common.LanguageGLSL})
	assert.ErrorIs(t, err, backend.ErrUnsupported)

	_, err = d.CompileStage(backend.StageDescriptor{Label: "gs", Kind: common.StageGeometry, Language: common.LanguageWGSL})
	assert.ErrorIs(t, err, backend.ErrUnsupported)
}

func TestAligned(t *testing.T) {
	assert.Equal(t, 4, aligned(0))
	assert.Equal(t, 4, aligned(3))
	assert.Equal(t, 8, aligned(8))
	assert.Equal(t, 12, aligned(9))
}

func TestBufferShadow(t *testing.T) {
	d := openDevice(t)

	h, err := d.CreateBuffer(backend.BufferDescriptor{Label: "odd", Size: 6, Managed: true})
	require.NoError(t, err)
	defer h.Destroy()
	assert.Equal(t, 6, h.Size())

	data, err := h.Map(common.LockWriteOnly)
	require.NoError(t, err)
	copy(data, []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, h.Unmap())

	data, err = h.Map(common.LockReadWrite)
	require.NoError(t, err)
	data[0] = 9
	h.Discard()

	dm, ok := h.(backend.DeviceManaged)
	require.True(t, ok)
	dm.Suspend()
	_, err = h.Map(common.LockReadOnly)
	assert.Error(t, err)
	require.NoError(t, dm.Resume())

	data, err = h.Map(common.LockReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, data)
	require.NoError(t, h.Unmap())
}

func TestLinkRenderPipeline(t *testing.T) {
	d := openDevice(t)

	vs, err := d.CompileStage(backend.StageDescriptor{Label: "mesh.vs", Kind: common.StageVertex, Language: common.LanguageWGSL, Source: meshWGSL})
	require.NoError(t, err)
	defer vs.Destroy()
	fs, err := d.CompileStage(backend.StageDescriptor{Label: "mesh.fs", Kind: common.StageFragment, Language: common.LanguageWGSL, Source: meshWGSL})
	require.NoError(t, err)
	defer fs.Destroy()

	p, err := d.CreateProgram(common.LanguageWGSL)
	require.NoError(t, err)
	defer p.Destroy()

	var le *backend.LinkError
	require.ErrorAs(t, p.Link(), &le)
	assert.Contains(t, le.Diagnostics, "no vertex stage")

	require.NoError(t, p.Attach(vs))
	require.NoError(t, p.Attach(fs))
	require.NoError(t, p.Link())
	require.NotNil(t, p.(*program).Pipeline())

	attrs := p.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "position", attrs[0].Name)
	assert.Equal(t, 1, attrs[1].Handle)

	uniforms := p.Uniforms()
	require.Len(t, uniforms, 3)
	assert.Equal(t, 1, uniforms[1].Handle)
	assert.True(t, uniforms[1].Sampler)

	require.NoError(t, p.Bind())
	p.Detach(fs)
	assert.Nil(t, p.Uniforms())
}
