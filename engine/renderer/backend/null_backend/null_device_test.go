package null_backend

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const glslVertex = `#version 330
in vec3 position;
in vec2 uv;
uniform mat4 mvp;
out vec2 vUV;
void main() {
	vUV = uv;
	gl_Position = mvp * vec4(position, 1.0);
}
`

const glslFragment = `#version 330
in vec2 vUV;
uniform sampler2D albedo;
out vec4 color;
void main() {
	color = texture(albedo, vUV);
}
`

func compile(t *testing.T, d Device, kind common.StageKind, lang common.ShaderLanguage, src string) backend.StageHandle {
	t.Helper()
	h, err := d.CompileStage(backend.StageDescriptor{Label: kind.String(), Kind: kind, Language: lang, Source: src, EntryPoint: "main"})
	require.NoError(t, err)
	return h
}

func TestResolveAttribute(t *testing.T) {
	d := NewDevice()
	assert.Equal(t, 12, d.ResolveAttribute(common.AttributeTypeFloat3).Size)
	assert.Equal(t, 4, d.ResolveAttribute(common.AttributeTypeRGBA).Size)
	assert.Equal(t, 8, d.ResolveAttribute(common.AttributeTypeShort4).Size)
	assert.Equal(t, 6, d.ResolveAttribute(common.AttributeTypeHalf3).Size)

	gl := NewDevice(WithHalfFloat(false), WithPackedColor(false))
	assert.Equal(t, 0, gl.ResolveAttribute(common.AttributeTypeHalf2).Size)
	assert.Equal(t, 16, gl.ResolveAttribute(common.AttributeTypeRGBA).Size)
}

func TestBufferMapDiscardAndSuspend(t *testing.T) {
	d := NewDevice()
	h, err := d.CreateBuffer(backend.BufferDescriptor{Label: "b", Size: 4, Managed: true})
	require.NoError(t, err)
	assert.Equal(t, 1, d.LiveBuffers())

	data, err := h.Map(common.LockWriteOnly)
	require.NoError(t, err)
	copy(data, []byte{1, 2, 3, 4})
	require.NoError(t, h.Unmap())

	data, err = h.Map(common.LockReadWrite)
	require.NoError(t, err)
	data[0] = 99
	h.Discard()

	data, err = h.Map(common.LockReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
	require.NoError(t, h.Unmap())

	dm, ok := h.(backend.DeviceManaged)
	require.True(t, ok)
	dm.Suspend()
	_, err = h.Map(common.LockReadOnly)
	assert.Error(t, err)
	require.NoError(t, dm.Resume())

	data, err = h.Map(common.LockReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
	require.NoError(t, h.Unmap())
	assert.Equal(t, 4, d.BufferMaps())

	h.Destroy()
	assert.Equal(t, 0, d.LiveBuffers())
}

func TestCompileGLSL(t *testing.T) {
	d := NewDevice()
	compile(t, d, common.StageVertex, common.LanguageGLSL, glslVertex)

	_, err := d.CompileStage(backend.StageDescriptor{Label: "broken", Kind: common.StageFragment, Language: common.LanguageGLSL, Source: "void main() {"})
	var ce *backend.CompileError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Diagnostics, "unclosed")

	_, err = d.CompileStage(backend.StageDescriptor{Label: "noentry", Kind: common.StageFragment, Language: common.LanguageGLSL, Source: "void other() {}"})
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Diagnostics, "main")
	assert.Equal(t, 3, d.StageCompiles())
}

func TestCompileUnsupportedLanguage(t *testing.T) {
	d := NewDevice(WithLanguages(common.LanguageGLSL))
	_, err := d.CompileStage(backend.StageDescriptor{Kind: common.StageVertex, Language: common.LanguageWGSL, Source: "x"})
	assert.ErrorIs(t, err, backend.ErrUnsupported)

	_, err = d.CreateProgram(common.LanguageWGSL)
	assert.ErrorIs(t, err, backend.ErrUnsupported)
}

func TestLinkGLSL(t *testing.T) {
	d := NewDevice()
	p, err := d.CreateProgram(common.LanguageGLSL)
	require.NoError(t, err)

	fs := compile(t, d, common.StageFragment, common.LanguageGLSL, glslFragment)
	require.NoError(t, p.Attach(fs))

	var le *backend.LinkError
	require.True(t, errors.As(p.Link(), &le))
	assert.Contains(t, le.Diagnostics, "vertex")
	assert.Equal(t, 1, d.LinkAttempts())

	vs := compile(t, d, common.StageVertex, common.LanguageGLSL, glslVertex)
	require.NoError(t, p.Attach(vs))
	require.NoError(t, p.Link())
	assert.Equal(t, 2, d.LinkAttempts())

	attrs := p.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "position", attrs[0].Name)
	assert.Equal(t, "uv", attrs[1].Name)

	uniforms := p.Uniforms()
	require.Len(t, uniforms, 2)
	assert.Equal(t, "mvp", uniforms[0].Name)
	assert.False(t, uniforms[0].Sampler)
	assert.Equal(t, "albedo", uniforms[1].Name)
	assert.True(t, uniforms[1].Sampler)

	require.NoError(t, p.Bind())
	assert.Equal(t, p, d.CurrentProgram())
	p.Unbind()
	assert.Nil(t, d.CurrentProgram())
}

func TestLinkGLSLVaryingMismatch(t *testing.T) {
	d := NewDevice()
	p, err := d.CreateProgram(common.LanguageGLSL)
	require.NoError(t, err)

	vs := compile(t, d, common.StageVertex, common.LanguageGLSL, "in vec3 position;\nvoid main() { gl_Position = vec4(position, 1.0); }\n")
	fs := compile(t, d, common.StageFragment, common.LanguageGLSL, glslFragment)
	require.NoError(t, p.Attach(vs))
	require.NoError(t, p.Attach(fs))

	var le *backend.LinkError
	require.True(t, errors.As(p.Link(), &le))
	assert.Contains(t, le.Diagnostics, "vUV")
	assert.Error(t, p.Bind())
}

func TestAttachLanguageMismatch(t *testing.T) {
	d := NewDevice()
	p, err := d.CreateProgram(common.LanguageWGSL)
	require.NoError(t, err)
	vs := compile(t, d, common.StageVertex, common.LanguageGLSL, glslVertex)
	assert.Error(t, p.Attach(vs))
}
