package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const texturedVS = `#version 330
in vec3 position;
out vec2 vUV;
void main() {
	vUV = position.xy;
	gl_Position = vec4(position, 1.0);
}
`

const texturedFS = `#version 330
in vec2 vUV;
uniform sampler2D albedo;
out vec4 color;
void main() {
	color = texture(albedo, vUV);
}
`

const variantFS = `#version 330
in vec2 vUV;
uniform sampler2D albedo;
out vec4 color;
void main() {
	color = texture(albedo, vUV);
#ifdef GRAYSCALE
	color = vec4(vec3(dot(color.rgb, vec3(0.299, 0.587, 0.114))), color.a);
#endif
}
`

func TestNewRendererDefaultsToDeviceLanguage(t *testing.T) {
	r := NewRenderer(null_backend.NewDevice())
	assert.Equal(t, common.LanguageGLSL, r.ShaderLanguage())

	r = NewRenderer(null_backend.NewDevice(), WithShaderLanguage(common.LanguageWGSL))
	assert.Equal(t, common.LanguageWGSL, r.ShaderLanguage())

	assert.Panics(t, func() {
		NewRenderer(null_backend.NewDevice(null_backend.WithLanguages(common.LanguageGLSL)), WithShaderLanguage(common.LanguageWGSL))
	})
}

func TestSetShaderLanguage(t *testing.T) {
	r := NewRenderer(null_backend.NewDevice(null_backend.WithLanguages(common.LanguageGLSL)))

	err := r.SetShaderLanguage(common.LanguageWGSL)
	assert.ErrorIs(t, err, backend.ErrUnsupported)
	assert.Equal(t, common.LanguageGLSL, r.ShaderLanguage())
	assert.NoError(t, r.SetShaderLanguage(common.LanguageGLSL))
}

func TestFactoriesTrackResources(t *testing.T) {
	r := NewRenderer(null_backend.NewDevice())

	vb := r.NewVertexBuffer("quad")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.Allocate(4, common.UsageStatic, false))

	vs := r.NewStage("textured.vert", common.StageVertex, common.LanguageGLSL, texturedVS)
	fs := r.NewStage("textured.frag", common.StageFragment, common.LanguageGLSL, texturedFS)
	p := r.NewProgram("textured", program.WithStages(vs, fs))
	state, err := p.EnsureLinked()
	require.NoError(t, err)
	require.Equal(t, program.Linked, state)

	ib := r.NewIndexBuffer("quad.idx", common.IndexUShort)

	stats := r.Stats()
	assert.Equal(t, 5, stats.Tracked)
	assert.Equal(t, 4, stats.Live, "the unallocated index buffer stays virtual")
	assert.Equal(t, 1, stats.Programs)
	assert.Equal(t, 1, stats.LinkAttempts)
	assert.Equal(t, 0, stats.Variants)
	assert.False(t, stats.Lost)

	ib.Destroy()
	assert.Equal(t, 4, r.Registry().Len())
}

func TestDeviceLossRoundTrip(t *testing.T) {
	r := NewRenderer(null_backend.NewDevice())

	vb := r.NewVertexBuffer("tri")
	require.NoError(t, vb.AddAttribute(common.SemanticPosition, 0, common.AttributeTypeFloat3))
	require.NoError(t, vb.Allocate(3, common.UsageStatic, false))
	_, err := vb.Lock(common.LockWriteOnly)
	require.NoError(t, err)
	for i := range 3 {
		require.NoError(t, vb.SetFloat(i, common.SemanticPosition, 0, [4]float32{float32(i), 1, 2, 0}))
	}
	require.NoError(t, vb.Unlock())

	vs := r.NewStage("textured.vert", common.StageVertex, common.LanguageGLSL, texturedVS)
	fs := r.NewStage("textured.frag", common.StageFragment, common.LanguageGLSL, texturedFS)
	p := r.NewProgram("textured", program.WithStages(vs, fs))
	_, err = p.EnsureLinked()
	require.NoError(t, err)

	require.NoError(t, r.DeviceLost())
	assert.True(t, r.Stats().Lost)
	assert.Equal(t, resource.StateBackedUp, vb.State())
	assert.Equal(t, program.Unlinked, p.LinkState())
	assert.Equal(t, 0, r.Stats().Live)

	// A second loss before the restore changes nothing.
	require.NoError(t, r.DeviceLost())

	require.NoError(t, r.DeviceRestored())
	assert.False(t, r.Stats().Lost)
	assert.Equal(t, resource.StateLive, vb.State())

	_, err = vb.Lock(common.LockReadOnly)
	require.NoError(t, err)
	for i := range 3 {
		v, err := vb.Float(i, common.SemanticPosition, 0)
		require.NoError(t, err)
		assert.Equal(t, [4]float32{float32(i), 1, 2, 0}, v)
	}
	require.NoError(t, vb.Unlock())

	state, err := p.EnsureLinked()
	require.NoError(t, err)
	assert.Equal(t, program.Linked, state)
	assert.Equal(t, 2, r.Stats().LinkAttempts)
}

func TestVariantCacheFollowsShaderLanguage(t *testing.T) {
	r := NewRenderer(null_backend.NewDevice())
	c := r.NewVariantCache("textured",
		variant.WithSource(common.LanguageGLSL, texturedVS, variantFS),
		variant.WithFlag("GRAYSCALE", variant.ScopeFragment),
	)

	gray := c.Flag("GRAYSCALE")
	v, err := c.Variant(gray)
	require.NoError(t, err)
	require.True(t, v.Usable())
	assert.Contains(t, v.FragmentSource(), "#define GRAYSCALE")

	stats := r.Stats()
	assert.Equal(t, 1, stats.Variants)
	assert.Equal(t, 1, stats.Programs)
	assert.Equal(t, 3, stats.Tracked)

	require.NoError(t, r.SetShaderLanguage(common.LanguageWGSL))
	assert.Equal(t, 0, c.Len())
	stats = r.Stats()
	assert.Equal(t, 0, stats.Variants)
	assert.Equal(t, 0, stats.Programs)
	assert.Equal(t, 0, stats.Tracked, "old-language stages and programs leave the device-loss sweep")
	assert.Equal(t, resource.StateDestroyed, v.Program().State())

	_, err = c.Variant(gray)
	assert.ErrorIs(t, err, variant.ErrNoSource)
	assert.Equal(t, common.LanguageWGSL, c.Language())
	assert.Equal(t, 0, r.Stats().Variants)
	assert.Equal(t, resource.StateDestroyed, v.Program().State())
}

func TestRelease(t *testing.T) {
	d := null_backend.NewDevice()
	r := NewRenderer(d)

	b := r.NewBuffer("raw")
	require.NoError(t, b.SetElementSize(16))
	require.NoError(t, b.Allocate(8, common.UsageDynamic, false))
	c := r.NewVariantCache("textured", variant.WithSource(common.LanguageGLSL, texturedVS, texturedFS))
	_, err := c.Variant(0)
	require.NoError(t, err)
	require.Equal(t, 1, d.LiveBuffers())

	r.Release()
	assert.Equal(t, 0, r.Registry().Len())
	assert.Equal(t, 0, d.LiveBuffers())
	assert.Equal(t, resource.StateDestroyed, b.State())

	// Releasing twice is harmless.
	r.Release()
}

func TestOpenDevice(t *testing.T) {
	cfg := config.Default()
	no := false
	cfg.Null.PackedColor = &no

	d, err := OpenDevice(cfg)
	require.NoError(t, err)
	assert.Equal(t, "null", d.Name())
	assert.Equal(t, 16, d.ResolveAttribute(common.AttributeTypeRGBA).Size)

	cfg.Renderer.Backend = "metal"
	_, err = OpenDevice(cfg)
	assert.Error(t, err)
}
