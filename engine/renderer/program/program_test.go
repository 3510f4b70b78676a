package program

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `#version 330
in vec3 position;
in vec2 uv;
uniform mat4 mvp;
out vec2 vUV;
void main() {
	vUV = uv;
	gl_Position = mvp * vec4(position, 1.0);
}
`

const fragmentSource = `#version 330
in vec2 vUV;
uniform sampler2D albedo;
uniform float exposure;
uniform sampler2D bloom;
out vec4 color;
void main() {
	color = (texture(albedo, vUV) + texture(bloom, vUV)) * exposure;
}
`

const fragmentSwapped = `#version 330
in vec2 vUV;
uniform sampler2D lut;
uniform sampler2D albedo;
out vec4 color;
void main() {
	color = texture(lut, texture(albedo, vUV).xy);
}
`

func stages(d null_backend.Device, tracker resource.Tracker) (shader.Stage, shader.Stage) {
	vs := shader.NewStage(d, "vs", common.StageVertex, common.LanguageGLSL, vertexSource, shader.WithTracker(tracker))
	fs := shader.NewStage(d, "fs", common.StageFragment, common.LanguageGLSL, fragmentSource, shader.WithTracker(tracker))
	return vs, fs
}

func TestFragmentOnlyLinkFailsOnce(t *testing.T) {
	d := null_backend.NewDevice()
	_, fs := stages(d, nil)
	p := NewProgram(d, "fragment-only", common.LanguageGLSL)
	require.NoError(t, p.SetStage(common.StageFragment, fs))

	state, err := p.EnsureLinked()
	assert.Equal(t, LinkFailed, state)
	assert.ErrorIs(t, err, ErrLinkFailure)
	var le *LinkError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Diagnostics, "vertex")
	assert.Equal(t, le.Diagnostics, p.Diagnostics())

	state, err = p.EnsureLinked()
	assert.Equal(t, LinkFailed, state)
	assert.ErrorIs(t, err, ErrLinkFailure)
	assert.Equal(t, 1, d.LinkAttempts())
	assert.Equal(t, 1, p.LinkAttempts())
	assert.ErrorIs(t, p.Activate(), ErrNotLinked)
}

func TestLinkAndReflect(t *testing.T) {
	d := null_backend.NewDevice()
	vs, fs := stages(d, nil)
	p := NewProgram(d, "mesh", common.LanguageGLSL, WithStages(vs, fs))

	_, ok := p.Attribute("position")
	assert.False(t, ok)

	state, err := p.EnsureLinked()
	require.NoError(t, err)
	assert.Equal(t, Linked, state)

	pos, ok := p.Attribute("position")
	require.True(t, ok)
	assert.Equal(t, 0, pos.Location)
	uv, ok := p.Attribute("uv")
	require.True(t, ok)
	assert.Equal(t, 1, uv.Location)

	mvp, ok := p.Uniform("mvp")
	require.True(t, ok)
	assert.Equal(t, -1, mvp.TextureUnit)
	albedo, _ := p.Uniform("albedo")
	bloom, _ := p.Uniform("bloom")
	assert.Equal(t, 0, albedo.TextureUnit)
	assert.Equal(t, 1, bloom.TextureUnit)

	_, ok = p.Uniform("missing")
	assert.False(t, ok)
	assert.Len(t, p.Uniforms(), 4)

	_, err = p.EnsureLinked()
	require.NoError(t, err)
	assert.Equal(t, 1, d.LinkAttempts())
}

func TestSetStageLanguageMismatch(t *testing.T) {
	d := null_backend.NewDevice()
	p := NewProgram(d, "wgsl", common.LanguageWGSL)
	vs, _ := stages(d, nil)
	assert.ErrorIs(t, p.SetStage(common.StageVertex, vs), ErrLanguageMismatch)
	assert.Error(t, p.SetStage(common.StageFragment, vs))
	assert.Nil(t, p.Stage(common.StageVertex))
}

func TestSetStageResetsFailure(t *testing.T) {
	d := null_backend.NewDevice()
	vs, fs := stages(d, nil)
	p := NewProgram(d, "late", common.LanguageGLSL, WithStages(fs))
	state, _ := p.EnsureLinked()
	require.Equal(t, LinkFailed, state)

	dirty := 0
	p.OnDirty(func() { dirty++ })
	require.NoError(t, p.SetStage(common.StageVertex, vs))
	assert.Equal(t, Unlinked, p.LinkState())
	assert.Equal(t, 1, dirty)
	assert.Empty(t, p.Diagnostics())

	state, err := p.EnsureLinked()
	require.NoError(t, err)
	assert.Equal(t, Linked, state)
	assert.Equal(t, 2, d.LinkAttempts())
}

func TestStageSourceChangeRelinksAndKeepsTextureUnits(t *testing.T) {
	d := null_backend.NewDevice()
	vs, fs := stages(d, nil)
	p := NewProgram(d, "units", common.LanguageGLSL, WithStages(vs, fs))
	_, err := p.EnsureLinked()
	require.NoError(t, err)
	albedo, _ := p.Uniform("albedo")
	require.Equal(t, 0, albedo.TextureUnit)

	dirty := 0
	remove := p.OnDirty(func() { dirty++ })
	require.NoError(t, fs.SetSource(fragmentSwapped))
	assert.Equal(t, Unlinked, p.LinkState())
	assert.Equal(t, 1, dirty)
	remove()

	_, err = p.EnsureLinked()
	require.NoError(t, err)
	assert.Equal(t, 2, d.LinkAttempts())

	albedo, _ = p.Uniform("albedo")
	lut, _ := p.Uniform("lut")
	assert.Equal(t, 0, albedo.TextureUnit)
	assert.Equal(t, 2, lut.TextureUnit)
	_, ok := p.Uniform("bloom")
	assert.False(t, ok)
}

func TestCompileFailureSkipsBackendLink(t *testing.T) {
	d := null_backend.NewDevice()
	vs, _ := stages(d, nil)
	broken := shader.NewStage(d, "broken", common.StageFragment, common.LanguageGLSL, "void main() {")
	p := NewProgram(d, "broken", common.LanguageGLSL, WithStages(vs, broken))

	state, err := p.EnsureLinked()
	assert.Equal(t, LinkFailed, state)
	assert.ErrorIs(t, err, ErrLinkFailure)
	assert.Contains(t, p.Diagnostics(), "broken")
	assert.Equal(t, 0, d.LinkAttempts())
}

func TestActivate(t *testing.T) {
	d := null_backend.NewDevice()
	vs, fs := stages(d, nil)
	p := NewProgram(d, "active", common.LanguageGLSL, WithStages(vs, fs))
	assert.ErrorIs(t, p.Activate(), ErrNotLinked)

	_, err := p.EnsureLinked()
	require.NoError(t, err)
	require.NoError(t, p.Activate())
	assert.True(t, p.IsActive())
	assert.NotNil(t, d.CurrentProgram())

	p.Deactivate()
	assert.False(t, p.IsActive())
	assert.Nil(t, d.CurrentProgram())
}

func TestBackupForcesRelink(t *testing.T) {
	d := null_backend.NewDevice()
	reg := resource.NewRegistry()
	vs, fs := stages(d, reg)
	p := NewProgram(d, "lost", common.LanguageGLSL, WithStages(vs, fs), WithTracker(reg))
	_, err := p.EnsureLinked()
	require.NoError(t, err)
	require.NoError(t, p.Activate())

	dirty := 0
	p.OnDirty(func() { dirty++ })
	require.NoError(t, reg.BackupAll())
	assert.Equal(t, resource.StateBackedUp, p.State())
	assert.Equal(t, Unlinked, p.LinkState())
	assert.False(t, p.IsActive())
	assert.Equal(t, 1, dirty)

	_, err = p.EnsureLinked()
	assert.ErrorIs(t, err, resource.ErrNotLive)

	require.NoError(t, reg.RestoreAll())
	state, err := p.EnsureLinked()
	require.NoError(t, err)
	assert.Equal(t, Linked, state)
	assert.Equal(t, 2, d.LinkAttempts())

	p.Destroy()
	assert.Equal(t, 2, reg.Len())
	assert.NotNil(t, vs.Handle())
}
