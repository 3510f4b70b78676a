package shader

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `#version 330
in vec3 position;
void main() {
	gl_Position = vec4(position, 1.0);
}
`

func TestStageCompileIsCached(t *testing.T) {
	d := null_backend.NewDevice()
	s := NewStage(d, "vs", common.StageVertex, common.LanguageGLSL, vertexSource)
	assert.Equal(t, resource.StateVirtual, s.State())
	assert.Nil(t, s.Handle())
	assert.Equal(t, "main", s.EntryPoint())

	h, err := s.Compile()
	require.NoError(t, err)
	again, err := s.Compile()
	require.NoError(t, err)
	assert.Same(t, h, again)
	assert.Equal(t, 1, d.StageCompiles())
	assert.Equal(t, resource.StateLive, s.State())
}

func TestStageCompileFailureIsLatched(t *testing.T) {
	d := null_backend.NewDevice()
	s := NewStage(d, "broken", common.StageFragment, common.LanguageGLSL, "void main() {")

	_, err := s.Compile()
	var ce *backend.CompileError
	require.True(t, errors.As(err, &ce))
	assert.NotEmpty(t, s.Diagnostics())

	_, err = s.Compile()
	assert.Error(t, err)
	assert.Equal(t, 1, d.StageCompiles())

	changed := 0
	remove := s.OnChange(func() { changed++ })
	require.NoError(t, s.SetSource("out vec4 c;\nvoid main() { c = vec4(1.0); }"))
	assert.Equal(t, 1, changed)
	assert.Empty(t, s.Diagnostics())

	_, err = s.Compile()
	require.NoError(t, err)
	assert.Equal(t, 2, d.StageCompiles())

	remove()
	require.NoError(t, s.SetSource(vertexSource))
	assert.Equal(t, 1, changed)
}

func TestStageWGSLEntryPoint(t *testing.T) {
	d := null_backend.NewDevice()
	src := "@vertex fn vs_entry(@location(0) p: vec4f) -> @builtin(position) vec4f { return p; }"
	s := NewStage(d, "wgsl", common.StageVertex, common.LanguageWGSL, src)
	assert.Equal(t, "vs_entry", s.EntryPoint())

	explicit := NewStage(d, "named", common.StageVertex, common.LanguageWGSL, src, WithEntryPoint("other"))
	assert.Equal(t, "other", explicit.EntryPoint())
}

func TestGeometryStageSettings(t *testing.T) {
	d := null_backend.NewDevice()
	s := NewStage(d, "gs", common.StageGeometry, common.LanguageGLSL, "void main() {}",
		WithGeometry(common.TopologyPoints, common.TopologyTriangleStrip, 4), WithProfile("150"))
	assert.Equal(t, common.TopologyPoints, s.InputTopology())
	assert.Equal(t, common.TopologyTriangleStrip, s.OutputTopology())
	assert.Equal(t, 4, s.MaxOutputVertices())
	assert.Equal(t, "150", s.Profile())
	_, err := s.Compile()
	require.NoError(t, err)

	bad := NewStage(d, "gs0", common.StageGeometry, common.LanguageGLSL, "void main() {}")
	_, err = bad.Compile()
	assert.Error(t, err)
}

func TestStageBackupRestore(t *testing.T) {
	d := null_backend.NewDevice()
	reg := resource.NewRegistry()
	s := NewStage(d, "vs", common.StageVertex, common.LanguageGLSL, vertexSource, WithTracker(reg))
	_, err := s.Compile()
	require.NoError(t, err)

	require.NoError(t, reg.BackupAll())
	assert.Equal(t, resource.StateBackedUp, s.State())
	assert.Nil(t, s.Handle())
	_, err = s.Compile()
	assert.ErrorIs(t, err, resource.ErrNotLive)

	require.NoError(t, reg.RestoreAll())
	assert.Equal(t, resource.StateVirtual, s.State())
	assert.Nil(t, s.Handle())
	assert.Equal(t, 1, d.StageCompiles(), "restore leaves compilation to the next use")

	_, err = s.Compile()
	require.NoError(t, err)
	assert.Equal(t, resource.StateLive, s.State())
	assert.NotNil(t, s.Handle())
	assert.Equal(t, 2, d.StageCompiles())

	s.Destroy()
	assert.Equal(t, 0, reg.Len())
	_, err = s.Compile()
	assert.ErrorIs(t, err, resource.ErrDestroyed)
}
