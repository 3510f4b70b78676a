package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fogVS = `#version 330
in vec3 position;
#ifdef FOG
out float vFog;
#endif
void main() {
#ifdef FOG
	vFog = clamp(position.z * 0.1, 0.0, 1.0);
#endif
	gl_Position = vec4(position, 1.0);
}
`

const fogFS = `#version 330
#ifdef FOG
in float vFog;
#endif
#ifdef BROKEN
in vec3 vMissing;
#endif
out vec4 color;
void main() {
	color = vec4(1.0);
#ifdef FOG
	color.rgb = mix(color.rgb, vec3(0.5), vFog);
#endif
#ifdef BROKEN
	color.rgb = vMissing;
#endif
}
`

const tintWGSL = `@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
#ifdef TINT
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
#else
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
#endif
}
`

func fogManifest() *config.Manifest {
	return &config.Manifest{
		Name:     "fog",
		Language: "glsl",
		Vertex:   config.StageTemplate{Source: fogVS},
		Fragment: config.StageTemplate{Source: fogFS},
		Flags: []config.ManifestFlag{
			{Name: "FOG", Stage: "both"},
			{Name: "BROKEN", Stage: "fragment"},
		},
	}
}

func TestValidateManifestGLSL(t *testing.T) {
	reports, err := validateManifest(fogManifest(), 3)
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, statusOK, reports[0].Status)
	assert.Empty(t, reports[0].Names)
	assert.Equal(t, statusOK, reports[1].Status)
	assert.Equal(t, []string{"FOG"}, reports[1].Names)
	assert.Equal(t, statusLinkFailed, reports[2].Status)
	assert.Error(t, reports[2].Err)
	assert.Equal(t, statusLinkFailed, reports[3].Status)
	assert.Equal(t, []string{"FOG", "BROKEN"}, reports[3].Names)

	// BROKEN only touches the fragment template.
	assert.Equal(t, reports[0].VertexHash, reports[2].VertexHash)
	assert.NotEqual(t, reports[0].FragmentHash, reports[2].FragmentHash)
	assert.NotEqual(t, reports[0].VertexHash, reports[1].VertexHash)

	table := renderVariantTable(reports)
	assert.Contains(t, table, "FOG,BROKEN")
	assert.Contains(t, table, statusLinkFailed)
}

func TestValidateManifestTemplateError(t *testing.T) {
	m := fogManifest()
	m.Fragment.Source = fogFS + "#ifdef FOG\n"

	reports, err := validateManifest(m, 1)
	require.NoError(t, err)
	for _, r := range reports {
		assert.Equal(t, statusTemplate, r.Status)
		assert.Empty(t, r.FragmentHash)
	}
}

func TestValidateManifestWGSL(t *testing.T) {
	m := &config.Manifest{
		Name:     "tint",
		Language: "WGSL",
		Vertex:   config.StageTemplate{Source: tintWGSL},
		Fragment: config.StageTemplate{Source: tintWGSL},
		Flags:    []config.ManifestFlag{{Name: "TINT", Stage: "fragment"}},
	}

	reports, err := validateManifest(m, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.OK(), "%v: %v", r.Names, r.Err)
	}
	assert.Equal(t, reports[0].VertexHash, reports[1].VertexHash)
	assert.NotEqual(t, reports[0].FragmentHash, reports[1].FragmentHash)
}

func TestValidateManifestRejects(t *testing.T) {
	m := fogManifest()
	m.Language = "hlsl"
	_, err := validateManifest(m, 1)
	assert.Error(t, err)

	m = fogManifest()
	m.Flags = nil
	for i := range maxManifestFlags + 1 {
		m.Flags = append(m.Flags, config.ManifestFlag{Name: fmt.Sprintf("F%d", i), Stage: "both"})
	}
	_, err = validateManifest(m, 1)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "at most 12 flags"))
}
