package renderer

import (
	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithShaderLanguage sets the initial shader-language family. When not specified, the device's default family is used.
// NewRenderer panics if the device cannot compile the family.
//
// Parameters:
//   - language: the shader-language family
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader language option to a renderer
func WithShaderLanguage(language common.ShaderLanguage) RendererBuilderOption {
	return func(r *renderer) {
		r.language = language
	}
}

// WithLogger replaces the logger the renderer reports context events to.
//
// Parameters:
//   - l: the logger to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(l log.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if l != nil {
			r.logger = l
		}
	}
}
