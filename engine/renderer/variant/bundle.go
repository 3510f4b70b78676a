package variant

import "github.com/Carmen-Shannon/oxy-hal/engine/renderer/program"

// Bundle holds the handles a rendering pass resolved from a variant's program, so that later frames skip
// reflection. UserData is free for the pass to use and is dropped together with the handles.
type Bundle struct {
	Attributes map[string]program.AttributeHandle
	Uniforms   map[string]program.UniformHandle
	UserData   any
}

// Attribute returns the handle resolved for name.
func (b *Bundle) Attribute(name string) (program.AttributeHandle, bool) {
	h, ok := b.Attributes[name]
	return h, ok
}

// Uniform returns the handle resolved for name.
func (b *Bundle) Uniform(name string) (program.UniformHandle, bool) {
	h, ok := b.Uniforms[name]
	return h, ok
}
