package variant

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/program"
)

// Variant is one cache entry: the synthesized sources of a flag combination, the program built from them and the
// handle bundle of the rendering pass that uses it. A variant whose program failed to link stays cached and
// reports Usable false.
type Variant struct {
	flags          FlagSet
	vertexSource   string
	fragmentSource string
	program        program.Program
	bundle         *Bundle
	removeDirty    func()
}

func newVariant(flags FlagSet, vertexSource, fragmentSource string, p program.Program) *Variant {
	v := &Variant{
		flags:          flags,
		vertexSource:   vertexSource,
		fragmentSource: fragmentSource,
		program:        p,
	}
	v.removeDirty = p.OnDirty(func() {
		v.bundle = nil
	})
	return v
}

func (v *Variant) Flags() FlagSet {
	return v.flags
}

func (v *Variant) VertexSource() string {
	return v.vertexSource
}

func (v *Variant) FragmentSource() string {
	return v.fragmentSource
}

// Program returns the variant's program. It is never nil, even for a variant that failed to link.
func (v *Variant) Program() program.Program {
	return v.program
}

// Usable reports whether the program is linked, linking it again if a device loss reset it. A failed link is
// not retried.
func (v *Variant) Usable() bool {
	state, _ := v.program.EnsureLinked()
	return state == program.Linked
}

// Err returns the link failure of the variant, or nil.
func (v *Variant) Err() error {
	_, err := v.program.EnsureLinked()
	return err
}

// Bundle returns the resolved handle bundle, or nil if none was resolved since the program last changed.
func (v *Variant) Bundle() *Bundle {
	return v.bundle
}

// Resolve returns the bundle, resolving the named attributes and uniforms on first use. Names the program does
// not declare are left out of the bundle.
//
// Parameters:
//   - attributes: the vertex input names the pass binds
//   - uniforms: the uniform names the pass sets
//
// Returns:
//   - *Bundle: the cached bundle
//   - error: the link failure if the variant is not usable
func (v *Variant) Resolve(attributes, uniforms []string) (*Bundle, error) {
	if v.bundle != nil {
		return v.bundle, nil
	}
	if _, err := v.program.EnsureLinked(); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", v.program.Label(), err)
	}

	b := &Bundle{
		Attributes: make(map[string]program.AttributeHandle, len(attributes)),
		Uniforms:   make(map[string]program.UniformHandle, len(uniforms)),
	}
	for _, name := range attributes {
		if h, ok := v.program.Attribute(name); ok {
			b.Attributes[name] = h
		}
	}
	for _, name := range uniforms {
		if h, ok := v.program.Uniform(name); ok {
			b.Uniforms[name] = h
		}
	}
	v.bundle = b
	return b, nil
}

func (v *Variant) destroy() {
	v.removeDirty()
	v.bundle = nil
	v.program.Destroy()
}
