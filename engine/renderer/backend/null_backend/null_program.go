package null_backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader/reflection"
)

// program links the attached stages by checking their interfaces against each other and
// reflects the result with the source parsers.
type program struct {
	device   *device
	language common.ShaderLanguage
	stages   map[common.StageKind]*stageHandle

	linked     bool
	attributes []backend.AttributeInfo
	uniforms   []backend.UniformInfo
	destroyed  bool
}

var _ backend.ProgramHandle = &program{}

func (p *program) Attach(h backend.StageHandle) error {
	if p.destroyed {
		return errors.New("null: program is destroyed")
	}
	s, ok := h.(*stageHandle)
	if !ok || s.device != p.device {
		return errors.New("null: stage belongs to another device")
	}
	if s.language != p.language {
		return fmt.Errorf("null: cannot attach %s stage %q to a %s program", s.language, s.label, p.language)
	}
	p.stages[s.kind] = s
	p.linked = false
	return nil
}

func (p *program) Detach(h backend.StageHandle) {
	s, ok := h.(*stageHandle)
	if !ok {
		return
	}
	if p.stages[s.kind] == s {
		delete(p.stages, s.kind)
		p.linked = false
	}
}

func (p *program) Link() error {
	p.device.mu.Lock()
	p.device.linkAttempts++
	p.device.mu.Unlock()

	p.linked = false
	p.attributes = nil
	p.uniforms = nil

	if p.destroyed {
		return &backend.LinkError{Diagnostics: "program is destroyed"}
	}
	vs := p.stages[common.StageVertex]
	if vs == nil {
		return &backend.LinkError{Diagnostics: "no vertex stage attached"}
	}
	if gs := p.stages[common.StageGeometry]; gs != nil && p.stages[common.StageFragment] == nil {
		return &backend.LinkError{Diagnostics: "geometry stage attached without a fragment stage"}
	}

	var diag []string
	if p.language == common.LanguageGLSL {
		diag = p.checkGLSLInterfaces()
	}
	uniforms, conflicts := p.reflectUniforms()
	diag = append(diag, conflicts...)
	if len(diag) > 0 {
		return &backend.LinkError{Diagnostics: strings.Join(diag, "\n")}
	}

	p.attributes = p.reflectAttributes(vs)
	p.uniforms = uniforms
	p.linked = true
	return nil
}

// checkGLSLInterfaces reports every stage input no earlier stage writes.
func (p *program) checkGLSLInterfaces() []string {
	var diag []string
	order := []common.StageKind{common.StageVertex, common.StageGeometry, common.StageFragment}
	var produced map[string]string
	for _, kind := range order {
		s := p.stages[kind]
		if s == nil {
			continue
		}
		inputs, outputs := reflection.GLSLVaryings(s.source, kind)
		if produced != nil {
			for _, in := range inputs {
				typeName, ok := produced[in.Name]
				switch {
				case !ok:
					diag = append(diag, fmt.Sprintf("%s input %q is not written by the previous stage", kind, in.Name))
				case typeName != in.TypeName:
					diag = append(diag, fmt.Sprintf("%s input %q has type %s, previous stage writes %s", kind, in.Name, in.TypeName, typeName))
				}
			}
		}
		produced = make(map[string]string, len(outputs))
		for _, out := range outputs {
			produced[out.Name] = out.TypeName
		}
	}
	return diag
}

func (p *program) reflectAttributes(vs *stageHandle) []backend.AttributeInfo {
	var attrs []reflection.Attribute
	if p.language == common.LanguageWGSL {
		attrs = reflection.WGSLVertexInputs(vs.source)
	} else {
		attrs = reflection.GLSLAttributes(vs.source)
	}
	out := make([]backend.AttributeInfo, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, backend.AttributeInfo{Name: a.Name, Handle: a.Location, TypeName: a.TypeName})
	}
	return out
}

// reflectUniforms merges the uniforms of all stages in stage order. A name declared by several stages must agree
// on its type; the first declaration wins.
func (p *program) reflectUniforms() ([]backend.UniformInfo, []string) {
	var out []backend.UniformInfo
	var conflicts []string
	seen := make(map[string]int)

	for _, kind := range []common.StageKind{common.StageVertex, common.StageGeometry, common.StageFragment} {
		s := p.stages[kind]
		if s == nil {
			continue
		}
		var declared []reflection.Uniform
		if p.language == common.LanguageWGSL {
			declared = reflection.WGSLBindings(s.source)
		} else {
			declared = reflection.GLSLUniforms(s.source)
		}
		for _, u := range declared {
			if i, ok := seen[u.Name]; ok {
				if out[i].TypeName != u.TypeName {
					conflicts = append(conflicts, fmt.Sprintf("uniform %q declared as %s and %s", u.Name, out[i].TypeName, u.TypeName))
				}
				continue
			}
			handle := len(out)
			if p.language == common.LanguageWGSL {
				handle = u.Group<<8 | u.Binding
			}
			seen[u.Name] = len(out)
			out = append(out, backend.UniformInfo{
				Name:      u.Name,
				Handle:    handle,
				TypeName:  u.TypeName,
				ArraySize: u.ArraySize,
				Sampler:   u.Sampler,
			})
		}
	}
	return out, conflicts
}

func (p *program) Attributes() []backend.AttributeInfo {
	if !p.linked {
		return nil
	}
	return p.attributes
}

func (p *program) Uniforms() []backend.UniformInfo {
	if !p.linked {
		return nil
	}
	return p.uniforms
}

func (p *program) Bind() error {
	if !p.linked {
		return errors.New("null: program is not linked")
	}
	p.device.mu.Lock()
	p.device.current = p
	p.device.mu.Unlock()
	return nil
}

func (p *program) Unbind() {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	if p.device.current == p {
		p.device.current = nil
	}
}

func (p *program) Destroy() {
	p.Unbind()
	p.destroyed = true
	p.linked = false
	p.stages = make(map[common.StageKind]*stageHandle)
}
