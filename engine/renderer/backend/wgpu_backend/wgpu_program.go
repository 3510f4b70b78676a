package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader/reflection"
	"github.com/cogentcore/webgpu/wgpu"
)

// program links its stages into a render pipeline with an automatic layout. The vertex buffer layout is
// reflected from the vertex stage inputs.
type program struct {
	device *device
	stages map[common.StageKind]*stageHandle

	pipeline   *wgpu.RenderPipeline
	attributes []backend.AttributeInfo
	uniforms   []backend.UniformInfo
	destroyed  bool
}

var _ backend.ProgramHandle = &program{}

func (p *program) Attach(h backend.StageHandle) error {
	if p.destroyed {
		return errors.New("wgpu: program is destroyed")
	}
	s, ok := h.(*stageHandle)
	if !ok || s.device != p.device {
		return errors.New("wgpu: stage belongs to another device")
	}
	p.stages[s.kind] = s
	p.release()
	return nil
}

func (p *program) Detach(h backend.StageHandle) {
	s, ok := h.(*stageHandle)
	if !ok {
		return
	}
	if p.stages[s.kind] == s {
		delete(p.stages, s.kind)
		p.release()
	}
}

func (p *program) Link() error {
	p.release()

	vs := p.stages[common.StageVertex]
	if vs == nil {
		return &backend.LinkError{Diagnostics: "no vertex stage attached"}
	}

	var buffers []wgpu.VertexBufferLayout
	if layout, ok := reflection.WGSLVertexBufferLayout(vs.source); ok && len(layout.Attributes) > 0 {
		buffers = append(buffers, layout)
	} else if !ok {
		return &backend.LinkError{Diagnostics: fmt.Sprintf("vertex stage %q has an input without a vertex format", vs.label)}
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label: vs.label + " Render Pipeline",
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entryPoint,
			Buffers:    buffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if fs := p.stages[common.StageFragment]; fs != nil {
		desc.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    p.device.colorTargetFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		}
	}

	created, err := p.device.device.CreateRenderPipeline(desc)
	if err != nil {
		return &backend.LinkError{Diagnostics: err.Error()}
	}
	p.pipeline = created
	p.attributes = reflectAttributes(vs)
	p.uniforms = p.reflectUniforms()
	return nil
}

func reflectAttributes(vs *stageHandle) []backend.AttributeInfo {
	inputs := reflection.WGSLVertexInputs(vs.source)
	out := make([]backend.AttributeInfo, 0, len(inputs))
	for _, a := range inputs {
		out = append(out, backend.AttributeInfo{Name: a.Name, Handle: a.Location, TypeName: a.TypeName})
	}
	return out
}

// reflectUniforms merges the bindings of every stage. A binding used by several stages is reported once.
func (p *program) reflectUniforms() []backend.UniformInfo {
	var out []backend.UniformInfo
	seen := make(map[string]bool)
	for _, kind := range []common.StageKind{common.StageVertex, common.StageFragment} {
		s := p.stages[kind]
		if s == nil {
			continue
		}
		for _, u := range reflection.WGSLBindings(s.source) {
			if seen[u.Name] {
				continue
			}
			seen[u.Name] = true
			out = append(out, backend.UniformInfo{
				Name:      u.Name,
				Handle:    u.Group<<8 | u.Binding,
				TypeName:  u.TypeName,
				ArraySize: u.ArraySize,
				Sampler:   u.Sampler,
			})
		}
	}
	return out
}

func (p *program) Attributes() []backend.AttributeInfo {
	if p.pipeline == nil {
		return nil
	}
	return p.attributes
}

func (p *program) Uniforms() []backend.UniformInfo {
	if p.pipeline == nil {
		return nil
	}
	return p.uniforms
}

// Pipeline returns the linked render pipeline, or nil.
func (p *program) Pipeline() *wgpu.RenderPipeline {
	return p.pipeline
}

func (p *program) Bind() error {
	if p.pipeline == nil {
		return errors.New("wgpu: program is not linked")
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
	p.release()
	p.destroyed = true
	p.stages = make(map[common.StageKind]*stageHandle)
}

func (p *program) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	p.attributes = nil
	p.uniforms = nil
}
