package wgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader/reflection"
	"github.com/cogentcore/webgpu/wgpu"
)

// stageHandle is a compiled shader module plus the entry point the program links against.
type stageHandle struct {
	device     *device
	kind       common.StageKind
	label      string
	source     string
	entryPoint string
	module     *wgpu.ShaderModule
}

var _ backend.StageHandle = &stageHandle{}

func (s *stageHandle) Kind() common.StageKind {
	return s.kind
}

func (s *stageHandle) Destroy() {
	if s.module != nil {
		s.module.Release()
		s.module = nil
	}
}

func (d *device) CompileStage(desc backend.StageDescriptor) (backend.StageHandle, error) {
	if desc.Language != common.LanguageWGSL || desc.Kind == common.StageGeometry {
		return nil, fmt.Errorf("wgpu: %s %s stage %q: %w", desc.Language, desc.Kind, desc.Label, backend.ErrUnsupported)
	}

	entry := desc.EntryPoint
	if entry == "" {
		entry = reflection.WGSLEntryPoint(desc.Source, desc.Kind)
	}
	if entry == "" {
		return nil, &backend.CompileError{Label: desc.Label, Kind: desc.Kind, Diagnostics: fmt.Sprintf("no @%s entry point", desc.Kind)}
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		logger.Debugf("compile %s stage %q failed: %v", desc.Kind, desc.Label, err)
		return nil, &backend.CompileError{Label: desc.Label, Kind: desc.Kind, Diagnostics: err.Error()}
	}

	return &stageHandle{
		device:     d,
		kind:       desc.Kind,
		label:      desc.Label,
		source:     desc.Source,
		entryPoint: entry,
		module:     module,
	}, nil
}
