// Package wgpu_backend realizes buffers, shader stages and programs on WebGPU through cogentcore/webgpu.
// The device is headless: programs link into render pipelines targeting a fixed color format, and nothing is
// presented.
package wgpu_backend

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/log"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("wgpu")

// device is the implementation of backend.Device on a WebGPU device.
type device struct {
	mu *sync.Mutex

	label                string
	forceFallbackAdapter bool
	colorTargetFormat    wgpu.TextureFormat

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	current *program
}

var _ backend.Device = &device{}

// NewDevice requests a WebGPU adapter and device without a surface.
//
// Parameters:
//   - options: variadic list of DeviceBuilderOption functions to configure the device
//
// Returns:
//   - backend.Device: the opened device
//   - error: an error if no adapter or device could be obtained
func NewDevice(options ...DeviceBuilderOption) (backend.Device, error) {
	d := &device{
		mu:                &sync.Mutex{},
		label:             "oxy-hal",
		colorTargetFormat: wgpu.TextureFormatRGBA8Unorm,
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("wgpu: request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label + " Device",
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("wgpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	logger.Infof("opened device %q (fallback adapter %t)", d.label, d.forceFallbackAdapter)
	return d, nil
}

func (d *device) Name() string {
	return "wgpu"
}

func (d *device) ShaderLanguages() []common.ShaderLanguage {
	return []common.ShaderLanguage{common.LanguageWGSL}
}

func (d *device) ResolveAttribute(t common.AttributeType) backend.AttributeFormat {
	format, ok := vertexFormats[t]
	if !ok {
		return backend.AttributeFormat{}
	}
	return backend.AttributeFormat{Size: format.size, TypeCode: uint32(format.format), Components: t.Components()}
}

type vertexFormat struct {
	format wgpu.VertexFormat
	size   int
}

// vertexFormats maps the attribute types WebGPU can fetch. There are no 1- or 3-component 16-bit float formats.
var vertexFormats = map[common.AttributeType]vertexFormat{
	common.AttributeTypeRGBA:   {wgpu.VertexFormatUnorm8x4, 4},
	common.AttributeTypeFloat1: {wgpu.VertexFormatFloat32, 4},
	common.AttributeTypeFloat2: {wgpu.VertexFormatFloat32x2, 8},
	common.AttributeTypeFloat3: {wgpu.VertexFormatFloat32x3, 12},
	common.AttributeTypeFloat4: {wgpu.VertexFormatFloat32x4, 16},
	common.AttributeTypeShort2: {wgpu.VertexFormatSint16x2, 4},
	common.AttributeTypeShort4: {wgpu.VertexFormatSint16x4, 8},
	common.AttributeTypeHalf2:  {wgpu.VertexFormatFloat16x2, 4},
	common.AttributeTypeHalf4:  {wgpu.VertexFormatFloat16x4, 8},
}

func (d *device) CreateProgram(language common.ShaderLanguage) (backend.ProgramHandle, error) {
	if language != common.LanguageWGSL {
		return nil, fmt.Errorf("wgpu: %s programs: %w", language, backend.ErrUnsupported)
	}
	return &program{
		device: d,
		stages: make(map[common.StageKind]*stageHandle),
	}, nil
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = nil
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
