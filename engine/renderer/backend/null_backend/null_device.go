// Package null_backend is a software backend that keeps every object in host memory. It compiles WGSL with naga
// and checks GLSL with a light front end, links by cross-checking stage interfaces, and counts the work it does,
// which makes it the backend of choice for tests and tooling that run without a GPU.
package null_backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("null")

// device is the implementation of the Device interface.
type device struct {
	mu *sync.Mutex

	name        string
	languages   []common.ShaderLanguage
	halfFloat   bool
	packedColor bool

	linkAttempts  int
	stageCompiles int
	bufferMaps    int
	liveBuffers   int
	current       *program
}

// Device is a backend.Device that also reports how much work it was asked to do.
type Device interface {
	backend.Device

	// LinkAttempts returns the number of Link calls made on programs of this device.
	LinkAttempts() int

	// StageCompiles returns the number of CompileStage calls, failed ones included.
	StageCompiles() int

	// BufferMaps returns the number of successful buffer Map calls.
	BufferMaps() int

	// LiveBuffers returns the number of created and not yet destroyed buffers.
	LiveBuffers() int

	// CurrentProgram returns the bound program, or nil.
	CurrentProgram() backend.ProgramHandle

	// ResetCounters zeroes the link, compile and map counters.
	ResetCounters()
}

var _ Device = &device{}

// NewDevice creates a null Device. By default it compiles GLSL and WGSL, supports half-float attributes and stores
// colors packed in 4 bytes.
//
// Parameters:
//   - options: variadic list of DeviceBuilderOption functions to configure the Device
//
// Returns:
//   - Device: the new device
func NewDevice(options ...DeviceBuilderOption) Device {
	d := &device{
		mu:          &sync.Mutex{},
		name:        "null",
		languages:   []common.ShaderLanguage{common.LanguageGLSL, common.LanguageWGSL},
		halfFloat:   true,
		packedColor: true,
	}
	for _, opt := range options {
		opt(d)
	}
	logger.Debugf("created device %q (languages %v, half float %t)", d.name, d.languages, d.halfFloat)
	return d
}

func (d *device) Name() string {
	return d.name
}

func (d *device) ShaderLanguages() []common.ShaderLanguage {
	return slices.Clone(d.languages)
}

func (d *device) supports(language common.ShaderLanguage) bool {
	return slices.Contains(d.languages, language)
}

func (d *device) CreateBuffer(desc backend.BufferDescriptor) (backend.BufferHandle, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("null: buffer %q: invalid size %d", desc.Label, desc.Size)
	}
	d.mu.Lock()
	d.liveBuffers++
	d.mu.Unlock()
	return &bufferHandle{
		device:  d,
		label:   desc.Label,
		data:    make([]byte, desc.Size),
		managed: desc.Managed,
	}, nil
}

func (d *device) ResolveAttribute(t common.AttributeType) backend.AttributeFormat {
	code := uint32(t) + 1
	switch t {
	case common.AttributeTypeRGBA:
		if d.packedColor {
			return backend.AttributeFormat{Size: 4, TypeCode: code, Components: 4}
		}
		return backend.AttributeFormat{Size: 16, TypeCode: code, Components: 4}
	case common.AttributeTypeFloat1, common.AttributeTypeFloat2, common.AttributeTypeFloat3, common.AttributeTypeFloat4:
		return backend.AttributeFormat{Size: 4 * t.Components(), TypeCode: code, Components: t.Components()}
	case common.AttributeTypeShort2, common.AttributeTypeShort4:
		return backend.AttributeFormat{Size: 2 * t.Components(), TypeCode: code, Components: t.Components()}
	case common.AttributeTypeHalf1, common.AttributeTypeHalf2, common.AttributeTypeHalf3, common.AttributeTypeHalf4:
		if !d.halfFloat {
			return backend.AttributeFormat{}
		}
		return backend.AttributeFormat{Size: 2 * t.Components(), TypeCode: code, Components: t.Components()}
	default:
		return backend.AttributeFormat{}
	}
}

func (d *device) CreateProgram(language common.ShaderLanguage) (backend.ProgramHandle, error) {
	if !d.supports(language) {
		return nil, fmt.Errorf("null: %s programs: %w", language, backend.ErrUnsupported)
	}
	return &program{
		device:   d,
		language: language,
		stages:   make(map[common.StageKind]*stageHandle),
	}, nil
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.liveBuffers > 0 {
		logger.Warningf("device %q released with %d live buffers", d.name, d.liveBuffers)
	}
	d.current = nil
}

func (d *device) LinkAttempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linkAttempts
}

func (d *device) StageCompiles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stageCompiles
}

func (d *device) BufferMaps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bufferMaps
}

func (d *device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveBuffers
}

func (d *device) CurrentProgram() backend.ProgramHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil
	}
	return d.current
}

func (d *device) ResetCounters() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.linkAttempts = 0
	d.stageCompiles = 0
	d.bufferMaps = 0
}
