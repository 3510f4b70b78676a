package renderer

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/variant"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/vertex"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device   backend.Device
	language common.ShaderLanguage
	registry *resource.Registry
	logger   log.Logger

	caches   []variant.Cache
	released bool
}

// Renderer is the context every resource of one backend device is created through.
//
// The Renderer owns the device-loss Registry: every buffer, stage, program and variant cache created through its
// factory methods is tracked, so DeviceLost and DeviceRestored can back up and rebuild all of them at once.
// It also carries the active shader-language family that variant caches build for.
type Renderer interface {
	// Device returns the backend device.
	Device() backend.Device

	// ShaderLanguage returns the active shader-language family.
	ShaderLanguage() common.ShaderLanguage

	// SetShaderLanguage switches the active shader-language family. Every variant cache of the renderer is cleared
	// at once and rebuilds for the new family on its next lookup.
	//
	// Parameters:
	//   - language: the family to switch to
	//
	// Returns:
	//   - error: backend.ErrUnsupported if the device cannot compile that family
	SetShaderLanguage(language common.ShaderLanguage) error

	// Registry returns the device-loss registry the factory methods track resources in.
	Registry() *resource.Registry

	// Tracker returns the Registry as a resource.Tracker, for resources constructed directly from their packages.
	Tracker() resource.Tracker

	// DeviceLost backs up every live resource. Calling it again before DeviceRestored is a no-op.
	//
	// Returns:
	//   - error: the joined backup failures, or nil
	DeviceLost() error

	// DeviceRestored restores every backed-up resource. It is a no-op without an outstanding DeviceLost.
	//
	// Returns:
	//   - error: the joined restore failures, or nil
	DeviceRestored() error

	// NewBuffer creates a tracked raw Buffer.
	NewBuffer(label string, options ...buffer.BufferBuilderOption) buffer.Buffer

	// NewIndexBuffer creates a tracked IndexBuffer.
	NewIndexBuffer(label string, indexType common.IndexType, options ...buffer.BufferBuilderOption) buffer.IndexBuffer

	// NewVertexBuffer creates a tracked VertexBuffer with an empty layout.
	NewVertexBuffer(label string, options ...buffer.BufferBuilderOption) vertex.VertexBuffer

	// NewStage creates a tracked shader Stage.
	//
	// Parameters:
	//   - label: the debug label
	//   - kind: the pipeline stage
	//   - language: the language family of source
	//   - source: the stage source
	//   - options: variadic list of StageBuilderOption functions to configure the Stage
	//
	// Returns:
	//   - shader.Stage: the virtual stage
	NewStage(label string, kind common.StageKind, language common.ShaderLanguage, source string, options ...shader.StageBuilderOption) shader.Stage

	// NewProgram creates a tracked Program for the active shader language.
	NewProgram(label string, options ...program.ProgramBuilderOption) program.Program

	// NewVariantCache creates a variant Cache whose stages and programs are tracked by this renderer.
	NewVariantCache(label string, options ...variant.CacheBuilderOption) variant.Cache

	// Stats returns a snapshot of the renderer's resource counters.
	Stats() Stats

	// Release clears every variant cache, destroys every tracked resource and releases the device.
	// The Renderer must not be used afterwards.
	Release()
}

// Stats is a snapshot of the resources of a Renderer.
type Stats struct {
	// Tracked is the number of resources in the registry.
	Tracked int

	// Live is the number of tracked resources holding a backend object.
	Live int

	// Programs is the number of tracked programs.
	Programs int

	// LinkAttempts is the sum of backend link attempts over every tracked program.
	LinkAttempts int

	// Variants is the number of variants cached across every variant cache.
	Variants int

	// Lost reports whether a device-loss sweep is outstanding.
	Lost bool
}

var _ Renderer = &renderer{}
var _ variant.Context = &renderer{}

// NewRenderer creates a new Renderer on an opened backend device.
//
// Parameters:
//   - device: the backend device every resource is realized on
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new renderer context
func NewRenderer(device backend.Device, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:       &sync.Mutex{},
		device:   device,
		registry: resource.NewRegistry(),
		logger:   logger,
	}
	if languages := device.ShaderLanguages(); len(languages) > 0 {
		r.language = languages[0]
	}

	for _, opt := range options {
		opt(r)
	}

	if !slices.Contains(device.ShaderLanguages(), r.language) {
		panic(fmt.Sprintf("renderer: device %s cannot compile %s", device.Name(), r.language))
	}
	r.logger.Infof("renderer on %s using %s", device.Name(), r.language)
	return r
}

func (r *renderer) Device() backend.Device {
	return r.device
}

func (r *renderer) ShaderLanguage() common.ShaderLanguage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.language
}

func (r *renderer) SetShaderLanguage(language common.ShaderLanguage) error {
	if !slices.Contains(r.device.ShaderLanguages(), language) {
		return fmt.Errorf("shader language %s on %s: %w", language, r.device.Name(), backend.ErrUnsupported)
	}
	r.mu.Lock()
	if r.language == language {
		r.mu.Unlock()
		return nil
	}
	r.logger.Infof("shader language %s -> %s", r.language, language)
	r.language = language
	caches := slices.Clone(r.caches)
	r.mu.Unlock()

	for _, c := range caches {
		c.ClearCache()
	}
	return nil
}

func (r *renderer) Registry() *resource.Registry {
	return r.registry
}

func (r *renderer) Tracker() resource.Tracker {
	return r.registry
}

func (r *renderer) DeviceLost() error {
	return r.registry.BackupAll()
}

func (r *renderer) DeviceRestored() error {
	return r.registry.RestoreAll()
}

func (r *renderer) NewBuffer(label string, options ...buffer.BufferBuilderOption) buffer.Buffer {
	return buffer.NewBuffer(r.device, label, append(options, buffer.WithTracker(r.registry))...)
}

func (r *renderer) NewIndexBuffer(label string, indexType common.IndexType, options ...buffer.BufferBuilderOption) buffer.IndexBuffer {
	return buffer.NewIndexBuffer(r.device, label, indexType, append(options, buffer.WithTracker(r.registry))...)
}

func (r *renderer) NewVertexBuffer(label string, options ...buffer.BufferBuilderOption) vertex.VertexBuffer {
	return vertex.NewVertexBuffer(r.device, label, append(options, buffer.WithTracker(r.registry))...)
}

func (r *renderer) NewStage(label string, kind common.StageKind, language common.ShaderLanguage, source string, options ...shader.StageBuilderOption) shader.Stage {
	return shader.NewStage(r.device, label, kind, language, source, append(options, shader.WithTracker(r.registry))...)
}

func (r *renderer) NewProgram(label string, options ...program.ProgramBuilderOption) program.Program {
	return program.NewProgram(r.device, label, r.ShaderLanguage(), append(options, program.WithTracker(r.registry))...)
}

func (r *renderer) NewVariantCache(label string, options ...variant.CacheBuilderOption) variant.Cache {
	c := variant.NewCache(r, label, append(options, variant.WithTracker(r.registry))...)
	r.mu.Lock()
	r.caches = append(r.caches, c)
	r.mu.Unlock()
	return c
}

func (r *renderer) Stats() Stats {
	s := Stats{
		Tracked: r.registry.Len(),
		Live:    r.registry.Live(),
		Lost:    r.registry.Lost(),
	}
	for _, res := range r.registry.Resources() {
		if p, ok := res.(program.Program); ok {
			s.Programs++
			s.LinkAttempts += p.LinkAttempts()
		}
	}

	r.mu.Lock()
	caches := slices.Clone(r.caches)
	r.mu.Unlock()
	for _, c := range caches {
		s.Variants += c.Len()
	}
	return s
}

func (r *renderer) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	caches := r.caches
	r.caches = nil
	r.mu.Unlock()

	for _, c := range caches {
		c.Release()
	}

	// Programs reference stages, so they go first.
	resources := r.registry.Resources()
	for _, res := range resources {
		if _, ok := res.(program.Program); ok {
			res.Destroy()
		}
	}
	for _, res := range r.registry.Resources() {
		res.Destroy()
	}
	r.device.Release()
	r.logger.Infof("renderer on %s released", r.device.Name())
}
