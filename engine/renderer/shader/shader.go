package shader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader/reflection"
)

// stage is the implementation of the Stage interface.
// It holds the source and settings of one shader stage and the compiled backend handle, if any.
type stage struct {
	resource.Base

	device backend.Device
	handle backend.StageHandle

	kind       common.StageKind
	language   common.ShaderLanguage
	source     string
	entryPoint string
	profile    string

	inputTopology     common.Topology
	outputTopology    common.Topology
	maxOutputVertices int

	compileFailed bool
	diagnostics   string

	listeners    map[int]func()
	nextListener int
}

// Stage is one unit of shader source for a single pipeline stage, compiled lazily on the backend device.
// A failed compile is remembered until the source changes, so a broken stage is not recompiled on every use.
type Stage interface {
	resource.Resource

	// Kind returns the pipeline stage the source is written for.
	Kind() common.StageKind

	// Language returns the shader-language family of the source.
	Language() common.ShaderLanguage

	// Source returns the stage source.
	Source() string

	// SetSource replaces the source, dropping the compiled handle and notifying OnChange listeners.
	//
	// Parameters:
	//   - source: the new stage source
	//
	// Returns:
	//   - error: ErrNotLive if the stage is backed up or destroyed
	SetSource(source string) error

	// EntryPoint returns the entry point name. When none was given it is "main" for GLSL and
	// the first matching entry point of the source for WGSL.
	EntryPoint() string

	// Profile returns the optional target profile string, empty if unset.
	Profile() string

	// InputTopology, OutputTopology and MaxOutputVertices describe geometry stages.
	InputTopology() common.Topology
	OutputTopology() common.Topology
	MaxOutputVertices() int

	// Compile compiles the stage on first use and returns the cached handle afterwards.
	//
	// Returns:
	//   - backend.StageHandle: the compiled stage
	//   - error: the compile error, repeated without recompiling until the source changes
	Compile() (backend.StageHandle, error)

	// Handle returns the compiled handle, or nil if the stage is not compiled.
	Handle() backend.StageHandle

	// Diagnostics returns the compiler output of the last failed compile.
	Diagnostics() string

	// OnChange registers fn to be called after the source changes.
	//
	// Parameters:
	//   - fn: the callback
	//
	// Returns:
	//   - func(): removes the callback
	OnChange(fn func()) func()
}

var _ Stage = &stage{}

// NewStage creates an uncompiled Stage.
//
// Parameters:
//   - device: the backend device the stage compiles on
//   - label: a debug label
//   - kind: the pipeline stage the source is written for
//   - language: the shader-language family of the source
//   - source: the stage source
//   - options: variadic list of StageBuilderOption functions to configure the Stage
//
// Returns:
//   - Stage: the new stage
func NewStage(device backend.Device, label string, kind common.StageKind, language common.ShaderLanguage, source string, options ...StageBuilderOption) Stage {
	if device == nil {
		panic(fmt.Sprintf("shader: %s needs a backend device", label))
	}
	s := &stage{
		device:            device,
		kind:              kind,
		language:          language,
		source:            source,
		inputTopology:     common.TopologyTriangles,
		outputTopology:    common.TopologyTriangleStrip,
		maxOutputVertices: 0,
		listeners:         make(map[int]func()),
	}
	cfg := &builderConfig{}
	for _, opt := range options {
		opt(s, cfg)
	}
	s.Base = resource.NewBase(label, cfg.tracker)
	s.Register(s)
	return s
}

func (s *stage) Kind() common.StageKind {
	return s.kind
}

func (s *stage) Language() common.ShaderLanguage {
	return s.language
}

func (s *stage) Source() string {
	return s.source
}

func (s *stage) SetSource(source string) error {
	if err := s.RequireLive(); err != nil {
		return err
	}
	s.releaseHandle()
	s.SetState(resource.StateVirtual)
	s.source = source
	s.compileFailed = false
	s.diagnostics = ""
	for _, fn := range s.listeners {
		fn()
	}
	return nil
}

func (s *stage) EntryPoint() string {
	if s.entryPoint != "" {
		return s.entryPoint
	}
	if s.language == common.LanguageWGSL {
		return reflection.WGSLEntryPoint(s.source, s.kind)
	}
	return "main"
}

func (s *stage) Profile() string {
	return s.profile
}

func (s *stage) InputTopology() common.Topology {
	return s.inputTopology
}

func (s *stage) OutputTopology() common.Topology {
	return s.outputTopology
}

func (s *stage) MaxOutputVertices() int {
	return s.maxOutputVertices
}

func (s *stage) Compile() (backend.StageHandle, error) {
	if err := s.RequireLive(); err != nil {
		return nil, err
	}
	if s.handle != nil {
		return s.handle, nil
	}
	if s.compileFailed {
		return nil, &backend.CompileError{Label: s.Label(), Kind: s.kind, Diagnostics: s.diagnostics}
	}

	h, err := s.device.CompileStage(backend.StageDescriptor{
		Label:             s.Label(),
		Kind:              s.kind,
		Language:          s.language,
		Source:            s.source,
		EntryPoint:        s.EntryPoint(),
		Profile:           s.profile,
		InputTopology:     s.inputTopology,
		OutputTopology:    s.outputTopology,
		MaxOutputVertices: s.maxOutputVertices,
	})
	if err != nil {
		s.compileFailed = true
		s.diagnostics = err.Error()
		var ce *backend.CompileError
		if errors.As(err, &ce) {
			s.diagnostics = ce.Diagnostics
		}
		return nil, err
	}
	s.handle = h
	s.SetState(resource.StateLive)
	return h, nil
}

func (s *stage) Handle() backend.StageHandle {
	return s.handle
}

func (s *stage) Diagnostics() string {
	return s.diagnostics
}

func (s *stage) OnChange(fn func()) func() {
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		delete(s.listeners, id)
	}
}

// Backup releases the compiled handle. The source stays on the host, so no blob is kept.
func (s *stage) Backup() (*resource.Blob, error) {
	if s.State() != resource.StateLive {
		return nil, nil
	}
	s.releaseHandle()
	s.SetState(resource.StateBackedUp)
	return nil, nil
}

// Restore returns the stage to virtual. It is compiled again from its source on next use.
func (s *stage) Restore(_ *resource.Blob) error {
	if s.State() != resource.StateBackedUp {
		return nil
	}
	s.SetState(resource.StateVirtual)
	return nil
}

func (s *stage) Destroy() {
	if s.State() == resource.StateDestroyed {
		return
	}
	s.releaseHandle()
	s.listeners = make(map[int]func())
	s.Unregister(s)
}

func (s *stage) releaseHandle() {
	if s.handle == nil {
		return
	}
	s.handle.Destroy()
	s.handle = nil
}
