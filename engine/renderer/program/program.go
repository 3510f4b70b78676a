// Package program links shader stages into programs. A Program links lazily, at most once per stage
// configuration: a failed link is remembered until a stage changes, so a broken combination is never handed to the
// compiler twice. Attribute and uniform tables are reflected from the backend on first lookup after a link.
package program

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("program")

var (
	// ErrLinkFailure is wrapped by every *LinkError.
	ErrLinkFailure = errors.New("program link failure")

	// ErrLanguageMismatch is returned by SetStage for a stage of another shader-language family.
	ErrLanguageMismatch = errors.New("shader language mismatch")

	// ErrNotLinked is returned by Activate unless the program is linked.
	ErrNotLinked = errors.New("program is not linked")
)

// LinkState is the link state of a Program.
type LinkState int

const (
	// Unlinked programs link on the next EnsureLinked call.
	Unlinked LinkState = iota
	Linked
	// LinkFailed is kept until a stage changes.
	LinkFailed
)

func (s LinkState) String() string {
	switch s {
	case Unlinked:
		return "Unlinked"
	case Linked:
		return "Linked"
	case LinkFailed:
		return "LinkFailed"
	default:
		return fmt.Sprintf("LinkState(%d)", int(s))
	}
}

// LinkError carries the diagnostics of a failed compile or link.
type LinkError struct {
	Program     string
	Diagnostics string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Program, ErrLinkFailure, e.Diagnostics)
}

func (e *LinkError) Unwrap() error {
	return ErrLinkFailure
}

// AttributeHandle is a reflected vertex input.
type AttributeHandle struct {
	Name     string
	Location int
	TypeName string
}

// UniformHandle is a reflected uniform. TextureUnit is -1 for uniforms that are not samplers.
type UniformHandle struct {
	Name        string
	Handle      int
	TypeName    string
	ArraySize   int
	TextureUnit int
}

// linkSlots are the stage slots in attach order.
var linkSlots = []common.StageKind{common.StageVertex, common.StageGeometry, common.StageFragment}

// program is the implementation of the Program interface.
type program struct {
	resource.Base

	device   backend.Device
	language common.ShaderLanguage
	handle   backend.ProgramHandle

	stages      map[common.StageKind]shader.Stage
	unsubscribe map[common.StageKind]func()
	attached    map[common.StageKind]backend.StageHandle

	linkState    LinkState
	linkErr      *LinkError
	linkAttempts int
	active       bool

	reflected       bool
	attributes      []AttributeHandle
	uniforms        []UniformHandle
	textureUnits    map[string]int
	nextTextureUnit int

	listeners    map[int]func()
	nextListener int
}

// Program is a set of shader stage slots linked into one backend program.
//
// The Program references its stages without owning them: destroying a Program leaves its stages alive, and the
// caller keeps each stage alive for as long as the Program uses it.
type Program interface {
	resource.Resource

	// Language returns the shader-language family every stage of the program must share.
	Language() common.ShaderLanguage

	// SetStage puts stage in the slot of its kind, replacing any previous stage. The reflection tables are
	// discarded and the program returns to Unlinked. A nil stage empties the slot.
	//
	// Parameters:
	//   - slot: the stage slot, which must match the stage kind
	//   - stage: the stage to use, or nil
	//
	// Returns:
	//   - error: ErrLanguageMismatch for a stage of another language family, or an error for a kind mismatch
	SetStage(slot common.StageKind, stage shader.Stage) error

	// Stage returns the stage in slot, or nil.
	Stage(slot common.StageKind) shader.Stage

	// LinkState returns the current link state.
	LinkState() LinkState

	// EnsureLinked links the program if it is Unlinked: the stages are compiled, attached, and linked with a
	// single backend call. Linked and LinkFailed programs return at once without touching the backend.
	//
	// Returns:
	//   - LinkState: Linked or LinkFailed
	//   - error: a *LinkError wrapping ErrLinkFailure while LinkFailed, ErrNotLive while backed up
	EnsureLinked() (LinkState, error)

	// Diagnostics returns the compiler or linker output of the last failure, empty otherwise.
	Diagnostics() string

	// LinkAttempts returns how many times the backend link step ran for this program.
	LinkAttempts() int

	// Attribute looks up a vertex input by name. Tables are built on the first lookup after a link.
	//
	// Parameters:
	//   - name: the input name as declared in the vertex stage
	//
	// Returns:
	//   - AttributeHandle: the attribute
	//   - bool: false if the program is not linked or declares no such input
	Attribute(name string) (AttributeHandle, bool)

	// Uniform looks up a uniform by name. Samplers carry their texture unit.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - UniformHandle: the uniform
	//   - bool: false if the program is not linked or declares no such uniform
	Uniform(name string) (UniformHandle, bool)

	// Attributes and Uniforms return the reflection tables in declaration order, or nil when not linked.
	Attributes() []AttributeHandle
	Uniforms() []UniformHandle

	// Activate makes the program the device's current program.
	//
	// Returns:
	//   - error: ErrNotLinked unless the program is Linked
	Activate() error

	// Deactivate unbinds the program if it is current.
	Deactivate()

	// IsActive reports whether the program is bound.
	IsActive() bool

	// OnDirty registers fn to be called whenever handles previously reflected from the program become invalid:
	// a stage change, a stage source change or a device-loss backup.
	//
	// Parameters:
	//   - fn: the callback
	//
	// Returns:
	//   - func(): removes the callback
	OnDirty(fn func()) func()
}

var _ Program = &program{}

// NewProgram creates an unlinked Program.
//
// Parameters:
//   - device: the backend device the program links on
//   - label: a debug label
//   - language: the shader-language family of the program
//   - options: variadic list of ProgramBuilderOption functions to configure the Program
//
// Returns:
//   - Program: the new program
func NewProgram(device backend.Device, label string, language common.ShaderLanguage, options ...ProgramBuilderOption) Program {
	if device == nil {
		panic(fmt.Sprintf("program: %s needs a backend device", label))
	}
	p := &program{
		device:       device,
		language:     language,
		stages:       make(map[common.StageKind]shader.Stage),
		unsubscribe:  make(map[common.StageKind]func()),
		attached:     make(map[common.StageKind]backend.StageHandle),
		textureUnits: make(map[string]int),
		listeners:    make(map[int]func()),
	}
	cfg := &builderConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	p.Base = resource.NewBase(label, cfg.tracker)
	for _, s := range cfg.stages {
		if err := p.SetStage(s.Kind(), s); err != nil {
			panic(err)
		}
	}
	p.Register(p)
	return p
}

func (p *program) Language() common.ShaderLanguage {
	return p.language
}

func (p *program) SetStage(slot common.StageKind, stage shader.Stage) error {
	if err := p.RequireLive(); err != nil {
		return err
	}
	if stage != nil {
		if stage.Kind() != slot {
			return fmt.Errorf("%s: %s stage %q cannot fill the %s slot", p.Label(), stage.Kind(), stage.Label(), slot)
		}
		if stage.Language() != p.language {
			return fmt.Errorf("%s: %w: %s stage %q in a %s program", p.Label(), ErrLanguageMismatch, stage.Language(), stage.Label(), p.language)
		}
	}

	if unsub := p.unsubscribe[slot]; unsub != nil {
		unsub()
		delete(p.unsubscribe, slot)
	}
	p.detach(slot)

	if stage == nil {
		delete(p.stages, slot)
	} else {
		p.stages[slot] = stage
		p.unsubscribe[slot] = stage.OnChange(func() {
			logger.Debugf("%s: %s stage changed, relinking on next use", p.Label(), slot)
			p.invalidate()
		})
	}
	p.invalidate()
	return nil
}

func (p *program) Stage(slot common.StageKind) shader.Stage {
	return p.stages[slot]
}

func (p *program) LinkState() LinkState {
	return p.linkState
}

func (p *program) EnsureLinked() (LinkState, error) {
	switch p.linkState {
	case Linked:
		return Linked, nil
	case LinkFailed:
		return LinkFailed, p.linkErr
	}
	if err := p.RequireLive(); err != nil {
		return p.linkState, err
	}

	if p.handle == nil {
		h, err := p.device.CreateProgram(p.language)
		if err != nil {
			return p.fail(err.Error())
		}
		p.handle = h
		p.SetState(resource.StateLive)
	}

	for _, slot := range linkSlots {
		stage := p.stages[slot]
		if stage == nil {
			continue
		}
		h, err := stage.Compile()
		if err != nil {
			diag := stage.Diagnostics()
			if diag == "" {
				diag = err.Error()
			}
			return p.fail(fmt.Sprintf("%s stage %q: %s", slot, stage.Label(), diag))
		}
		if p.attached[slot] == h {
			continue
		}
		p.detach(slot)
		if err := p.handle.Attach(h); err != nil {
			return p.fail(err.Error())
		}
		p.attached[slot] = h
	}

	p.linkAttempts++
	if err := p.handle.Link(); err != nil {
		diag := err.Error()
		var le *backend.LinkError
		if errors.As(err, &le) {
			diag = le.Diagnostics
		}
		return p.fail(diag)
	}
	p.linkState = Linked
	p.linkErr = nil
	logger.Debugf("%s: linked", p.Label())
	return Linked, nil
}

// fail latches LinkFailed with the given diagnostics.
func (p *program) fail(diagnostics string) (LinkState, error) {
	p.linkState = LinkFailed
	p.linkErr = &LinkError{Program: p.Label(), Diagnostics: diagnostics}
	logger.Warningf("%s: link failed: %s", p.Label(), diagnostics)
	return LinkFailed, p.linkErr
}

func (p *program) Diagnostics() string {
	if p.linkErr == nil {
		return ""
	}
	return p.linkErr.Diagnostics
}

func (p *program) LinkAttempts() int {
	return p.linkAttempts
}

func (p *program) Attribute(name string) (AttributeHandle, bool) {
	if !p.reflect() {
		return AttributeHandle{}, false
	}
	for _, a := range p.attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeHandle{}, false
}

func (p *program) Uniform(name string) (UniformHandle, bool) {
	if !p.reflect() {
		return UniformHandle{}, false
	}
	for _, u := range p.uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return UniformHandle{}, false
}

func (p *program) Attributes() []AttributeHandle {
	if !p.reflect() {
		return nil
	}
	return slices.Clone(p.attributes)
}

func (p *program) Uniforms() []UniformHandle {
	if !p.reflect() {
		return nil
	}
	return slices.Clone(p.uniforms)
}

// reflect builds the tables once per link. Samplers get the next unused texture unit in declaration order;
// a sampler name seen in an earlier link keeps its unit.
func (p *program) reflect() bool {
	if p.linkState != Linked {
		return false
	}
	if p.reflected {
		return true
	}

	for _, a := range p.handle.Attributes() {
		p.attributes = append(p.attributes, AttributeHandle{Name: a.Name, Location: a.Handle, TypeName: a.TypeName})
	}
	for _, u := range p.handle.Uniforms() {
		unit := -1
		if u.Sampler {
			var ok bool
			if unit, ok = p.textureUnits[u.Name]; !ok {
				unit = p.nextTextureUnit
				p.nextTextureUnit++
				p.textureUnits[u.Name] = unit
			}
		}
		p.uniforms = append(p.uniforms, UniformHandle{
			Name:        u.Name,
			Handle:      u.Handle,
			TypeName:    u.TypeName,
			ArraySize:   u.ArraySize,
			TextureUnit: unit,
		})
	}
	p.reflected = true
	return true
}

func (p *program) Activate() error {
	if p.linkState != Linked {
		return fmt.Errorf("%s: %w (%s)", p.Label(), ErrNotLinked, p.linkState)
	}
	if err := p.handle.Bind(); err != nil {
		return fmt.Errorf("%s: activate: %w", p.Label(), err)
	}
	p.active = true
	return nil
}

func (p *program) Deactivate() {
	if !p.active {
		return
	}
	p.handle.Unbind()
	p.active = false
}

func (p *program) IsActive() bool {
	return p.active
}

func (p *program) OnDirty(fn func()) func() {
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	return func() {
		delete(p.listeners, id)
	}
}

// Backup tears the backend program down. Nothing is copied to the host; the program relinks on next use.
func (p *program) Backup() (*resource.Blob, error) {
	if p.State() != resource.StateLive {
		return nil, nil
	}
	p.releaseHandle()
	p.SetState(resource.StateBackedUp)
	p.invalidate()
	return nil, nil
}

func (p *program) Restore(_ *resource.Blob) error {
	if p.State() != resource.StateBackedUp {
		return nil
	}
	p.SetState(resource.StateVirtual)
	return nil
}

func (p *program) Destroy() {
	if p.State() == resource.StateDestroyed {
		return
	}
	for slot, unsub := range p.unsubscribe {
		unsub()
		delete(p.unsubscribe, slot)
	}
	p.releaseHandle()
	p.invalidate()
	p.listeners = make(map[int]func())
	p.stages = make(map[common.StageKind]shader.Stage)
	p.Unregister(p)
}

// invalidate drops the link and the reflection tables and notifies the dirty listeners.
func (p *program) invalidate() {
	p.Deactivate()
	p.linkState = Unlinked
	p.linkErr = nil
	p.reflected = false
	p.attributes = nil
	p.uniforms = nil
	for _, fn := range p.listeners {
		fn()
	}
}

func (p *program) detach(slot common.StageKind) {
	h := p.attached[slot]
	if h == nil {
		return
	}
	if p.handle != nil {
		p.handle.Detach(h)
	}
	delete(p.attached, slot)
}

func (p *program) releaseHandle() {
	p.Deactivate()
	if p.handle != nil {
		p.handle.Destroy()
		p.handle = nil
	}
	clear(p.attached)
}
