// Package backend declares the capability interfaces a native graphics backend implements for each entity kind
// the resource packages manage: buffers, shader stages and programs. Resource code depends only on these
// interfaces, never on a concrete backend.
package backend

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-hal/common"
)

// ErrUnsupported is returned when a backend cannot realize the requested object at all,
// for example a geometry stage on a language that has no geometry stage.
var ErrUnsupported = errors.New("unsupported on this backend")

// Device is the entry point of a native backend. One Device backs one renderer context.
type Device interface {
	// Name returns a human-readable backend name, used for logging and tooling.
	Name() string

	// ShaderLanguages returns the shader-language families this device can compile, the first being its default.
	ShaderLanguages() []common.ShaderLanguage

	// CreateBuffer creates a backend buffer object of the described size.
	//
	// Parameters:
	//   - desc: the size, usage and storage policy of the buffer
	//
	// Returns:
	//   - BufferHandle: the created buffer, zero-filled
	//   - error: an error if the buffer could not be created
	CreateBuffer(desc BufferDescriptor) (BufferHandle, error)

	// ResolveAttribute reports the backend representation of a vertex attribute element type.
	// An AttributeFormat with Size 0 means the type is unsupported on this backend.
	//
	// Parameters:
	//   - t: the element type to resolve
	//
	// Returns:
	//   - AttributeFormat: the backend size, type code and component count
	ResolveAttribute(t common.AttributeType) AttributeFormat

	// CompileStage compiles one shader stage. Compile failures return a *CompileError carrying the diagnostics.
	//
	// Parameters:
	//   - desc: the stage kind, language, source and optional entry point/profile
	//
	// Returns:
	//   - StageHandle: the compiled stage
	//   - error: a *CompileError on a compile failure, ErrUnsupported if the stage kind is unavailable
	CompileStage(desc StageDescriptor) (StageHandle, error)

	// CreateProgram creates an empty backend program object for the given language family.
	//
	// Parameters:
	//   - language: the language family every attached stage will share
	//
	// Returns:
	//   - ProgramHandle: the created program object
	//   - error: ErrUnsupported if the device cannot compile that language
	CreateProgram(language common.ShaderLanguage) (ProgramHandle, error)

	// Release frees the device. Objects created from it must already be destroyed.
	Release()
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  int
	Usage common.Usage

	// Managed asks the backend to keep the contents across device loss itself. Handles created with
	// Managed set implement DeviceManaged.
	Managed bool

	// Index marks the buffer as an index buffer rather than a vertex buffer.
	Index bool
}

// BufferHandle is a realized backend buffer.
type BufferHandle interface {
	// Size returns the byte size the buffer was created with.
	Size() int

	// Map exposes the buffer contents to the host. The returned slice stays valid until Unmap.
	Map(mode common.LockMode) ([]byte, error)

	// Unmap ends the current mapping, flushing host writes if the mapping was writable.
	Unmap() error

	// Discard ends the current mapping without flushing; host writes made through it are abandoned.
	Discard()

	// Destroy releases the backend buffer.
	Destroy()
}

// DeviceManaged is implemented by buffer handles whose backend preserves the contents across device loss.
type DeviceManaged interface {
	// Suspend drops the device copy. The backend keeps whatever it needs to bring the contents back.
	Suspend()

	// Resume recreates the device copy with the contents held at Suspend.
	Resume() error
}

// AttributeFormat is the backend representation of a vertex attribute element type.
type AttributeFormat struct {
	// Size is the byte size of one element, or 0 if the type is unsupported.
	Size int

	// TypeCode is the backend's own type identifier (a GL enum, a wgpu.VertexFormat, ...).
	TypeCode uint32

	// Components is the number of components the backend declares for the element.
	Components int
}

// StageDescriptor describes a shader stage to compile.
type StageDescriptor struct {
	Label      string
	Kind       common.StageKind
	Language   common.ShaderLanguage
	Source     string
	EntryPoint string
	Profile    string

	// Geometry-only settings; ignored for other kinds.
	InputTopology     common.Topology
	OutputTopology    common.Topology
	MaxOutputVertices int
}

// StageHandle is a compiled shader stage.
type StageHandle interface {
	Kind() common.StageKind
	Destroy()
}

// ProgramHandle is a backend program object stages are attached to and linked in.
type ProgramHandle interface {
	// Attach adds a compiled stage to the program. At most one stage per kind is attached at a time.
	Attach(stage StageHandle) error

	// Detach removes a previously attached stage. Detaching a stage that is not attached is a no-op.
	Detach(stage StageHandle)

	// Link links the attached stages. A failure returns a *LinkError carrying the diagnostics.
	// Every call is one link attempt against the backend.
	Link() error

	// Attributes enumerates the active vertex attributes of the linked program in declaration order.
	Attributes() []AttributeInfo

	// Uniforms enumerates the active uniforms of the linked program in declaration order.
	Uniforms() []UniformInfo

	// Bind makes the program the device's current program.
	Bind() error

	// Unbind clears the device's current program if it is this one.
	Unbind()

	// Destroy releases the program object. Attached stages are detached, not destroyed.
	Destroy()
}

// AttributeInfo is one reflected vertex attribute.
type AttributeInfo struct {
	Name     string
	Handle   int
	TypeName string
}

// UniformInfo is one reflected uniform.
type UniformInfo struct {
	Name      string
	Handle    int
	TypeName  string
	ArraySize int

	// Sampler marks texture-sampling uniforms, which are assigned texture units.
	Sampler bool
}
