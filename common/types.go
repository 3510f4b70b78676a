// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs
// and enumerations that express the vocabulary shared between the resource packages and the native backends.
package common

import "fmt"

// Semantic is the logical meaning of a vertex attribute.
type Semantic int

const (
	// SemanticPosition is the vertex position, read by the bounding volume helpers.
	SemanticPosition Semantic = iota

	// SemanticNormal is the vertex normal. It must be declared with a 3-component float type.
	SemanticNormal

	// SemanticColor is a vertex color. It must be declared with AttributeTypeRGBA.
	SemanticColor

	// SemanticTexCoord is a texture coordinate set.
	SemanticTexCoord

	// SemanticTangent is the tangent vector. It must be declared with a 3-component float type.
	SemanticTangent

	// SemanticBinormal is the binormal vector. It must be declared with a 3-component float type.
	SemanticBinormal

	// SemanticBlendWeight holds skinning blend weights.
	SemanticBlendWeight

	// SemanticBlendIndices holds skinning matrix indices.
	SemanticBlendIndices

	// SemanticFogCoord is a per-vertex fog coordinate.
	SemanticFogCoord

	// SemanticPointSize is a per-vertex point sprite size.
	SemanticPointSize
)

var semanticNames = [...]string{
	SemanticPosition:     "Position",
	SemanticNormal:       "Normal",
	SemanticColor:        "Color",
	SemanticTexCoord:     "TexCoord",
	SemanticTangent:      "Tangent",
	SemanticBinormal:     "Binormal",
	SemanticBlendWeight:  "BlendWeight",
	SemanticBlendIndices: "BlendIndices",
	SemanticFogCoord:     "FogCoord",
	SemanticPointSize:    "PointSize",
}

func (s Semantic) String() string {
	if s < 0 || int(s) >= len(semanticNames) {
		return fmt.Sprintf("Semantic(%d)", int(s))
	}
	return semanticNames[s]
}

// Semantics returns every Semantic in declaration order.
func Semantics() []Semantic {
	out := make([]Semantic, len(semanticNames))
	for i := range semanticNames {
		out[i] = Semantic(i)
	}
	return out
}

// MaxChannels returns the number of channels a Semantic may declare, or 0 when the semantic is unbounded.
//
// Parameters:
//   - s: the semantic to check
//
// Returns:
//   - int: the channel count limit, 0 meaning no limit
func MaxChannels(s Semantic) int {
	switch s {
	case SemanticPosition, SemanticNormal:
		return 2
	case SemanticColor:
		return 3
	default:
		return 0
	}
}

// AttributeType is the element type of a vertex attribute.
type AttributeType int

const (
	// AttributeTypeRGBA is a color. Backends store it either packed in 4 bytes or as 4 floats.
	AttributeTypeRGBA AttributeType = iota
	AttributeTypeFloat1
	AttributeTypeFloat2
	AttributeTypeFloat3
	AttributeTypeFloat4
	AttributeTypeShort2
	AttributeTypeShort4
	// AttributeTypeHalf1 through AttributeTypeHalf4 are 16-bit float types, which not every backend supports.
	AttributeTypeHalf1
	AttributeTypeHalf2
	AttributeTypeHalf3
	AttributeTypeHalf4
)

var attributeTypeNames = [...]string{
	AttributeTypeRGBA:   "RGBA",
	AttributeTypeFloat1: "Float1",
	AttributeTypeFloat2: "Float2",
	AttributeTypeFloat3: "Float3",
	AttributeTypeFloat4: "Float4",
	AttributeTypeShort2: "Short2",
	AttributeTypeShort4: "Short4",
	AttributeTypeHalf1:  "Half1",
	AttributeTypeHalf2:  "Half2",
	AttributeTypeHalf3:  "Half3",
	AttributeTypeHalf4:  "Half4",
}

func (t AttributeType) String() string {
	if t < 0 || int(t) >= len(attributeTypeNames) {
		return fmt.Sprintf("AttributeType(%d)", int(t))
	}
	return attributeTypeNames[t]
}

// AttributeTypes returns every AttributeType in declaration order.
func AttributeTypes() []AttributeType {
	out := make([]AttributeType, len(attributeTypeNames))
	for i := range attributeTypeNames {
		out[i] = AttributeType(i)
	}
	return out
}

// Components returns the number of logical components of the type.
func (t AttributeType) Components() int {
	switch t {
	case AttributeTypeFloat1, AttributeTypeHalf1:
		return 1
	case AttributeTypeFloat2, AttributeTypeShort2, AttributeTypeHalf2:
		return 2
	case AttributeTypeFloat3, AttributeTypeHalf3:
		return 3
	case AttributeTypeRGBA, AttributeTypeFloat4, AttributeTypeShort4, AttributeTypeHalf4:
		return 4
	default:
		return 0
	}
}

// IsHalf reports whether the type is one of the 16-bit float types.
func (t AttributeType) IsHalf() bool {
	return t >= AttributeTypeHalf1 && t <= AttributeTypeHalf4
}

// ParseAttributeType resolves a case-sensitive type name such as "Float3" to its AttributeType.
func ParseAttributeType(name string) (AttributeType, error) {
	for i, n := range attributeTypeNames {
		if n == name {
			return AttributeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute type %q", name)
}

// ParseSemantic resolves a semantic name such as "TexCoord" to its Semantic.
func ParseSemantic(name string) (Semantic, error) {
	for i, n := range semanticNames {
		if n == name {
			return Semantic(i), nil
		}
	}
	return 0, fmt.Errorf("unknown semantic %q", name)
}

// LockMode selects how a locked buffer's mapping may be accessed.
type LockMode int

const (
	LockReadOnly LockMode = iota
	LockWriteOnly
	LockReadWrite
)

func (m LockMode) String() string {
	switch m {
	case LockReadOnly:
		return "ReadOnly"
	case LockWriteOnly:
		return "WriteOnly"
	case LockReadWrite:
		return "ReadWrite"
	default:
		return fmt.Sprintf("LockMode(%d)", int(m))
	}
}

// Usage is the update-frequency hint a buffer is allocated with.
type Usage int

const (
	// UsageStatic is written once and drawn many times.
	UsageStatic Usage = iota

	// UsageDynamic is rewritten occasionally.
	UsageDynamic

	// UsageWriteOnly is never read back by the host.
	UsageWriteOnly

	// UsageStream is rewritten every frame.
	UsageStream
)

// StageKind is the pipeline stage a shader stage is compiled for.
type StageKind int

const (
	StageVertex StageKind = iota
	StageGeometry
	StageFragment
)

func (k StageKind) String() string {
	switch k {
	case StageVertex:
		return "vertex"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("StageKind(%d)", int(k))
	}
}

// Topology is a primitive topology, used by geometry stages for their input and output.
type Topology int

const (
	TopologyPoints Topology = iota
	TopologyLines
	TopologyLineStrip
	TopologyTriangles
	TopologyTriangleStrip
	TopologyLinesAdjacency
	TopologyTrianglesAdjacency
)

// ShaderLanguage names a shader-language family. Stages of different families are never mixed in one program.
type ShaderLanguage string

const (
	LanguageGLSL ShaderLanguage = "GLSL"
	LanguageWGSL ShaderLanguage = "WGSL"
)

// IndexType is the element width of an index buffer.
type IndexType int

const (
	IndexUByte IndexType = iota
	IndexUShort
	IndexUInt
)

// Size returns the byte width of one index.
func (t IndexType) Size() int {
	switch t {
	case IndexUByte:
		return 1
	case IndexUShort:
		return 2
	case IndexUInt:
		return 4
	default:
		return 0
	}
}
