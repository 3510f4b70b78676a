package reflection

// Attribute is a vertex input declared by a vertex stage.
type Attribute struct {
	Name     string
	Location int
	TypeName string
}

// Uniform is a uniform or resource binding declared by any stage.
type Uniform struct {
	Name      string
	TypeName  string
	ArraySize int

	// Sampler marks texture-sampling declarations (GLSL sampler types, WGSL texture types).
	Sampler bool

	// Group and Binding are the WGSL @group/@binding indices, or -1 for GLSL.
	Group   int
	Binding int
}

// Varying is a value passed between stages.
type Varying struct {
	Name     string
	TypeName string
}

// parsedField represents a single field extracted from a WGSL struct or parameter list during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
