// Package reflection reads declarations back out of WGSL and GLSL source: vertex inputs, uniforms and resource
// bindings, inter-stage varyings and entry points. Backends without a native reflection API use it to answer
// attribute and uniform queries after a link.
package reflection

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"vec2<f16>": {wgpu.VertexFormatFloat16x2, 4},
	"vec2h":     {wgpu.VertexFormatFloat16x2, 4},
	"vec4<f16>": {wgpu.VertexFormatFloat16x4, 8},
	"vec4h":     {wgpu.VertexFormatFloat16x4, 8},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field or parameter: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// entryRegex captures the stage attribute and function name of every WGSL entry point
	entryRegex = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{;]*?\bfn\s+(\w+)\s*\(`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	// or handle types: @group(2) @binding(0) var diffuseTexture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// arrayTypeRegex captures the element count of binding_array<T, N> and array<T, N>
	arrayTypeRegex = regexp.MustCompile(`^(?:binding_)?array<.+,\s*(\d+)\s*>$`)
)

// WGSLEntryPoint returns the name of the first entry point declared for the given stage kind,
// or an empty string if there is none. WGSL has no geometry stage, so StageGeometry always yields "".
//
// Parameters:
//   - source: the raw WGSL source code string
//   - kind: the stage kind to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func WGSLEntryPoint(source string, kind common.StageKind) string {
	var want string
	switch kind {
	case common.StageVertex:
		want = "vertex"
	case common.StageFragment:
		want = "fragment"
	default:
		return ""
	}
	for _, m := range entryRegex.FindAllStringSubmatch(StripComments(source), -1) {
		if m[1] == want {
			return m[2]
		}
	}
	return ""
}

// WGSLVertexInputs extracts the @location inputs of the vertex entry point, sorted by location.
// Inputs may be declared directly as entry point parameters or as fields of a struct parameter.
// When no vertex entry point is present, every pure vertex input struct (fields with @location and no
// @builtin) contributes its fields instead.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []Attribute: the vertex inputs
func WGSLVertexInputs(source string) []Attribute {
	cleaned := StripComments(source)
	structs := parseStructBlocks(cleaned)
	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var fields []parsedField
	if params, ok := entryParams(cleaned, "vertex"); ok {
		for _, p := range parseFields(params) {
			if p.isBuiltin {
				continue
			}
			if p.location >= 0 {
				fields = append(fields, p)
				continue
			}
			if ps, ok := byName[p.typeName]; ok {
				for _, f := range ps.fields {
					if f.location >= 0 && !f.isBuiltin {
						fields = append(fields, f)
					}
				}
			}
		}
	} else {
		for _, ps := range structs {
			if isVertexInputStruct(ps) {
				fields = append(fields, ps.fields...)
			}
		}
	}

	out := make([]Attribute, 0, len(fields))
	for _, f := range fields {
		out = append(out, Attribute{Name: f.name, Location: f.location, TypeName: f.typeName})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Location < out[j].Location
	})
	return out
}

// WGSLVertexBufferLayout converts the vertex inputs of source into a single interleaved wgpu.VertexBufferLayout.
// It returns false if any input has a type with no vertex format.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - wgpu.VertexBufferLayout: the constructed vertex buffer layout
//   - bool: false if an input type could not be mapped to a vertex format
func WGSLVertexBufferLayout(source string) (wgpu.VertexBufferLayout, bool) {
	inputs := WGSLVertexInputs(source)
	attrs := make([]wgpu.VertexAttribute, 0, len(inputs))
	var offset uint64

	for _, in := range inputs {
		info, ok := wgslVertexFormatMap[in.TypeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(in.Location),
		})
		offset += info.size
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// WGSLBindings extracts every @group(N) @binding(M) declaration in source order.
// Texture declarations are flagged as samplers; sampler objects themselves are not, since WGSL binds
// them separately from the textures they sample.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []Uniform: the bindings in declaration order
func WGSLBindings(source string) []Uniform {
	cleaned := StripComments(source)
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]Uniform, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		typeName := strings.TrimSpace(match[5])

		u := Uniform{
			Name:      strings.TrimSpace(match[4]),
			TypeName:  typeName,
			ArraySize: 1,
			Sampler:   strings.HasPrefix(typeName, "texture_"),
			Group:     group,
			Binding:   binding,
		}
		if m := arrayTypeRegex.FindStringSubmatch(typeName); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				u.ArraySize = n
			}
			if inner, ok := strings.CutPrefix(typeName, "binding_array<"); ok {
				u.Sampler = strings.HasPrefix(strings.TrimSpace(inner), "texture_")
			}
		}
		out = append(out, u)
	}
	return out
}

// WGSLFragmentInputs returns the @location inputs of the fragment entry point.
func WGSLFragmentInputs(source string) []Attribute {
	cleaned := StripComments(source)
	params, ok := entryParams(cleaned, "fragment")
	if !ok {
		return nil
	}
	structs := parseStructBlocks(cleaned)
	var out []Attribute
	for _, p := range parseFields(params) {
		if p.location >= 0 {
			out = append(out, Attribute{Name: p.name, Location: p.location, TypeName: p.typeName})
			continue
		}
		for _, ps := range structs {
			if ps.name != p.typeName {
				continue
			}
			for _, f := range ps.fields {
				if f.location >= 0 {
					out = append(out, Attribute{Name: f.name, Location: f.location, TypeName: f.typeName})
				}
			}
		}
	}
	return out
}

// entryParams returns the raw parameter list of the first entry point of the given stage.
func entryParams(cleaned, stage string) (string, bool) {
	for _, loc := range entryRegex.FindAllStringSubmatchIndex(cleaned, -1) {
		if cleaned[loc[2]:loc[3]] != stage {
			continue
		}
		open := loc[1] - 1
		depth := 0
		for i := open; i < len(cleaned); i++ {
			switch cleaned[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return cleaned[open+1 : i], true
				}
			}
		}
		return "", false
	}
	return "", false
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseFields(match[2]),
		})
	}
	return structs
}

// parseFields parses a comma separated struct body or parameter list into fields,
// extracting @location and @builtin attributes along with the name and type
func parseFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(part) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(part); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}

	return fields
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location field and zero @builtin fields. This distinguishes
// vertex input structs from vertex output structs which mix @location with @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}
