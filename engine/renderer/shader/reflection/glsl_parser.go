package reflection

import (
	"regexp"
	"strconv"

	"github.com/Carmen-Shannon/oxy-hal/common"
)

const glslPrecision = `(?:(?:highp|mediump|lowp)\s+)?`

var (
	// glslAttributeRegex matches vertex inputs: [layout(location = N)] in|attribute [precision] type name;
	glslAttributeRegex = regexp.MustCompile(`(?m)^\s*(?:layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*)?(?:in|attribute)\s+` + glslPrecision + `(\w+)\s+(\w+)\s*;`)

	// glslUniformRegex matches plain uniforms: [layout(...)] uniform [precision] type name[[N]]; uniform blocks are skipped
	glslUniformRegex = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+` + glslPrecision + `(\w+)\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*;`)

	// glslVaryingRegex matches inter-stage declarations with their storage qualifier
	glslVaryingRegex = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?(?:(?:flat|smooth|noperspective|centroid)\s+)*(in|out|varying)\s+` + glslPrecision + `(\w+)\s+(\w+)\s*(?:\[[^\]]*\])?\s*;`)

	// glslSamplerTypeRegex matches every GLSL opaque sampler type
	glslSamplerTypeRegex = regexp.MustCompile(`^[iu]?sampler\w*$`)
)

// GLSLAttributes extracts the vertex inputs of a GLSL vertex stage in declaration order. Inputs without an explicit
// layout location are numbered after the highest explicit one.
//
// Parameters:
//   - source: the GLSL vertex stage source
//
// Returns:
//   - []Attribute: the vertex inputs
func GLSLAttributes(source string) []Attribute {
	cleaned := StripComments(source)
	matches := glslAttributeRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]Attribute, 0, len(matches))
	next := 0
	for _, m := range matches {
		if m[1] != "" {
			if loc, err := strconv.Atoi(m[1]); err == nil && loc >= next {
				next = loc + 1
			}
		}
	}
	for _, m := range matches {
		var loc int
		if m[1] != "" {
			loc, _ = strconv.Atoi(m[1])
		} else {
			loc = next
			next++
		}
		out = append(out, Attribute{Name: m[3], Location: loc, TypeName: m[2]})
	}
	return out
}

// GLSLUniforms extracts the plain uniforms of a GLSL stage in declaration order.
//
// Parameters:
//   - source: the GLSL stage source
//
// Returns:
//   - []Uniform: the uniforms, with Group and Binding set to -1
func GLSLUniforms(source string) []Uniform {
	cleaned := StripComments(source)
	matches := glslUniformRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]Uniform, 0, len(matches))
	for _, m := range matches {
		size := 1
		if m[3] != "" {
			if n, err := strconv.Atoi(m[3]); err == nil {
				size = n
			}
		}
		out = append(out, Uniform{
			Name:      m[2],
			TypeName:  m[1],
			ArraySize: size,
			Sampler:   glslSamplerTypeRegex.MatchString(m[1]),
			Group:     -1,
			Binding:   -1,
		})
	}
	return out
}

// GLSLVaryings splits the inter-stage declarations of a stage into the values it reads from the previous stage and
// the values it writes for the next one. The legacy varying qualifier is an output of vertex stages and an input
// of fragment stages. Vertex inputs are attributes, not varyings, and fragment outputs are color targets, so
// neither is reported.
//
// Parameters:
//   - source: the GLSL stage source
//   - kind: the stage kind the source belongs to
//
// Returns:
//   - []Varying: values read from the previous stage
//   - []Varying: values written for the next stage
func GLSLVaryings(source string, kind common.StageKind) (inputs, outputs []Varying) {
	cleaned := StripComments(source)
	for _, m := range glslVaryingRegex.FindAllStringSubmatch(cleaned, -1) {
		v := Varying{Name: m[3], TypeName: m[2]}
		switch m[1] {
		case "in":
			if kind != common.StageVertex {
				inputs = append(inputs, v)
			}
		case "out":
			if kind != common.StageFragment {
				outputs = append(outputs, v)
			}
		case "varying":
			if kind == common.StageFragment {
				inputs = append(inputs, v)
			} else {
				outputs = append(outputs, v)
			}
		}
	}
	return inputs, outputs
}

// GLSLHasFunction reports whether source defines a void function of the given name, used to find the entry point.
func GLSLHasFunction(source, name string) bool {
	re, err := regexp.Compile(`\bvoid\s+` + regexp.QuoteMeta(name) + `\s*\(\s*(?:void\s*)?\)\s*\{`)
	if err != nil {
		return false
	}
	return re.MatchString(StripComments(source))
}
