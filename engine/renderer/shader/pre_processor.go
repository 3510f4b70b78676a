// pre_processor.go implements the variant pre-processor. It scans stage source line by line and resolves
// #ifdef/#ifndef/#else/#endif blocks against the set of enabled flag names, so that one template yields one
// deterministic source text per flag combination. Directives it does not own (#if, #elif, #define, ...) pass
// through untouched, which lets GLSL templates keep their own conditional code.
//
// For GLSL, the enabled names are also emitted as #define lines right after the #version line so that
// templates may test them with #if defined(NAME) expressions the pre-processor leaves to the compiler.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-hal/common"
)

var (
	// precisionStatementRegex matches GLSL ES default precision statements such as "precision mediump float;"
	precisionStatementRegex = regexp.MustCompile(`^\s*precision\s+(?:highp|mediump|lowp)\s+\w+\s*;\s*$`)

	// precisionQualifierRegex matches precision qualifiers in declarations
	precisionQualifierRegex = regexp.MustCompile(`\b(?:highp|mediump|lowp)\s+`)
)

// frame is one open conditional block.
type frame struct {
	// owned blocks are resolved by the pre-processor; the others pass through to the compiler.
	owned    bool
	taken    bool
	seenElse bool
	line     int
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	language       common.ShaderLanguage
	stripPrecision bool
}

// PreProcessor synthesizes stage source from a template and a set of enabled flag names.
type PreProcessor interface {
	// Process resolves the flag blocks of source against defines. The same source and the same set of defines
	// always produce byte-identical output, whatever order the defines are given in.
	//
	// Parameters:
	//   - source: the template source
	//   - defines: the enabled flag names
	//
	// Returns:
	//   - string: the synthesized source
	//   - error: an error for unbalanced or malformed flag blocks
	Process(source string, defines []string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// PreProcessorOption is a functional option applied to a pre-processor via NewPreProcessor.
type PreProcessorOption func(*preProcessor)

// WithPrecisionStrip removes GLSL ES precision statements and qualifiers from the output, for templates written
// against GLSL ES that are compiled by desktop GLSL compilers which reject them.
func WithPrecisionStrip() PreProcessorOption {
	return func(p *preProcessor) {
		p.stripPrecision = true
	}
}

// NewPreProcessor creates a PreProcessor for the given language family.
//
// Parameters:
//   - language: the language family of the templates
//   - options: variadic list of PreProcessorOption functions
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(language common.ShaderLanguage, options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{language: language}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string, defines []string) (string, error) {
	enabled := make(map[string]bool, len(defines))
	for _, d := range defines {
		enabled[d] = true
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []frame

	emitting := func() bool {
		for _, f := range stack {
			if f.owned && !f.taken {
				return false
			}
		}
		return true
	}

	for i, line := range lines {
		lineNum := i + 1
		directive, arg := splitDirective(line)

		switch directive {
		case "#ifdef", "#ifndef":
			if arg == "" {
				return "", fmt.Errorf("line %d: %s needs a flag name", lineNum, directive)
			}
			taken := enabled[arg]
			if directive == "#ifndef" {
				taken = !taken
			}
			stack = append(stack, frame{owned: true, taken: taken, line: lineNum})
		case "#if":
			if emitting() {
				out = append(out, line)
			}
			stack = append(stack, frame{line: lineNum})
		case "#elif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #elif without #if", lineNum)
			}
			if stack[len(stack)-1].owned {
				return "", fmt.Errorf("line %d: #elif cannot continue a flag block opened on line %d", lineNum, stack[len(stack)-1].line)
			}
			if emitting() {
				out = append(out, line)
			}
		case "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without #if", lineNum)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", fmt.Errorf("line %d: second #else for block opened on line %d", lineNum, top.line)
			}
			top.seenElse = true
			if top.owned {
				top.taken = !top.taken
			} else if emitting() {
				out = append(out, line)
			}
		case "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without #if", lineNum)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !top.owned && emitting() {
				out = append(out, line)
			}
		default:
			if !emitting() {
				continue
			}
			if p.stripPrecision {
				if precisionStatementRegex.MatchString(line) {
					continue
				}
				line = precisionQualifierRegex.ReplaceAllString(line, "")
			}
			out = append(out, line)
		}
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: unterminated conditional block", stack[len(stack)-1].line)
	}

	if p.language == common.LanguageGLSL && len(enabled) > 0 {
		out = injectDefines(out, enabled)
	}
	return strings.Join(out, "\n"), nil
}

// splitDirective returns the directive keyword of a pre-processor line and its first argument.
// Lines that are not directives return two empty strings.
func splitDirective(line string) (string, string) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", ""
	}
	fields := strings.Fields(strings.TrimSpace(trimmed[1:]))
	if len(fields) == 0 {
		return "", ""
	}
	// "#if(" is legal GLSL; normalize it to "#if".
	keyword := fields[0]
	if strings.HasPrefix(keyword, "if(") {
		keyword = "if"
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	return "#" + keyword, arg
}

// injectDefines inserts one sorted #define line per enabled name after the #version line, or at the top
// when the source has none.
func injectDefines(lines []string, enabled map[string]bool) []string {
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	slices.Sort(names)

	defs := make([]string, len(names))
	for i, name := range names {
		defs[i] = "#define " + name
	}

	at := 0
	for i, line := range lines {
		if d, _ := splitDirective(line); d == "#version" {
			at = i + 1
			break
		}
	}
	out := make([]string, 0, len(lines)+len(defs))
	out = append(out, lines[:at]...)
	out = append(out, defs...)
	out = append(out, lines[at:]...)
	return out
}
