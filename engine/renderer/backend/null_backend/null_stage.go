package null_backend

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader/reflection"
	"github.com/gogpu/naga"
)

// stageHandle is a compiled stage; the null backend keeps the checked source for reflection at link time.
type stageHandle struct {
	device   *device
	kind     common.StageKind
	language common.ShaderLanguage
	label    string
	source   string
}

var _ backend.StageHandle = &stageHandle{}

func (s *stageHandle) Kind() common.StageKind {
	return s.kind
}

func (s *stageHandle) Destroy() {
	s.source = ""
}

func (d *device) CompileStage(desc backend.StageDescriptor) (backend.StageHandle, error) {
	if !d.supports(desc.Language) {
		return nil, fmt.Errorf("null: %s stage %q: %w", desc.Language, desc.Label, backend.ErrUnsupported)
	}

	d.mu.Lock()
	d.stageCompiles++
	d.mu.Unlock()

	var diag string
	switch desc.Language {
	case common.LanguageWGSL:
		if desc.Kind == common.StageGeometry {
			return nil, fmt.Errorf("null: WGSL geometry stage %q: %w", desc.Label, backend.ErrUnsupported)
		}
		diag = checkWGSL(desc)
	default:
		diag = checkGLSL(desc)
	}
	if diag != "" {
		logger.Debugf("compile %s stage %q failed: %s", desc.Kind, desc.Label, diag)
		return nil, &backend.CompileError{Label: desc.Label, Kind: desc.Kind, Diagnostics: diag}
	}

	return &stageHandle{
		device:   d,
		kind:     desc.Kind,
		language: desc.Language,
		label:    desc.Label,
		source:   desc.Source,
	}, nil
}

// checkWGSL runs the source through the naga front end and checks the stage has its entry point.
func checkWGSL(desc backend.StageDescriptor) string {
	entry := desc.EntryPoint
	if entry == "" {
		entry = reflection.WGSLEntryPoint(desc.Source, desc.Kind)
	}
	if entry == "" || reflection.WGSLEntryPoint(desc.Source, desc.Kind) == "" {
		return fmt.Sprintf("no @%s entry point", desc.Kind)
	}
	if _, err := naga.Compile(desc.Source); err != nil {
		return err.Error()
	}
	return ""
}

// checkGLSL is a light GLSL front end: balanced delimiters, the entry point function, and geometry limits.
func checkGLSL(desc backend.StageDescriptor) string {
	cleaned := reflection.StripComments(desc.Source)
	if strings.TrimSpace(cleaned) == "" {
		return "empty source"
	}
	if msg := checkBalanced(cleaned); msg != "" {
		return msg
	}
	entry := desc.EntryPoint
	if entry == "" {
		entry = "main"
	}
	if !reflection.GLSLHasFunction(cleaned, entry) {
		return fmt.Sprintf("'%s' : function not defined", entry)
	}
	if desc.Kind == common.StageGeometry && desc.MaxOutputVertices <= 0 {
		return "geometry stage needs a positive max_vertices"
	}
	return ""
}

func checkBalanced(source string) string {
	pairs := map[byte]byte{')': '(', '}': '{', ']': '['}
	var stack []byte
	line := 1
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch c {
		case '\n':
			line++
		case '(', '{', '[':
			stack = append(stack, c)
		case ')', '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return fmt.Sprintf("line %d: unexpected '%c'", line, c)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Sprintf("unexpected end of source, unclosed '%c'", stack[len(stack)-1])
	}
	return ""
}
