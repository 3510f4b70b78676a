package backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
)

// CompileError carries the diagnostics of a failed stage compile.
type CompileError struct {
	Label       string
	Kind        common.StageKind
	Diagnostics string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s stage %q: %s", e.Kind, e.Label, e.Diagnostics)
}

// LinkError carries the diagnostics of a failed program link.
type LinkError struct {
	Diagnostics string
}

func (e *LinkError) Error() string {
	return "link: " + e.Diagnostics
}
