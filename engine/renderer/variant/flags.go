package variant

import (
	"fmt"
	"math/bits"
)

// Scope names the stages a flag switches feature blocks in.
type Scope int

const (
	ScopeBoth Scope = iota
	ScopeVertex
	ScopeFragment
)

func (s Scope) String() string {
	switch s {
	case ScopeBoth:
		return "both"
	case ScopeVertex:
		return "vertex"
	case ScopeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope resolves "vertex", "fragment" or "both" to a Scope. The empty string means both.
func ParseScope(name string) (Scope, error) {
	switch name {
	case "", "both":
		return ScopeBoth, nil
	case "vertex":
		return ScopeVertex, nil
	case "fragment":
		return ScopeFragment, nil
	default:
		return 0, fmt.Errorf("unknown flag scope %q", name)
	}
}

// FlagSet is a set of feature flags of one cache, one bit per flag in declaration order.
type FlagSet uint64

// Has reports whether every flag of other is set in f.
func (f FlagSet) Has(other FlagSet) bool {
	return f&other == other
}

// With returns f plus other.
func (f FlagSet) With(other FlagSet) FlagSet {
	return f | other
}

// Without returns f minus other.
func (f FlagSet) Without(other FlagSet) FlagSet {
	return f &^ other
}

// Len returns the number of flags set.
func (f FlagSet) Len() int {
	return bits.OnesCount64(uint64(f))
}

type flag struct {
	name  string
	bit   FlagSet
	scope Scope
}
