package vertex

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
)

// Attribute is one declared channel of a vertex.
type Attribute struct {
	Semantic common.Semantic
	Channel  int
	Type     common.AttributeType

	// Offset is the byte offset of the attribute within one vertex.
	Offset int

	// Size, TypeCode and Components are resolved by the backend device when the attribute is added.
	Size       int
	TypeCode   uint32
	Components int
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s%d:%s@%d", a.Semantic, a.Channel, a.Type, a.Offset)
}

// checkDeclaration validates a (semantic, channel, type) triple on its own, without looking at other attributes.
func checkDeclaration(semantic common.Semantic, channel int, t common.AttributeType) error {
	if semantic < 0 || int(semantic) >= len(common.Semantics()) {
		return fmt.Errorf("%w: unknown semantic %d", ErrDeclarationConflict, int(semantic))
	}
	if t.Components() == 0 {
		return fmt.Errorf("%w: unknown attribute type %d", ErrDeclarationConflict, int(t))
	}
	if channel < 0 {
		return fmt.Errorf("%w: negative channel %d for %s", ErrDeclarationConflict, channel, semantic)
	}
	if limit := common.MaxChannels(semantic); limit > 0 && channel >= limit {
		return fmt.Errorf("%w: %s allows channels 0..%d, got %d", ErrDeclarationConflict, semantic, limit-1, channel)
	}

	switch semantic {
	case common.SemanticNormal, common.SemanticTangent, common.SemanticBinormal:
		if t != common.AttributeTypeFloat3 && t != common.AttributeTypeHalf3 {
			return fmt.Errorf("%w: %s needs a 3-component float type, got %s", ErrDeclarationConflict, semantic, t)
		}
	case common.SemanticColor:
		if t != common.AttributeTypeRGBA {
			return fmt.Errorf("%w: %s needs %s, got %s", ErrDeclarationConflict, semantic, common.AttributeTypeRGBA, t)
		}
	}
	return nil
}
