package relocate

import (
	"fmt"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
)

// Position addresses a slot in an order scope. A slot is a gap between
// references: slot 0 is before the first reference, slot len is after the last.
type Position struct {
	// Slot is an explicit insert-before index
	Slot int
	// Anchor, when set, addresses the slot relative to an existing reference
	Anchor string
	// After selects the slot following Anchor instead of the one preceding it
	After bool
	// End selects the slot after the last reference
	End bool
}

// AtSlot addresses an explicit slot index
func AtSlot(slot int) Position { return Position{Slot: slot} }

// BeforeItem addresses the slot just before the anchor's reference
func BeforeItem(anchor string) Position { return Position{Anchor: anchor} }

// AfterItem addresses the slot just after the anchor's reference
func AfterItem(anchor string) Position { return Position{Anchor: anchor, After: true} }

// AtEnd addresses the slot after the last reference
func AtEnd() Position { return Position{End: true} }

// String renders the position for logs and messages
func (p Position) String() string {
	switch {
	case p.End:
		return "end"
	case p.Anchor != "" && p.After:
		return fmt.Sprintf("after %s", p.Anchor)
	case p.Anchor != "":
		return fmt.Sprintf("before %s", p.Anchor)
	default:
		return fmt.Sprintf("slot %d", p.Slot)
	}
}

// resolve translates the position into a slot index of refs
func (p Position) resolve(refs []models.OrderRef, scope string) (int, error) {
	length := len(refs)
	if p.End {
		return length, nil
	}
	if p.Anchor != "" {
		for i, ref := range refs {
			if ref.Identifier == p.Anchor {
				if p.After {
					return i + 1, nil
				}
				return i, nil
			}
		}
		return 0, errors.NotFoundError(fmt.Sprintf("anchor prompt '%s' in scope '%s'", p.Anchor, scope))
	}
	if p.Slot < 0 || p.Slot > length {
		return 0, errors.InvalidPositionError(p.Slot, length)
	}
	return p.Slot, nil
}

func insertRef(refs []models.OrderRef, slot int, ref models.OrderRef) []models.OrderRef {
	out := make([]models.OrderRef, 0, len(refs)+1)
	out = append(out, refs[:slot]...)
	out = append(out, ref)
	return append(out, refs[slot:]...)
}
