package relocate

import (
	"fmt"
	"strings"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
)

// Mode selects whether the source keeps its prompt
type Mode string

const (
	ModeCopy Mode = "copy"
	ModeMove Mode = "move"
)

// ParseMode converts user input into a Mode
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeCopy:
		return ModeCopy, nil
	case ModeMove:
		return ModeMove, nil
	default:
		return "", errors.NewAppError(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown mode '%s' (expected copy or move)", raw))
	}
}

// Request describes one relocation
type Request struct {
	Source     *models.Preset
	Target     *models.Preset
	Identifier string
	Position   Position
	Mode       Mode
	// Scope is the order scope being edited; empty means the global scope
	Scope string
}

// Result carries the updated presets. When source and target are the same
// preset both fields point at the same value.
type Result struct {
	Source *models.Preset
	Target *models.Preset
	// Item is the prompt as inserted into the target
	Item *models.Prompt
	// Renamed is set when the identifier had to be disambiguated
	Renamed bool
}

// SameCollection reports whether the relocation stayed inside one preset
func (r *Result) SameCollection() bool {
	return r.Source == r.Target
}

// Relocate copies or moves one prompt from req.Source into req.Target.
//
// Source and target are the same collection when their names match. Copying
// within one preset yields a disambiguated duplicate; moving within one
// preset is rejected with SAME_COLLECTION_MOVE (use Reorder instead).
// Validation errors are returned before anything is copied, and the inputs
// are never modified.
func Relocate(req Request) (*Result, error) {
	if req.Source == nil || req.Target == nil {
		return nil, errors.ValidationError("source and target presets are required")
	}
	if req.Identifier == "" {
		return nil, errors.NewAppError(errors.ErrCodeMissingField, "prompt identifier is required")
	}
	if req.Mode != ModeCopy && req.Mode != ModeMove {
		return nil, errors.NewAppError(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown mode '%s'", req.Mode))
	}
	scope := scopeOrGlobal(req.Scope)

	same := req.Source.Name == req.Target.Name
	if same && req.Mode == ModeMove {
		return nil, errors.SameCollectionMoveError(req.Source.Name)
	}

	original := req.Source.Item(req.Identifier)
	if original == nil {
		return nil, errors.NotFoundError(fmt.Sprintf("prompt '%s' in preset '%s'", req.Identifier, req.Source.Name))
	}

	var primary []models.OrderRef
	if s := req.Target.Scope(scope); s != nil {
		primary = s.Order
	}
	slot, err := req.Position.resolve(primary, scope)
	if err != nil {
		return nil, err
	}

	target := req.Target.Clone()
	source := target
	if !same {
		source = req.Source.Clone()
	}

	item := original.Clone()
	id, n := UniqueIdentifier(item.Identifier, func(candidate string) bool {
		return isTaken(target, candidate)
	})
	item.Identifier = id
	item.Name = DisplayName(item.Name, n)
	target.Items = append(target.Items, item)

	ref := models.OrderRef{Identifier: item.Identifier, Enabled: true}
	if s := target.Scope(scope); s != nil {
		s.Order = insertRef(s.Order, slot, ref)
	} else {
		target.Order = append(target.Order, &models.OrderScope{Scope: scope, Order: []models.OrderRef{ref}})
	}
	for _, s := range target.Order {
		if s != nil && s.Scope != scope {
			s.Order = append(s.Order, ref)
		}
	}

	if req.Mode == ModeMove {
		stripPrompt(source, original.Identifier)
	}

	return &Result{
		Source:  source,
		Target:  target,
		Item:    item.Clone(),
		Renamed: n > 0,
	}, nil
}

// isTaken reports whether an identifier is used by an item or referenced by
// any scope. Dangling references count so a new prompt never adopts one.
func isTaken(preset *models.Preset, identifier string) bool {
	if preset.HasItem(identifier) {
		return true
	}
	for _, s := range preset.Order {
		if s != nil && s.IndexOf(identifier) >= 0 {
			return true
		}
	}
	return false
}

// stripPrompt removes the item and every reference to it, in place
func stripPrompt(preset *models.Preset, identifier string) {
	items := preset.Items[:0]
	for _, item := range preset.Items {
		if item != nil && item.Identifier == identifier {
			continue
		}
		items = append(items, item)
	}
	preset.Items = items

	for _, s := range preset.Order {
		if s == nil {
			continue
		}
		refs := s.Order[:0]
		for _, ref := range s.Order {
			if ref.Identifier != identifier {
				refs = append(refs, ref)
			}
		}
		s.Order = refs
	}
}

func scopeOrGlobal(scope string) string {
	if scope == "" {
		return models.GlobalScope
	}
	return scope
}
