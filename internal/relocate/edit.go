package relocate

import (
	"fmt"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
)

// Reorder moves the reference to identifier within one scope of a preset.
// The position is addressed in the scope as it looks once the reference has
// been taken out, so valid slots are [0, len-1]. Items are left untouched.
func Reorder(preset *models.Preset, identifier string, pos Position, scope string) (*models.Preset, error) {
	if preset == nil {
		return nil, errors.ValidationError("preset is required")
	}
	scope = scopeOrGlobal(scope)

	s := preset.Scope(scope)
	if s == nil {
		return nil, errors.NotFoundError(fmt.Sprintf("scope '%s' in preset '%s'", scope, preset.Name))
	}
	idx := s.IndexOf(identifier)
	if idx < 0 {
		return nil, errors.NotFoundError(fmt.Sprintf("prompt '%s' in scope '%s'", identifier, scope))
	}
	if pos.Anchor == identifier {
		return nil, errors.ValidationError("a prompt cannot be positioned relative to itself")
	}

	ref := s.Order[idx]
	rest := make([]models.OrderRef, 0, len(s.Order)-1)
	rest = append(rest, s.Order[:idx]...)
	rest = append(rest, s.Order[idx+1:]...)

	slot, err := pos.resolve(rest, scope)
	if err != nil {
		return nil, err
	}

	updated := preset.Clone()
	updated.Scope(scope).Order = insertRef(rest, slot, ref)
	return updated, nil
}

// Remove deletes a prompt and every reference to it from the preset. It is
// also how a user reconciles a move that was only half persisted.
func Remove(preset *models.Preset, identifier string) (*models.Preset, error) {
	if preset == nil {
		return nil, errors.ValidationError("preset is required")
	}
	if !isTaken(preset, identifier) {
		return nil, errors.NotFoundError(fmt.Sprintf("prompt '%s' in preset '%s'", identifier, preset.Name))
	}

	updated := preset.Clone()
	stripPrompt(updated, identifier)
	return updated, nil
}
