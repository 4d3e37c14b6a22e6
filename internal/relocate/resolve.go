package relocate

import "github.com/dpshade/prompt-mover/internal/models"

// ResolvedRef is one row of the ordered view of a preset
type ResolvedRef struct {
	// Slot is the position of the reference in the scope
	Slot       int
	Identifier string
	Enabled    bool
	Item       *models.Prompt
	// Stub is set when the reference has no matching item
	Stub bool
}

// ResolveOrder builds the ordered view of a scope, defaulting to the global
// scope. References without an item resolve to a stub named after the
// identifier. The view holds copies, so it can never be used to modify the preset.
func ResolveOrder(preset *models.Preset, scope string) []ResolvedRef {
	if preset == nil {
		return []ResolvedRef{}
	}
	s := preset.Scope(scopeOrGlobal(scope))
	if s == nil {
		return []ResolvedRef{}
	}

	view := make([]ResolvedRef, 0, len(s.Order))
	for i, ref := range s.Order {
		row := ResolvedRef{Slot: i, Identifier: ref.Identifier, Enabled: ref.Enabled}
		if item := preset.Item(ref.Identifier); item != nil {
			row.Item = item.Clone()
		} else {
			row.Item = models.Stub(ref.Identifier)
			row.Stub = true
		}
		view = append(view, row)
	}
	return view
}
