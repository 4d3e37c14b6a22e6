// Package relocate implements copying, moving and reordering prompts between
// presets.
//
// Every operation is a pure function: inputs are validated first, then deep
// copied, and only the copies are modified and returned. Persisting the
// returned presets is the caller's job (see internal/service).
//
// A preset keeps two views of its prompts that must stay consistent: the flat
// Items list and one or more ordered scopes of references. Relocate inserts
// the copied prompt at a slot of the edited scope and appends it to every
// other scope; a move then strips the prompt and all its references from the
// source preset.
package relocate
