package ui

import (
	"fmt"

	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/relocate"
	"github.com/dpshade/prompt-mover/internal/service"
)

// Step is where the selection flow currently is
type Step int

const (
	StepSource Step = iota
	StepItem
	StepTarget
	StepSlot
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepSource:
		return "source"
	case StepItem:
		return "item"
	case StepTarget:
		return "target"
	case StepSlot:
		return "slot"
	case StepConfirm:
		return "confirm"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Session is the state of one relocation being assembled in the UI.
// Transitions return a new Session and never modify the receiver.
type Session struct {
	Mode  relocate.Mode
	Scope string
	Step  Step

	SourceName string
	Item       *models.Prompt
	TargetName string
	Slot       int
}

// NewSession starts a flow at the source step
func NewSession(mode relocate.Mode, scope string) Session {
	if mode == "" {
		mode = relocate.ModeCopy
	}
	return Session{Mode: mode, Scope: scope, Step: StepSource}
}

// WithSource picks the source preset and drops everything chosen after it
func (s Session) WithSource(name string) Session {
	next := s.Reset()
	next.SourceName = name
	next.Step = StepItem
	return next
}

// WithItem picks the prompt to relocate
func (s Session) WithItem(item *models.Prompt) Session {
	if s.Step != StepItem || item == nil {
		return s
	}
	s.Item = item.Clone()
	s.TargetName = ""
	s.Slot = 0
	s.Step = StepTarget
	return s
}

// WithTarget picks the target preset
func (s Session) WithTarget(name string) Session {
	if s.Step != StepTarget {
		return s
	}
	s.TargetName = name
	s.Slot = 0
	s.Step = StepSlot
	return s
}

// WithSlot picks the insertion slot in the target scope
func (s Session) WithSlot(slot int) Session {
	if s.Step != StepSlot || slot < 0 {
		return s
	}
	s.Slot = slot
	s.Step = StepConfirm
	return s
}

// WithMode switches between copy and move
func (s Session) WithMode(mode relocate.Mode) Session {
	s.Mode = mode
	return s
}

// ToggleMode flips between copy and move. A copy that targets its own
// source preset stays a copy.
func (s Session) ToggleMode() Session {
	if s.Mode == relocate.ModeMove {
		return s.WithMode(relocate.ModeCopy)
	}
	if s.SameCollection() {
		return s
	}
	return s.WithMode(relocate.ModeMove)
}

// Back returns to the previous step, forgetting the choice made there
func (s Session) Back() Session {
	switch s.Step {
	case StepItem:
		s.SourceName = ""
		s.Step = StepSource
	case StepTarget:
		s.Item = nil
		s.Step = StepItem
	case StepSlot:
		s.TargetName = ""
		s.Step = StepTarget
	case StepConfirm:
		s.Slot = 0
		s.Step = StepSlot
	}
	return s
}

// Reset starts over, keeping the mode and scope
func (s Session) Reset() Session {
	return NewSession(s.Mode, s.Scope)
}

// SameCollection reports whether the target is the source preset
func (s Session) SameCollection() bool {
	return s.SourceName != "" && s.SourceName == s.TargetName
}

// Operation returns the service request once every choice has been made
func (s Session) Operation() (service.Operation, bool) {
	if s.Step != StepConfirm || s.Item == nil {
		return service.Operation{}, false
	}
	return service.Operation{
		SourceName: s.SourceName,
		TargetName: s.TargetName,
		Identifier: s.Item.Identifier,
		Position:   relocate.AtSlot(s.Slot),
		Mode:       s.Mode,
		Scope:      s.Scope,
	}, true
}

// Breadcrumbs renders the choices made so far
func (s Session) Breadcrumbs() string {
	out := "from: "
	if s.SourceName == "" {
		return out + "…"
	}
	out += s.SourceName
	if s.Item != nil {
		out += " › " + s.Item.Title()
	}
	if s.TargetName != "" {
		out += "  to: " + s.TargetName
	}
	if s.Step == StepConfirm {
		out += fmt.Sprintf(" @ slot %d", s.Slot)
	}
	return out
}
