package ui

import (
	"testing"

	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/relocate"
)

func TestSession_FullFlow(t *testing.T) {
	item := &models.Prompt{Identifier: "p1", Name: "Foo"}

	s := NewSession("", "global")
	if s.Mode != relocate.ModeCopy {
		t.Fatalf("Expected default mode copy, got %s", s.Mode)
	}
	if _, ok := s.Operation(); ok {
		t.Fatal("Expected no operation before every choice is made")
	}

	s = s.WithSource("alpha").WithItem(item).WithTarget("beta").WithSlot(2)
	if s.Step != StepConfirm {
		t.Fatalf("Expected confirm step, got %s", s.Step)
	}

	op, ok := s.Operation()
	if !ok {
		t.Fatal("Expected an operation at the confirm step")
	}
	if op.SourceName != "alpha" || op.TargetName != "beta" || op.Identifier != "p1" {
		t.Errorf("Unexpected operation %+v", op)
	}
	if op.Position != relocate.AtSlot(2) {
		t.Errorf("Expected slot 2, got %s", op.Position)
	}
	if op.Scope != "global" {
		t.Errorf("Expected scope global, got %s", op.Scope)
	}
}

func TestSession_TransitionsDoNotModifyReceiver(t *testing.T) {
	s := NewSession(relocate.ModeCopy, "global").WithSource("alpha")
	next := s.WithItem(&models.Prompt{Identifier: "p1"})

	if s.Step != StepItem || s.Item != nil {
		t.Error("Expected the original session to be unchanged")
	}
	if next.Step != StepTarget {
		t.Errorf("Expected target step, got %s", next.Step)
	}
}

func TestSession_ItemIsCloned(t *testing.T) {
	item := &models.Prompt{Identifier: "p1", Name: "Foo"}
	s := NewSession(relocate.ModeCopy, "global").WithSource("alpha").WithItem(item)

	item.Name = "Changed"
	if s.Item.Name != "Foo" {
		t.Errorf("Expected the session to keep its own copy, got %q", s.Item.Name)
	}
}

func TestSession_OutOfOrderTransitionsAreIgnored(t *testing.T) {
	s := NewSession(relocate.ModeCopy, "global")

	if got := s.WithTarget("beta"); got.TargetName != "" {
		t.Error("Expected target to be ignored before a source is chosen")
	}
	if got := s.WithSlot(1); got.Step != StepSource {
		t.Error("Expected slot to be ignored at the source step")
	}

	atSlot := s.WithSource("a").WithItem(&models.Prompt{Identifier: "p1"}).WithTarget("b")
	if got := atSlot.WithSlot(-1); got.Step != StepSlot {
		t.Error("Expected a negative slot to be rejected")
	}
}

func TestSession_Back(t *testing.T) {
	s := NewSession(relocate.ModeMove, "global").
		WithSource("alpha").
		WithItem(&models.Prompt{Identifier: "p1"}).
		WithTarget("beta").
		WithSlot(1)

	steps := []Step{StepSlot, StepTarget, StepItem, StepSource, StepSource}
	for _, want := range steps {
		s = s.Back()
		if s.Step != want {
			t.Fatalf("Expected step %s, got %s", want, s.Step)
		}
	}
	if s.SourceName != "" || s.Item != nil || s.TargetName != "" || s.Slot != 0 {
		t.Errorf("Expected every choice to be forgotten, got %+v", s)
	}
	if s.Mode != relocate.ModeMove {
		t.Error("Expected Back to keep the mode")
	}
}

func TestSession_ToggleModeAndReset(t *testing.T) {
	s := NewSession(relocate.ModeCopy, "100001").WithSource("alpha")

	s = s.ToggleMode()
	if s.Mode != relocate.ModeMove {
		t.Errorf("Expected move, got %s", s.Mode)
	}
	if s.SourceName != "alpha" {
		t.Error("Expected toggling to keep the choices")
	}

	s = s.Reset()
	if s.Step != StepSource || s.SourceName != "" {
		t.Error("Expected reset to start over")
	}
	if s.Mode != relocate.ModeMove || s.Scope != "100001" {
		t.Error("Expected reset to keep mode and scope")
	}
}

func TestSession_ToggleKeepsSameCollectionCopy(t *testing.T) {
	s := NewSession(relocate.ModeCopy, "global").
		WithSource("alpha").
		WithItem(&models.Prompt{Identifier: "p1", Name: "Foo"}).
		WithTarget("alpha")

	if got := s.ToggleMode().Mode; got != relocate.ModeCopy {
		t.Errorf("Expected copy into the source preset to stay a copy, got %s", got)
	}
	if got := s.WithSlot(0).ToggleMode().Mode; got != relocate.ModeCopy {
		t.Errorf("Expected confirm step to stay a copy, got %s", got)
	}
}

func TestSession_SameCollectionAndBreadcrumbs(t *testing.T) {
	s := NewSession(relocate.ModeCopy, "global")
	if got := s.Breadcrumbs(); got != "from: …" {
		t.Errorf("Unexpected breadcrumbs %q", got)
	}

	s = s.WithSource("alpha").WithItem(&models.Prompt{Identifier: "p1", Name: "Foo"}).WithTarget("alpha")
	if !s.SameCollection() {
		t.Error("Expected same collection")
	}

	s = s.WithSlot(0)
	if got, want := s.Breadcrumbs(), "from: alpha › Foo  to: alpha @ slot 0"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
