package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testOptions() []Option {
	return []Option{
		{Index: 0, Label: "alpha", Detail: "2 prompts"},
		{Index: 3, Label: "beta", Detail: "1 prompt"},
		{Index: 5, Label: "gamma", Detail: "0 prompts"},
	}
}

func TestPicker_EnterSelectsHighlighted(t *testing.T) {
	p := NewPicker("Pick", testOptions(), true)
	if p.Highlighted() != 0 {
		t.Fatalf("Expected first option highlighted, got %d", p.Highlighted())
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.Highlighted() != 3 {
		t.Fatalf("Expected option index 3 highlighted, got %d", p.Highlighted())
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !p.Done() || p.IsActive() {
		t.Fatal("Expected picker to resolve on enter")
	}
	if p.Selected() != 3 {
		t.Errorf("Expected selection 3, got %d", p.Selected())
	}
}

func TestPicker_EscCancels(t *testing.T) {
	p := NewPicker("Pick", testOptions(), true)
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if !p.Done() {
		t.Fatal("Expected picker to resolve on esc")
	}
	if p.Selected() != Cancelled {
		t.Errorf("Expected Cancelled, got %d", p.Selected())
	}
}

func TestPicker_EmptyListOnlyCancels(t *testing.T) {
	p := NewPicker("Pick", nil, true)
	p.SetEmptyText("Nothing here")

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.Done() {
		t.Fatal("Expected enter to be ignored on an empty picker")
	}
	if p.Highlighted() != Cancelled {
		t.Errorf("Expected nothing highlighted, got %d", p.Highlighted())
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !p.Done() || p.Selected() != Cancelled {
		t.Error("Expected esc to cancel an empty picker")
	}
}

func TestPicker_SelectByIndex(t *testing.T) {
	p := NewPicker("Pick", testOptions(), false)
	p.Select(5)
	if p.Highlighted() != 5 {
		t.Errorf("Expected option index 5 highlighted, got %d", p.Highlighted())
	}

	p.Select(42)
	if p.Highlighted() != 5 {
		t.Error("Expected an unknown index to leave the cursor alone")
	}
}

func TestPicker_IgnoresInputOnceResolved(t *testing.T) {
	p := NewPicker("Pick", testOptions(), false)
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if p.Selected() != 0 {
		t.Errorf("Expected the first resolution to stick, got %d", p.Selected())
	}
}

func TestFuzzyFilter(t *testing.T) {
	ranks := fuzzyFilter("bta", []string{"alpha", "beta", "gamma"})
	if len(ranks) != 1 || ranks[0].Index != 1 {
		t.Errorf("Expected only beta to match, got %+v", ranks)
	}
}
