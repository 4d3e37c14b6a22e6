package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// Cancelled is the selection reported when the picker is dismissed
const Cancelled = -1

// Option is one selectable row; Index is its position in the caller's data
type Option struct {
	Index  int
	Label  string
	Detail string
}

func (o Option) FilterValue() string { return o.Label + " " + o.Detail }
func (o Option) Title() string       { return o.Label }
func (o Option) Description() string { return o.Detail }

// optionDelegate handles rendering of picker rows
type optionDelegate struct{}

func (d optionDelegate) Height() int                               { return 2 }
func (d optionDelegate) Spacing() int                              { return 1 }
func (d optionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d optionDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(Option)
	if !ok {
		return
	}

	title := "  " + item.Label
	desc := lipgloss.NewStyle().Foreground(ColorTextDim).PaddingLeft(2).Render(item.Detail)
	if index == m.Index() {
		title = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Render("▶ " + item.Label)
	} else {
		title = lipgloss.NewStyle().Foreground(ColorText).Render(title)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// fuzzyFilter ranks options with sahilm/fuzzy, best match first
func fuzzyFilter(term string, targets []string) []list.Rank {
	matches := fuzzy.Find(term, targets)
	ranks := make([]list.Rank, len(matches))
	for i, match := range matches {
		ranks[i] = list.Rank{Index: match.Index, MatchedIndexes: match.MatchedIndexes}
	}
	return ranks
}

// Picker is a modal list that resolves to the Index of the chosen option,
// or Cancelled. An empty picker can only be cancelled.
type Picker struct {
	list     list.Model
	empty    string
	isActive bool
	done     bool
	selected int
	width    int
	height   int
}

// NewPicker creates an active picker over options
func NewPicker(title string, options []Option, filterable bool) *Picker {
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = o
	}

	l := list.New(items, optionDelegate{}, 60, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(filterable)
	l.Filter = fuzzyFilter
	l.DisableQuitKeybindings()

	keyMap := list.DefaultKeyMap()
	keyMap.ShowFullHelp = key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("Ctrl+h", "toggle help"),
	)
	keyMap.Quit.SetEnabled(false)
	keyMap.ForceQuit.SetEnabled(false)
	l.KeyMap = keyMap

	return &Picker{
		list:     l,
		empty:    "Nothing to choose from",
		isActive: true,
		selected: Cancelled,
	}
}

// SetEmptyText sets what the picker shows when there are no options
func (p *Picker) SetEmptyText(text string) {
	p.empty = text
}

// SetSize updates the modal size
func (p *Picker) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.list.SetSize(max(min(width-4, 70), 20), max(min(height-8, 24), 6))
}

// IsActive returns whether the picker still takes input
func (p *Picker) IsActive() bool {
	return p.isActive
}

// Done reports whether the picker resolved
func (p *Picker) Done() bool {
	return p.done
}

// Selected returns the chosen option's Index, or Cancelled
func (p *Picker) Selected() int {
	return p.selected
}

// Len returns the number of options
func (p *Picker) Len() int {
	return len(p.list.Items())
}

// Highlighted returns the Index of the option under the cursor, or Cancelled
func (p *Picker) Highlighted() int {
	if o, ok := p.list.SelectedItem().(Option); ok {
		return o.Index
	}
	return Cancelled
}

// Filtering reports whether the user is typing a filter
func (p *Picker) Filtering() bool {
	return p.list.FilterState() == list.Filtering
}

// Select moves the cursor to the option with the given Index
func (p *Picker) Select(index int) {
	for i, item := range p.list.Items() {
		if o, ok := item.(Option); ok && o.Index == index {
			p.list.Select(i)
			return
		}
	}
}

func (p *Picker) resolve(selected int) {
	p.selected = selected
	p.done = true
	p.isActive = false
}

// Update handles picker input
func (p *Picker) Update(msg tea.Msg) (*Picker, tea.Cmd) {
	if !p.isActive {
		return p, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && !p.Filtering() {
		switch msg.String() {
		case "enter":
			// An empty list has nothing to select
			if idx := p.Highlighted(); idx != Cancelled {
				p.resolve(idx)
			}
			return p, nil
		case "esc":
			if p.list.FilterState() == list.FilterApplied {
				p.list.ResetFilter()
				return p, nil
			}
			p.resolve(Cancelled)
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the picker box
func (p *Picker) View() string {
	content := p.list.View()
	if p.Len() == 0 {
		content = lipgloss.JoinVertical(lipgloss.Left,
			StyleSubtitle.Render(p.list.Title),
			"",
			StyleTextMuted.Render(p.empty))
	}

	instructions := "Enter: select • /: filter • Esc: back"
	if !p.list.FilteringEnabled() {
		instructions = "Enter: select • Esc: back"
	}
	if p.Len() == 0 {
		instructions = "Esc: back"
	}

	return StyleModal.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		"",
		StyleTextDim.Render(instructions),
	))
}
