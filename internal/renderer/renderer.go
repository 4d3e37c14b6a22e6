// Package renderer turns prompts and ordered views into text for the
// terminal: plain text, JSON and glamour-rendered markdown.
package renderer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/relocate"
)

// Renderer handles prompt rendering
type Renderer struct {
	prompt *models.Prompt
}

// NewRenderer creates a new renderer instance
func NewRenderer(prompt *models.Prompt) *Renderer {
	return &Renderer{prompt: prompt}
}

// RenderText renders the prompt content as plain text
func (r *Renderer) RenderText() string {
	if r.prompt.IsMarker() {
		return fmt.Sprintf("[marker: %s]", r.prompt.Identifier)
	}
	return r.prompt.Content()
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RenderJSON renders the prompt as a JSON message array for LLM APIs
func (r *Renderer) RenderJSON() (string, error) {
	role := r.prompt.Role()
	if role == "" {
		role = "system"
	}
	messages := []Message{{Role: role, Content: r.prompt.Content()}}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// RenderRecord renders the full prompt record as the host stores it
func (r *Renderer) RenderRecord() (string, error) {
	jsonBytes, err := json.MarshalIndent(r.prompt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	return string(jsonBytes), nil
}

// RenderMarkdown renders a preview document for glamour
func (r *Renderer) RenderMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.prompt.Title())

	meta := []string{fmt.Sprintf("`%s`", r.prompt.Identifier)}
	if role := r.prompt.Role(); role != "" {
		meta = append(meta, "role: "+role)
	}
	if r.prompt.IsMarker() {
		meta = append(meta, "marker")
	}
	b.WriteString(strings.Join(meta, " · "))
	b.WriteString("\n\n")

	if content := r.prompt.Content(); content != "" {
		b.WriteString("```\n")
		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	} else if !r.prompt.IsMarker() {
		b.WriteString("_No content_\n")
	}
	return b.String()
}

// NewTermRenderer creates a glamour renderer with improved contrast handling
func NewTermRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	// Check for environment variable override first
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()
	var styleOption glamour.TermRendererOption
	switch {
	case profile == termenv.Ascii:
		styleOption = glamour.WithStandardStyle("notty")
	case profile != termenv.TrueColor && profile != termenv.ANSI256:
		styleOption = glamour.WithAutoStyle()
	case lipgloss.HasDarkBackground():
		styleOption = glamour.WithStandardStyle("dark")
	default:
		styleOption = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// OrderRow is one line of a rendered order
type OrderRow struct {
	Slot       int    `json:"slot"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Missing    bool   `json:"missing,omitempty"`
}

// OrderRows flattens an ordered view for display
func OrderRows(view []relocate.ResolvedRef) []OrderRow {
	rows := make([]OrderRow, len(view))
	for i, ref := range view {
		rows[i] = OrderRow{
			Slot:       ref.Slot,
			Identifier: ref.Identifier,
			Name:       ref.Item.Name,
			Enabled:    ref.Enabled,
			Missing:    ref.Stub,
		}
	}
	return rows
}

// RenderOrderText renders an ordered view as aligned text lines
func RenderOrderText(view []relocate.ResolvedRef) string {
	if len(view) == 0 {
		return "(empty)\n"
	}

	width := 0
	for _, ref := range view {
		if len(ref.Identifier) > width {
			width = len(ref.Identifier)
		}
	}

	var b strings.Builder
	for _, ref := range view {
		mark := "x"
		if !ref.Enabled {
			mark = " "
		}
		line := fmt.Sprintf("%3d [%s] %-*s  %s", ref.Slot, mark, width, ref.Identifier, ref.Item.Title())
		if ref.Stub {
			line += "  (missing)"
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderOrderJSON renders an ordered view as a JSON array
func RenderOrderJSON(view []relocate.ResolvedRef) (string, error) {
	jsonBytes, err := json.MarshalIndent(OrderRows(view), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}
	return string(jsonBytes), nil
}

// RenderOrderMarkdown renders an ordered view as a markdown table
func RenderOrderMarkdown(title string, view []relocate.ResolvedRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(view) == 0 {
		b.WriteString("_No prompts in this scope_\n")
		return b.String()
	}
	b.WriteString("| Slot | Identifier | Name | Enabled |\n|---:|---|---|:---:|\n")
	for _, ref := range view {
		enabled := "✓"
		if !ref.Enabled {
			enabled = ""
		}
		name := ref.Item.Title()
		if ref.Stub {
			name += " _(missing)_"
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n", ref.Slot, ref.Identifier, strings.ReplaceAll(name, "|", "\\|"), enabled)
	}
	return b.String()
}
