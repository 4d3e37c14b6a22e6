package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt represents a single prompt record inside a preset. Only the
// identifier and name are interpreted; every other field the host stores on
// the record is carried through untouched in Fields.
type Prompt struct {
	Identifier string
	Name       string

	// Fields holds the raw JSON of every other key on the record
	Fields map[string]json.RawMessage
}

const (
	fieldIdentifier = "identifier"
	fieldName       = "name"
)

// UnmarshalJSON decodes a prompt record, keeping unknown keys verbatim
func (p *Prompt) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("prompt record must be a JSON object")
	}

	*p = Prompt{}
	if v, ok := raw[fieldIdentifier]; ok {
		if err := json.Unmarshal(v, &p.Identifier); err != nil {
			return fmt.Errorf("invalid identifier: %w", err)
		}
		delete(raw, fieldIdentifier)
	}
	if v, ok := raw[fieldName]; ok {
		if err := json.Unmarshal(v, &p.Name); err != nil {
			return fmt.Errorf("invalid name for %q: %w", p.Identifier, err)
		}
		delete(raw, fieldName)
	}
	if len(raw) > 0 {
		p.Fields = raw
	}
	return nil
}

// MarshalJSON encodes the prompt with its opaque fields merged back in
func (p Prompt) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}

	id, err := json.Marshal(p.Identifier)
	if err != nil {
		return nil, err
	}
	out[fieldIdentifier] = id

	name, err := json.Marshal(p.Name)
	if err != nil {
		return nil, err
	}
	out[fieldName] = name

	return json.Marshal(out)
}

// Clone returns a deep copy of the prompt
func (p *Prompt) Clone() *Prompt {
	if p == nil {
		return nil
	}
	c := &Prompt{Identifier: p.Identifier, Name: p.Name}
	if p.Fields != nil {
		c.Fields = make(map[string]json.RawMessage, len(p.Fields))
		for k, v := range p.Fields {
			c.Fields[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// Stub returns the placeholder record used for order entries whose item is missing
func Stub(identifier string) *Prompt {
	return &Prompt{Identifier: identifier, Name: identifier}
}

// StringField decodes an opaque string field, returning "" when absent or not a string
func (p *Prompt) StringField(key string) string {
	v, ok := p.Fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// BoolField decodes an opaque boolean field
func (p *Prompt) BoolField(key string) bool {
	v, ok := p.Fields[key]
	if !ok {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(v), []byte("true"))
}

// Content returns the prompt text, if the host stores one
func (p *Prompt) Content() string { return p.StringField("content") }

// Role returns the chat role of the prompt, if any
func (p *Prompt) Role() string { return p.StringField("role") }

// IsMarker reports whether the record is a position marker rather than text
func (p *Prompt) IsMarker() bool { return p.BoolField("marker") }

// Implement list.Item interface for bubbles list component

// FilterValue returns the value used for filtering in lists
func (p *Prompt) FilterValue() string {
	return cleanString(p.Name + " " + p.Identifier)
}

// Title satisfies the list.Item interface
func (p *Prompt) Title() string {
	if p.Name != "" {
		return cleanString(p.Name)
	}
	return cleanString(p.Identifier)
}

// Description satisfies the list.Item interface
func (p *Prompt) Description() string {
	parts := []string{p.Identifier}
	if role := p.Role(); role != "" {
		parts = append(parts, "role: "+role)
	}
	if p.IsMarker() {
		parts = append(parts, "marker")
	} else if content := cleanString(p.Content()); content != "" {
		maxContentLength := 60
		if len(content) > maxContentLength {
			content = content[:maxContentLength-3] + "..."
		}
		parts = append(parts, content)
	}
	return cleanString(strings.Join(parts, " • "))
}

// cleanString removes problematic characters that might cause rendering issues
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
		} else if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
