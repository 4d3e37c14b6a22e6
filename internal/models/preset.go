package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// GlobalScope is the order scope shared by every owner of a preset
const GlobalScope = "global"

// Preset represents a named collection of prompts and the order sequences
// that reference them. The wire shape is owned by the host, so unknown keys
// at the top level and on each scope are preserved in Fields.
type Preset struct {
	Name  string        `json:"-"`
	Items []*Prompt     `json:"items"`
	Order []*OrderScope `json:"order"`

	Fields map[string]json.RawMessage `json:"-"`
}

// OrderScope is one ordered sequence of references, owned by a scope
type OrderScope struct {
	Scope string     `json:"scope"`
	Order []OrderRef `json:"order"`

	Fields map[string]json.RawMessage `json:"-"`
}

// OrderRef points at a prompt by identifier
type OrderRef struct {
	Identifier string `json:"identifier"`
	Enabled    bool   `json:"enabled"`
}

// Summary is the listing view of a preset
type Summary struct {
	Name      string    `json:"name"`
	Items     int       `json:"items"`
	Scopes    int       `json:"scopes"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// presetWire and scopeWire carry the known keys during (un)marshalling
type presetWire struct {
	Items []*Prompt     `json:"items"`
	Order []*OrderScope `json:"order"`
}

type scopeWire struct {
	Scope string     `json:"scope"`
	Order []OrderRef `json:"order"`
}

// UnmarshalJSON decodes a preset, keeping unknown keys verbatim
func (p *Preset) UnmarshalJSON(data []byte) error {
	var wire presetWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	for i, item := range wire.Items {
		if item == nil {
			return fmt.Errorf("items[%d] is null", i)
		}
	}
	extra, err := extraFields(data, "items", "order")
	if err != nil {
		return err
	}
	name := p.Name
	*p = Preset{Name: name, Items: wire.Items, Order: wire.Order, Fields: extra}
	return nil
}

// MarshalJSON encodes the preset with its opaque fields merged back in
func (p Preset) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []*Prompt{}
	}
	order := p.Order
	if order == nil {
		order = []*OrderScope{}
	}
	return mergeFields(presetWire{Items: items, Order: order}, p.Fields)
}

// UnmarshalJSON decodes an order scope, keeping unknown keys verbatim
func (s *OrderScope) UnmarshalJSON(data []byte) error {
	var wire scopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	extra, err := extraFields(data, "scope", "order")
	if err != nil {
		return err
	}
	*s = OrderScope{Scope: wire.Scope, Order: wire.Order, Fields: extra}
	return nil
}

// MarshalJSON encodes the scope with its opaque fields merged back in
func (s OrderScope) MarshalJSON() ([]byte, error) {
	order := s.Order
	if order == nil {
		order = []OrderRef{}
	}
	return mergeFields(scopeWire{Scope: s.Scope, Order: order}, s.Fields)
}

func extraFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func mergeFields(known interface{}, fields map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(fields) == 0 {
		return data, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// Clone returns a deep copy of the preset
func (p *Preset) Clone() *Preset {
	if p == nil {
		return nil
	}
	c := &Preset{Name: p.Name, Fields: cloneFields(p.Fields)}
	if p.Items != nil {
		c.Items = make([]*Prompt, len(p.Items))
		for i, item := range p.Items {
			c.Items[i] = item.Clone()
		}
	}
	if p.Order != nil {
		c.Order = make([]*OrderScope, len(p.Order))
		for i, scope := range p.Order {
			c.Order[i] = scope.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the scope
func (s *OrderScope) Clone() *OrderScope {
	if s == nil {
		return nil
	}
	c := &OrderScope{Scope: s.Scope, Fields: cloneFields(s.Fields)}
	if s.Order != nil {
		c.Order = append([]OrderRef(nil), s.Order...)
	}
	return c
}

func cloneFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if fields == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// Item returns the prompt with the given identifier, or nil
func (p *Preset) Item(identifier string) *Prompt {
	if i := p.ItemIndex(identifier); i >= 0 {
		return p.Items[i]
	}
	return nil
}

// ItemIndex returns the position of the prompt in Items, or -1
func (p *Preset) ItemIndex(identifier string) int {
	for i, item := range p.Items {
		if item != nil && item.Identifier == identifier {
			return i
		}
	}
	return -1
}

// HasItem reports whether a prompt with the identifier exists
func (p *Preset) HasItem(identifier string) bool {
	return p.ItemIndex(identifier) >= 0
}

// Scope returns the order scope with the given name, or nil
func (p *Preset) Scope(name string) *OrderScope {
	for _, s := range p.Order {
		if s != nil && s.Scope == name {
			return s
		}
	}
	return nil
}

// ScopeNames lists the scopes in the order they are stored
func (p *Preset) ScopeNames() []string {
	names := make([]string, 0, len(p.Order))
	for _, s := range p.Order {
		if s != nil {
			names = append(names, s.Scope)
		}
	}
	return names
}

// Summarize builds the listing view of the preset
func (p *Preset) Summarize() Summary {
	return Summary{Name: p.Name, Items: len(p.Items), Scopes: len(p.Order)}
}

// IndexOf returns the slot of the first reference to identifier, or -1
func (s *OrderScope) IndexOf(identifier string) int {
	for i, ref := range s.Order {
		if ref.Identifier == identifier {
			return i
		}
	}
	return -1
}
