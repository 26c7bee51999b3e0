package entity

import (
	"fmt"

	"github.com/c360/semlink/vocabulary"
)

// FieldState is the observable state of a reference field.
type FieldState int

const (
	// Unset fields hold neither an identifier nor an entity
	Unset FieldState = iota
	// Pending fields hold identifiers of which at least one position is not yet resolved
	Pending
	// Resolved fields have every position materialized, possibly to nil
	Resolved
)

// String returns the string representation of FieldState
func (s FieldState) String() string {
	switch s {
	case Unset:
		return "unset"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// slot holds one reference field. ids are kept for export whether or not the
// positions are resolved. known[i] is true once position i was supplied as an
// entity or went through a successful resolver call.
type slot struct {
	ids      []string
	resolved []*Entity
	known    []bool
	list     bool
	gen      uint64
}

func (s *slot) state() FieldState {
	if s.complete() {
		return Resolved
	}
	return Pending
}

func (s *slot) complete() bool {
	for _, k := range s.known {
		if !k {
			return false
		}
	}
	return true
}

func (s *slot) unknownIDs() []string {
	seen := make(map[string]bool, len(s.ids))
	var out []string
	for i, id := range s.ids {
		if !s.known[i] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// apply stores resolver output. With final set, positions missing from nodes
// become known nil slots; otherwise they stay pending for the next access.
func (s *slot) apply(nodes map[string]*Entity, final bool) {
	for i, id := range s.ids {
		if s.known[i] {
			continue
		}
		if e := nodes[id]; e != nil {
			s.resolved[i] = e
			s.known[i] = true
		} else if final {
			s.known[i] = true
		}
	}
}

// forget marks nil positions as unknown so they are resolved again.
func (s *slot) forget() {
	for i := range s.ids {
		if s.resolved[i] == nil {
			s.known[i] = false
		}
	}
}

func (s *slot) value() any {
	if s.list {
		out := make([]*Entity, len(s.resolved))
		copy(out, s.resolved)
		return out
	}
	if len(s.resolved) == 0 || s.resolved[0] == nil {
		return nil
	}
	return s.resolved[0]
}

func (s *slot) export() any {
	if s.list {
		out := make([]string, len(s.ids))
		copy(out, s.ids)
		return out
	}
	if len(s.ids) == 0 {
		return nil
	}
	return s.ids[0]
}

// newSlot splits a reference input into identifiers and supplied entities.
// Accepted inputs: an identifier string, *Entity, a node object {"@id": ...},
// or a list of those in any mix. The field decides list-ness: a scalar field
// accepts a list of at most one element.
func newSlot(f Field, value any) (*slot, error) {
	s := &slot{list: f.List}

	add := func(item any) error {
		id, e, err := refItem(item)
		if err != nil {
			return err
		}
		s.ids = append(s.ids, id)
		s.resolved = append(s.resolved, e)
		s.known = append(s.known, e != nil)
		return nil
	}

	switch v := value.(type) {
	case []string:
		for _, id := range v {
			if err := add(id); err != nil {
				return nil, err
			}
		}
	case []*Entity:
		for _, e := range v {
			if err := add(e); err != nil {
				return nil, err
			}
		}
	case []any:
		for _, item := range v {
			if err := add(item); err != nil {
				return nil, err
			}
		}
	default:
		if err := add(v); err != nil {
			return nil, err
		}
	}
	if !s.list && len(s.ids) > 1 {
		return nil, fmt.Errorf("%w: %d values for single reference", ErrFieldType, len(s.ids))
	}
	return s, nil
}

func refItem(item any) (string, *Entity, error) {
	switch v := item.(type) {
	case string:
		if v == "" {
			return "", nil, fmt.Errorf("%w: empty identifier", ErrFieldType)
		}
		return v, nil, nil
	case *Entity:
		if v == nil {
			return "", nil, fmt.Errorf("%w: nil entity", ErrFieldType)
		}
		id, err := v.Identifier()
		if err != nil {
			return "", nil, err
		}
		return id, v, nil
	case map[string]any:
		if id, ok := v[vocabulary.KeywordID].(string); ok && id != "" {
			return id, nil, nil
		}
		if id, ok := v["id"].(string); ok && id != "" {
			return id, nil, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %T cannot be used as a reference", ErrFieldType, item)
}
