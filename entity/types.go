package entity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// Kind classifies a field as a literal value or a reference to other entities.
type Kind int

const (
	// Literal fields hold plain values
	Literal Kind = iota
	// Reference fields hold identifiers of other entities, materialized on access
	Reference
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Field declares one field of a Type.
type Field struct {
	Name string
	Kind Kind
	// List fields hold a collection even when a single value is supplied.
	List bool
	// Range names the type of referenced entities, usually a schema IRI.
	Range    string
	Required bool
	// Datatype is an expanded XSD datatype IRI checked for literal values.
	Datatype string
	Default  any
}

// IdentifyFunc derives an identifier for an entity constructed without one.
type IdentifyFunc func(e *Entity) (string, error)

// ValidateFunc checks the exported field values of a freshly constructed entity.
type ValidateFunc func(values map[string]any) error

// Type describes an entity type. A Type must not be modified after it is
// registered or used to construct entities.
type Type struct {
	Name string
	// IRI identifies the type's schema, e.g. "Foo.json".
	IRI string
	// DefaultTypes are the type tags applied when none are supplied.
	DefaultTypes []string
	Context      *vocabulary.Context
	Fields       []Field
	Identify     IdentifyFunc
	Validate     ValidateFunc

	registry *TypeRegistry
}

// Field returns the field declared under name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// References returns the reference fields in declaration order.
func (t *Type) References() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Kind == Reference {
			out = append(out, f)
		}
	}
	return out
}

// RangeType returns the registered type of entities referenced by field, or nil.
func (t *Type) RangeType(field string) *Type {
	f, ok := t.Field(field)
	if !ok || f.Range == "" || t.registry == nil {
		return nil
	}
	rt, _ := t.registry.Lookup(f.Range)
	return rt
}

// String returns the type name.
func (t *Type) String() string {
	return t.Name
}

// TypeRegistry maps schema IRIs, type names and type tags to types.
// Registration is explicit; nothing is registered as a side effect of declaring a Type.
type TypeRegistry struct {
	mu     sync.RWMutex
	byKey  map[string]*Type
	byName map[string]*Type
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byKey:  make(map[string]*Type),
		byName: make(map[string]*Type),
	}
}

// Register adds t under its IRI, its name and each default type tag. Tags are
// indexed both as written and expanded through the type's context, so a
// graph carrying full rdf:type IRIs finds the type. Last registration wins.
func (r *TypeRegistry) Register(t *Type) error {
	if t == nil || t.Name == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: type name is required", ErrInvalidType),
			"TypeRegistry", "Register", "type validation")
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" || seen[f.Name] {
			return errors.WrapInvalid(fmt.Errorf("%w: %s has empty or duplicate field %q", ErrInvalidType, t.Name, f.Name),
				"TypeRegistry", "Register", "type validation")
		}
		seen[f.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t.registry = r
	r.byName[t.Name] = t
	if t.IRI != "" {
		r.byKey[t.IRI] = t
	}
	for _, tag := range t.DefaultTypes {
		r.byKey[tag] = t
		if t.Context != nil {
			r.byKey[t.Context.Expand(tag)] = t
		}
	}
	return nil
}

// Lookup finds a type by schema IRI, type tag (compact or expanded) or name.
func (r *TypeRegistry) Lookup(key string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.byKey[key]; ok {
		return t, true
	}
	t, ok := r.byName[key]
	return t, ok
}

// ForTags returns the type of the first tag that is registered.
func (r *TypeRegistry) ForTags(tags []string) (*Type, bool) {
	for _, tag := range tags {
		if t, ok := r.Lookup(tag); ok {
			return t, true
		}
	}
	return nil, false
}

// Types returns every registered type sorted by name.
func (r *TypeRegistry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Type, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
