// Package schema compiles JSON Schema documents into entity types.
//
// A property declaring "range" holds identifiers of entities described by
// another schema and becomes a reference field; every other property is a
// literal field whose datatype follows "type" and "format". Properties are
// inherited through "allOf" references, and each schema's "@context" is
// registered as a vocabulary fragment under the schema IRI so that subtypes
// import the contexts of their parents.
//
//	schemas, err := schema.LoadFiles("schemas/Foo.json", "schemas/Bar.json")
//	types, err := schema.Compile(schemas, vocabulary.NewRegistry())
//	foo, _ := types.Lookup("Foo.json")
package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// Ref is one "$ref" entry of "allOf".
type Ref struct {
	Ref string `json:"$ref"`
}

// Property is one property of a schema.
type Property struct {
	Type        any       `json:"type,omitempty"`
	Format      string    `json:"format,omitempty"`
	Range       string    `json:"range,omitempty"`
	Items       *Property `json:"items,omitempty"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
	Title       string    `json:"title,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	MinItems    *int      `json:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`
}

// TypeName returns the JSON type of the property, ignoring "null" in type lists.
func (p *Property) TypeName() string {
	switch t := p.Type.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if s != "null" {
				return s
			}
		}
	}
	return ""
}

// IsArray reports whether the property holds a list.
func (p *Property) IsArray() bool {
	return p.TypeName() == "array"
}

// Schema is a JSON Schema describing one entity type.
type Schema struct {
	ID          string               `json:"id"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Type        string               `json:"type,omitempty"`
	AllOf       []Ref                `json:"allOf,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Context     any                  `json:"@context,omitempty"`
}

// UnmarshalJSON accepts "$id" as well as "id".
func (s *Schema) UnmarshalJSON(data []byte) error {
	type plain Schema
	var aux struct {
		plain
		DollarID string `json:"$id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Schema(aux.plain)
	if s.ID == "" {
		s.ID = aux.DollarID
	}
	return nil
}

// IRI returns the name the schema is referenced by, e.g. "Bar.json" for id
// "Bar" and "bar2/Bar2.json" for id "./bar2/Bar2".
func (s *Schema) IRI() string {
	return NormalizeRef(s.ID)
}

// Name returns the type name: the title, else the last path segment of the id.
func (s *Schema) Name() string {
	if s.Title != "" {
		return s.Title
	}
	return strings.TrimSuffix(filepath.Base(s.IRI()), ".json")
}

// NormalizeRef maps a schema id or "$ref" to its IRI: a leading "./" is
// dropped and ".json" appended when missing.
func NormalizeRef(ref string) string {
	ref = strings.TrimPrefix(ref, "./")
	if ref == "" || strings.HasSuffix(ref, ".json") {
		return ref
	}
	return ref + ".json"
}

// Parse decodes a JSON schema.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.WrapInvalid(err, "Schema", "Parse", "json unmarshal")
	}
	if s.ID == "" {
		return nil, errors.WrapInvalid(ErrMissingID, "Schema", "Parse", "id check")
	}
	return &s, nil
}

// LoadFiles reads JSON or YAML schema files. A schema without an id takes
// the file name without extension.
func LoadFiles(paths ...string) ([]*Schema, error) {
	out := make([]*Schema, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "Schema", "LoadFiles", "read "+path)
		}
		raw, err := vocabulary.Decode(data, filepath.Ext(path))
		if err != nil {
			return nil, errors.Wrap(err, "Schema", "LoadFiles", "decode "+path)
		}
		if m, ok := raw.(map[string]any); ok && m["id"] == nil && m["$id"] == nil {
			m["id"] = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Schema", "LoadFiles", "normalize "+path)
		}
		s, err := Parse(normalized)
		if err != nil {
			return nil, errors.Wrap(err, "Schema", "LoadFiles", path)
		}
		out = append(out, s)
	}
	return out, nil
}
