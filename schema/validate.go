package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// validationDocument is the JSON Schema checked against exported entity
// values: the flattened properties without id and type, which entities keep
// outside their values.
func validationDocument(s *Schema, f *flat) map[string]any {
	properties := make(map[string]any, len(f.properties))
	for _, name := range f.order {
		if name == "id" || name == "type" || vocabulary.IsKeyword(name) {
			continue
		}
		if p := f.properties[name]; p != nil {
			properties[name] = p
		}
	}

	required := make([]string, 0, len(f.required))
	for _, name := range f.order {
		if f.required[name] && properties[name] != nil {
			required = append(required, name)
		}
	}

	doc := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      s.Name(),
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func newValidator(s *Schema, f *flat) (entity.ValidateFunc, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(validationDocument(s, f)))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Schema", "Compile", "validator for "+s.IRI())
	}

	return func(values map[string]any) error {
		result, err := compiled.Validate(gojsonschema.NewGoLoader(plainValues(values)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if result.Valid() {
			return nil
		}
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}, nil
}

// plainValues replaces {"@value": ...} objects with their value so language
// tagged strings validate as strings.
func plainValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if inner, ok := t[vocabulary.KeywordValue]; ok {
			return inner
		}
		return plainValues(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	}
	return v
}
