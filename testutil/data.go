package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/vocabulary"
)

// PersonContext is the context of the Person fixture type.
func PersonContext() map[string]any {
	return map[string]any{
		"schema": "http://schema.org/",
		"demo":   "http://example.org/demo/",
		"id":     "@id",
		"type":   "@type",
		"Person": "schema:Person",
		"name":   "schema:name",
		"age":    map[string]any{"@id": "schema:age", "@type": "xsd:integer"},
		"xsd":    "http://www.w3.org/2001/XMLSchema#",
		"knows":  map[string]any{"@id": "schema:knows", "@type": "@id"},
	}
}

// PersonType returns a fresh Person type.
func PersonType() *entity.Type {
	return &entity.Type{
		Name:         "Person",
		IRI:          "Person.json",
		DefaultTypes: []string{"Person"},
		Context:      vocabulary.MustParse(PersonContext()),
		Fields: []entity.Field{
			{Name: "name", Kind: entity.Literal, Required: true, Datatype: vocabulary.XsdString},
			{Name: "age", Kind: entity.Literal, Datatype: vocabulary.XsdInteger},
			{Name: "knows", Kind: entity.Reference, List: true, Range: "Person.json"},
		},
	}
}

// PersonTypes returns a registry holding a fresh Person type.
func PersonTypes() *entity.TypeRegistry {
	types := entity.NewTypeRegistry()
	if err := types.Register(PersonType()); err != nil {
		panic(err)
	}
	return types
}

// Person constructs a Person of the type registered in types.
func Person(t testing.TB, types *entity.TypeRegistry, id, name string, knows ...string) *entity.Entity {
	t.Helper()
	typ, ok := types.Lookup("Person")
	require.True(t, ok, "Person type is not registered")

	values := map[string]any{"name": name}
	if len(knows) > 0 {
		values["knows"] = knows
	}
	e, err := entity.Construct(typ, id, values)
	require.NoError(t, err)
	return e
}
