package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/vocabulary"
)

func TestTypeRegistry_Lookup(t *testing.T) {
	ctx, err := vocabulary.Parse(map[string]any{
		"schema": "https://schema.org/",
		"Person": "schema:Person",
	}, nil)
	require.NoError(t, err)

	person := &Type{Name: "Person", IRI: "Person.json", DefaultTypes: []string{"Person"}, Context: ctx}
	reg := NewTypeRegistry()
	require.NoError(t, reg.Register(person))

	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"schema iri", "Person.json", true},
		{"type tag", "Person", true},
		{"expanded tag", "https://schema.org/Person", true},
		{"unknown", "Robot", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, ok := reg.Lookup(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Same(t, person, found)
			}
		})
	}

	found, ok := reg.ForTags([]string{"Robot", "https://schema.org/Person"})
	require.True(t, ok)
	assert.Same(t, person, found)
}

func TestTypeRegistry_LastWriteWins(t *testing.T) {
	reg := NewTypeRegistry()
	first := &Type{Name: "Bar", IRI: "Bar.json"}
	second := &Type{Name: "Bar", IRI: "Bar.json"}

	require.NoError(t, reg.Register(first))
	require.NoError(t, reg.Register(second))

	found, ok := reg.Lookup("Bar.json")
	require.True(t, ok)
	assert.Same(t, second, found)
	assert.Len(t, reg.Types(), 1)
}

func TestTypeRegistry_RejectsInvalid(t *testing.T) {
	reg := NewTypeRegistry()

	assert.ErrorIs(t, reg.Register(&Type{}), ErrInvalidType)
	assert.ErrorIs(t, reg.Register(&Type{
		Name:   "Dup",
		Fields: []Field{{Name: "a"}, {Name: "a"}},
	}), ErrInvalidType)
}

func TestType_RangeType(t *testing.T) {
	bar := &Type{Name: "Bar", IRI: "Bar.json"}
	foo := &Type{Name: "Foo", Fields: []Field{
		{Name: "b", Kind: Reference, Range: "Bar.json"},
		{Name: "c", Kind: Reference, Range: "Missing.json"},
		{Name: "literal"},
	}}

	assert.Nil(t, foo.RangeType("b"), "unregistered types have no range lookup")

	reg := NewTypeRegistry()
	require.NoError(t, reg.Register(bar))
	require.NoError(t, reg.Register(foo))

	assert.Same(t, bar, foo.RangeType("b"))
	assert.Nil(t, foo.RangeType("c"))
	assert.Nil(t, foo.RangeType("literal"))
	assert.Len(t, foo.References(), 2)
}

func TestFieldState_String(t *testing.T) {
	assert.Equal(t, "unset", Unset.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "reference", Reference.String())
}
