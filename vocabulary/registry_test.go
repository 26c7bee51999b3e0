package vocabulary

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ContextCachesFlattened(t *testing.T) {
	reg := NewRegistry(WithStandardPrefixes())
	reg.Register("Entity.json", []any{StandardFragment, map[string]any{"label": "rdfs:label"}})

	first, err := reg.Context("Entity.json")
	require.NoError(t, err)
	second, err := reg.Context("Entity.json")
	require.NoError(t, err)
	assert.Same(t, first, second)

	term, ok := first.Term("label")
	require.True(t, ok)
	assert.Equal(t, RdfsLabel, term.IRI)
}

func TestRegistry_RegisterInvalidatesDependents(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Base.json", map[string]any{"name": "http://schema.org/name"})
	reg.Register("Sub.json", []any{"Base.json", map[string]any{"age": "http://schema.org/age"}})

	before, err := reg.Context("Sub.json")
	require.NoError(t, err)

	reg.Register("Base.json", map[string]any{"name": "http://schema.org/givenName"})

	after, err := reg.Context("Sub.json")
	require.NoError(t, err)
	assert.NotSame(t, before, after)

	term, _ := after.Term("name")
	assert.Equal(t, "http://schema.org/givenName", term.IRI)
}

func TestRegistry_UnknownFragment(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Context("Missing.json")
	assert.ErrorIs(t, err, ErrUnknownImport)

	_, err = reg.Resolve([]any{"Missing.json"})
	assert.ErrorIs(t, err, ErrUnknownImport)
}

func TestRegistry_NamesAndClear(t *testing.T) {
	reg := NewRegistry(WithFragment("b", map[string]any{}), WithFragment("a", map[string]any{}))
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	reg.Clear()
	assert.Empty(t, reg.Names())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(WithStandardPrefixes())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Register("Entity.json", []any{StandardFragment, map[string]any{"name": "schema:name"}})
		}()
		go func() {
			defer wg.Done()
			if ctx, err := reg.Context("Entity.json"); err == nil {
				term, ok := ctx.Term("name")
				assert.True(t, ok)
				assert.Equal(t, SchemaName, term.IRI)
			}
		}()
	}
	wg.Wait()
}

func TestRegistry_LoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "Entity.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"@context": {"id": "@id", "name": "https://schema.org/name"}}`), 0o600))

	yamlPath := filepath.Join(dir, "Person.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- Entity.json
- knows:
    "@id": https://schema.org/knows
    "@type": "@id"
    "@container": "@set"
`), 0o600))

	reg := NewRegistry()
	name, err := reg.LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Entity.json", name)

	name, err = reg.LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Person.yaml", name)

	ctx, err := reg.Context("Person.yaml")
	require.NoError(t, err)

	knows, ok := ctx.Term("knows")
	require.True(t, ok)
	assert.True(t, knows.Reference)
	assert.True(t, knows.IsSet())
	assert.Equal(t, "id", ctx.Alias(KeywordID))
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	_, err := Decode([]byte("x"), ".toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
