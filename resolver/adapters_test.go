package resolver

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/pkg/cache"
)

func TestFromIRIResolver(t *testing.T) {
	types := entity.NewTypeRegistry()
	require.NoError(t, types.Register(personType))

	lookupErr := stderrors.New("timeout")
	source := IRIFunc(func(_ context.Context, iri string) (graph.Node, error) {
		switch iri {
		case "demo:alice":
			return graph.Node{"type": "Person", "name": "Alice", "knows": []any{"demo:bob"}}, nil
		case "demo:broken":
			return graph.Node{"id": "demo:broken", "type": "Person"}, nil
		case "demo:slow":
			return nil, lookupErr
		}
		return nil, nil
	})

	res := FromIRIResolver(source, types)

	t.Run("constructs by type tag", func(t *testing.T) {
		nodes, err := res.Resolve(context.Background(), []string{"demo:alice", "demo:ghost"}, nil)
		require.NoError(t, err)

		alice := nodes["demo:alice"]
		require.NotNil(t, alice)
		assert.Equal(t, "demo:alice", alice.ID())
		assert.Equal(t, []string{"demo:bob"}, alice.Pending("knows"))
		assert.Contains(t, nodes, "demo:ghost")
		assert.Nil(t, nodes["demo:ghost"])
	})

	t.Run("constructs as the expected type", func(t *testing.T) {
		untagged := FromIRIResolver(IRIFunc(func(context.Context, string) (graph.Node, error) {
			return graph.Node{"name": "Bob"}, nil
		}), types)

		nodes, err := untagged.Resolve(context.Background(), []string{"demo:bob"}, personType)
		require.NoError(t, err)
		require.NotNil(t, nodes["demo:bob"])
		assert.Equal(t, "Person", nodes["demo:bob"].Type().Name)
	})

	t.Run("linked data nodes are expanded", func(t *testing.T) {
		linked := FromIRIResolver(IRIFunc(func(_ context.Context, iri string) (graph.Node, error) {
			return graph.Node{
				"@context":                 map[string]any{},
				"@type":                    "http://schema.org/Person",
				"http://schema.org/name":   "Carol",
				"http://schema.org/knows":  map[string]any{"@id": "demo:alice"},
				"http://example.org/extra": "ignored",
			}, nil
		}), types)

		nodes, err := linked.Resolve(context.Background(), []string{"demo:carol"}, nil)
		require.NoError(t, err)
		carol := nodes["demo:carol"]
		require.NotNil(t, carol)
		assert.Equal(t, "Carol", carol.ExportValues()["name"])
		assert.Equal(t, []string{"demo:alice"}, carol.Pending("knows"))
	})

	t.Run("errors are joined after the batch", func(t *testing.T) {
		nodes, err := res.Resolve(context.Background(), []string{"demo:slow", "demo:broken", "demo:alice"}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, lookupErr)
		assert.ErrorIs(t, err, entity.ErrRequiredField)
		assert.Nil(t, nodes["demo:broken"])
		assert.NotNil(t, nodes["demo:alice"])
	})
}

func TestCaching(t *testing.T) {
	next := &recorder{nodes: map[string]*entity.Entity{
		"demo:alice": person(t, "demo:alice", "Alice"),
	}}
	c, err := cache.NewLRU[*entity.Entity](10)
	require.NoError(t, err)

	res := Caching(next, c)

	first, err := res.Resolve(context.Background(), []string{"demo:alice", "demo:ghost"}, nil)
	require.NoError(t, err)
	second, err := res.Resolve(context.Background(), []string{"demo:alice", "demo:ghost"}, nil)
	require.NoError(t, err)

	assert.Same(t, first["demo:alice"], second["demo:alice"])
	assert.Nil(t, second["demo:ghost"])
	assert.Equal(t, [][]string{{"demo:alice", "demo:ghost"}, {"demo:ghost"}}, next.calls(),
		"unresolved identifiers are asked again")
	assert.Equal(t, 1, c.Size())
}
