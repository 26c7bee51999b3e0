package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/health"
	"github.com/c360/semlink/resolver"
)

// Store is a backend that stores entities.
type Store interface {
	backend.Backend
	backend.Writer
}

// StoreFactory creates an empty store for one subtest.
type StoreFactory func(t *testing.T) Store

// StandardStoreTests runs the shared store behavior checks.
func StandardStoreTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, s Store)
	}{
		{"RoundTrip", testRoundTrip},
		{"Missing", testMissing},
		{"Replace", testReplace},
		{"Delete", testDelete},
		{"LazyReferences", testLazyReferences},
		{"RejectsMissingIdentifier", testRejectsMissingIdentifier},
		{"Batch", testBatch},
		{"Health", testHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := factory(t)
			require.NotNil(t, s, "store factory returned nil")
			t.Cleanup(func() { _ = s.Close() })
			tt.test(t, s)
		})
	}
}

func testRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	types := PersonTypes()
	alice := Person(t, types, "demo:alice", "Alice", "demo:bob")
	require.NoError(t, alice.Set("age", 30))
	require.NoError(t, s.Store(ctx, alice))

	node, err := s.ResolveIRI(ctx, "demo:alice")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Alice", node["name"])
	assert.Equal(t, "demo:alice", node["@id"])

	res := resolver.FromIRIResolver(s, types)
	got, err := res.Resolve(ctx, []string{"demo:alice"}, nil)
	require.NoError(t, err)
	require.NotNil(t, got["demo:alice"])
	assert.Equal(t, "Person", got["demo:alice"].Type().Name)
	assert.Equal(t, []string{"Person"}, got["demo:alice"].Types())
	assert.Equal(t, alice.ExportValues()["name"], got["demo:alice"].ExportValues()["name"])
	assert.Equal(t, []string{"demo:bob"}, got["demo:alice"].ExportValues()["knows"])
	assert.EqualValues(t, 30, got["demo:alice"].ExportValues()["age"])
}

func testMissing(t *testing.T, s Store) {
	ctx := context.Background()
	node, err := s.ResolveIRI(ctx, "demo:ghost")
	require.NoError(t, err)
	assert.Nil(t, node)

	got, err := resolver.FromIRIResolver(s, PersonTypes()).Resolve(ctx, []string{"demo:ghost"}, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "demo:ghost")
	assert.Nil(t, got["demo:ghost"])
}

func testReplace(t *testing.T, s Store) {
	ctx := context.Background()
	types := PersonTypes()
	require.NoError(t, s.Store(ctx, Person(t, types, "demo:alice", "Alice")))
	require.NoError(t, s.Store(ctx, Person(t, types, "demo:alice", "Alicia")))

	node, err := s.ResolveIRI(ctx, "demo:alice")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Alicia", node["name"])
}

func testDelete(t *testing.T, s Store) {
	ctx := context.Background()
	types := PersonTypes()
	require.NoError(t, s.Store(ctx,
		Person(t, types, "demo:alice", "Alice"),
		Person(t, types, "demo:bob", "Bob")))

	require.NoError(t, s.Delete(ctx, "demo:alice", "demo:never"))

	node, err := s.ResolveIRI(ctx, "demo:alice")
	require.NoError(t, err)
	assert.Nil(t, node)

	node, err = s.ResolveIRI(ctx, "demo:bob")
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func testLazyReferences(t *testing.T, s Store) {
	ctx := context.Background()
	types := PersonTypes()
	require.NoError(t, s.Store(ctx,
		Person(t, types, "demo:alice", "Alice", "demo:bob", "demo:ghost"),
		Person(t, types, "demo:bob", "Bob")))

	var res resolver.Resolver
	res = resolver.FromIRIResolver(s, types,
		resolver.WithEntityOptions(entity.WithResolver(resolver.Func(
			func(ctx context.Context, iris []string, expected *entity.Type) (map[string]*entity.Entity, error) {
				return res.Resolve(ctx, iris, expected)
			}))))

	got, err := res.Resolve(ctx, []string{"demo:alice"}, nil)
	require.NoError(t, err)
	alice := got["demo:alice"]
	require.NotNil(t, alice)
	assert.Equal(t, entity.Pending, alice.State("knows"))

	friends, err := alice.Refs(ctx, "knows")
	require.NoError(t, err)
	require.Len(t, friends, 2)
	require.NotNil(t, friends[0])
	assert.Equal(t, "Bob", friends[0].ExportValues()["name"])
	assert.Nil(t, friends[1])
	assert.Equal(t, entity.Resolved, alice.State("knows"))
}

func testRejectsMissingIdentifier(t *testing.T, s Store) {
	ctx := context.Background()
	types := PersonTypes()
	anonymous := Person(t, types, "", "Nobody")

	err := s.Store(ctx, Person(t, types, "demo:carol", "Carol"), anonymous)
	require.Error(t, err)

	node, err := s.ResolveIRI(ctx, "demo:carol")
	require.NoError(t, err)
	assert.Nil(t, node, "nothing is written when one entity is rejected")
}

func testBatch(t *testing.T, s Store) {
	batch, ok := s.(resolver.BatchIRIResolver)
	if !ok {
		t.Skip("store has no batch lookup")
	}
	ctx := context.Background()
	types := PersonTypes()
	require.NoError(t, s.Store(ctx,
		Person(t, types, "demo:alice", "Alice"),
		Person(t, types, "demo:bob", "Bob")))

	nodes, err := batch.ResolveIRIs(ctx, []string{"demo:alice", "demo:bob", "demo:ghost"})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Equal(t, "Bob", nodes["demo:bob"]["name"])
	assert.NotContains(t, nodes, "demo:ghost")
}

func testHealth(t *testing.T, s Store) {
	checker, ok := s.(health.Checker)
	if !ok {
		t.Skip("store has no health check")
	}
	assert.NoError(t, checker.Check(context.Background()))
}
