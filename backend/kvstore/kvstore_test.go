package kvstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/errors"
	semtest "github.com/c360/semlink/testutil"
)

func TestStore(t *testing.T) {
	semtest.StandardStoreTests(t, func(t *testing.T) semtest.Store {
		return New(semtest.NewMockKVStore(), backend.Dependencies{})
	})
}

func TestKey(t *testing.T) {
	tests := []string{
		"demo:alice",
		"http://example.org/people/alice#me",
		"urn:uuid:7d2b1c8e-0f2a-4f7e-9b8e-1a2b3c4d5e6f",
		"_:b0",
	}
	for _, iri := range tests {
		t.Run(iri, func(t *testing.T) {
			key := Key(iri)
			assert.Regexp(t, `^[A-Za-z0-9_-]+$`, key)
			back, err := IRI(key)
			require.NoError(t, err)
			assert.Equal(t, iri, back)
		})
	}

	_, err := IRI("not base64!")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestStore_IRIs(t *testing.T) {
	ctx := context.Background()
	kv := semtest.NewMockKVStore()
	_, err := kv.Put(ctx, "###", []byte(`{}`))
	require.NoError(t, err)

	s := New(kv, backend.Dependencies{})
	types := semtest.PersonTypes()
	require.NoError(t, s.Store(ctx,
		semtest.Person(t, types, "demo:alice", "Alice"),
		semtest.Person(t, types, "demo:bob", "Bob")))

	iris, err := s.IRIs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"demo:alice", "demo:bob"}, iris)
}

func TestStore_BucketFailure(t *testing.T) {
	ctx := context.Background()
	kv := semtest.NewMockKVStore()
	kv.Err = errors.WrapTransient(fmt.Errorf("nats: timeout"), "KVStore", "Get", "get")
	s := New(kv, backend.Dependencies{})

	_, err := s.ResolveIRI(ctx, "demo:alice")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	require.Error(t, s.Delete(ctx, "demo:alice"))
	require.Error(t, s.Store(ctx, semtest.Person(t, semtest.PersonTypes(), "demo:alice", "Alice")))
}

func TestStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	kv := semtest.NewMockKVStore()
	_, err := kv.Put(ctx, Key("demo:alice"), []byte(`{not json`))
	require.NoError(t, err)

	_, err = New(kv, backend.Dependencies{}).ResolveIRI(ctx, "demo:alice")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
