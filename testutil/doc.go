// Package testutil provides fixtures and shared test suites for semlink
// packages.
//
// # Fixtures
//
// PersonTypes returns a type registry holding a Person type with a required
// literal name, an integer age and a "knows" reference list. Person builds
// entities of that type:
//
//	types := testutil.PersonTypes()
//	alice := testutil.Person(t, "demo:alice", "Alice", "demo:bob")
//
// # Store suite
//
// StandardStoreTests runs the same behavior checks against any backend that
// stores entities: round trips through resolver.FromIRIResolver, missing
// identifiers, replacement, deletion and lazy references between stored
// entities.
//
//	func TestStore(t *testing.T) {
//	    testutil.StandardStoreTests(t, func(t *testing.T) testutil.Store {
//	        return memstore.New(backend.Dependencies{})
//	    })
//	}
//
// # Mocks
//
// MockKVStore is an in-memory stand-in for natsclient.KVStore, so the kv
// backend can be tested without a NATS server.
package testutil
