// Package backendregistry registers the built-in backends.
package backendregistry

import (
	stderrors "errors"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/backend/kvstore"
	"github.com/c360/semlink/backend/memstore"
	"github.com/c360/semlink/backend/sparql"
	"github.com/c360/semlink/backend/sqlitestore"
	"github.com/c360/semlink/errors"
)

// Register registers every built-in backend with the provided registry:
//   - memory: in-process document store
//   - sqlite: SQLite document store
//   - kv: NATS JetStream key-value document store
//   - sparql: SPARQL 1.1 endpoint
func Register(registry *backend.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return errors.WrapFatal(stderrors.New("registry cannot be nil"),
			"BackendRegistry", "Register", "registry validation")
	}

	for _, b := range []struct {
		name     string
		register func(*backend.Registry) error
	}{
		{memstore.Name, memstore.Register},
		{sqlitestore.Name, sqlitestore.Register},
		{kvstore.Name, kvstore.Register},
		{sparql.Name, sparql.Register},
	} {
		if err := b.register(registry); err != nil {
			return errors.WrapInvalid(err, "BackendRegistry", "Register", b.name+" backend registration")
		}
	}
	return nil
}
