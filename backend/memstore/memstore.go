// Package memstore provides an in-memory document store backend.
//
// Entities are held as JSON-encoded nodes and decoded again on every lookup,
// so resolved entities never share state with what was stored.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/resolver"
)

// Name is the backend name used in configuration.
const Name = "memory"

// Store is a concurrency-safe in-memory document store.
type Store struct {
	mu      sync.RWMutex
	docs    map[string][]byte
	logger  *slog.Logger
	metrics *metric.Metrics
}

// New creates an empty store. deps supplies the logger and metrics.
func New(deps backend.Dependencies) *Store {
	return &Store{
		docs:    make(map[string][]byte),
		logger:  deps.GetLogger(),
		metrics: deps.CoreMetrics(),
	}
}

// Register adds the memory backend factory to reg.
func Register(reg *backend.Registry) error {
	return reg.RegisterFactory(Name, func(_ context.Context, _ map[string]any, deps backend.Dependencies) (backend.Backend, error) {
		return New(deps), nil
	})
}

// Name implements backend.Backend.
func (s *Store) Name() string { return Name }

// Close implements backend.Backend.
func (s *Store) Close() error { return nil }

// Check only fails on a cancelled context.
func (s *Store) Check(ctx context.Context) error {
	return ctx.Err()
}

// Store saves entities under their identifiers, replacing earlier versions.
// Entities without an identifier are rejected before anything is written.
func (s *Store) Store(ctx context.Context, entities ...*entity.Entity) (err error) {
	defer func() { s.metrics.RecordBackend(Name, "store", metric.Status(err)) }()

	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "memstore", "Store", "context check")
	}

	encoded := make(map[string][]byte, len(entities))
	for _, e := range entities {
		id, err := e.Identifier()
		if err != nil {
			return errors.WrapInvalid(err, "memstore", "Store", "entity identifier")
		}
		data, err := json.Marshal(resolver.ExportNode(e))
		if err != nil {
			return errors.WrapInvalid(err, "memstore", "Store", fmt.Sprintf("encode %s", id))
		}
		encoded[id] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, data := range encoded {
		s.docs[id] = data
	}
	s.logger.Debug("stored entities", "count", len(encoded))
	return nil
}

// Delete removes identifiers. Unknown identifiers are ignored.
func (s *Store) Delete(ctx context.Context, iris ...string) (err error) {
	defer func() { s.metrics.RecordBackend(Name, "delete", metric.Status(err)) }()

	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "memstore", "Delete", "context check")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, iri := range iris {
		delete(s.docs, iri)
	}
	return nil
}

// ResolveIRI returns the stored node for iri, or nil when it is absent.
func (s *Store) ResolveIRI(ctx context.Context, iri string) (graph.Node, error) {
	nodes, err := s.ResolveIRIs(ctx, []string{iri})
	if err != nil {
		return nil, err
	}
	return nodes[iri], nil
}

// ResolveIRIs returns the stored nodes for every known identifier.
func (s *Store) ResolveIRIs(ctx context.Context, iris []string) (_ map[string]graph.Node, err error) {
	defer func() { s.metrics.RecordBackend(Name, "resolve", metric.Status(err)) }()

	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "memstore", "Resolve", "context check")
	}

	s.mu.RLock()
	found := make(map[string][]byte, len(iris))
	for _, iri := range iris {
		if data, ok := s.docs[iri]; ok {
			found[iri] = data
		}
	}
	s.mu.RUnlock()

	out := make(map[string]graph.Node, len(found))
	for iri, data := range found {
		var node graph.Node
		if err := json.Unmarshal(data, &node); err != nil {
			return nil, errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrDataCorrupted, err), "memstore", "Resolve", fmt.Sprintf("decode %s", iri))
		}
		out[iri] = node
	}
	return out, nil
}

// IRIs returns the stored identifiers, sorted.
func (s *Store) IRIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.docs))
	for iri := range s.docs {
		out = append(out, iri)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
