// Package kvstore provides a document store backend on a NATS JetStream
// key-value bucket.
//
// Keys are the base64url encoding of the identifier, since identifiers
// contain characters that KV keys do not allow.
package kvstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/config"
	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/natsclient"
	"github.com/c360/semlink/resolver"
)

// Name is the backend name used in configuration.
const Name = "kv"

// DefaultBucket is used when the options name none.
const DefaultBucket = "SEMLINK_DOCUMENTS"

// KV is the bucket access the store needs; natsclient.KVStore implements it.
type KV interface {
	Get(ctx context.Context, key string) (*natsclient.KVEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Store keeps documents in a KV bucket.
type Store struct {
	kv      KV
	client  *natsclient.Client // owned when created by Connect
	logger  *slog.Logger
	metrics *metric.Metrics
}

// New wraps an existing bucket.
func New(kv KV, deps backend.Dependencies) *Store {
	return &Store{kv: kv, logger: deps.GetLogger(), metrics: deps.CoreMetrics()}
}

// Connect dials url, creates the bucket if needed and returns a store that
// closes the connection on Close.
func Connect(ctx context.Context, url, bucket string, deps backend.Dependencies, opts ...natsclient.ClientOption) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	opts = append([]natsclient.ClientOption{natsclient.WithLogger(deps.GetLogger())}, opts...)
	client, err := natsclient.NewClient(url, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, errors.Wrap(err, "kvstore", "Connect", "connect to NATS")
	}

	kv, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "semlink documents",
	})
	if err != nil {
		_ = client.Close(ctx)
		return nil, errors.Wrap(err, "kvstore", "Connect", "open bucket")
	}

	s := New(client.NewKVStore(kv), deps)
	s.client = client
	return s, nil
}

// Register adds the kv backend factory to reg. Options: "url", "bucket",
// the natsclient keys ("username", "password", "token", "timeout",
// "reconnect_wait", "max_reconnects", "circuit_threshold") and the tlsutil keys.
func Register(reg *backend.Registry) error {
	return reg.RegisterFactory(Name, func(ctx context.Context, options map[string]any, deps backend.Dependencies) (backend.Backend, error) {
		opts, err := natsclient.OptionsFromMap(options)
		if err != nil {
			return nil, err
		}
		opts = append([]natsclient.ClientOption{
			natsclient.WithName("semlink"),
			natsclient.WithTimeout(5 * time.Second),
		}, opts...)
		return Connect(ctx,
			config.GetString(options, "url", "nats://localhost:4222"),
			config.GetString(options, "bucket", DefaultBucket),
			deps, opts...)
	})
}

// Key returns the bucket key of an identifier.
func Key(iri string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(iri))
}

// IRI decodes a bucket key.
func IRI(key string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", errors.WrapInvalid(err, "kvstore", "IRI", "decode key")
	}
	return string(b), nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return Name }

// Close closes the NATS connection when the store owns one.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(context.Background())
}

// Check reports the connection of an owned client. Stores built with New
// over a caller's bucket are always healthy.
func (s *Store) Check(_ context.Context) error {
	if s.client == nil || s.client.IsHealthy() {
		return nil
	}
	return errors.WrapTransient(natsclient.ErrNotConnected, "kvstore", "Check",
		"connection "+s.client.Status().String())
}

// Store puts every entity under its key. Entities without an identifier are
// rejected before anything is written. KV has no transactions: a failing put
// leaves earlier entities of the call stored.
func (s *Store) Store(ctx context.Context, entities ...*entity.Entity) (err error) {
	defer func() { s.metrics.RecordBackend(Name, "store", metric.Status(err)) }()

	type doc struct {
		iri  string
		data []byte
	}
	docs := make([]doc, 0, len(entities))
	for _, e := range entities {
		id, err := e.Identifier()
		if err != nil {
			return errors.WrapInvalid(err, "kvstore", "Store", "entity identifier")
		}
		data, err := json.Marshal(resolver.ExportNode(e))
		if err != nil {
			return errors.WrapInvalid(err, "kvstore", "Store", fmt.Sprintf("encode %s", id))
		}
		docs = append(docs, doc{iri: id, data: data})
	}

	for _, d := range docs {
		if _, err := s.kv.Put(ctx, Key(d.iri), d.data); err != nil {
			return errors.Wrap(err, "kvstore", "Store", fmt.Sprintf("put %s", d.iri))
		}
	}
	s.logger.Debug("stored entities", "count", len(docs))
	return nil
}

// Delete removes identifiers. Unknown identifiers are ignored.
func (s *Store) Delete(ctx context.Context, iris ...string) (err error) {
	defer func() { s.metrics.RecordBackend(Name, "delete", metric.Status(err)) }()

	for _, iri := range iris {
		if err := s.kv.Delete(ctx, Key(iri)); err != nil {
			return errors.Wrap(err, "kvstore", "Delete", fmt.Sprintf("delete %s", iri))
		}
	}
	return nil
}

// ResolveIRI gets the document of iri. A missing key resolves to nil.
func (s *Store) ResolveIRI(ctx context.Context, iri string) (_ graph.Node, err error) {
	defer func() { s.metrics.RecordBackend(Name, "resolve", metric.Status(err)) }()

	entry, err := s.kv.Get(ctx, Key(iri))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "kvstore", "Resolve", fmt.Sprintf("get %s", iri))
	}

	var node graph.Node
	if err := json.Unmarshal(entry.Value, &node); err != nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrDataCorrupted, err), "kvstore", "Resolve", fmt.Sprintf("decode %s", iri))
	}
	return node, nil
}

// IRIs lists the stored identifiers.
func (s *Store) IRIs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		iri, err := IRI(key)
		if err != nil {
			s.logger.Warn("skipping foreign key in bucket", "key", key)
			continue
		}
		out = append(out, iri)
	}
	return out, nil
}
