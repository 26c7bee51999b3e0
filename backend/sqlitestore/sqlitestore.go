// Package sqlitestore provides a document store backend on SQLite.
//
// Documents live in one table keyed by identifier. The pure Go
// modernc.org/sqlite driver is used, so no cgo toolchain is required.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/config"
	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/resolver"
)

// Name is the backend name used in configuration.
const Name = "sqlite"

// maxBatch bounds the identifiers bound into one IN clause, below SQLite's
// default variable limit.
const maxBatch = 500

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	iri TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	data JSON NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type);
`

// Store is a SQLite backed document store.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Open opens or creates the database at path. ":memory:" keeps everything
// in a private in-memory database.
func Open(ctx context.Context, path string, deps backend.Dependencies) (*Store, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "sqlitestore", "Open", "path validation")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapFatal(err, "sqlitestore", "Open", "open database")
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, logger: deps.GetLogger(), metrics: deps.CoreMetrics()}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapFatal(err, "sqlitestore", "Open", "migrate database")
	}
	return s, nil
}

// Register adds the sqlite backend factory to reg. Options: "path".
func Register(reg *backend.Registry) error {
	return reg.RegisterFactory(Name, func(ctx context.Context, options map[string]any, deps backend.Dependencies) (backend.Backend, error) {
		return Open(ctx, config.GetString(options, "path", ":memory:"), deps)
	})
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Name implements backend.Backend.
func (s *Store) Name() string { return Name }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Check pings the database.
func (s *Store) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Check", "ping")
	}
	return nil
}

type row struct {
	iri  string
	typ  string
	data []byte
}

// Store upserts entities in one transaction. Entities without an identifier
// are rejected before anything is written.
func (s *Store) Store(ctx context.Context, entities ...*entity.Entity) (err error) {
	defer func() { s.metrics.RecordBackend(Name, "store", metric.Status(err)) }()

	rows := make([]row, 0, len(entities))
	for _, e := range entities {
		id, err := e.Identifier()
		if err != nil {
			return errors.WrapInvalid(err, "sqlitestore", "Store", "entity identifier")
		}
		data, err := json.Marshal(resolver.ExportNode(e))
		if err != nil {
			return errors.WrapInvalid(err, "sqlitestore", "Store", fmt.Sprintf("encode %s", id))
		}
		typ := e.Type().Name
		if types := e.Types(); len(types) > 0 {
			typ = types[0]
		}
		rows = append(rows, row{iri: id, typ: typ, data: data})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Store", "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (iri, type, data) VALUES (?, ?, ?)
		ON CONFLICT(iri) DO UPDATE SET
			type = excluded.type,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return errors.WrapFatal(err, "sqlitestore", "Store", "prepare upsert")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.iri, r.typ, r.data); err != nil {
			return errors.WrapTransient(err, "sqlitestore", "Store", fmt.Sprintf("upsert %s", r.iri))
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Store", "commit")
	}
	s.logger.Debug("stored entities", "count", len(rows))
	return nil
}

// Delete removes identifiers. Unknown identifiers are ignored.
func (s *Store) Delete(ctx context.Context, iris ...string) (err error) {
	defer func() { s.metrics.RecordBackend(Name, "delete", metric.Status(err)) }()

	for _, chunk := range chunks(iris, maxBatch) {
		query := "DELETE FROM documents WHERE iri IN (" + placeholders(len(chunk)) + ")"
		if _, err := s.db.ExecContext(ctx, query, args(chunk)...); err != nil {
			return errors.WrapTransient(err, "sqlitestore", "Delete", "delete documents")
		}
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

// ResolveIRIs looks identifiers up with one query per chunk of maxBatch.
func (s *Store) ResolveIRIs(ctx context.Context, iris []string) (_ map[string]graph.Node, err error) {
	defer func() { s.metrics.RecordBackend(Name, "resolve", metric.Status(err)) }()

	out := make(map[string]graph.Node, len(iris))
	for _, chunk := range chunks(iris, maxBatch) {
		if err := s.query(ctx, chunk, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, iris []string, out map[string]graph.Node) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT iri, data FROM documents WHERE iri IN ("+placeholders(len(iris))+")", args(iris)...)
	if err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Resolve", "query documents")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			iri  string
			data []byte
		)
		if err := rows.Scan(&iri, &data); err != nil {
			return errors.WrapFatal(err, "sqlitestore", "Resolve", "scan document")
		}
		var node graph.Node
		if err := json.Unmarshal(data, &node); err != nil {
			return errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrDataCorrupted, err), "sqlitestore", "Resolve", fmt.Sprintf("decode %s", iri))
		}
		out[iri] = node
	}
	if err := rows.Err(); err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Resolve", "read rows")
	}
	return nil
}

// Count returns the number of stored documents, optionally of one type tag.
func (s *Store) Count(ctx context.Context, typ string) (int, error) {
	query := "SELECT COUNT(*) FROM documents"
	var qargs []any
	if typ != "" {
		query += " WHERE type = ?"
		qargs = append(qargs, typ)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, qargs...).Scan(&n); err != nil {
		return 0, errors.WrapTransient(err, "sqlitestore", "Count", "count documents")
	}
	return n, nil
}

func chunks(iris []string, size int) [][]string {
	var out [][]string
	for len(iris) > size {
		out = append(out, iris[:size])
		iris = iris[size:]
	}
	if len(iris) > 0 {
		out = append(out, iris)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(iris []string) []any {
	out := make([]any, len(iris))
	for i, iri := range iris {
		out[i] = iri
	}
	return out
}
