package sparql

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/pkg/retry"
	"github.com/c360/semlink/resolver"
	semtest "github.com/c360/semlink/testutil"
	"github.com/c360/semlink/vocabulary"
)

const (
	alice = "http://example.org/alice"
	bob   = "http://example.org/bob"
)

func uri(v string) Term { return Term{Type: "uri", Value: v} }

func binding(s, p string, o Term) map[string]Term {
	return map[string]Term{"s": uri(s), "p": uri(p), "o": o}
}

var people = []map[string]Term{
	binding(alice, vocabulary.RdfType, uri("http://schema.org/Person")),
	binding(alice, "http://schema.org/name", Term{Type: "literal", Value: "Alice"}),
	binding(alice, "http://schema.org/age", Term{Type: "literal", Value: "42", Datatype: vocabulary.XsdInteger}),
	binding(alice, "http://schema.org/knows", uri(bob)),
	binding(alice, "http://schema.org/knows", uri(bob)),
	binding(bob, vocabulary.RdfType, uri("http://schema.org/Person")),
	binding(bob, "http://schema.org/name", Term{Type: "literal", Value: "Bob", Language: "en"}),
}

// endpoint serves bindings whose subject appears in the query.
func endpoint(t *testing.T, bindings []map[string]Term, queries *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if queries != nil {
			queries.Add(1)
		}
		require.NoError(t, r.ParseForm())
		q := r.PostForm.Get("query")
		assert.Contains(t, q, "VALUES ?s")

		var res Results
		res.Head.Vars = []string{"s", "p", "o"}
		for _, b := range bindings {
			if strings.Contains(q, "<"+b["s"].Value+">") {
				res.Results.Bindings = append(res.Results.Bindings, b)
			}
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		require.NoError(t, json.NewEncoder(w).Encode(res))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(t *testing.T, url string, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithRateLimit(0, 0)}, opts...)
	r, err := New(url, opts...)
	require.NoError(t, err)
	return r
}

func TestResolver_ResolveIRIs(t *testing.T) {
	var queries atomic.Int32
	srv := endpoint(t, people, &queries)
	r := newResolver(t, srv.URL, WithPrefixes(map[string]string{"ex": "http://example.org/"}))

	nodes, err := r.ResolveIRIs(context.Background(), []string{alice, "ex:bob", "http://example.org/ghost"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), queries.Load(), "one query per batch")

	require.Len(t, nodes, 2)
	a := nodes[alice]
	assert.Equal(t, alice, a["@id"])
	assert.Equal(t, map[string]any{}, a["@context"])
	assert.Equal(t, []any{"http://schema.org/Person"}, a["@type"])
	assert.Equal(t, []any{"Alice"}, a["http://schema.org/name"])
	assert.Equal(t, []any{int64(42)}, a["http://schema.org/age"])
	assert.Equal(t, []any{map[string]any{"@id": bob}}, a["http://schema.org/knows"], "duplicate bindings are folded")

	b := nodes["ex:bob"]
	require.NotNil(t, b)
	assert.Equal(t, "ex:bob", b["@id"])
	assert.Equal(t, []any{map[string]any{"@value": "Bob", "@language": "en"}}, b["http://schema.org/name"])

	node, err := r.ResolveIRI(context.Background(), "http://example.org/ghost")
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestResolver_FromIRIResolver(t *testing.T) {
	srv := endpoint(t, people, nil)
	types := semtest.PersonTypes()
	res := resolver.FromIRIResolver(newResolver(t, srv.URL), types)

	got, err := res.Resolve(context.Background(), []string{alice}, nil)
	require.NoError(t, err)
	e := got[alice]
	require.NotNil(t, e)
	assert.Equal(t, "Person", e.Type().Name)

	values := e.ExportValues()
	assert.Equal(t, "Alice", values["name"])
	assert.EqualValues(t, 42, values["age"])
	assert.Equal(t, []string{bob}, values["knows"])
}

func TestObjectValue(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want any
	}{
		{"plain", Term{Type: "literal", Value: "x"}, "x"},
		{"string", Term{Type: "literal", Value: "x", Datatype: vocabulary.XsdString}, "x"},
		{"integer", Term{Type: "literal", Value: "7", Datatype: vocabulary.XsdInteger}, int64(7)},
		{"double", Term{Type: "typed-literal", Value: "1.5", Datatype: vocabulary.XsdDouble}, 1.5},
		{"boolean", Term{Type: "literal", Value: "true", Datatype: vocabulary.XsdBoolean}, true},
		{"bad integer", Term{Type: "literal", Value: "seven", Datatype: vocabulary.XsdInteger},
			map[string]any{"@value": "seven", "@type": vocabulary.XsdInteger}},
		{"date", Term{Type: "literal", Value: "2024-01-02", Datatype: vocabulary.XsdDate},
			map[string]any{"@value": "2024-01-02", "@type": vocabulary.XsdDate}},
		{"language", Term{Type: "literal", Value: "Hallo", Language: "de"},
			map[string]any{"@value": "Hallo", "@language": "de"}},
		{"uri", uri(bob), map[string]any{"@id": bob}},
		{"bnode", Term{Type: "bnode", Value: "b1"}, map[string]any{"@id": "_:b1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectValue(tt.term))
		})
	}
}

func TestResolver_TypePredicate(t *testing.T) {
	const p31 = "http://www.wikidata.org/prop/direct/P31"
	srv := endpoint(t, []map[string]Term{
		binding("http://www.wikidata.org/entity/Q42", p31, uri("http://www.wikidata.org/entity/Q5")),
	}, nil)
	r := newResolver(t, srv.URL,
		WithTypePredicate(p31),
		WithPrefixes(map[string]string{"wd": "http://www.wikidata.org/entity/"}))

	node, err := r.ResolveIRI(context.Background(), "wd:Q42")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, []any{"http://www.wikidata.org/entity/Q5"}, node["@type"])
	assert.NotContains(t, node, p31)
}

func TestResolver_Errors(t *testing.T) {
	quick := retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	t.Run("transient status is retried", func(t *testing.T) {
		var calls atomic.Int32
		ok := endpoint(t, people, nil)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			resp, err := http.Post(ok.URL, r.Header.Get("Content-Type"), r.Body)
			require.NoError(t, err)
			defer resp.Body.Close()
			var res Results
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
			require.NoError(t, json.NewEncoder(w).Encode(res))
		}))
		defer srv.Close()

		node, err := newResolver(t, srv.URL, WithRetry(quick)).ResolveIRI(context.Background(), alice)
		require.NoError(t, err)
		assert.NotNil(t, node)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "malformed query", http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := newResolver(t, srv.URL, WithRetry(quick)).ResolveIRI(context.Background(), alice)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.ErrorIs(t, err, errors.ErrBackendFailure)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("timeout surfaces as failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		r := newResolver(t, srv.URL,
			WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
			WithRetry(retry.Config{MaxAttempts: 1}))
		_, err := r.ResolveIRI(context.Background(), alice)
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
	})

	t.Run("relative identifier", func(t *testing.T) {
		_, err := newResolver(t, "http://localhost:1").ResolveIRI(context.Background(), "ex:alice")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("identifier breaking the query", func(t *testing.T) {
		_, err := newResolver(t, "http://localhost:1").ResolveIRI(context.Background(), "http://example.org/a> } DROP ALL {")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		_, err := New("not a url")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})
}

func TestSelectQuery(t *testing.T) {
	assert.Equal(t,
		"SELECT ?s ?p ?o WHERE { VALUES ?s { <http://example.org/a> <http://example.org/b> } ?s ?p ?o }",
		selectQuery([]string{"http://example.org/a", "http://example.org/b"}))
}

func TestRegister(t *testing.T) {
	srv := endpoint(t, people, nil)
	reg := backend.NewRegistry()
	require.NoError(t, Register(reg))

	b, err := reg.Create(context.Background(), "sparql", map[string]any{
		"endpoint": srv.URL,
		"rate":     100.0,
		"prefixes": map[string]any{"ex": "http://example.org/"},
	}, backend.Dependencies{})
	require.NoError(t, err)
	defer b.Close()

	node, err := b.ResolveIRI(context.Background(), "ex:alice")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, []any{"Alice"}, node["http://schema.org/name"])

	_, err = reg.Create(context.Background(), "sparql", map[string]any{}, backend.Dependencies{})
	require.Error(t, err)
}

func TestRegister_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"boolean": true}`))
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caFile,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}), 0o600))

	reg := backend.NewRegistry()
	require.NoError(t, Register(reg))

	b, err := reg.Create(context.Background(), "sparql", map[string]any{
		"endpoint":     srv.URL,
		"rate":         0.0,
		"max_attempts": 1,
		"tls_ca_files": []any{caFile},
	}, backend.Dependencies{})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.(*Resolver).Check(context.Background()))

	untrusted, err := reg.Create(context.Background(), "sparql", map[string]any{
		"endpoint":     srv.URL,
		"rate":         0.0,
		"max_attempts": 1,
	}, backend.Dependencies{})
	require.NoError(t, err)
	defer untrusted.Close()
	assert.Error(t, untrusted.(*Resolver).Check(context.Background()), "self-signed endpoint is not trusted by default")

	_, err = reg.Create(context.Background(), "sparql", map[string]any{
		"endpoint":      srv.URL,
		"tls_cert_file": caFile,
	}, backend.Dependencies{})
	assert.Error(t, err, "client certificate without key")
}

func TestResolver_Check(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"answers ask", http.StatusOK, `{"head": {}, "boolean": true}`, false},
		{"select shaped answer", http.StatusOK, `{"head": {"vars": []}, "results": {"bindings": []}}`, true},
		{"bad request", http.StatusBadRequest, `syntax error`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "ASK {}", r.PostForm.Get("query"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newResolver(t, srv.URL).Check(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
