package transform

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/vocabulary"
)

func TestJSONToJSON_SimpleRename(t *testing.T) {
	input := map[string]any{"type": "Human", "label": "Jane Doe"}

	source := vocabulary.MustParse(map[string]any{
		"rdfs":  "http://www.w3.org/2000/01/rdf-schema#",
		"label": "rdfs:label",
		"type":  "@type",
		"ex":    "https://another-example.org/",
		"Human": "ex:Human",
	})
	target := vocabulary.MustParse(map[string]any{
		"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
		"schema":  "https://schema.org/",
		"name*":   "rdfs:label",
		"name":    "schema:name",
		"type":    "@type",
		"ex":      "https://another-example.org/",
		"Person*": "ex:Human",
		"Person":  "schema:Person",
	})

	out, err := JSONToJSON(input, target, source)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "Person", "name": "Jane Doe"}, out)
}

func complexSource() map[string]any {
	return map[string]any{
		"@context": map[string]any{
			"schema":         "http://schema.org/",
			"demo":           "https://oo-ld.github.io/demo/",
			"name":           "schema:name",
			"full_name":      "demo:full_name",
			"label":          "demo:label",
			"works_for":      map[string]any{"@id": "schema:worksFor", "@type": "@id"},
			"is_employed_by": map[string]any{"@id": "demo:is_employed_by", "@type": "@id"},
			"employes":       map[string]any{"@id": "schema:employes", "@type": "@id"},
			"type":           "@type",
			"id":             "@id",
		},
		"@graph": []any{
			map[string]any{
				"id":        "demo:person1",
				"type":      "schema:Person",
				"name":      "Person1",
				"works_for": "demo:organizationA",
			},
			map[string]any{
				"id":             "demo:person2",
				"type":           "schema:Person",
				"full_name":      "Person2",
				"is_employed_by": "demo:organizationA",
			},
			map[string]any{"id": "demo:person3", "type": "schema:Person", "name": "Person3"},
			map[string]any{
				"id":       "demo:organizationA",
				"type":     "schema:Organization",
				"label":    "organizationA",
				"employes": "demo:person3",
			},
		},
	}
}

func complexTarget() map[string]any {
	return map[string]any{
		"schema":     "http://schema.org/",
		"demo":       "https://oo-ld.github.io/demo/",
		"skos":       "http://www.w3.org/2004/02/skos/core#",
		"name":       "schema:name",
		"name*":      "demo:full_name",
		"text":       "@value",
		"lang":       "@language",
		"label":      map[string]any{"@id": "skos:prefLabel", "@container": "@set"},
		"label*":     map[string]any{"@id": "demo:label", "@container": "@set", "@language": "en"},
		"employes":   map[string]any{"@id": "schema:employes", "@type": "@id"},
		"employes*":  map[string]any{"@reverse": "schema:worksFor", "@type": "@id"},
		"employes**": map[string]any{"@reverse": "demo:is_employed_by", "@type": "@id"},
		"type":       "@type",
		"id":         "@id",
	}
}

func TestTransform_ComplexGraph(t *testing.T) {
	doc, err := graph.NewDocument(complexSource())
	require.NoError(t, err)

	reg := metric.NewMetricsRegistry()
	out, err := Transform(doc, vocabulary.MustParse(complexTarget()), WithMetrics(reg.CoreMetrics()))
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)

	expectedGraph := `[
		{
			"employes": ["demo:person1", "demo:person2", "demo:person3"],
			"id": "demo:organizationA",
			"label": [{"lang": "en", "text": "organizationA"}],
			"type": "schema:Organization"
		},
		{"id": "demo:person1", "name": "Person1", "type": "schema:Person"},
		{"id": "demo:person2", "name": "Person2", "type": "schema:Person"},
		{"id": "demo:person3", "name": "Person3", "type": "schema:Person"}
	]`
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	graphJSON, err := json.Marshal(got["@graph"])
	require.NoError(t, err)
	assert.JSONEq(t, expectedGraph, string(graphJSON))

	contextJSON, err := json.Marshal(got["@context"])
	require.NoError(t, err)
	targetJSON, err := json.Marshal(complexTarget())
	require.NoError(t, err)
	assert.JSONEq(t, string(targetJSON), string(contextJSON), "target context is carried verbatim")

	assert.Equal(t, float64(11), testutil.ToFloat64(reg.CoreMetrics().TriplesTransformed))
}

func TestTransformGraph(t *testing.T) {
	target := vocabulary.MustParse(map[string]any{
		"schema":  "http://schema.org/",
		"id":      "@id",
		"name":    "schema:name",
		"title":   map[string]any{"@id": "schema:name", "@language": "en"},
		"tags":    map[string]any{"@id": "schema:keywords", "@container": "@set"},
		"knows":   map[string]any{"@id": "schema:knows", "@type": "@id"},
		"friend":  "schema:knows",
		"known":   map[string]any{"@reverse": "schema:knows", "@type": "@id"},
		"created": map[string]any{"@id": "schema:dateCreated"},
	})

	tests := []struct {
		name  string
		input graph.Graph
		want  []graph.Node
	}{
		{
			name: "two forward terms for one predicate both emit",
			input: graph.Graph{
				{Subject: "demo:a", Predicate: "http://schema.org/name", Object: graph.Literal("Alice")},
			},
			want: []graph.Node{
				{"id": "demo:a", "name": "Alice", "title": map[string]any{"@language": "en", "@value": "Alice"}},
			},
		},
		{
			name: "set term always lists",
			input: graph.Graph{
				{Subject: "demo:a", Predicate: "http://schema.org/keywords", Object: graph.Literal("x")},
			},
			want: []graph.Node{
				{"id": "demo:a", "tags": []any{"x"}},
			},
		},
		{
			name: "reverse term and plain term for references",
			input: graph.Graph{
				{Subject: "demo:a", Predicate: "http://schema.org/knows", Object: graph.IRI("demo:b")},
			},
			want: []graph.Node{
				{"id": "demo:a", "knows": "demo:b", "friend": map[string]any{"id": "demo:b"}},
				{"id": "demo:b", "known": "demo:a"},
			},
		},
		{
			name: "literal language and foreign datatype are kept",
			input: graph.Graph{
				{Subject: "demo:a", Predicate: "http://schema.org/name", Object: graph.LangString("Alicia", "es")},
				{Subject: "demo:a", Predicate: "http://schema.org/dateCreated",
					Object: graph.Object{Value: "2024-01-01", Datatype: vocabulary.XsdDate}},
			},
			want: []graph.Node{
				{
					"id":      "demo:a",
					"name":    map[string]any{"@language": "es", "@value": "Alicia"},
					"title":   map[string]any{"@language": "es", "@value": "Alicia"},
					"created": map[string]any{"@value": "2024-01-01", "@type": vocabulary.XsdDate},
				},
			},
		},
		{
			name: "unreferenced blank labels are dropped",
			input: graph.Graph{
				{Subject: "_:b0", Predicate: "http://schema.org/name", Object: graph.Literal("Anon")},
			},
			want: []graph.Node{
				{"name": "Anon", "title": map[string]any{"@language": "en", "@value": "Anon"}},
			},
		},
		{
			name: "referenced blank labels are kept",
			input: graph.Graph{
				{Subject: "_:b0", Predicate: "http://schema.org/knows", Object: graph.IRI("_:b1")},
				{Subject: "_:b1", Predicate: "http://schema.org/name", Object: graph.Literal("Anon")},
			},
			want: []graph.Node{
				{"id": "_:b0", "knows": "_:b1", "friend": map[string]any{"id": "_:b1"}},
				{"id": "_:b1", "known": "_:b0", "name": "Anon", "title": map[string]any{"@language": "en", "@value": "Anon"}},
			},
		},
		{
			name: "unmatched predicates are dropped",
			input: graph.Graph{
				{Subject: "demo:a", Predicate: "http://example.org/unknown", Object: graph.Literal(1)},
			},
			want: []graph.Node{{"id": "demo:a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := TransformGraph(tt.input, target)
			require.NoError(t, err)
			assert.True(t, doc.Batch)
			assert.Equal(t, tt.want, doc.Nodes)
		})
	}
}

func TestTransform_Identity(t *testing.T) {
	raw := map[string]any{
		"schema": "http://schema.org/",
		"id":     "@id",
		"type":   "@type",
		"Person": "schema:Person",
		"name":   "schema:name",
		"label":  map[string]any{"@id": "schema:alternateName", "@language": "en"},
		"age":    map[string]any{"@id": "schema:age", "@type": vocabulary.XsdInteger},
		"knows":  map[string]any{"@id": "schema:knows", "@type": "@id"},
		"tags":   map[string]any{"@id": "schema:keywords", "@container": "@set"},
		"parent": map[string]any{"@reverse": "schema:children", "@type": "@id"},
	}
	ctx := vocabulary.MustParse(raw)

	doc := &graph.Document{
		Context: raw,
		Batch:   true,
		Nodes: []graph.Node{
			{
				"id":    "demo:alice",
				"type":  "Person",
				"name":  "Alice",
				"label": []any{"Ali", map[string]any{"@value": "Alicia", "@language": "es"}},
				"age":   int64(30),
				"knows": []any{"demo:bob", map[string]any{"name": "Anonymous"}},
				"tags":  []any{"a", "b"},
			},
			{"id": "demo:bob", "name": "Bob", "parent": "demo:carol"},
		},
	}

	before, err := graph.Expand(doc, nil)
	require.NoError(t, err)

	out, err := Transform(doc, ctx)
	require.NoError(t, err)

	after, err := graph.Expand(out, nil)
	require.NoError(t, err)

	missing, extra := before.Diff(after)
	assert.Empty(t, missing, "missing triples")
	assert.Empty(t, extra, "unexpected triples")
}

func TestTransform_Errors(t *testing.T) {
	_, err := Transform(&graph.Document{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = Transform(&graph.Document{Context: "unregistered", Nodes: []graph.Node{{"@id": "a"}}},
		vocabulary.MustParse(nil), WithVocabulary(vocabulary.NewRegistry()))
	assert.Error(t, err)

	_, err = JSONToJSON(map[string]any{}, nil, nil)
	assert.True(t, errors.IsInvalid(err))
}
