package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/errors"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		nodes     int
		batch     bool
		context   any
		wantError bool
	}{
		{
			name:    "single node with context",
			input:   `{"@context": "person", "id": "demo:alice", "name": "Alice"}`,
			nodes:   1,
			context: "person",
		},
		{
			name:    "graph form",
			input:   `{"@context": {"name": "http://schema.org/name"}, "@graph": [{"id": "a"}, {"id": "b"}]}`,
			nodes:   2,
			batch:   true,
			context: map[string]any{"name": "http://schema.org/name"},
		},
		{
			name:  "bare array",
			input: `[{"id": "a"}, {"id": "b"}, {"id": "c"}]`,
			nodes: 3,
			batch: true,
		},
		{
			name:      "scalar",
			input:     `"demo:alice"`,
			wantError: true,
		},
		{
			name:      "array of scalars",
			input:     `[1, 2]`,
			wantError: true,
		},
		{
			name:      "malformed json",
			input:     `{"id": `,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.input))
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, doc.Nodes, tt.nodes)
			assert.Equal(t, tt.batch, doc.Batch)
			assert.Equal(t, tt.context, doc.Context)
			for _, n := range doc.Nodes {
				assert.NotContains(t, n, "@context")
			}
		})
	}
}

func TestParseDocument_Numbers(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"id": "a", "age": 30, "height": 1.75, "tags": [1, 2.5]}`))
	require.NoError(t, err)

	n := doc.Nodes[0]
	assert.Equal(t, int64(30), n["age"])
	assert.Equal(t, 1.75, n["height"])
	assert.Equal(t, []any{int64(1), 2.5}, n["tags"])
}

func TestDocument_MarshalJSON(t *testing.T) {
	single := &Document{Context: "person", Nodes: []Node{{"id": "a"}}}
	data, err := json.Marshal(single)
	require.NoError(t, err)
	assert.JSONEq(t, `{"@context": "person", "id": "a"}`, string(data))

	batch := &Document{Context: "person", Nodes: []Node{{"id": "a"}}, Batch: true}
	data, err = json.Marshal(batch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"@context": "person", "@graph": [{"id": "a"}]}`, string(data))

	empty := &Document{}
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"@graph": []}`, string(data))

	var decoded Document
	require.NoError(t, json.Unmarshal([]byte(`{"@graph": [{"id": "a"}]}`), &decoded))
	assert.True(t, decoded.Batch)
	assert.Equal(t, "a", decoded.Nodes[0]["id"])
}
