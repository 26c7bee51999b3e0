package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// Node is one node object in compact form, e.g. {"id": "ex:1", "name": "x"}.
type Node = map[string]any

// Document is the persisted form of one or more nodes under a context.
// A single-node document carries the context next to the node fields; a
// batch document holds its nodes under "@graph".
type Document struct {
	Context any
	Nodes   []Node
	Batch   bool
}

// ParseDocument decodes a document. It accepts a single node object, an
// object with "@graph", or a bare array of nodes.
func ParseDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.WrapInvalid(err, "Document", "Parse", "json decode")
	}
	doc, err := NewDocument(normalizeNumbers(raw))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Document", "Parse", "document structure")
	}
	return doc, nil
}

// NewDocument builds a Document from an already decoded JSON value.
func NewDocument(raw any) (*Document, error) {
	switch v := raw.(type) {
	case []any:
		nodes, err := nodeList(v)
		if err != nil {
			return nil, err
		}
		return &Document{Nodes: nodes, Batch: true}, nil

	case map[string]any:
		doc := &Document{Context: v[vocabulary.KeywordContext]}
		if items, ok := v[vocabulary.KeywordGraph]; ok {
			list, ok := items.([]any)
			if !ok {
				list = []any{items}
			}
			nodes, err := nodeList(list)
			if err != nil {
				return nil, err
			}
			doc.Nodes = nodes
			doc.Batch = true
			return doc, nil
		}

		node := make(Node, len(v))
		for k, val := range v {
			if k != vocabulary.KeywordContext {
				node[k] = val
			}
		}
		doc.Nodes = []Node{node}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %T at top level", ErrInvalidDocument, raw)
}

func nodeList(items []any) ([]Node, error) {
	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		n, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: node %d is %T", ErrInvalidDocument, i, item)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// MarshalJSON writes the single-node form when Batch is false and there is
// exactly one node, and the "@graph" form otherwise.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if !d.Batch && len(d.Nodes) == 1 {
		for k, v := range d.Nodes[0] {
			out[k] = v
		}
	} else {
		nodes := d.Nodes
		if nodes == nil {
			nodes = []Node{}
		}
		out[vocabulary.KeywordGraph] = nodes
	}
	if d.Context != nil {
		out[vocabulary.KeywordContext] = d.Context
	}
	return json.Marshal(out)
}

// UnmarshalJSON is ParseDocument for use inside other structures.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// normalizeNumbers turns json.Number into int64 when integral and float64 otherwise.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	}
	return v
}
