package transform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/vocabulary"
)

// Option configures a transformation.
type Option func(*options)

type options struct {
	vocab   *vocabulary.Registry
	logger  *slog.Logger
	metrics *metric.Metrics
}

// WithVocabulary resolves named source contexts through vocab.
func WithVocabulary(vocab *vocabulary.Registry) Option {
	return func(o *options) {
		o.vocab = vocab
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics counts the triples processed.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Transform expands doc under its own context and compacts the result under
// target. The output keeps the single or batch form of doc when it still has
// exactly one node.
func Transform(doc *graph.Document, target *vocabulary.Context, opts ...Option) (*graph.Document, error) {
	if target == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Transform", "Transform", "target context")
	}
	o := applyOptions(opts)

	g, err := graph.Expand(doc, o.vocab)
	if err != nil {
		return nil, errors.Wrap(err, "Transform", "Transform", "source expansion")
	}

	out := compact(g, target, o)
	result := out.document(target)
	result.Batch = doc.Batch || len(result.Nodes) != 1
	return result, nil
}

// TransformGraph compacts g under target into a batch document.
func TransformGraph(g graph.Graph, target *vocabulary.Context, opts ...Option) (*graph.Document, error) {
	if target == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Transform", "TransformGraph", "target context")
	}
	return compact(g, target, applyOptions(opts)).document(target), nil
}

// JSONToJSON transforms one plain JSON object from the source vocabulary to
// the target one. The result describes the same node as data and carries no
// "@context".
func JSONToJSON(data map[string]any, target, source *vocabulary.Context, opts ...Option) (map[string]any, error) {
	if target == nil || source == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Transform", "JSONToJSON", "contexts")
	}
	o := applyOptions(opts)

	subject := vocabulary.BlankPrefix + "b0"
	for key, v := range data {
		if kw, ok := source.Keyword(key); ok && kw == vocabulary.KeywordID {
			if id, ok := v.(string); ok && id != "" {
				subject = id
			}
		}
	}

	g, err := graph.ExpandNodes(source, data)
	if err != nil {
		return nil, errors.Wrap(err, "Transform", "JSONToJSON", "source expansion")
	}

	out := compact(g, target, o)
	if n := out.nodes[subject]; n != nil {
		return out.render(n, target), nil
	}
	return map[string]any{}, nil
}

// outNode collects the output fields of one subject.
type outNode struct {
	id     string
	types  []string
	keys   []string
	values map[string][]any
	seen   map[string]map[string]bool
	set    map[string]bool
}

func (n *outNode) addType(tag string) {
	for _, t := range n.types {
		if t == tag {
			return
		}
	}
	n.types = append(n.types, tag)
}

// add appends v under key unless an equal value is already there.
func (n *outNode) add(key string, v any, set bool) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
		n.seen[key] = make(map[string]bool)
	}
	k := valueKey(v)
	if n.seen[key][k] {
		return
	}
	n.seen[key][k] = true
	n.values[key] = append(n.values[key], v)
	if set {
		n.set[key] = true
	}
}

func valueKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

type compacted struct {
	nodes      map[string]*outNode
	referenced map[string]bool
}

func (c *compacted) node(id string) *outNode {
	n, ok := c.nodes[id]
	if !ok {
		n = &outNode{
			id:     id,
			values: make(map[string][]any),
			seen:   make(map[string]map[string]bool),
			set:    make(map[string]bool),
		}
		c.nodes[id] = n
	}
	return n
}

func compact(g graph.Graph, target *vocabulary.Context, o *options) *compacted {
	g = g.Dedup()
	o.metrics.RecordTransformed(len(g))

	out := &compacted{nodes: make(map[string]*outNode), referenced: make(map[string]bool)}

	for _, t := range g {
		subject := out.node(t.Subject)

		if t.Predicate == vocabulary.RdfType && t.Object.IsIRI() {
			subject.addType(target.CompactVocab(t.Object.IRI))
			continue
		}

		matched := false
		for _, term := range target.TermsFor(t.Predicate) {
			if term.IsKeyword() || term.IsPrefix() {
				continue
			}
			subject.add(term.Key(), outputValue(target, term, t.Object), term.IsSet())
			if t.Object.IsIRI() {
				out.referenced[t.Object.IRI] = true
			}
			matched = true
		}

		for _, term := range target.ReverseTermsFor(t.Predicate) {
			matched = true
			if !t.Object.IsIRI() {
				// Literals cannot be subjects.
				continue
			}
			out.node(t.Object.IRI).add(term.Key(), referenceValue(target, term, t.Subject), term.IsSet())
			out.referenced[t.Subject] = true
		}

		if !matched {
			o.logger.Debug("no target term for predicate", "subject", t.Subject, "predicate", t.Predicate)
		}
	}
	return out
}

func referenceValue(target *vocabulary.Context, term *vocabulary.Term, iri string) any {
	if term.Reference {
		return iri
	}
	return map[string]any{target.Alias(vocabulary.KeywordID): iri}
}

// outputValue reshapes an object for a target term: identifiers become plain
// strings under reference terms, literals are wrapped into value objects when
// they carry a language or a datatype the term does not imply.
func outputValue(target *vocabulary.Context, term *vocabulary.Term, o graph.Object) any {
	if o.IsIRI() {
		return referenceValue(target, term, o.IRI)
	}

	lang := o.Language
	if _, isString := o.Value.(string); isString && lang == "" && o.Datatype == "" {
		lang = term.Language
	}
	if lang != "" {
		return map[string]any{
			target.Alias(vocabulary.KeywordLanguage): lang,
			target.Alias(vocabulary.KeywordValue):    o.Value,
		}
	}
	if o.Datatype != "" && o.Datatype != term.Datatype {
		return map[string]any{
			target.Alias(vocabulary.KeywordValue): o.Value,
			target.Alias(vocabulary.KeywordType):  target.Compact(o.Datatype),
		}
	}
	return o.Value
}

func (c *compacted) sortedNodes() []*outNode {
	out := make([]*outNode, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (c *compacted) render(n *outNode, target *vocabulary.Context) map[string]any {
	node := make(map[string]any, len(n.keys)+2)
	if !vocabulary.IsBlank(n.id) || c.referenced[n.id] {
		node[target.Alias(vocabulary.KeywordID)] = n.id
	}
	switch len(n.types) {
	case 0:
	case 1:
		node[target.Alias(vocabulary.KeywordType)] = n.types[0]
	default:
		tags := make([]any, len(n.types))
		for i, t := range n.types {
			tags[i] = t
		}
		node[target.Alias(vocabulary.KeywordType)] = tags
	}
	for _, key := range n.keys {
		values := n.values[key]
		if n.set[key] || len(values) > 1 {
			node[key] = values
		} else {
			node[key] = values[0]
		}
	}
	return node
}

func (c *compacted) document(target *vocabulary.Context) *graph.Document {
	doc := &graph.Document{Context: target.Raw(), Batch: true}
	for _, n := range c.sortedNodes() {
		doc.Nodes = append(doc.Nodes, c.render(n, target))
	}
	return doc
}
