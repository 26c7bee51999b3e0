package resolver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/vocabulary"
)

// IRIResolver returns the structured fields of one identifier, the form a
// document store or SPARQL endpoint naturally produces. A nil node with a nil
// error means the identifier does not exist.
type IRIResolver interface {
	ResolveIRI(ctx context.Context, iri string) (graph.Node, error)
}

// BatchIRIResolver is implemented by sources that can look up many
// identifiers in one round trip. Identifiers missing from the result do not
// exist.
type BatchIRIResolver interface {
	ResolveIRIs(ctx context.Context, iris []string) (map[string]graph.Node, error)
}

// IRIFunc adapts a function to IRIResolver.
type IRIFunc func(ctx context.Context, iri string) (graph.Node, error)

// ResolveIRI calls f.
func (f IRIFunc) ResolveIRI(ctx context.Context, iri string) (graph.Node, error) {
	return f(ctx, iri)
}

// NodeOption configures FromIRIResolver.
type NodeOption func(*nodeResolver)

// WithVocabulary resolves named "@context" values of returned nodes.
func WithVocabulary(vocab *vocabulary.Registry) NodeOption {
	return func(n *nodeResolver) {
		n.vocab = vocab
	}
}

// WithEntityOptions passes options, typically entity.WithResolver, to every
// constructed entity.
func WithEntityOptions(opts ...entity.Option) NodeOption {
	return func(n *nodeResolver) {
		n.entityOpts = append(n.entityOpts, opts...)
	}
}

// WithNodeLogger sets the logger. Defaults to slog.Default().
func WithNodeLogger(logger *slog.Logger) NodeOption {
	return func(n *nodeResolver) {
		if logger != nil {
			n.logger = logger
		}
	}
}

type nodeResolver struct {
	source     IRIResolver
	types      *entity.TypeRegistry
	vocab      *vocabulary.Registry
	entityOpts []entity.Option
	logger     *slog.Logger
}

// FromIRIResolver builds the batch contract on top of a per-identifier
// backend. A returned node is constructed as the expected type, or as the
// registered type matching its type tag.
//
// A node carrying "@context" is linked data: it is expanded under that
// context, so keys may be terms or full IRIs. Any other node holds plain
// field values, as exported by Entity.ExportValues, and goes straight to the
// type's constructor.
//
// Missing identifiers and nodes that fail construction resolve to nil;
// lookup and construction errors are returned joined after the whole batch
// has been attempted.
func FromIRIResolver(source IRIResolver, types *entity.TypeRegistry, opts ...NodeOption) Resolver {
	n := &nodeResolver{source: source, types: types, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *nodeResolver) Resolve(ctx context.Context, iris []string, expected *entity.Type) (map[string]*entity.Entity, error) {
	if batch, ok := n.source.(BatchIRIResolver); ok {
		return n.resolveBatch(ctx, batch, iris, expected)
	}

	out := make(map[string]*entity.Entity, len(iris))
	var errs []error

	for _, iri := range iris {
		if err := ctx.Err(); err != nil {
			errs = append(errs, errors.WrapTransient(err, "IRIResolver", "Resolve", "context check"))
			break
		}

		node, err := n.source.ResolveIRI(ctx, iri)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", iri, err))
			continue
		}
		if node == nil {
			out[iri] = nil
			continue
		}

		e, err := n.construct(iri, node, expected)
		if err != nil {
			n.logger.Warn("resolved node failed construction", "iri", iri, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", iri, err))
			out[iri] = nil
			continue
		}
		out[iri] = e
	}

	if len(errs) > 0 {
		return out, stderrors.Join(errs...)
	}
	return out, nil
}

func (n *nodeResolver) resolveBatch(ctx context.Context, batch BatchIRIResolver, iris []string, expected *entity.Type) (map[string]*entity.Entity, error) {
	nodes, err := batch.ResolveIRIs(ctx, iris)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*entity.Entity, len(iris))
	var errs []error
	for _, iri := range iris {
		node := nodes[iri]
		if node == nil {
			out[iri] = nil
			continue
		}
		e, err := n.construct(iri, node, expected)
		if err != nil {
			n.logger.Warn("resolved node failed construction", "iri", iri, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", iri, err))
			out[iri] = nil
			continue
		}
		out[iri] = e
	}
	if len(errs) > 0 {
		return out, stderrors.Join(errs...)
	}
	return out, nil
}

// ExportNode is the node form of e read back by FromIRIResolver: its exported
// field values plus "@id" and "@type".
func ExportNode(e *entity.Entity) graph.Node {
	node := graph.Node(e.ExportValues())
	if id := e.ID(); id != "" {
		node[vocabulary.KeywordID] = id
	}
	if types := e.Types(); len(types) > 0 {
		node[vocabulary.KeywordType] = types
	}
	return node
}

func (n *nodeResolver) construct(iri string, node graph.Node, expected *entity.Type) (*entity.Entity, error) {
	if _, linked := node[vocabulary.KeywordContext]; linked {
		opts := []graph.Option{graph.WithLogger(n.logger), graph.WithEntityOptions(n.entityOpts...)}
		if expected != nil {
			opts = append(opts, graph.WithExpected(expected))
		}
		return graph.FromNode(withIdentifier(node, iri), n.types, n.vocab, opts...)
	}

	t := expected
	if t == nil && n.types != nil {
		for _, key := range []string{vocabulary.KeywordType, "type"} {
			if found, ok := n.types.ForTags(tags(node[key])); ok {
				t = found
				break
			}
		}
	}
	if t == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: node %s", graph.ErrUnknownType, iri),
			"IRIResolver", "Resolve", "type lookup")
	}
	opts := append([]entity.Option{entity.WithLogger(n.logger)}, n.entityOpts...)
	return entity.Construct(t, iri, node, opts...)
}

func tags(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// withIdentifier sets "@id" on nodes that carry no identifier of their own.
func withIdentifier(node graph.Node, iri string) graph.Node {
	if _, ok := node[vocabulary.KeywordID]; ok {
		return node
	}
	if _, ok := node["id"]; ok {
		return node
	}
	out := make(graph.Node, len(node)+1)
	for k, v := range node {
		out[k] = v
	}
	out[vocabulary.KeywordID] = iri
	return out
}
