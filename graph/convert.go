package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/vocabulary"
)

// Option configures FromGraph, FromDocument and FromNode.
type Option func(*options)

type options struct {
	expected   *entity.Type
	entityOpts []entity.Option
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// WithExpected constructs subjects whose type tags match no registered type
// as t. Blank subjects are never given the expected type.
func WithExpected(t *entity.Type) Option {
	return func(o *options) {
		o.expected = t
	}
}

// WithEntityOptions passes options, typically entity.WithResolver, to every
// constructed entity.
func WithEntityOptions(opts ...entity.Option) Option {
	return func(o *options) {
		o.entityOpts = append(o.entityOpts, opts...)
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

// WithMetrics records constructed entities by type and status.
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

func contextOf(t *entity.Type) *vocabulary.Context {
	if t != nil && t.Context != nil {
		return t.Context
	}
	return plainContext()
}

// plainContext is used when nothing supplies a context. It still reads the
// bare "id" and "type" keys the way entity construction does.
func plainContext() *vocabulary.Context {
	return vocabulary.MustParse(map[string]any{
		"id":   vocabulary.KeywordID,
		"type": vocabulary.KeywordType,
	})
}

// fieldTerm returns the term and expanded predicate of a field name. The
// predicate is empty when the name does not expand to an IRI.
func fieldTerm(ctx *vocabulary.Context, name string) (*vocabulary.Term, string) {
	if term, ok := ctx.Term(name); ok {
		if term.IsKeyword() {
			return nil, ""
		}
		return term, term.IRI
	}
	p := ctx.Expand(name)
	if vocabulary.IsKeyword(p) || !strings.Contains(p, ":") {
		return nil, ""
	}
	return nil, p
}

// ToGraph expands an entity into triples through its type's context. Type
// tags become rdf:type triples, literal fields become literal triples with
// the term's language or datatype, and reference fields give one triple per
// identifier whether or not they were resolved. Reverse terms emit the
// referenced node as subject. Fields that do not map to an IRI are skipped.
func ToGraph(e *entity.Entity) (Graph, error) {
	id, err := e.Identifier()
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", ErrMissingIdentifier, err),
			"Graph", "ToGraph", e.Type().Name)
	}

	t := e.Type()
	ctx := contextOf(t)
	x := &expander{ctx: ctx}

	var g Graph
	for _, tag := range e.Types() {
		g = append(g, Triple{Subject: id, Predicate: vocabulary.RdfType, Object: IRI(ctx.Expand(tag))})
	}

	values := e.ExportValues()
	for _, f := range t.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			continue
		}
		term, predicate := fieldTerm(ctx, f.Name)
		if predicate == "" {
			continue
		}
		reverse := term != nil && term.Reverse

		for _, item := range flatten(v) {
			var o Object
			if f.Kind == entity.Reference {
				s, ok := item.(string)
				if !ok || s == "" {
					continue
				}
				o = IRI(s)
			} else {
				var keep bool
				o, keep, err = x.object(term, item)
				if err != nil {
					return nil, errors.WrapInvalid(err, "Graph", "ToGraph", f.Name)
				}
				if !keep {
					continue
				}
			}

			if reverse {
				if o.IsIRI() {
					g = append(g, Triple{Subject: o.IRI, Predicate: predicate, Object: IRI(id)})
				}
				continue
			}
			g = append(g, Triple{Subject: id, Predicate: predicate, Object: o})
		}
	}
	// Nested value nodes of literal fields.
	g = append(g, x.out...)
	return g, nil
}

// ToDocument exports entities in the persisted format: field values from
// ExportValues plus the identifier and type tags under the context's aliases.
// The document context is the raw context of the entities' types, a list when
// they differ.
func ToDocument(batch bool, entities ...*entity.Entity) (*Document, error) {
	doc := &Document{Batch: batch || len(entities) != 1}

	var contexts []any
	seen := make(map[*vocabulary.Context]bool)

	for _, e := range entities {
		id, err := e.Identifier()
		if err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", ErrMissingIdentifier, err),
				"Graph", "ToDocument", e.Type().Name)
		}
		ctx := contextOf(e.Type())
		if e.Type().Context != nil && !seen[ctx] {
			seen[ctx] = true
			contexts = append(contexts, ctx.Raw())
		}

		node := Node(e.ExportValues())
		node[ctx.Alias(vocabulary.KeywordID)] = id
		switch tags := e.Types(); len(tags) {
		case 0:
		case 1:
			node[ctx.Alias(vocabulary.KeywordType)] = tags[0]
		default:
			list := make([]any, len(tags))
			for i, tag := range tags {
				list[i] = tag
			}
			node[ctx.Alias(vocabulary.KeywordType)] = list
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	switch len(contexts) {
	case 0:
	case 1:
		doc.Context = contexts[0]
	default:
		doc.Context = contexts
	}
	return doc, nil
}

// fieldIndex maps predicates to the fields of one type.
type fieldIndex struct {
	forward map[string]fieldRef
	reverse map[string]fieldRef
}

type fieldRef struct {
	field entity.Field
	term  *vocabulary.Term
}

func indexFields(t *entity.Type) *fieldIndex {
	ctx := contextOf(t)
	idx := &fieldIndex{forward: make(map[string]fieldRef), reverse: make(map[string]fieldRef)}
	for _, f := range t.Fields {
		term, predicate := fieldTerm(ctx, f.Name)
		if predicate == "" {
			continue
		}
		target := idx.forward
		if term != nil && term.Reverse {
			target = idx.reverse
		}
		if _, taken := target[predicate]; !taken {
			target[predicate] = fieldRef{field: f, term: term}
		}
	}
	return idx
}

type subjectGroup struct {
	subject string
	typ     *entity.Type
	tags    []string
	values  map[string][]any
	err     error
}

// FromGraph constructs one entity per typed subject. The type is the first
// registered match among the subject's rdf:type objects, or the WithExpected
// type. Untyped subjects are skipped when no type is expected; tagged
// subjects matching no registered type fail with ErrUnknownType. Each predicate feeds the field whose term expands to it; reference
// fields receive bare identifiers and stay pending. Predicates of reverse
// terms feed the field on the object node.
//
// Per-subject failures do not stop other subjects: the entities that could
// be built are returned together with a *SubjectErrors, classified invalid.
func FromGraph(g Graph, types *entity.TypeRegistry, opts ...Option) ([]*entity.Entity, error) {
	o := applyOptions(opts)
	g = g.Dedup()

	groups := make(map[string]*subjectGroup)
	var order []*subjectGroup
	indexes := make(map[*entity.Type]*fieldIndex)

	for _, subject := range g.Subjects() {
		sg := &subjectGroup{subject: subject, values: make(map[string][]any)}
		for _, t := range g.About(subject) {
			if t.Predicate == vocabulary.RdfType && t.Object.IsIRI() {
				sg.tags = append(sg.tags, t.Object.IRI)
			}
		}
		if types != nil {
			sg.typ, _ = types.ForTags(sg.tags)
		}
		if sg.typ == nil && !vocabulary.IsBlank(subject) {
			sg.typ = o.expected
		}
		switch {
		case sg.typ != nil:
			if indexes[sg.typ] == nil {
				indexes[sg.typ] = indexFields(sg.typ)
			}
		case len(sg.tags) == 0:
			// Only referenced, or a value node of another subject.
			o.logger.Debug("skipping untyped subject", "subject", subject)
			continue
		default:
			sg.err = errors.WrapInvalid(fmt.Errorf("%w: tags %v", ErrUnknownType, sg.tags),
				"Graph", "FromGraph", "type lookup")
		}
		groups[subject] = sg
		order = append(order, sg)
	}

	for _, t := range g {
		if t.Predicate == vocabulary.RdfType {
			continue
		}
		if sg := groups[t.Subject]; sg != nil && sg.typ != nil {
			if ref, ok := indexes[sg.typ].forward[t.Predicate]; ok {
				sg.values[ref.field.Name] = append(sg.values[ref.field.Name], fieldValue(ref, t.Object))
			} else {
				o.logger.Debug("predicate has no field", "subject", t.Subject, "type", sg.typ.Name, "predicate", t.Predicate)
			}
		}
		if !t.Object.IsIRI() {
			continue
		}
		if og := groups[t.Object.IRI]; og != nil && og.typ != nil {
			if ref, ok := indexes[og.typ].reverse[t.Predicate]; ok {
				og.values[ref.field.Name] = append(og.values[ref.field.Name], t.Subject)
			}
		}
	}

	var (
		out  []*entity.Entity
		serr SubjectErrors
	)
	for _, sg := range order {
		if sg.err != nil {
			serr.Errors = append(serr.Errors, SubjectError{Subject: sg.subject, Err: sg.err})
			o.metrics.RecordConstruction("unknown", "error")
			continue
		}
		e, err := construct(sg, o)
		o.metrics.RecordConstruction(sg.typ.Name, metric.Status(err))
		if err != nil {
			serr.Errors = append(serr.Errors, SubjectError{Subject: sg.subject, Err: err})
			continue
		}
		out = append(out, e)
	}

	if len(serr.Errors) > 0 {
		o.logger.Warn("graph subjects failed to construct",
			"failed", len(serr.Errors), "constructed", len(out), "subjects", serr.Subjects())
		return out, errors.WrapInvalid(&serr, "Graph", "FromGraph", "entity construction")
	}
	return out, nil
}

func construct(sg *subjectGroup, o *options) (*entity.Entity, error) {
	values := make(map[string]any, len(sg.values))
	for name, vals := range sg.values {
		f, _ := sg.typ.Field(name)
		if f.List || len(vals) > 1 {
			values[name] = vals
		} else {
			values[name] = vals[0]
		}
	}

	opts := append([]entity.Option(nil), o.entityOpts...)
	opts = append(opts, entity.WithLogger(o.logger))
	if len(sg.tags) > 0 {
		ctx := contextOf(sg.typ)
		tags := make([]string, len(sg.tags))
		for i, tag := range sg.tags {
			tags[i] = ctx.CompactVocab(tag)
		}
		opts = append(opts, entity.WithTypes(tags...))
	}
	return entity.Construct(sg.typ, sg.subject, values, opts...)
}

// fieldValue converts a triple object into a field input.
func fieldValue(ref fieldRef, o Object) any {
	if o.IsIRI() {
		return o.IRI
	}
	lang, datatype := "", ""
	if ref.term != nil {
		lang, datatype = ref.term.Language, ref.term.Datatype
	}
	if o.Language != "" && o.Language != lang {
		return map[string]any{
			vocabulary.KeywordValue:    o.Value,
			vocabulary.KeywordLanguage: o.Language,
		}
	}
	// Datatypes the term does not imply travel with the value so ToGraph
	// writes the same literal back.
	if o.Datatype != "" && o.Datatype != datatype {
		return map[string]any{
			vocabulary.KeywordValue: o.Value,
			vocabulary.KeywordType:  o.Datatype,
		}
	}
	return o.Value
}

// FromDocument expands doc and constructs its entities.
func FromDocument(doc *Document, types *entity.TypeRegistry, vocab *vocabulary.Registry, opts ...Option) ([]*entity.Entity, error) {
	g, err := Expand(doc, vocab)
	if err != nil {
		return nil, err
	}
	return FromGraph(g, types, opts...)
}

// FromNode constructs the entity described by a single node, the form
// document stores and IRI resolvers return. The node's own "@context" is used
// when present, otherwise the context of the expected type or of the type
// named by the node's "@type"/"type" tag. Nested nodes are expanded but only
// the top-level entity is returned.
func FromNode(node Node, types *entity.TypeRegistry, vocab *vocabulary.Registry, opts ...Option) (*entity.Entity, error) {
	o := applyOptions(opts)

	ctx, err := nodeContext(node, types, vocab, o.expected)
	if err != nil {
		return nil, err
	}

	x := &expander{ctx: ctx}
	subject, err := x.node(node)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Graph", "FromNode", "expand")
	}

	entities, err := FromGraph(x.out, types, opts...)
	for _, e := range entities {
		if e.ID() == subject {
			return e, nil
		}
	}
	if err != nil {
		return nil, err
	}

	// A node with nothing but an identifier yields no triples.
	if len(x.out.About(subject)) == 0 && o.expected != nil {
		return construct(&subjectGroup{subject: subject, typ: o.expected}, o)
	}
	return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", ErrSubjectNotFound, subject), "Graph", "FromNode", "construct")
}

func nodeContext(node Node, types *entity.TypeRegistry, vocab *vocabulary.Registry, expected *entity.Type) (*vocabulary.Context, error) {
	if raw, ok := node[vocabulary.KeywordContext]; ok {
		var (
			ctx *vocabulary.Context
			err error
		)
		if vocab != nil {
			ctx, err = vocab.Resolve(raw)
		} else {
			ctx, err = vocabulary.Parse(raw, nil)
		}
		if err != nil {
			return nil, errors.Wrap(err, "Graph", "FromNode", "context resolution")
		}
		return ctx, nil
	}
	if expected != nil && expected.Context != nil {
		return expected.Context, nil
	}
	if types != nil {
		for _, key := range []string{vocabulary.KeywordType, "type"} {
			if t, ok := types.ForTags(stringValues(node[key])); ok && t.Context != nil {
				return t.Context, nil
			}
		}
	}
	return plainContext(), nil
}
