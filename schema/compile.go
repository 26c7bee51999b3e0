package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// Option configures Compile.
type Option func(*compiler)

// WithTypeRegistry registers the compiled types into types instead of a new registry.
func WithTypeRegistry(types *entity.TypeRegistry) Option {
	return func(c *compiler) {
		c.types = types
	}
}

// WithHashIdentifiers gives every compiled type an identify hook producing
// prefix followed by a name-based UUID over its literal fields.
func WithHashIdentifiers(prefix string) Option {
	return func(c *compiler) {
		c.hashPrefix = prefix
		c.hashIDs = true
	}
}

// WithoutValidation skips compiling JSON Schema validators.
func WithoutValidation() Option {
	return func(c *compiler) {
		c.validate = false
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type compiler struct {
	byIRI      map[string]*Schema
	vocab      *vocabulary.Registry
	types      *entity.TypeRegistry
	hashIDs    bool
	hashPrefix string
	validate   bool
	logger     *slog.Logger

	// resolved holds the inherited properties of each schema.
	resolved map[string]*flat
}

type flat struct {
	properties map[string]*Property
	order      []string
	required   map[string]bool
	parents    []string
}

// Compile preprocesses schemas and turns each into a registered entity.Type.
// The schemas passed in are not modified. Every schema's "@context" is
// registered in vocab under its IRI, preceded by the IRIs of its "allOf"
// parents, and the type's context is the flattened result. vocab may be nil
// when no schema declares a context.
func Compile(schemas []*Schema, vocab *vocabulary.Registry, opts ...Option) (*entity.TypeRegistry, error) {
	c := &compiler{
		byIRI:    make(map[string]*Schema, len(schemas)),
		vocab:    vocab,
		validate: true,
		logger:   slog.Default(),
		resolved: make(map[string]*flat),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.types == nil {
		c.types = entity.NewTypeRegistry()
	}
	if c.vocab == nil {
		c.vocab = vocabulary.NewRegistry()
	}

	schemas = clone(schemas)
	relations := Preprocess(schemas)
	for _, s := range schemas {
		if s.ID == "" {
			return nil, errors.WrapInvalid(ErrMissingID, "Schema", "Compile", "id check")
		}
		c.byIRI[s.IRI()] = s
	}
	c.logger.Debug("schemas preprocessed", "schemas", len(schemas), "references", len(relations))

	// Register every fragment first so parents can be imported in any order.
	for _, s := range schemas {
		c.vocab.Register(s.IRI(), c.fragment(s))
	}

	for _, s := range schemas {
		t, err := c.compile(s)
		if err != nil {
			return nil, err
		}
		if err := c.types.Register(t); err != nil {
			return nil, errors.Wrap(err, "Schema", "Compile", "register "+t.Name)
		}
		c.logger.Debug("type compiled", "type", t.Name, "iri", t.IRI, "fields", len(t.Fields))
	}
	return c.types, nil
}

// fragment is the raw context of s: the parents' IRIs followed by its own context.
func (c *compiler) fragment(s *Schema) any {
	var parts []any
	for _, ref := range s.AllOf {
		if ref.Ref != "" {
			parts = append(parts, NormalizeRef(ref.Ref))
		}
	}
	switch own := s.Context.(type) {
	case nil:
	case []any:
		parts = append(parts, own...)
	default:
		parts = append(parts, own)
	}
	if len(parts) == 0 {
		return map[string]any{}
	}
	return parts
}

// flatten merges the properties of s with those inherited through allOf.
// Properties declared by s override inherited ones.
func (c *compiler) flatten(s *Schema, stack []string) (*flat, error) {
	iri := s.IRI()
	if f, ok := c.resolved[iri]; ok {
		return f, nil
	}
	for _, seen := range stack {
		if seen == iri {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", ErrInheritanceCycle, strings.Join(append(stack, iri), " -> ")),
				"Schema", "Compile", "inheritance")
		}
	}
	stack = append(stack, iri)

	f := &flat{properties: make(map[string]*Property), required: make(map[string]bool)}
	add := func(name string, p *Property) {
		if _, ok := f.properties[name]; !ok {
			f.order = append(f.order, name)
		}
		f.properties[name] = p
	}

	for _, ref := range s.AllOf {
		if ref.Ref == "" {
			continue
		}
		parentIRI := NormalizeRef(ref.Ref)
		parent, ok := c.byIRI[parentIRI]
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s referenced by %s", ErrUnknownSchema, ref.Ref, iri),
				"Schema", "Compile", "inheritance")
		}
		pf, err := c.flatten(parent, stack)
		if err != nil {
			return nil, err
		}
		for _, name := range pf.order {
			add(name, pf.properties[name])
		}
		for name := range pf.required {
			f.required[name] = true
		}
		f.parents = append(f.parents, parentIRI)
	}

	for _, name := range sortedProperties(s) {
		add(name, s.Properties[name])
	}
	for _, name := range s.Required {
		f.required[name] = true
	}

	c.resolved[iri] = f
	return f, nil
}

func (c *compiler) compile(s *Schema) (*entity.Type, error) {
	f, err := c.flatten(s, nil)
	if err != nil {
		return nil, err
	}

	ctx, err := c.vocab.Context(s.IRI())
	if err != nil {
		return nil, errors.Wrap(err, "Schema", "Compile", "context of "+s.IRI())
	}

	t := &entity.Type{
		Name:    s.Name(),
		IRI:     s.IRI(),
		Context: ctx,
	}

	var literals []string
	for _, name := range f.order {
		p := f.properties[name]
		if p == nil {
			continue
		}
		if isTypeProperty(ctx, name) {
			t.DefaultTypes = defaultTags(p.Default)
			continue
		}
		if isIDProperty(ctx, name) {
			continue
		}

		field := entity.Field{
			Name:     name,
			List:     p.IsArray(),
			Required: f.required[name],
			Default:  p.Default,
		}
		if p.Range != "" {
			field.Kind = entity.Reference
			field.Range = NormalizeRef(p.Range)
		} else {
			field.Kind = entity.Literal
			field.Datatype = datatype(p)
			literals = append(literals, name)
		}
		t.Fields = append(t.Fields, field)
	}
	if len(t.DefaultTypes) == 0 {
		t.DefaultTypes = []string{t.Name}
	}

	if c.hashIDs {
		t.Identify = entity.HashIdentifier(c.hashPrefix, literals...)
	}
	if c.validate {
		v, err := newValidator(s, f)
		if err != nil {
			return nil, err
		}
		t.Validate = v
	}
	return t, nil
}

func isTypeProperty(ctx *vocabulary.Context, name string) bool {
	if name == "type" || name == vocabulary.KeywordType {
		return true
	}
	kw, ok := ctx.Keyword(name)
	return ok && kw == vocabulary.KeywordType
}

func isIDProperty(ctx *vocabulary.Context, name string) bool {
	if name == "id" || name == vocabulary.KeywordID {
		return true
	}
	kw, ok := ctx.Keyword(name)
	return ok && kw == vocabulary.KeywordID
}

func defaultTags(v any) []string {
	switch d := v.(type) {
	case string:
		return []string{d}
	case []any:
		out := make([]string, 0, len(d))
		for _, item := range d {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), d...)
	}
	return nil
}

// datatype maps a literal property to the XSD datatype checked at construction.
func datatype(p *Property) string {
	if p.IsArray() {
		if p.Items == nil {
			return ""
		}
		p = p.Items
	}
	switch p.TypeName() {
	case "string":
		switch p.Format {
		case "date":
			return vocabulary.XsdDate
		case "date-time":
			return vocabulary.XsdDateTime
		}
		return vocabulary.XsdString
	case "integer":
		return vocabulary.XsdInteger
	case "number":
		return vocabulary.XsdDouble
	case "boolean":
		return vocabulary.XsdBoolean
	}
	return ""
}
