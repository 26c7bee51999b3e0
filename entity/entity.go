package entity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// Resolver materializes identifiers into entities. Identifiers that cannot be
// resolved map to nil or are absent from the result.
type Resolver interface {
	Resolve(ctx context.Context, iris []string, expected *Type) (map[string]*Entity, error)
}

var (
	defaultMu       sync.RWMutex
	defaultResolver Resolver
)

// SetDefaultResolver sets the resolver used by entities constructed without WithResolver.
// Passing nil removes it.
func SetDefaultResolver(r Resolver) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultResolver = r
}

// DefaultResolver returns the resolver set by SetDefaultResolver.
func DefaultResolver() Resolver {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultResolver
}

// Option configures an Entity at construction.
type Option func(*Entity)

// WithResolver binds the resolver used for reference fields.
func WithResolver(r Resolver) Option {
	return func(e *Entity) {
		e.resolver = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Entity) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTypes sets the type tags, replacing the type's defaults.
func WithTypes(tags ...string) Option {
	return func(e *Entity) {
		e.types = append([]string(nil), tags...)
	}
}

// Entity is an instance of a Type. Reference fields keep the identifiers
// they were given and materialize them on first access. An Entity is safe for
// concurrent use.
type Entity struct {
	typ      *Type
	resolver Resolver
	logger   *slog.Logger

	mu       sync.Mutex
	id       string
	types    []string
	literals map[string]any
	refs     map[string]*slot
	gen      uint64

	flight singleflight.Group
}

// Construct builds an entity of type t. Reference fields accept identifiers,
// entities or mixed lists of both; literal fields are checked against their
// datatype. Keys "id"/"@id" and "type"/"@type" in values set the identifier
// and type tags. Fields the type does not declare are ignored.
//
// A *ConstructionError, classified invalid, is returned when a required field
// is missing, a value has the wrong type, or the type's validator rejects the
// result.
func Construct(t *Type, id string, values map[string]any, opts ...Option) (*Entity, error) {
	if t == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: nil type", ErrInvalidType), "Entity", "Construct", "type check")
	}

	e := &Entity{
		typ:      t,
		logger:   slog.Default(),
		id:       id,
		literals: make(map[string]any),
		refs:     make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(e)
	}

	cerr := &ConstructionError{Type: t.Name, ID: id}

	for _, name := range sortedKeys(values) {
		value := values[name]
		switch keyword(t, name) {
		case vocabulary.KeywordID:
			if s, ok := value.(string); ok && e.id == "" {
				e.id = s
				cerr.ID = s
			}
			continue
		case vocabulary.KeywordType:
			if e.types == nil {
				e.types = typeTags(value)
			}
			continue
		}

		f, ok := t.Field(name)
		if !ok {
			e.logger.Debug("ignoring undeclared field", "type", t.Name, "field", name)
			continue
		}
		if value == nil {
			continue
		}
		if err := e.store(f, value); err != nil {
			cerr.add(name, err)
		}
	}

	for _, f := range t.Fields {
		if f.Default == nil {
			continue
		}
		if _, set := e.literals[f.Name]; set {
			continue
		}
		if _, set := e.refs[f.Name]; set {
			continue
		}
		if err := e.store(f, f.Default); err != nil {
			cerr.add(f.Name, err)
		}
	}

	for _, f := range t.Fields {
		if f.Required && !e.has(f) {
			cerr.add(f.Name, ErrRequiredField)
		}
	}

	if e.types == nil {
		e.types = append([]string(nil), t.DefaultTypes...)
	}

	if len(cerr.Violations) == 0 && t.Validate != nil {
		if err := t.Validate(e.exportLocked()); err != nil {
			cerr.add("", err)
		}
	}

	if len(cerr.Violations) > 0 {
		return nil, errors.WrapInvalid(cerr, "Entity", "Construct", t.Name)
	}
	return e, nil
}

func keyword(t *Type, key string) string {
	if vocabulary.IsKeyword(key) {
		return key
	}
	if _, declared := t.Field(key); declared {
		return ""
	}
	if t.Context != nil {
		if kw, ok := t.Context.Keyword(key); ok {
			return kw
		}
	}
	switch key {
	case "id":
		return vocabulary.KeywordID
	case "type":
		return vocabulary.KeywordType
	}
	return ""
}

func typeTags(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// store writes value into field f. The caller holds e.mu or owns e exclusively.
func (e *Entity) store(f Field, value any) error {
	literal, s, err := prepare(f, value)
	if err != nil {
		return err
	}
	e.put(f, literal, s)
	return nil
}

// prepare checks a field value and builds its reference slot. It reads
// referenced entities, so it must run without e.mu held: the value may be e
// itself or an entity that is setting a reference back to e.
func prepare(f Field, value any) (any, *slot, error) {
	if f.Kind == Literal {
		if err := checkLiteral(f, value); err != nil {
			return nil, nil, err
		}
		return value, nil, nil
	}
	s, err := newSlot(f, value)
	if err != nil {
		return nil, nil, err
	}
	return nil, s, nil
}

// put installs a prepared value. The caller holds e.mu or owns e exclusively.
func (e *Entity) put(f Field, literal any, s *slot) {
	if s == nil {
		e.literals[f.Name] = literal
		return
	}
	e.gen++
	s.gen = e.gen
	e.refs[f.Name] = s
}

func (e *Entity) has(f Field) bool {
	if f.Kind == Literal {
		v, ok := e.literals[f.Name]
		return ok && v != nil
	}
	s, ok := e.refs[f.Name]
	return ok && len(s.ids) > 0
}

// Type returns the entity's type.
func (e *Entity) Type() *Type {
	return e.typ
}

// Types returns the entity's type tags.
func (e *Entity) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.types...)
}

// ID returns the identifier, derived through the type's Identify hook when
// none was given. It returns "" when neither is available.
func (e *Entity) ID() string {
	id, _ := e.Identifier()
	return id
}

// Identifier is ID with the reason when no identifier can be produced.
func (e *Entity) Identifier() (string, error) {
	e.mu.Lock()
	id := e.id
	e.mu.Unlock()
	if id != "" {
		return id, nil
	}
	if e.typ.Identify == nil {
		return "", fmt.Errorf("%w: type %s has no identify hook", ErrNoIdentifier, e.typ.Name)
	}
	id, err := e.typ.Identify(e)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIdentifier, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: identify hook of %s returned empty identifier", ErrNoIdentifier, e.typ.Name)
	}
	return id, nil
}

// Get returns a field value. Literal fields return the stored value.
// Reference fields return *Entity (single) or []*Entity (list, aligned with
// the identifiers, nil where unresolvable); unresolved positions are first
// resolved through the bound resolver in one call. Unset fields return nil.
//
// Concurrent calls for the same field share one resolver call. A failed
// resolver call is not remembered: the partial value is returned with the
// error and the next Get tries again.
func (e *Entity) Get(ctx context.Context, name string) (any, error) {
	f, ok := e.typ.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, e.typ.Name, name)
	}

	e.mu.Lock()
	if f.Kind == Literal {
		v := e.literals[name]
		e.mu.Unlock()
		return v, nil
	}
	s := e.refs[name]
	if s == nil {
		e.mu.Unlock()
		return nil, nil
	}
	if s.complete() {
		v := s.value()
		e.mu.Unlock()
		return v, nil
	}
	gen := s.gen
	e.mu.Unlock()

	key := name + "@" + strconv.FormatUint(gen, 10)
	_, err, _ := e.flight.Do(key, func() (any, error) {
		return nil, e.resolve(ctx, name, s, gen)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if cur := e.refs[name]; cur != nil {
		return cur.value(), err
	}
	return nil, err
}

func (e *Entity) resolve(ctx context.Context, name string, s *slot, gen uint64) error {
	e.mu.Lock()
	current := e.refs[name] == s && s.gen == gen
	var ids []string
	if current {
		ids = s.unknownIDs()
	}
	e.mu.Unlock()
	// A call that finished just before this one, or a Set, may leave nothing to do.
	if len(ids) == 0 {
		return nil
	}

	r := e.resolver
	if r == nil {
		r = DefaultResolver()
	}
	if r == nil {
		return errors.WrapFatal(fmt.Errorf("%w: %s.%s", ErrNoResolver, e.typ.Name, name),
			"Entity", "Get", "reference resolution")
	}

	nodes, err := r.Resolve(ctx, ids, e.typ.RangeType(name))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs[name] != s || s.gen != gen {
		e.logger.Debug("discarding stale resolution", "type", e.typ.Name, "field", name)
		return err
	}
	s.apply(nodes, err == nil)
	if err != nil {
		return errors.Wrap(err, "Entity", "Get", fmt.Sprintf("resolve %s", name))
	}
	return nil
}

// Ref returns a single reference field as an entity, resolving it if needed.
func (e *Entity) Ref(ctx context.Context, name string) (*Entity, error) {
	v, err := e.Get(ctx, name)
	switch ref := v.(type) {
	case *Entity:
		return ref, err
	case []*Entity:
		if len(ref) > 0 {
			return ref[0], err
		}
	}
	return nil, err
}

// Refs returns a reference field as a list of entities, resolving it if needed.
func (e *Entity) Refs(ctx context.Context, name string) ([]*Entity, error) {
	v, err := e.Get(ctx, name)
	switch ref := v.(type) {
	case []*Entity:
		return ref, err
	case *Entity:
		return []*Entity{ref}, err
	}
	if e.State(name) != Unset {
		return []*Entity{nil}, err
	}
	return nil, err
}

// Set replaces a field value. For reference fields an entity (or list) is
// stored resolved with identifiers taken from the entities, while an
// identifier (or list) clears the resolved value. nil unsets the field.
// A resolution in flight for the previous value is discarded.
func (e *Entity) Set(name string, value any) error {
	f, ok := e.typ.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.typ.Name, name)
	}

	var (
		literal any
		s       *slot
	)
	if value != nil {
		var err error
		if literal, s, err = prepare(f, value); err != nil {
			return errors.WrapInvalid(err, "Entity", "Set", name)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if value == nil {
		delete(e.literals, name)
		if _, ok := e.refs[name]; ok {
			e.gen++
			delete(e.refs, name)
		}
		return nil
	}
	e.put(f, literal, s)
	return nil
}

// Refresh makes unresolved (nil) positions of a reference field eligible for
// resolution again. Resolved positions are kept.
func (e *Entity) Refresh(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.refs[name]
	if !ok {
		return
	}
	e.gen++
	s.gen = e.gen
	s.forget()
}

// State returns the state of a reference field. Literal fields report
// Resolved when set.
func (e *Entity) State(name string) FieldState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.refs[name]; ok {
		return s.state()
	}
	if _, ok := e.literals[name]; ok {
		return Resolved
	}
	return Unset
}

// Pending returns the identifiers recorded for a reference field.
func (e *Entity) Pending(name string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.refs[name]
	if !ok {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// ExportValues returns field values with every reference field given as its
// identifier(s), never as nested entities. The result does not depend on
// whether any field was resolved.
func (e *Entity) ExportValues() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exportLocked()
}

func (e *Entity) exportLocked() map[string]any {
	out := make(map[string]any, len(e.literals)+len(e.refs))
	for name, v := range e.literals {
		out[name] = v
	}
	for name, s := range e.refs {
		out[name] = s.export()
	}
	return out
}

// String returns a short description for logs.
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.typ.Name, e.ID())
}
