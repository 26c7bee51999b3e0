package vocabulary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360/semlink/errors"
)

// ImportFunc returns the raw value of a named context fragment.
type ImportFunc func(name string) (any, error)

// Context is a flattened vocabulary mapping. It is immutable after Parse and
// safe for concurrent use.
type Context struct {
	raw   any
	vocab string
	base  string

	terms map[string]*Term
	order []string
	done  map[string]bool

	forward  map[string][]*Term
	reverse  map[string][]*Term
	aliases  map[string]string
	prefixes []*Term
}

// Parse flattens raw into a Context. raw may be a map of term definitions, the
// name of a fragment resolved through resolve, or a list mixing both. Entries
// are applied in order and later definitions override earlier ones. Within a
// single map, terms are applied in lexical order of their names.
//
// A nil resolve makes every named import fail with ErrUnknownImport.
func Parse(raw any, resolve ImportFunc) (*Context, error) {
	defs := newDefinitions()
	if err := defs.collect(raw, resolve, nil); err != nil {
		return nil, err
	}
	return build(raw, defs)
}

// MustParse is Parse for contexts known to be valid, such as package-level literals.
func MustParse(raw any) *Context {
	c, err := Parse(raw, nil)
	if err != nil {
		panic(err)
	}
	return c
}

type definitions struct {
	order  []string
	values map[string]any
	vocab  string
	base   string
}

func newDefinitions() *definitions {
	return &definitions{values: make(map[string]any)}
}

func (d *definitions) set(name string, value any) {
	if _, exists := d.values[name]; !exists {
		d.order = append(d.order, name)
	}
	d.values[name] = value
}

func (d *definitions) remove(name string) {
	if _, exists := d.values[name]; !exists {
		return
	}
	delete(d.values, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *definitions) reset() {
	d.order = nil
	d.values = make(map[string]any)
	d.vocab = ""
	d.base = ""
}

func (d *definitions) collect(raw any, resolve ImportFunc, stack []string) error {
	switch v := raw.(type) {
	case nil:
		d.reset()
	case string:
		return d.importFragment(v, resolve, stack)
	case []string:
		for _, name := range v {
			if err := d.importFragment(name, resolve, stack); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if err := d.collect(item, resolve, stack); err != nil {
				return err
			}
		}
	case map[string]any:
		if inner, ok := v[KeywordContext]; ok {
			return d.collect(inner, resolve, stack)
		}
		return d.collectMap(v, resolve, stack)
	case *Context:
		return d.collect(v.raw, resolve, stack)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unexpected value of type %T", ErrInvalidContext, raw),
			"Context", "Parse", "fragment")
	}
	return nil
}

func (d *definitions) collectMap(m map[string]any, resolve ImportFunc, stack []string) error {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := m[name]
		switch name {
		case KeywordVocab:
			s, _ := value.(string)
			d.vocab = s
		case KeywordBase:
			s, _ := value.(string)
			d.base = s
		case KeywordVersion:
		case "@import":
			s, ok := value.(string)
			if !ok {
				return errors.WrapInvalid(
					fmt.Errorf("%w: @import must be a string", ErrInvalidContext),
					"Context", "Parse", "fragment")
			}
			if err := d.importFragment(s, resolve, stack); err != nil {
				return err
			}
		default:
			if value == nil {
				d.remove(name)
				continue
			}
			d.set(name, value)
		}
	}
	return nil
}

func (d *definitions) importFragment(name string, resolve ImportFunc, stack []string) error {
	for _, seen := range stack {
		if seen == name {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s -> %s", ErrImportCycle, strings.Join(stack, " -> "), name),
				"Context", "Parse", "import resolution")
		}
	}
	if resolve == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %q", ErrUnknownImport, name),
			"Context", "Parse", "import resolution")
	}
	fragment, err := resolve(name)
	if err != nil {
		return errors.Wrap(err, "Context", "Parse", "import resolution")
	}
	return d.collect(fragment, resolve, append(stack, name))
}

func build(raw any, defs *definitions) (*Context, error) {
	c := &Context{
		raw:     raw,
		vocab:   defs.vocab,
		base:    defs.base,
		terms:   make(map[string]*Term, len(defs.order)),
		order:   defs.order,
		done:    make(map[string]bool, len(defs.order)),
		forward: make(map[string][]*Term),
		reverse: make(map[string][]*Term),
		aliases: make(map[string]string),
	}

	for _, name := range defs.order {
		t, err := parseTerm(name, defs.values[name])
		if err != nil {
			return nil, err
		}
		c.terms[name] = t
	}

	for _, name := range c.order {
		t := c.terms[name]
		c.resolveTerm(t, map[string]bool{})
		if t.Datatype != "" {
			t.Datatype = c.expand(t.Datatype, true, map[string]bool{})
		}

		switch {
		case t.IsKeyword():
			if _, taken := c.aliases[t.Keyword]; !taken {
				c.aliases[t.Keyword] = name
			}
		case t.IRI == "":
		case t.Reverse:
			c.reverse[t.IRI] = append(c.reverse[t.IRI], t)
		default:
			c.forward[t.IRI] = append(c.forward[t.IRI], t)
			if t.IsPrefix() {
				c.prefixes = append(c.prefixes, t)
			}
		}
	}

	// Longest base first so Compact picks the most specific prefix.
	sort.SliceStable(c.prefixes, func(i, j int) bool {
		return len(c.prefixes[i].IRI) > len(c.prefixes[j].IRI)
	})

	// done is only written during build.
	c.done = nil
	return c, nil
}

func (c *Context) resolveTerm(t *Term, visiting map[string]bool) string {
	if t.IsKeyword() {
		return ""
	}
	if c.done == nil || c.done[t.Name] {
		return t.IRI
	}

	id := t.ID
	if id == "" {
		id = t.Key()
	}
	visiting[t.Name] = true
	iri := c.expand(id, true, visiting)
	delete(visiting, t.Name)

	if IsKeyword(iri) || !strings.Contains(iri, ":") {
		iri = ""
	}
	t.IRI = iri
	c.done[t.Name] = true
	return iri
}

func (c *Context) expand(value string, vocabRelative bool, visiting map[string]bool) string {
	if value == "" || IsKeyword(value) || IsBlank(value) {
		return value
	}

	if vocabRelative && !visiting[value] {
		if t, ok := c.terms[value]; ok {
			if t.IsKeyword() {
				return t.Keyword
			}
			return c.resolveTerm(t, visiting)
		}
	}

	if prefix, local, ok := SplitCompact(value); ok {
		if t, found := c.terms[prefix]; found && !t.IsKeyword() && !visiting[prefix] {
			if base := c.resolveTerm(t, visiting); base != "" {
				return base + local
			}
		}
		return value
	}
	if IsAbsolute(value) {
		return value
	}

	if vocabRelative && c.vocab != "" {
		return c.vocab + value
	}
	if !vocabRelative && c.base != "" {
		return c.base + value
	}
	return value
}

// Expand expands a property name, type tag or compact IRI. Term names map to
// their IRI, keyword aliases map to the keyword, "prefix:local" maps to the
// prefix base plus local when the prefix is known. Anything else is returned
// unchanged unless @vocab applies.
func (c *Context) Expand(value string) string {
	return c.expand(value, true, map[string]bool{})
}

// ExpandIRI expands an identifier value. Unlike Expand, term names are not
// looked up; only prefixes and @base apply.
func (c *Context) ExpandIRI(value string) string {
	return c.expand(value, false, map[string]bool{})
}

// Compact shortens iri using the longest matching prefix term.
// iri is returned unchanged when no prefix matches.
func (c *Context) Compact(iri string) string {
	for _, p := range c.prefixes {
		if len(iri) > len(p.IRI) && strings.HasPrefix(iri, p.IRI) {
			return p.Name + ":" + iri[len(p.IRI):]
		}
	}
	return iri
}

// CompactVocab compacts a type or property IRI, preferring the key of a
// forward term with exactly that expansion over a prefixed form.
func (c *Context) CompactVocab(iri string) string {
	for _, t := range c.forward[iri] {
		if !t.IsPrefix() {
			return t.Key()
		}
	}
	return c.Compact(iri)
}

// Term returns the term declared under name.
func (c *Context) Term(name string) (*Term, bool) {
	t, ok := c.terms[name]
	return t, ok
}

// Terms returns every term in declaration order.
func (c *Context) Terms() []*Term {
	out := make([]*Term, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.terms[name])
	}
	return out
}

// TermsFor returns the forward terms expanding to iri in declaration order,
// generated terms included.
func (c *Context) TermsFor(iri string) []*Term {
	return c.forward[iri]
}

// ReverseTermsFor returns the @reverse terms expanding to iri.
func (c *Context) ReverseTermsFor(iri string) []*Term {
	return c.reverse[iri]
}

// Prefixes returns prefix name to base IRI.
func (c *Context) Prefixes() map[string]string {
	out := make(map[string]string, len(c.prefixes))
	for _, p := range c.prefixes {
		out[p.Name] = p.IRI
	}
	return out
}

// Alias returns the first term aliasing keyword, or the keyword itself.
func (c *Context) Alias(keyword string) string {
	if name, ok := c.aliases[keyword]; ok {
		return name
	}
	return keyword
}

// Keyword reports which keyword key stands for, either directly or via an alias.
func (c *Context) Keyword(key string) (string, bool) {
	if IsKeyword(key) {
		return key, true
	}
	if t, ok := c.terms[key]; ok && t.IsKeyword() {
		return t.Keyword, true
	}
	return "", false
}

// Vocab returns the @vocab base, if any.
func (c *Context) Vocab() string {
	return c.vocab
}

// Raw returns the value the context was parsed from, verbatim.
func (c *Context) Raw() any {
	return c.raw
}

// Len returns the number of terms.
func (c *Context) Len() int {
	return len(c.order)
}
