package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/vocabulary"
)

// Expand turns the nodes of doc into triples under the document context,
// resolved through vocab so named fragments can be imported. vocab may be nil.
func Expand(doc *Document, vocab *vocabulary.Registry) (Graph, error) {
	var (
		ctx *vocabulary.Context
		err error
	)
	if vocab != nil {
		ctx, err = vocab.Resolve(doc.Context)
	} else {
		ctx, err = vocabulary.Parse(doc.Context, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Graph", "Expand", "context resolution")
	}
	return ExpandNodes(ctx, doc.Nodes...)
}

// ExpandNodes turns node objects into triples under ctx. Properties and type
// tags are expanded to IRIs; identifiers are kept as written. Nodes without an
// identifier get blank labels _:b0, _:b1, ... in encounter order. Keys that do
// not expand to an IRI are dropped.
func ExpandNodes(ctx *vocabulary.Context, nodes ...Node) (Graph, error) {
	if ctx == nil {
		ctx = vocabulary.MustParse(nil)
	}
	x := &expander{ctx: ctx}
	for i, n := range nodes {
		if _, err := x.node(n); err != nil {
			return nil, errors.WrapInvalid(err, "Graph", "Expand", fmt.Sprintf("node %d", i))
		}
	}
	return x.out, nil
}

type expander struct {
	ctx   *vocabulary.Context
	out   Graph
	blank int
}

func (x *expander) emit(s, p string, o Object) {
	x.out = append(x.out, Triple{Subject: s, Predicate: p, Object: o})
}

// node expands n and returns its subject.
func (x *expander) node(n Node) (string, error) {
	subject := ""
	for key, v := range n {
		if kw, ok := x.ctx.Keyword(key); ok && kw == vocabulary.KeywordID {
			id, ok := v.(string)
			if !ok || id == "" {
				return "", fmt.Errorf("%w: identifier must be a non-empty string, got %T", ErrInvalidNode, v)
			}
			subject = id
		}
	}
	if subject == "" {
		subject = vocabulary.BlankPrefix + "b" + strconv.Itoa(x.blank)
		x.blank++
	}

	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := n[key]
		if kw, ok := x.ctx.Keyword(key); ok {
			switch kw {
			case vocabulary.KeywordType:
				for _, tag := range stringValues(value) {
					x.emit(subject, vocabulary.RdfType, IRI(x.ctx.Expand(tag)))
				}
			case vocabulary.KeywordReverse:
				rev, ok := value.(map[string]any)
				if !ok {
					return "", fmt.Errorf("%w: @reverse must be an object", ErrInvalidNode)
				}
				for _, rk := range sortedKeys(rev) {
					if err := x.property(subject, rk, rev[rk], true); err != nil {
						return "", err
					}
				}
			}
			continue
		}
		if err := x.property(subject, key, value, false); err != nil {
			return "", err
		}
	}
	return subject, nil
}

func (x *expander) property(subject, key string, value any, reversed bool) error {
	term, _ := x.ctx.Term(key)
	predicate := ""
	if term != nil {
		predicate = term.IRI
	} else {
		predicate = x.ctx.Expand(key)
	}
	if predicate == "" || vocabulary.IsKeyword(predicate) || !strings.Contains(predicate, ":") {
		return nil
	}
	if term != nil && term.Reverse {
		reversed = !reversed
	}

	for _, item := range flatten(value) {
		o, ok, err := x.object(term, item)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if !ok {
			continue
		}
		if reversed {
			// Literals cannot be subjects.
			if o.IsIRI() {
				x.emit(o.IRI, predicate, IRI(subject))
			}
			continue
		}
		x.emit(subject, predicate, o)
	}
	return nil
}

func (x *expander) object(term *vocabulary.Term, item any) (Object, bool, error) {
	switch v := item.(type) {
	case nil:
		return Object{}, false, nil
	case map[string]any:
		if o, ok := x.valueObject(term, v); ok {
			return o, true, nil
		}
		sub, err := x.node(v)
		if err != nil {
			return Object{}, false, err
		}
		return IRI(sub), true, nil
	case string:
		if term != nil && term.Reference {
			return IRI(v), true, nil
		}
		o := Literal(v)
		if term != nil {
			o.Datatype = term.Datatype
			if o.Datatype == "" {
				o.Language = term.Language
			}
		}
		return o, true, nil
	default:
		o := Literal(v)
		if term != nil {
			o.Datatype = term.Datatype
		}
		return o, true, nil
	}
}

// valueObject reads {"@value": ..., "@language": ..., "@type": ...} in any aliased form.
func (x *expander) valueObject(term *vocabulary.Term, m map[string]any) (Object, bool) {
	var o Object
	found := false
	for k, v := range m {
		kw, ok := x.ctx.Keyword(k)
		if !ok {
			continue
		}
		switch kw {
		case vocabulary.KeywordValue:
			o.Value = v
			found = true
		case vocabulary.KeywordLanguage:
			o.Language, _ = v.(string)
		case vocabulary.KeywordType:
			if s, ok := v.(string); ok {
				o.Datatype = x.ctx.Expand(s)
			}
		}
	}
	if !found {
		return Object{}, false
	}
	if o.Language == "" && o.Datatype == "" && term != nil {
		if _, isString := o.Value.(string); isString {
			o.Language = term.Language
		}
	}
	return o, true
}

// flatten unwraps lists and {"@list": [...]} / {"@set": [...]} containers.
func flatten(value any) []any {
	switch v := value.(type) {
	case []any:
		var out []any
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case map[string]any:
		if len(v) == 1 {
			for k, inner := range v {
				if k == vocabulary.KeywordList || k == vocabulary.KeywordSet {
					return flatten(inner)
				}
			}
		}
	}
	return []any{value}
}

func stringValues(value any) []string {
	var out []string
	for _, item := range flatten(value) {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
