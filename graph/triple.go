package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Object is the object of a triple: an identifier or a literal.
type Object struct {
	// IRI is set when the object references another node.
	IRI string `json:"iri,omitempty"`
	// Value holds the literal value when IRI is empty.
	Value    any    `json:"value,omitempty"`
	Language string `json:"language,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// IRI returns a reference object.
func IRI(id string) Object {
	return Object{IRI: id}
}

// Literal returns a plain literal object.
func Literal(v any) Object {
	return Object{Value: v}
}

// LangString returns a language-tagged string literal.
func LangString(text, lang string) Object {
	return Object{Value: text, Language: lang}
}

// IsIRI reports whether the object references a node.
func (o Object) IsIRI() bool {
	return o.IRI != ""
}

func (o Object) String() string {
	if o.IsIRI() {
		return "<" + o.IRI + ">"
	}
	s := fmt.Sprintf("%q", fmt.Sprint(o.Value))
	switch {
	case o.Language != "":
		s += "@" + o.Language
	case o.Datatype != "":
		s += "^^<" + o.Datatype + ">"
	}
	return s
}

// key renders the object for set comparison. Numbers compare by value, so
// 1 and 1.0 are the same literal.
func (o Object) key() string {
	if o.IsIRI() {
		return "I" + o.IRI
	}
	v, err := json.Marshal(o.Value)
	if err != nil {
		v = []byte(fmt.Sprint(o.Value))
	}
	return "L" + string(v) + "@" + o.Language + "^" + o.Datatype
}

// Triple is one subject-predicate-object statement. Predicates are expanded
// IRIs; subjects and IRI objects are identifiers kept as written.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Object `json:"object"`
}

func (t Triple) String() string {
	return fmt.Sprintf("<%s> <%s> %s .", t.Subject, t.Predicate, t.Object)
}

func (t Triple) key() string {
	return t.Subject + "\x00" + t.Predicate + "\x00" + t.Object.key()
}

// Graph is a list of triples. Order carries no meaning for equality but is
// kept as first-seen order for aggregation.
type Graph []Triple

// Subjects returns the distinct subjects in first-seen order.
func (g Graph) Subjects() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range g {
		if !seen[t.Subject] {
			seen[t.Subject] = true
			out = append(out, t.Subject)
		}
	}
	return out
}

// About returns the triples of subject in graph order.
func (g Graph) About(subject string) Graph {
	var out Graph
	for _, t := range g {
		if t.Subject == subject {
			out = append(out, t)
		}
	}
	return out
}

// Equivalent reports whether both graphs hold the same set of triples.
// Duplicates and order are ignored. Blank node labels are compared as written.
func (g Graph) Equivalent(other Graph) bool {
	a, b := g.set(), other.set()
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Diff returns the triples of g missing from other and those of other missing from g.
func (g Graph) Diff(other Graph) (missing, extra Graph) {
	a, b := g.set(), other.set()
	for _, t := range g {
		if !b[t.key()] {
			missing = append(missing, t)
		}
	}
	for _, t := range other {
		if !a[t.key()] {
			extra = append(extra, t)
		}
	}
	return missing, extra
}

func (g Graph) set() map[string]bool {
	out := make(map[string]bool, len(g))
	for _, t := range g {
		out[t.key()] = true
	}
	return out
}

// Dedup returns g without repeated triples, keeping first occurrences.
func (g Graph) Dedup() Graph {
	seen := make(map[string]bool, len(g))
	out := make(Graph, 0, len(g))
	for _, t := range g {
		k := t.key()
		if !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	return out
}

// Sorted returns a copy ordered by subject, predicate and object.
func (g Graph) Sorted() Graph {
	out := append(Graph(nil), g...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].key() < out[j].key()
	})
	return out
}

func (g Graph) String() string {
	var b strings.Builder
	for _, t := range g {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}
