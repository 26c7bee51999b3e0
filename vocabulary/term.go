package vocabulary

import (
	"fmt"
	"strings"

	"github.com/c360/semlink/errors"
)

// Term is one flattened term definition of a Context.
type Term struct {
	// Name is the term as declared, including any trailing '*'.
	Name string
	// ID is the declared @id or @reverse value before expansion.
	ID string
	// IRI is the fully expanded form of ID. Empty when the term cannot be expanded.
	IRI string
	// Keyword is set when the term aliases a keyword, e.g. "id" -> "@id".
	Keyword string
	// Reference marks "@type": "@id" terms whose values are identifiers.
	Reference bool
	// Reverse marks "@reverse" terms: the node holding the key is the object.
	Reverse bool
	// Datatype is the expanded @type for typed literals.
	Datatype string
	// Container is "@set", "@list" or empty.
	Container string
	// Language is the @language applied to plain string values.
	Language string
	// Scoped holds a nested @context verbatim. It is carried, not interpreted.
	Scoped any
}

// Key returns the output key of the term: its name without trailing '*'.
// Generated terms such as "name*" and "name**" share the key "name".
func (t *Term) Key() string {
	return strings.TrimRight(t.Name, "*")
}

// Generated reports whether the term is an alternate mapping marked with '*'.
func (t *Term) Generated() bool {
	return strings.HasSuffix(t.Name, "*")
}

// IsSet reports whether values under the term always form a collection.
func (t *Term) IsSet() bool {
	return t.Container == KeywordSet || t.Container == KeywordList
}

// IsKeyword reports whether the term only aliases a keyword.
func (t *Term) IsKeyword() bool {
	return t.Keyword != ""
}

// IsPrefix reports whether the term can be used as the prefix of compact IRIs.
func (t *Term) IsPrefix() bool {
	return !t.IsKeyword() && !t.Reverse && !t.Generated() && isPrefixIRI(t.IRI)
}

// parseTerm reads one term definition. The IRI is filled in later by the
// owning Context once all prefixes are known.
func parseTerm(name string, value any) (*Term, error) {
	t := &Term{Name: name}

	switch v := value.(type) {
	case string:
		if IsKeyword(v) {
			t.Keyword = v
		} else {
			t.ID = v
		}
		return t, nil
	case map[string]any:
		return t, t.parseExpanded(v)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: term %q has definition of type %T", ErrInvalidContext, name, value),
			"Context", "Parse", "term definition")
	}
}

func (t *Term) parseExpanded(def map[string]any) error {
	for key, raw := range def {
		switch key {
		case KeywordID:
			s, ok := raw.(string)
			if !ok {
				return t.invalid("@id must be a string")
			}
			if IsKeyword(s) {
				t.Keyword = s
			} else {
				t.ID = s
			}
		case KeywordReverse:
			s, ok := raw.(string)
			if !ok {
				return t.invalid("@reverse must be a string")
			}
			t.ID = s
			t.Reverse = true
		case KeywordType:
			s, ok := raw.(string)
			if !ok {
				return t.invalid("@type must be a string")
			}
			if s == KeywordID || s == KeywordVocab {
				t.Reference = true
			} else {
				t.Datatype = s
			}
		case KeywordContainer:
			c, err := containerOf(raw)
			if err != nil {
				return t.invalid(err.Error())
			}
			t.Container = c
		case KeywordLanguage:
			s, ok := raw.(string)
			if !ok && raw != nil {
				return t.invalid("@language must be a string")
			}
			t.Language = s
		case KeywordContext:
			t.Scoped = raw
		}
	}
	return nil
}

func (t *Term) invalid(reason string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: term %q: %s", ErrInvalidContext, t.Name, reason),
		"Context", "Parse", "term definition")
}

// containerOf accepts "@set" or a list containing "@set"/"@list".
func containerOf(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && (s == KeywordSet || s == KeywordList) {
				return s, nil
			}
		}
		return "", nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("@container of type %T", raw)
}
