package vocabulary

import (
	"strings"
)

// Keywords recognized in contexts and documents.
const (
	KeywordID        = "@id"
	KeywordType      = "@type"
	KeywordValue     = "@value"
	KeywordLanguage  = "@language"
	KeywordReverse   = "@reverse"
	KeywordContainer = "@container"
	KeywordContext   = "@context"
	KeywordGraph     = "@graph"
	KeywordVocab     = "@vocab"
	KeywordBase      = "@base"
	KeywordVersion   = "@version"
	KeywordSet       = "@set"
	KeywordList      = "@list"
)

// BlankPrefix starts every blank node label.
const BlankPrefix = "_:"

// Namespace returns the routing namespace of an identifier: the substring
// before the first ':'. Identifiers without a colon have no namespace.
//
// Examples:
//   - "demo:person1" -> "demo"
//   - "https://schema.org/Person" -> "https"
//   - "local" -> ""
func Namespace(iri string) string {
	i := strings.Index(iri, ":")
	if i < 0 {
		return ""
	}
	return iri[:i]
}

// IsKeyword reports whether value is a keyword such as "@id".
func IsKeyword(value string) bool {
	return strings.HasPrefix(value, "@")
}

// IsBlank reports whether id is a blank node label.
func IsBlank(id string) bool {
	return strings.HasPrefix(id, BlankPrefix)
}

// IsAbsolute reports whether iri carries a scheme followed by "//" or is a urn.
func IsAbsolute(iri string) bool {
	i := strings.Index(iri, ":")
	if i <= 0 {
		return false
	}
	rest := iri[i+1:]
	return strings.HasPrefix(rest, "//") || strings.EqualFold(iri[:i], "urn")
}

// SplitCompact splits a compact IRI into prefix and local part.
// ok is false for absolute IRIs, blank nodes and values without a colon.
func SplitCompact(value string) (prefix, local string, ok bool) {
	if IsBlank(value) || IsAbsolute(value) {
		return "", "", false
	}
	i := strings.Index(value, ":")
	if i <= 0 {
		return "", "", false
	}
	return value[:i], value[i+1:], true
}

// isPrefixIRI reports whether an expanded term IRI can act as a prefix.
func isPrefixIRI(iri string) bool {
	if iri == "" {
		return false
	}
	switch iri[len(iri)-1] {
	case '/', '#', ':', '?', '[', ']', '@':
		return true
	}
	return false
}
