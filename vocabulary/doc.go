// Package vocabulary implements the context model that maps short field names
// to namespaced terms.
//
// A context is composed from fragments: maps of term definitions, names of
// fragments registered in a Registry, or lists of both. Fragments are applied
// in order and a later definition of a term replaces an earlier one, which is
// how a subtype context imports its supertype and then overrides terms:
//
//	reg := vocabulary.NewRegistry(vocabulary.WithStandardPrefixes())
//	reg.Register("Entity.json", map[string]any{
//	    "id":    "@id",
//	    "type":  "@type",
//	    "label": "rdfs:label",
//	})
//	ctx, err := reg.Resolve([]any{"standard", "Entity.json", map[string]any{
//	    "works_for": map[string]any{"@id": "schema:worksFor", "@type": "@id"},
//	}})
//
// # Term definitions
//
// A term is either a string (an IRI, compact IRI or keyword) or a map with
// the modifiers:
//   - "@id": the namespaced name
//   - "@type": "@id" marks an identifier-typed reference, any other value a datatype
//   - "@reverse": the term names the inverse of the given property
//   - "@container": "@set" makes values always form a collection
//   - "@language": language tag applied to plain string values
//
// A trailing '*' marks a generated or alternate term. "name" and "name*" may
// map to different properties while both emit the key "name"; see Term.Key.
//
// # Keyword aliases
//
// Terms whose value is a keyword ("id": "@id", "type": "@type", "text":
// "@value", "lang": "@language") are recorded as aliases and are available
// through Context.Alias and Context.Keyword.
//
// # Identifiers
//
// Namespace returns the routing namespace of an identifier (the text before
// the first ':'). Identifiers themselves are never rewritten by the context
// model; Expand and Compact apply to property names and type tags.
package vocabulary
