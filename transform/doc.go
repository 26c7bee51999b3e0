// Package transform rewrites a semantic graph from one vocabulary into another.
//
// The input is a graph, or a document expanded under its own context. Every
// triple is matched against all target terms with the same expansion, so a
// target context can rename properties, turn forward edges into reverse ones
// and reshape values without the source data changing:
//
//	target := vocabulary.MustParse(map[string]any{
//		"schema":   "http://schema.org/",
//		"id":       "@id",
//		"employes": map[string]any{"@reverse": "schema:worksFor", "@type": "@id"},
//	})
//	out, err := transform.Transform(doc, target)
//
// Terms decorated with a trailing '*' ("name*", "employes**") are alternate
// mappings for the same output key. All matching terms contribute; values
// for one node and key aggregate in first-seen triple order.
//
// The output document carries the target context verbatim and lists its
// nodes sorted by identifier. Blank node labels are only kept where another
// node references them.
package transform
