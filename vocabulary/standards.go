package vocabulary

// Standard vocabulary base IRIs.
//
// References:
// - RDF: https://www.w3.org/TR/rdf11-concepts/
// - OWL: https://www.w3.org/TR/owl2-overview/
// - SKOS: https://www.w3.org/TR/skos-reference/
// - Dublin Core: https://www.dublincore.org/specifications/dublin-core/dcmi-terms/
// - Schema.org: https://schema.org/
// - PROV-O: https://www.w3.org/TR/prov-o/
const (
	RdfBase    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RdfsBase   = "http://www.w3.org/2000/01/rdf-schema#"
	OwlBase    = "http://www.w3.org/2002/07/owl#"
	SkosBase   = "http://www.w3.org/2004/02/skos/core#"
	XsdBase    = "http://www.w3.org/2001/XMLSchema#"
	SchemaBase = "https://schema.org/"
	DcBase     = "http://purl.org/dc/terms/"
	ProvBase   = "http://www.w3.org/ns/prov#"
	FoafBase   = "http://xmlns.com/foaf/0.1/"
)

// RDF and RDF Schema IRIs
const (
	// RdfType links a subject to its class. Type tags of entities serialize to it.
	RdfType = RdfBase + "type"

	// RdfLangString is the datatype of language-tagged literals
	RdfLangString = RdfBase + "langString"

	// RdfsLabel provides a human-readable name for a resource.
	RdfsLabel = RdfsBase + "label"

	// RdfsComment provides a human-readable description
	RdfsComment = RdfsBase + "comment"

	RdfsSeeAlso = RdfsBase + "seeAlso"
)

// OWL and SKOS IRIs
const (
	// OwlSameAs indicates that two IRI references refer to the same entity.
	OwlSameAs = OwlBase + "sameAs"

	SkosPrefLabel = SkosBase + "prefLabel"
	SkosAltLabel  = SkosBase + "altLabel"
)

// XML Schema datatypes used for literal checks
const (
	XsdString   = XsdBase + "string"
	XsdBoolean  = XsdBase + "boolean"
	XsdInteger  = XsdBase + "integer"
	XsdDecimal  = XsdBase + "decimal"
	XsdDouble   = XsdBase + "double"
	XsdDate     = XsdBase + "date"
	XsdDateTime = XsdBase + "dateTime"
)

// Schema.org IRIs
const (
	// SchemaName provides the name of the item.
	SchemaName = SchemaBase + "name"

	// SchemaIdentifier provides a unique identifier for the item.
	SchemaIdentifier = SchemaBase + "identifier"

	// SchemaSameAs indicates a URL that unambiguously indicates the item's identity.
	SchemaSameAs = SchemaBase + "sameAs"
)

// StandardPrefixes returns the well-known prefix table as a context fragment.
// A fresh map is returned on every call.
func StandardPrefixes() map[string]any {
	return map[string]any{
		"rdf":    RdfBase,
		"rdfs":   RdfsBase,
		"owl":    OwlBase,
		"skos":   SkosBase,
		"xsd":    XsdBase,
		"schema": SchemaBase,
		"dc":     DcBase,
		"prov":   ProvBase,
		"foaf":   FoafBase,
	}
}

// StandardFragment is the fragment name under which StandardPrefixes is registered.
const StandardFragment = "standard"
