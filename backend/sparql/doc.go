// Package sparql resolves identifiers against a SPARQL 1.1 endpoint.
//
// A batch of identifiers becomes one SELECT query over a VALUES block:
//
//	SELECT ?s ?p ?o WHERE { VALUES ?s { <http://example.org/a> ... } ?s ?p ?o }
//
// Result bindings are folded into one node per subject, keyed by full
// predicate IRIs under an empty "@context", so resolver.FromIRIResolver maps
// them onto fields through each type's own context. rdf:type values, and
// values of any predicate configured with WithTypePredicate, become "@type".
//
// Requests are throttled with a token bucket and retried with backoff on
// transport errors, 429 and 5xx responses. Other 4xx responses fail at once.
// A request that runs out of time fails the whole batch; the resolver
// registry reports such failures without affecting other namespaces.
package sparql
