// Package errors provides standardized error handling for semlink packages.
//
// # Overview
//
// Errors fall into three classes: Transient (a backend was temporarily
// unavailable, retry), Invalid (bad input such as a malformed context or a
// construction that violates a type, do not retry), and Fatal (bad
// configuration or corrupted stored data, stop).
//
// Resolver backends use the classification to decide whether a failed lookup
// is worth retrying (see pkg/retry). The entity, resolver and graph packages
// define their own sentinel errors and typed errors and wrap them with the
// helpers here, so errors.Is and errors.As work through the whole chain.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions attach a class while wrapping:
//
//	errors.WrapTransient(err, "SparqlResolver", "ResolveIRI", "endpoint query")
//	errors.WrapInvalid(err, "Context", "Parse", "term definition")
//	errors.WrapFatal(err, "Loader", "Load", "config validation")
//
// The plain Wrap() keeps whatever classification the wrapped error already has:
//
//	errors.Wrap(err, "Registry", "Resolve", "namespace dispatch")
//
// # Classification
//
//	if err := store.Put(ctx, node); err != nil {
//	    if errors.IsTransient(err) {
//	        // try again later
//	    }
//	}
//
// Classification checks ClassifiedError first, then known sentinels, then
// falls back to message patterns such as "timeout" for errors coming from
// third-party drivers that do not expose typed errors.
package errors
