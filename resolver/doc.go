// Package resolver dispatches identifier resolution to pluggable backends.
//
// A Registry maps namespaces to resolvers. The namespace of an identifier is
// the text before its first colon ("demo:alice" belongs to "demo"); base IRIs
// registered with RegisterBase take precedence, longest match first. A
// Registry is itself a resolver, so it can be bound to entities directly:
//
//	reg := resolver.NewRegistry(resolver.WithLogger(logger))
//	reg.Register("demo", store)
//	e, _ := entity.Construct(personType, "demo:alice", values, entity.WithResolver(reg))
//
// Resolution is batched: Resolve groups identifiers by namespace and makes
// one call per namespace. Namespaces are dispatched concurrently up to the
// configured limit; the call returns once all of them finish.
//
// # Partial failure
//
// A resolver that fails, panics or is missing nulls only the identifiers of
// its own namespace. Other namespaces are still resolved. The error reaches
// the caller of Resolve only when every identifier of the request belongs to
// that single namespace; ResolveDetailed reports every per-namespace failure.
//
// # Adapters
//
// FromIRIResolver builds the batch contract on top of a backend that returns
// the structured fields of one identifier at a time. Caching puts an LRU of
// materialized entities in front of any resolver.
package resolver
