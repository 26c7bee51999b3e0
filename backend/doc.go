// Package backend connects document stores and remote endpoints to the
// resolver registry.
//
// A backend answers single identifier lookups (resolver.IRIResolver) and may
// also answer whole batches (resolver.BatchIRIResolver). Backends are created
// by name through a Registry of factories, so configuration files can bind a
// namespace to "memory", "sqlite", "kv" or "sparql" without the caller
// importing the implementation:
//
//	reg := backend.NewRegistry()
//	if err := backendregistry.Register(reg); err != nil {
//		return err
//	}
//	closers, err := backend.Install(ctx, reg, cfg, resolvers, deps)
//
// Install wraps every backend with resolver.FromIRIResolver, adds an LRU
// cache in front when the resolver config asks for one, and registers the
// result under the configured namespace and base IRI.
//
// Stores that accept writes also implement Writer. They persist entities in
// the form produced by resolver.ExportNode, so what is stored is exactly what
// FromIRIResolver reads back.
package backend
