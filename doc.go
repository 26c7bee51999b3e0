// Package semlink lets application data models take part in a linked-data
// graph. Entity fields hold inline values or references to other entities by
// identifier; references are fetched on first access through resolvers bound
// to identifier namespaces.
//
// # Layout
//
// The module is organised bottom-up:
//
//   - vocabulary: contexts (term to IRI mappings), identifier expansion and
//     compaction, and a registry of named context fragments
//   - entity: typed entities with lazy reference fields, the Resolver
//     contract and the type registry
//   - resolver: the namespace registry that batches identifiers per
//     namespace, isolates failures and adapts per-identifier lookups
//   - graph: conversion between entities, documents and triples
//   - transform: rewriting documents and graphs from one vocabulary to another
//   - schema: compiling JSON schemas with "range" references into entity types
//   - backend: document stores and remote endpoints that serve resolvers
//     (memory, SQLite, NATS KV and SPARQL)
//
// Ambient packages carry errors, config, metric, health, natsclient and the
// pkg/ helpers (cache, retry, tlsutil).
//
// # Resolution
//
// Accessing a pending reference field groups its unresolved identifiers by
// namespace and calls each namespace's resolver once:
//
//	registry := resolver.NewRegistry()
//	_ = registry.Register("demo", resolver.FromIRIResolver(store, types))
//	registry.Install()
//
//	friends, err := alice.Refs(ctx, "knows")
//
// Identifiers no resolver can serve become nil positions; the identifiers
// themselves stay recorded and are what ExportValues returns, whether or not
// the field was ever resolved.
//
// # Transformation
//
// transform.Transform expands a document under its own context and compacts
// the triples under a target context. Terms marked with a trailing "*" are
// accepted on input but never chosen for output, and reverse terms turn
// incoming edges into set-valued properties of the object.
//
// # Command line
//
// cmd/semlink wires configuration, schemas, contexts and backends into the
// transform, resolve, validate and serve commands. cmd/benchcompare checks
// benchmark results for regressions.
package semlink
