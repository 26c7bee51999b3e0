// Package entity provides entities whose reference fields link to other
// entities by identifier and are materialized on demand.
//
// A Type declares fields as Literal or Reference. Constructing an entity
// splits reference inputs into identifiers, which are always recorded, and
// entities, which are stored as already resolved:
//
//	foo, err := entity.Construct(fooType, "ex:f", map[string]any{
//	    "b":  "ex:b",                      // pending
//	    "b2": []any{"ex:b1", barEntity},   // pending, resolved
//	}, entity.WithResolver(registry))
//
// Get resolves the pending positions of a reference field in one resolver
// call and keeps the result. Positions no resolver could resolve stay nil while
// the identifier remains recorded, so ExportValues always yields identifiers:
//
//	b, err := foo.Ref(ctx, "b")      // resolver call
//	b, err = foo.Ref(ctx, "b")       // cached
//	foo.ExportValues()["b"]          // "ex:b"
//
// Each reference field is Unset, Pending or Resolved; see Entity.State.
// Concurrent Gets of one field share a single resolver call, and a Set while a
// resolution is in flight discards the late result.
package entity
