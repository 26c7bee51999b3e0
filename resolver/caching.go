package resolver

import (
	"context"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/pkg/cache"
)

type cachingResolver struct {
	next  Resolver
	cache cache.Cache[*entity.Entity]
}

// Caching serves identifiers from c before asking next, and stores what next
// materializes. Unresolved identifiers are not cached, so they are asked
// again on the next call.
func Caching(next Resolver, c cache.Cache[*entity.Entity]) Resolver {
	return &cachingResolver{next: next, cache: c}
}

func (c *cachingResolver) Resolve(ctx context.Context, iris []string, expected *entity.Type) (map[string]*entity.Entity, error) {
	out := make(map[string]*entity.Entity, len(iris))
	var misses []string
	for _, iri := range iris {
		if e, ok := c.cache.Get(iri); ok && e != nil {
			out[iri] = e
			continue
		}
		misses = append(misses, iri)
	}
	if len(misses) == 0 {
		return out, nil
	}

	nodes, err := c.next.Resolve(ctx, misses, expected)
	for _, iri := range misses {
		e := nodes[iri]
		out[iri] = e
		if e != nil {
			// A full or closed cache only costs a later lookup.
			_, _ = c.cache.Set(iri, e)
		}
	}
	return out, err
}
