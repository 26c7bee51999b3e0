// The cache package backs the resolver layer, which memoizes materialized
// entities by identifier.
//
// # Usage
//
//	c, err := cache.NewLRU[*entity.Entity](1000,
//		cache.WithTTL[*entity.Entity](5*time.Minute),
//		cache.WithMetrics[*entity.Entity](registry, "resolver"),
//	)
//	if err != nil {
//		return err
//	}
//	c.Set("ex:1", e)
//	e, ok := c.Get("ex:1")
//
// Expiry is lazy: an expired entry is removed when it is next read, and Keys
// skips expired entries. There is no background cleanup goroutine, so Close is
// a no-op kept for interface compatibility.
//
// Statistics are always collected and can be read through Stats. WithMetrics
// additionally exports them as semlink_cache_* series labelled by component.
//
// NewFromConfig builds a cache from a Config; a disabled Config yields a cache
// that never stores anything.
package cache
