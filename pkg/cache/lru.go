package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/c360/semlink/errors"
)

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiry
}

// lruCache evicts the least recently used entry when maxSize is exceeded and,
// with a TTL, drops entries older than the TTL on access.
type lruCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element
	order   *list.List
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

// NewLRU creates an LRU cache holding at most maxSize entries.
// Stats are always enabled. Use WithMetrics to also export them to Prometheus.
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewLRU", "max size must be positive")
	}
	opts := applyOptions(options...)

	var metrics *cacheMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "NewLRU", "metrics registration")
		}
	}

	return &lruCache[V]{
		maxSize: maxSize,
		ttl:     opts.ttl,
		now:     opts.now,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

// Get retrieves a value by key and marks it as recently used.
func (c *lruCache[V]) Get(key string) (V, bool) {
	var zero V
	var evicted []lruEntry[V]

	c.mu.Lock()
	element, exists := c.items[key]
	if exists {
		entry := element.Value.(*lruEntry[V])
		if c.expired(entry) {
			c.remove(element)
			c.stats.Eviction()
			c.metrics.recordEviction()
			evicted = append(evicted, *entry)
			exists = false
		}
	}
	if !exists {
		c.stats.Miss()
		c.metrics.recordMiss()
		c.syncSize()
		c.mu.Unlock()
		c.notify(evicted)
		return zero, false
	}

	c.order.MoveToFront(element)
	c.stats.Hit()
	c.metrics.recordHit()
	value := element.Value.(*lruEntry[V]).value
	c.mu.Unlock()
	return value, true
}

// Set stores a value and marks it as recently used.
func (c *lruCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evicted []lruEntry[V]
	created := false

	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		entry := element.Value.(*lruEntry[V])
		entry.value = value
		entry.expiresAt = c.expiry()
		c.order.MoveToFront(element)
	} else {
		c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value, expiresAt: c.expiry()})
		created = true
		for len(c.items) > c.maxSize {
			back := c.order.Back()
			evicted = append(evicted, *back.Value.(*lruEntry[V]))
			c.remove(back)
			c.stats.Eviction()
			c.metrics.recordEviction()
		}
	}
	c.stats.Set()
	c.metrics.recordSet()
	c.syncSize()
	c.mu.Unlock()

	c.notify(evicted)
	return created, nil
}

// Delete removes an entry by key.
func (c *lruCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}
	entry := *element.Value.(*lruEntry[V])
	c.remove(element)
	c.stats.Delete()
	c.metrics.recordDelete()
	c.syncSize()
	c.mu.Unlock()

	c.notify([]lruEntry[V]{entry})
	return true, nil
}

// Clear removes all entries from the cache.
func (c *lruCache[V]) Clear() error {
	var evicted []lruEntry[V]

	c.mu.Lock()
	if c.evictFn != nil {
		evicted = make([]lruEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			evicted = append(evicted, *element.Value.(*lruEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.syncSize()
	c.mu.Unlock()

	c.notify(evicted)
	return nil
}

// Size returns the current number of entries, expired ones included until
// they are next accessed.
func (c *lruCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the keys of unexpired entries, most recently used first.
func (c *lruCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*lruEntry[V])
		if !c.expired(entry) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *lruCache[V]) Stats() *Statistics {
	return c.stats
}

// Close is a no-op; the cache runs no background goroutines.
func (c *lruCache[V]) Close() error {
	return nil
}

func (c *lruCache[V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *lruCache[V]) expired(entry *lruEntry[V]) bool {
	return !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)
}

// remove must be called with mu held.
func (c *lruCache[V]) remove(element *list.Element) {
	delete(c.items, element.Value.(*lruEntry[V]).key)
	c.order.Remove(element)
}

// syncSize must be called with mu held.
func (c *lruCache[V]) syncSize() {
	c.stats.UpdateSize(int64(len(c.items)))
	c.metrics.updateSize(len(c.items))
}

// notify runs the eviction callback outside the lock.
func (c *lruCache[V]) notify(entries []lruEntry[V]) {
	if c.evictFn == nil {
		return
	}
	for _, entry := range entries {
		c.evictFn(entry.key, entry.value)
	}
}

// NewNoop creates a cache that stores nothing and always misses.
func NewNoop[V any]() Cache[V] {
	return noopCache[V]{}
}

type noopCache[V any] struct{}

func (noopCache[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (noopCache[V]) Set(string, V) (bool, error) { return false, nil }
func (noopCache[V]) Delete(string) (bool, error) { return false, nil }
func (noopCache[V]) Clear() error                { return nil }
func (noopCache[V]) Size() int                   { return 0 }
func (noopCache[V]) Keys() []string              { return nil }
func (noopCache[V]) Stats() *Statistics          { return nil }
func (noopCache[V]) Close() error                { return nil }
