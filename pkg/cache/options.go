package cache

import (
	"time"

	"github.com/c360/semlink/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Stats are always collected; metrics are optional.
type cacheOptions[V any] struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	evictCallback EvictCallback[V]
	ttl           time.Duration
	now           func() time.Time
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// A nil registry or empty prefix leaves metrics disabled.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback function that is called when items are
// evicted by capacity, expiry, Delete or Clear.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithTTL expires entries ttl after they were last set. Expired entries are
// dropped lazily on access. If ttl is <= 0, this option is ignored.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(opts *cacheOptions[V]) {
		if ttl > 0 {
			opts.ttl = ttl
		}
	}
}

// withClock replaces time.Now for expiry tests.
func withClock[V any](now func() time.Time) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.now = now
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{now: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
