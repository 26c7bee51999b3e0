package cache

import (
	"github.com/c360/semlink/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics holds Prometheus metrics for cache operations. Methods are
// no-ops on a nil receiver.
type cacheMetrics struct {
	// Counter metrics - directly incremented without stats duplication
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	deletes   prometheus.Counter
	evictions prometheus.Counter

	// Gauge metrics - updated on operations
	size prometheus.Gauge
}

// newCacheMetrics creates and registers cache metrics under the component label prefix.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "cache",
			Name:        name,
			ConstLabels: labels,
			Help:        help,
		})
	}

	m := &cacheMetrics{
		hits:      counter("hits_total", "Total number of cache hits"),
		misses:    counter("misses_total", "Total number of cache misses"),
		sets:      counter("sets_total", "Total number of cache set operations"),
		deletes:   counter("deletes_total", "Total number of cache delete operations"),
		evictions: counter("evictions_total", "Total number of cache evictions by capacity or expiry"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of entries in cache",
		}),
	}

	counters := map[string]prometheus.Counter{
		"cache_hits":      m.hits,
		"cache_misses":    m.misses,
		"cache_sets":      m.sets,
		"cache_deletes":   m.deletes,
		"cache_evictions": m.evictions,
	}
	for name, c := range counters {
		if err := registry.RegisterCounter(prefix, name, c); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterGauge(prefix, "cache_size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}

// recordHit increments the hit counter.
func (m *cacheMetrics) recordHit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

// recordMiss increments the miss counter.
func (m *cacheMetrics) recordMiss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

// recordSet increments the set counter.
func (m *cacheMetrics) recordSet() {
	if m == nil {
		return
	}
	m.sets.Inc()
}

// recordDelete increments the delete counter.
func (m *cacheMetrics) recordDelete() {
	if m == nil {
		return
	}
	m.deletes.Inc()
}

// recordEviction increments the eviction counter.
func (m *cacheMetrics) recordEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

// updateSize sets the current cache size.
func (m *cacheMetrics) updateSize(size int) {
	if m == nil {
		return
	}
	m.size.Set(float64(size))
}
