package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name
const Namespace = "semlink"

// Metrics contains the metrics recorded by the resolution, graph and backend layers.
// All Record methods are no-ops on a nil *Metrics.
type Metrics struct {
	// Resolution metrics
	ResolveRequests     *prometheus.CounterVec
	ResolvedIdentifiers *prometheus.CounterVec
	ResolveDuration     *prometheus.HistogramVec

	// Graph metrics
	EntitiesConstructed *prometheus.CounterVec
	TriplesTransformed  prometheus.Counter

	// Backend metrics
	BackendRequests *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance. The collectors are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		ResolveRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "resolver",
				Name:      "requests_total",
				Help:      "Batched resolver calls per namespace",
			},
			[]string{"namespace", "status"},
		),

		ResolvedIdentifiers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "resolver",
				Name:      "identifiers_total",
				Help:      "Identifiers requested per namespace by outcome (resolved, null)",
			},
			[]string{"namespace", "outcome"},
		),

		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "resolver",
				Name:      "duration_seconds",
				Help:      "Duration of batched resolver calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"namespace"},
		),

		EntitiesConstructed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "graph",
				Name:      "entities_constructed_total",
				Help:      "Entities constructed from graphs by type and status",
			},
			[]string{"type", "status"},
		),

		TriplesTransformed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "transform",
				Name:      "triples_total",
				Help:      "Triples processed by the transformation engine",
			},
		),

		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Backend store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and class",
			},
			[]string{"component", "class"},
		),
	}
}

func (c *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		c.ResolveRequests,
		c.ResolvedIdentifiers,
		c.ResolveDuration,
		c.EntitiesConstructed,
		c.TriplesTransformed,
		c.BackendRequests,
		c.ErrorsTotal,
	)
}

// RecordResolve records one batched resolver call and its per-identifier outcome
func (c *Metrics) RecordResolve(namespace, status string, resolved, null int, duration time.Duration) {
	if c == nil {
		return
	}
	c.ResolveRequests.WithLabelValues(namespace, status).Inc()
	c.ResolvedIdentifiers.WithLabelValues(namespace, "resolved").Add(float64(resolved))
	c.ResolvedIdentifiers.WithLabelValues(namespace, "null").Add(float64(null))
	c.ResolveDuration.WithLabelValues(namespace).Observe(duration.Seconds())
}

// RecordConstruction increments the constructed entity counter
func (c *Metrics) RecordConstruction(typeName, status string) {
	if c == nil {
		return
	}
	c.EntitiesConstructed.WithLabelValues(typeName, status).Inc()
}

// RecordTransformed adds to the transformed triple counter
func (c *Metrics) RecordTransformed(triples int) {
	if c == nil {
		return
	}
	c.TriplesTransformed.Add(float64(triples))
}

// RecordBackend increments the backend operation counter
func (c *Metrics) RecordBackend(backend, operation, status string) {
	if c == nil {
		return
	}
	c.BackendRequests.WithLabelValues(backend, operation, status).Inc()
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, class string) {
	if c == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// Status returns "ok" for a nil error and "error" otherwise
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
