// Package metric provides Prometheus metrics for semlink.
//
// MetricsRegistry owns a private prometheus.Registry holding the core metrics
// (resolution, graph construction, transformation, backends) plus Go runtime
// collectors. Components register their own collectors through the
// Register* methods, keyed by component and metric name:
//
//	registry := metric.NewMetricsRegistry()
//	core := registry.CoreMetrics()
//	core.RecordResolve("ex", "ok", 3, 1, elapsed)
//
// Record methods are no-ops on a nil *Metrics, so callers that were not given
// a registry need no checks.
//
// Server exposes the registry over HTTP at /metrics with a /health endpoint.
package metric
