// Package health probes the backends behind the resolver registry and
// aggregates their state.
//
// A Monitor watches named Checkers, usually one per resolver namespace.
// Check runs every probe concurrently under a per-probe timeout and records
// the outcome:
//   - Healthy: the probe succeeded within the slow threshold
//   - Degraded: the probe succeeded but took longer than the slow threshold
//   - Unhealthy: the probe failed or timed out
//
// The aggregate is unhealthy when any probe is, degraded when any probe is
// degraded, and healthy otherwise. Error messages are sanitized before they
// are stored so URLs, paths and credentials do not leak through a health
// endpoint.
//
//	monitor := health.NewMonitor(health.WithTimeout(2 * time.Second))
//	monitor.Watch("demo", store)
//	status := monitor.Check(ctx)
//	if status.IsUnhealthy() {
//	    ...
//	}
package health
