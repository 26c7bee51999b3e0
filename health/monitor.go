package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker probes one dependency. Backends that can be probed implement it.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithTimeout bounds every probe. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithSlowThreshold marks successful probes slower than d as degraded.
func WithSlowThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		m.slow = d
	}
}

// Monitor probes named checkers and keeps their last status. It is safe for
// concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	statuses map[string]Status
	timeout  time.Duration
	slow     time.Duration
}

// NewMonitor creates a monitor with no checkers.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		checkers: make(map[string]Checker),
		statuses: make(map[string]Status),
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch adds or replaces the checker probed under name.
func (m *Monitor) Watch(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkers[name] = c
	delete(m.statuses, name)
}

// Unwatch stops probing name and forgets its status.
func (m *Monitor) Unwatch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkers, name)
	delete(m.statuses, name)
}

// Names returns the watched names in sorted order.
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.checkers))
	for name := range m.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check probes every checker concurrently and returns the aggregate under
// systemName with sub-statuses sorted by name.
func (m *Monitor) Check(ctx context.Context, systemName string) Status {
	m.mu.RLock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]Status, len(checkers))
	)
	for name, c := range checkers {
		name, c := name, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := m.probe(ctx, name, c)
			resMu.Lock()
			results[name] = s
			resMu.Unlock()
		}()
	}
	wg.Wait()

	m.mu.Lock()
	for name, s := range results {
		// Unwatched while probing
		if _, ok := m.checkers[name]; ok {
			m.statuses[name] = s
		}
	}
	m.mu.Unlock()

	return Aggregate(systemName, sortedStatuses(results))
}

func (m *Monitor) probe(ctx context.Context, name string, c Checker) (s Status) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s = NewUnhealthy(name, "probe panicked")
			s.Latency = time.Since(start)
		}
	}()

	err := c.Check(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return FromError(name, err, time.Since(start), m.slow)
}

// Get returns the last recorded status of name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[name]
	return status, ok
}

// Last aggregates the recorded statuses without probing.
func (m *Monitor) Last(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Aggregate(systemName, sortedStatuses(m.statuses))
}

func sortedStatuses(in map[string]Status) []Status {
	out := make([]Status, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
