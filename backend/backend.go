package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/resolver"
	"github.com/c360/semlink/vocabulary"
)

// Backend is a named source of nodes.
type Backend interface {
	resolver.IRIResolver
	// Name is the factory name, used as the metric label.
	Name() string
	Close() error
}

// Writer is implemented by backends that store entities.
type Writer interface {
	Store(ctx context.Context, entities ...*entity.Entity) error
	Delete(ctx context.Context, iris ...string) error
}

// Dependencies provides what factories need beyond their own options.
type Dependencies struct {
	Types   *entity.TypeRegistry
	Vocab   *vocabulary.Registry
	Metrics *metric.MetricsRegistry // can be nil
	Logger  *slog.Logger            // can be nil, defaults to slog.Default()
	Entity  []entity.Option         // passed to every constructed entity
}

// CoreMetrics returns the core metrics of the registry, or nil without one.
// The Record methods accept a nil receiver.
func (d *Dependencies) CoreMetrics() *metric.Metrics {
	if d.Metrics == nil {
		return nil
	}
	return d.Metrics.CoreMetrics()
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithBackend returns a logger carrying the backend name
func (d *Dependencies) GetLoggerWithBackend(name string) *slog.Logger {
	return d.GetLogger().With("backend", name)
}

// Factory creates a backend from its options map. Options are read with the
// config Get* helpers.
type Factory func(ctx context.Context, options map[string]any, deps Dependencies) (Backend, error)

// Registry maps backend names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty backend registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterFactory registers a factory under name. Registering a name twice
// is an error.
func (r *Registry) RegisterFactory(name string, factory Factory) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory name validation")
	}
	if factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.WrapInvalid(fmt.Errorf("backend %q is already registered", name),
			"Registry", "RegisterFactory", "duplicate factory check")
	}
	r.factories[name] = factory
	return nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Create builds a backend with the named factory.
func (r *Registry) Create(ctx context.Context, name string, options map[string]any, deps Dependencies) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: unknown backend %q", errors.ErrInvalidConfig, name),
			"Registry", "Create", "factory lookup")
	}

	b, err := factory(ctx, options, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", fmt.Sprintf("create %s backend", name))
	}
	return b, nil
}
