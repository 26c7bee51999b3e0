package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/vocabulary"
)

// Resolver materializes a batch of identifiers. It is the contract entities
// are bound to; see entity.Resolver.
type Resolver = entity.Resolver

// Func adapts a function to Resolver.
type Func func(ctx context.Context, iris []string, expected *entity.Type) (map[string]*entity.Entity, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, iris []string, expected *entity.Type) (map[string]*entity.Entity, error) {
	return f(ctx, iris, expected)
}

// DefaultConcurrency bounds the namespaces dispatched at once.
const DefaultConcurrency = 8

// Option configures a Registry.
type Option func(*Registry)

// WithConcurrency bounds concurrent namespace calls. Values below 1 mean one at a time.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithTimeout bounds each namespace call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records each namespace call.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

type baseEntry struct {
	base     string
	resolver Resolver
}

// Registry maps namespaces and base IRIs to resolvers. Registration is
// last-write-wins. A Registry is safe for concurrent use; it is typically
// populated at startup and read continuously thereafter.
type Registry struct {
	mu          sync.RWMutex
	namespaces  map[string]Resolver
	bases       []baseEntry // longest base first
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *metric.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		namespaces:  make(map[string]Resolver),
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, created on first use. Entities
// only fall back to it after Install.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Install makes r the resolver of entities constructed without WithResolver.
func (r *Registry) Install() {
	entity.SetDefaultResolver(r)
}

// Register binds namespace to res, replacing any previous resolver. The empty
// namespace serves identifiers without a colon.
func (r *Registry) Register(namespace string, res Resolver) error {
	if res == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil resolver for %q", errors.ErrInvalidConfig, namespace),
			"Registry", "Register", "resolver validation")
	}
	if strings.Contains(namespace, ":") {
		return errors.WrapInvalid(fmt.Errorf("%w: namespace %q contains ':'", errors.ErrInvalidConfig, namespace),
			"Registry", "Register", "namespace validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, replaced := r.namespaces[namespace]; replaced {
		r.logger.Debug("replacing resolver", "namespace", namespace)
	}
	r.namespaces[namespace] = res
	return nil
}

// RegisterBase routes every identifier starting with base to res, ahead of
// namespace routing. The longest matching base wins.
func (r *Registry) RegisterBase(base string, res Resolver) error {
	if res == nil || !vocabulary.IsAbsolute(base) {
		return errors.WrapInvalid(fmt.Errorf("%w: base %q must be an absolute IRI with a resolver", errors.ErrInvalidConfig, base),
			"Registry", "RegisterBase", "base validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, b := range r.bases {
		if b.base == base {
			r.bases[i].resolver = res
			return nil
		}
	}
	r.bases = append(r.bases, baseEntry{base: base, resolver: res})
	sort.SliceStable(r.bases, func(i, j int) bool {
		return len(r.bases[i].base) > len(r.bases[j].base)
	})
	return nil
}

// Lookup returns the resolver of namespace or a base IRI registered with
// RegisterBase. A missing entry is an *UnresolvedNamespaceError.
func (r *Registry) Lookup(namespace string) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, ok := r.namespaces[namespace]; ok {
		return res, nil
	}
	for _, b := range r.bases {
		if b.base == namespace {
			return b.resolver, nil
		}
	}
	return nil, &UnresolvedNamespaceError{Namespace: namespace}
}

// Unregister removes namespace or base. It reports whether an entry existed.
func (r *Registry) Unregister(namespace string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.namespaces[namespace]; ok {
		delete(r.namespaces, namespace)
		return true
	}
	for i, b := range r.bases {
		if b.base == namespace {
			r.bases = append(r.bases[:i], r.bases[i+1:]...)
			return true
		}
	}
	return false
}

// Namespaces returns registered namespaces and bases in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.namespaces)+len(r.bases))
	for ns := range r.namespaces {
		out = append(out, ns)
	}
	for _, b := range r.bases {
		out = append(out, b.base)
	}
	sort.Strings(out)
	return out
}

// Reset removes every registration.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.namespaces = make(map[string]Resolver)
	r.bases = nil
}

// Route returns the registry key serving iri: the longest registered base it
// starts with, otherwise its namespace.
func (r *Registry) Route(iri string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bases {
		if strings.HasPrefix(iri, b.base) {
			return b.base
		}
	}
	return vocabulary.Namespace(iri)
}
