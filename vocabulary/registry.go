package vocabulary

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/semlink/errors"
)

// Registry holds named context fragments that contexts import by name, for
// example a supertype's context imported by its subtypes. Flattened contexts
// are cached per fragment name until the next registration.
type Registry struct {
	mu        sync.RWMutex
	fragments map[string]any
	flattened map[string]*Context
	gen       uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithStandardPrefixes registers the standard prefix table under StandardFragment.
func WithStandardPrefixes() Option {
	return func(r *Registry) {
		r.fragments[StandardFragment] = StandardPrefixes()
	}
}

// WithFragment registers a fragment at construction time.
func WithFragment(name string, raw any) Option {
	return func(r *Registry) {
		r.fragments[name] = raw
	}
}

// NewRegistry creates an empty fragment registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		fragments: make(map[string]any),
		flattened: make(map[string]*Context),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores raw under name, replacing any previous fragment.
// All cached flattened contexts are dropped since any of them may import name.
func (r *Registry) Register(name string, raw any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fragments[name] = raw
	r.flattened = make(map[string]*Context)
	r.gen++
}

// Lookup returns the raw fragment registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw, ok := r.fragments[name]
	return raw, ok
}

// Import implements ImportFunc.
func (r *Registry) Import(name string) (any, error) {
	raw, ok := r.Lookup(name)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", ErrUnknownImport, name),
			"Registry", "Import", "fragment lookup")
	}
	return raw, nil
}

// Resolve flattens raw with imports served from the registry. The result is not cached.
func (r *Registry) Resolve(raw any) (*Context, error) {
	return Parse(raw, r.Import)
}

// Context returns the flattened context of the fragment registered under name.
func (r *Registry) Context(name string) (*Context, error) {
	r.mu.RLock()
	c, ok := r.flattened[name]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	raw, err := r.Import(name)
	if err != nil {
		return nil, err
	}
	c, err = r.Resolve(raw)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Context", fmt.Sprintf("flatten %q", name))
	}

	r.mu.Lock()
	// A concurrent Register invalidates what was just flattened.
	if r.gen == gen {
		r.flattened[name] = c
	}
	r.mu.Unlock()
	return c, nil
}

// Names returns registered fragment names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.fragments))
	for name := range r.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all fragments. Intended for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fragments = make(map[string]any)
	r.flattened = make(map[string]*Context)
	r.gen++
}
