package resolver

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/metric"
)

// Outcome is the full result of a batched resolution.
type Outcome struct {
	// Nodes maps every requested identifier to its entity, nil when unresolved.
	Nodes map[string]*entity.Entity
	// Failures holds the error of each namespace whose call failed or had no resolver.
	Failures map[string]error
}

// Err returns the failures joined, or nil.
func (o *Outcome) Err() error {
	if len(o.Failures) == 0 {
		return nil
	}
	keys := make([]string, 0, len(o.Failures))
	for ns := range o.Failures {
		keys = append(keys, ns)
	}
	sort.Strings(keys)
	errs := make([]error, len(keys))
	for i, ns := range keys {
		errs[i] = o.Failures[ns]
	}
	return stderrors.Join(errs...)
}

type group struct {
	key  string
	iris []string
}

// groupByRoute splits iris into per-resolver batches in first-seen order,
// dropping duplicates and empty identifiers.
func (r *Registry) groupByRoute(iris []string) []*group {
	index := make(map[string]*group)
	seen := make(map[string]bool, len(iris))
	var out []*group
	for _, iri := range iris {
		if iri == "" || seen[iri] {
			continue
		}
		seen[iri] = true
		key := r.Route(iri)
		g, ok := index[key]
		if !ok {
			g = &group{key: key}
			index[key] = g
			out = append(out, g)
		}
		g.iris = append(g.iris, iri)
	}
	return out
}

// Resolve resolves iris with one call per namespace and maps each identifier
// to its entity or nil. Failures are isolated per namespace; the error is
// returned only when the request spans a single namespace.
func (r *Registry) Resolve(ctx context.Context, iris []string, expected *entity.Type) (map[string]*entity.Entity, error) {
	out, groups := r.resolve(ctx, iris, expected)
	if len(out.Failures) > 0 && groups == 1 {
		return out.Nodes, out.Err()
	}
	return out.Nodes, nil
}

// ResolveDetailed is Resolve with every per-namespace failure reported.
func (r *Registry) ResolveDetailed(ctx context.Context, iris []string, expected *entity.Type) *Outcome {
	out, _ := r.resolve(ctx, iris, expected)
	return out
}

func (r *Registry) resolve(ctx context.Context, iris []string, expected *entity.Type) (*Outcome, int) {
	out := &Outcome{
		Nodes:    make(map[string]*entity.Entity, len(iris)),
		Failures: make(map[string]error),
	}
	for _, iri := range iris {
		out.Nodes[iri] = nil
	}

	groups := r.groupByRoute(iris)
	if len(groups) == 0 {
		return out, 0
	}

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	eg.SetLimit(r.concurrency)

	for _, g := range groups {
		g := g
		eg.Go(func() error {
			nodes, err := r.dispatch(ctx, g, expected)

			mu.Lock()
			defer mu.Unlock()
			for _, iri := range g.iris {
				if e := nodes[iri]; e != nil {
					out.Nodes[iri] = e
				}
			}
			if err != nil {
				out.Failures[g.key] = err
			}
			// Failures stay isolated to their namespace.
			return nil
		})
	}
	_ = eg.Wait()
	return out, len(groups)
}

// dispatch runs one namespace batch. Entries for identifiers that were not
// requested are discarded.
func (r *Registry) dispatch(ctx context.Context, g *group, expected *entity.Type) (nodes map[string]*entity.Entity, err error) {
	res, err := r.Lookup(g.key)
	if err != nil {
		var nerr *UnresolvedNamespaceError
		if stderrors.As(err, &nerr) {
			nerr.IRIs = g.iris
		}
		r.logger.Warn("no resolver for namespace", "namespace", g.key, "identifiers", len(g.iris))
		r.metrics.RecordError("resolver", "invalid")
		return nil, errors.WrapInvalid(err, "Registry", "Resolve", fmt.Sprintf("lookup %q", g.key))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			nodes = nil
			err = errors.WrapFatal(fmt.Errorf("%w: %v", ErrResolverPanic, p), "Registry", "Resolve", fmt.Sprintf("namespace %q", g.key))
		}

		resolved := 0
		for _, iri := range g.iris {
			if nodes[iri] != nil {
				resolved++
			}
		}
		r.metrics.RecordResolve(g.key, metric.Status(err), resolved, len(g.iris)-resolved, time.Since(start))
		r.logger.Debug("namespace resolved",
			"namespace", g.key, "requested", len(g.iris), "resolved", resolved, "duration", time.Since(start))

		if err != nil {
			r.logger.Warn("resolver failed; identifiers left unresolved",
				"namespace", g.key, "identifiers", len(g.iris), "error", err)
			r.metrics.RecordError("resolver", errors.Classify(err).String())
		}
	}()

	nodes, err = res.Resolve(ctx, g.iris, expected)
	if err != nil {
		err = errors.Wrap(err, "Registry", "Resolve", fmt.Sprintf("namespace %q", g.key))
	}
	return nodes, err
}
