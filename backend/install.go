package backend

import (
	"context"
	"fmt"

	"github.com/c360/semlink/config"
	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/pkg/cache"
	"github.com/c360/semlink/resolver"
)

// Open creates the backend for one resolver config and wraps it into a
// batch resolver, with a cache in front when rc.Cache is set.
func Open(ctx context.Context, reg *Registry, rc config.ResolverConfig, cacheCfg cache.Config, deps Dependencies) (resolver.Resolver, Backend, error) {
	logger := deps.GetLoggerWithBackend(rc.Backend).With("namespace", rc.Namespace)
	deps.Logger = logger

	b, err := reg.Create(ctx, rc.Backend, rc.Options, deps)
	if err != nil {
		return nil, nil, err
	}

	var res resolver.Resolver = resolver.FromIRIResolver(b, deps.Types,
		resolver.WithVocabulary(deps.Vocab),
		resolver.WithEntityOptions(deps.Entity...),
		resolver.WithNodeLogger(logger))

	if rc.Cache {
		var opts []cache.Option[*entity.Entity]
		if deps.Metrics != nil {
			opts = append(opts, cache.WithMetrics[*entity.Entity](deps.Metrics, "resolver_"+rc.Namespace))
		}
		c, err := cache.NewFromConfig[*entity.Entity](cacheCfg, opts...)
		if err != nil {
			_ = b.Close()
			return nil, nil, errors.Wrap(err, "backend", "Open", "create resolver cache")
		}
		res = resolver.Caching(res, c)
	}

	logger.Info("backend opened", "cache", rc.Cache)
	return res, b, nil
}

// Install opens every configured resolver and registers it with target under
// its namespace and base IRI. On error the backends opened so far are closed.
// The caller closes the returned backends on shutdown.
func Install(ctx context.Context, reg *Registry, cfg *config.Config, target *resolver.Registry, deps Dependencies) ([]Backend, error) {
	if cfg == nil || target == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "backend", "Install", "argument validation")
	}

	var opened []Backend
	fail := func(err error) ([]Backend, error) {
		_ = CloseAll(opened)
		return nil, err
	}

	for _, rc := range cfg.Resolvers {
		res, b, err := Open(ctx, reg, rc, cfg.Cache, deps)
		if err != nil {
			return fail(fmt.Errorf("resolver %q: %w", rc.Namespace, err))
		}
		opened = append(opened, b)

		if err := target.Register(rc.Namespace, res); err != nil {
			return fail(err)
		}
		if rc.Base != "" {
			if err := target.RegisterBase(rc.Base, res); err != nil {
				return fail(err)
			}
		}
	}
	return opened, nil
}

// CloseAll closes every backend and returns the first error.
func CloseAll(backends []Backend) error {
	var first error
	for _, b := range backends {
		if err := b.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "backend", "CloseAll", fmt.Sprintf("close %s backend", b.Name()))
		}
	}
	return first
}
