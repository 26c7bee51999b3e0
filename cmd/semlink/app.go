package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/backendregistry"
	"github.com/c360/semlink/config"
	"github.com/c360/semlink/entity"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/health"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/resolver"
	"github.com/c360/semlink/schema"
	"github.com/c360/semlink/transform"
	"github.com/c360/semlink/vocabulary"
)

// app holds everything built from one configuration.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metric.MetricsRegistry
	vocab     *vocabulary.Registry
	types     *entity.TypeRegistry
	factories *backend.Registry
	resolvers *resolver.Registry
	backends  []backend.Backend
	health    *health.Monitor
}

// buildApp loads contexts and compiles schemas. It opens no backend.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metric.NewMetricsRegistry(),
		vocab:     vocabulary.NewRegistry(vocabulary.WithStandardPrefixes()),
		factories: backend.NewRegistry(),
		health:    health.NewMonitor(health.WithSlowThreshold(time.Second)),
	}

	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := vocabulary.LoadFile(cfg.Contexts[name])
		if err != nil {
			return nil, fmt.Errorf("load context %s: %w", name, err)
		}
		a.vocab.Register(name, raw)
	}

	schemas, err := schema.LoadFiles(cfg.Schemas...)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	a.types, err = schema.Compile(schemas, a.vocab, schema.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	if err := backendregistry.Register(a.factories); err != nil {
		return nil, fmt.Errorf("register backends: %w", err)
	}
	known := a.factories.Names()
	for _, rc := range cfg.Resolvers {
		if !contains(known, rc.Backend) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: namespace %q uses unknown backend %q", errors.ErrInvalidConfig, rc.Namespace, rc.Backend),
				"semlink", "buildApp", "backend check")
		}
	}

	a.resolvers = resolver.NewRegistry(
		resolver.WithConcurrency(cfg.Registry.Concurrency),
		resolver.WithTimeout(cfg.Registry.Timeout),
		resolver.WithLogger(logger),
		resolver.WithMetrics(a.metrics.CoreMetrics()),
	)

	logger.Debug("configuration compiled",
		"contexts", len(names),
		"types", len(a.types.Types()),
		"resolvers", len(cfg.Resolvers))
	return a, nil
}

// open connects every configured backend and installs the resolver registry
// as the default of entities.
func (a *app) open(ctx context.Context) error {
	deps := backend.Dependencies{
		Types:   a.types,
		Vocab:   a.vocab,
		Metrics: a.metrics,
		Logger:  a.logger,
		Entity:  []entity.Option{entity.WithLogger(a.logger)},
	}
	backends, err := backend.Install(ctx, a.factories, a.cfg, a.resolvers, deps)
	if err != nil {
		return fmt.Errorf("install resolvers: %w", err)
	}
	a.backends = backends
	a.resolvers.Install()

	// Install opens backends in configuration order.
	for i, b := range backends {
		if c, ok := b.(health.Checker); ok {
			a.health.Watch(a.cfg.Resolvers[i].Namespace, c)
		}
	}

	a.logger.Info("resolvers installed", "namespaces", a.resolvers.Namespaces())
	return nil
}

// Close releases the backends opened by open.
func (a *app) Close() error {
	err := backend.CloseAll(a.backends)
	a.backends = nil
	return err
}

// resolve maps every identifier to its exported node, nil when unresolved.
// The error joins the failures of the namespaces that could not be served.
func (a *app) resolve(ctx context.Context, iris []string, typeName string) (map[string]any, error) {
	var expected *entity.Type
	if typeName != "" {
		t, ok := a.types.Lookup(typeName)
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: unknown type %q", errors.ErrInvalidData, typeName),
				"semlink", "resolve", "type lookup")
		}
		expected = t
	}

	outcome := a.resolvers.ResolveDetailed(ctx, iris, expected)
	for ns, err := range outcome.Failures {
		a.logger.Warn("namespace not resolved", "namespace", ns, "error", err)
	}

	nodes := make(map[string]any, len(outcome.Nodes))
	for iri, e := range outcome.Nodes {
		if e == nil {
			nodes[iri] = nil
			continue
		}
		nodes[iri] = resolver.ExportNode(e)
	}
	return nodes, outcome.Err()
}

// contextFor returns the context registered under nameOrPath, loading it
// first when nameOrPath is a file.
func (a *app) contextFor(nameOrPath string) (*vocabulary.Context, error) {
	name := nameOrPath
	if _, ok := a.vocab.Lookup(name); !ok {
		if _, err := os.Stat(nameOrPath); err == nil {
			if name, err = a.vocab.LoadFile(nameOrPath); err != nil {
				return nil, err
			}
		}
	}
	return a.vocab.Context(name)
}

func (a *app) transform(doc *graph.Document, contextName string) (*graph.Document, error) {
	target, err := a.contextFor(contextName)
	if err != nil {
		return nil, err
	}
	return transform.Transform(doc, target,
		transform.WithVocabulary(a.vocab),
		transform.WithLogger(a.logger),
		transform.WithMetrics(a.metrics.CoreMetrics()))
}
