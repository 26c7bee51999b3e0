package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/c360/semlink/config"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
)

// maxBodySize bounds request bodies of the resolve and transform endpoints.
const maxBodySize = 4 << 20

func runServe(ctx context.Context, cliCfg *CLIConfig, cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	if err := a.open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Closing backends failed", "error", err)
		}
	}()

	port := cliCfg.Port
	if port == 0 {
		port = cfg.Metrics.Port
	}
	srv := a.server(port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info("semlink serving", "address", srv.Address(), "port", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("semlink shutdown complete")
	return nil
}

// server mounts the resolve and transform endpoints next to /metrics and /health.
func (a *app) server(port int) *metric.Server {
	srv := metric.NewServer(port, a.cfg.Metrics.Path, a.metrics)
	srv.Handle("POST /resolve", http.HandlerFunc(a.handleResolve))
	srv.Handle("POST /transform", http.HandlerFunc(a.handleTransform))
	srv.Handle("GET /health/backends", http.HandlerFunc(a.handleBackendHealth))
	return srv
}

// handleBackendHealth probes every backend that supports it. Unhealthy
// answers 503 so load balancers can act on the status code alone.
func (a *app) handleBackendHealth(w http.ResponseWriter, r *http.Request) {
	status := a.health.Check(r.Context(), appName)
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
		a.logger.Warn("backend health check failed", "message", status.Message)
	}
	a.writeJSON(w, code, status)
}

// handleResolve takes a JSON array of identifiers and answers with the
// exported node of each, null when unresolved. Namespace failures are logged
// and leave their identifiers null.
func (a *app) handleResolve(w http.ResponseWriter, r *http.Request) {
	var iris []string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&iris); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode identifiers: %w", err))
		return
	}
	if len(iris) == 0 {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("no identifiers"))
		return
	}

	nodes, err := a.resolve(r.Context(), iris, r.URL.Query().Get("type"))
	if nodes == nil {
		a.writeError(w, statusOf(err), err)
		return
	}
	if err != nil {
		a.logger.Debug("partial resolution", "requested", len(iris), "error", err)
	}
	a.writeJSON(w, http.StatusOK, nodes)
}

// handleTransform rewrites the posted document under the context named by
// the "context" query parameter.
func (a *app) handleTransform(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("context")
	if name == "" {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("missing context parameter"))
		return
	}
	if _, ok := a.vocab.Lookup(name); !ok {
		a.writeError(w, http.StatusNotFound, fmt.Errorf("unknown context %q", name))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("read document: %w", err))
		return
	}
	doc, err := graph.ParseDocument(data)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := a.transform(doc, name)
	if err != nil {
		a.writeError(w, statusOf(err), err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func statusOf(err error) int {
	if errors.IsInvalid(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (a *app) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("write response failed", "error", err)
	}
}

func (a *app) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
