package cli

import (
	"context"
	"fmt"
	"log/slog"

	coreapp "calcscript/internal/core/app"
	"calcscript/internal/core/config"
	"calcscript/internal/core/ports"
	"calcscript/internal/data/history"
	"calcscript/internal/shared/observability"
)

// runtimeDeps is the service graph shared by every mode.
type runtimeDeps struct {
	interp   *coreapp.Interpreter
	store    *history.Store
	history  ports.RunHistory
	recorder *coreapp.Recorder
	health   *coreapp.HealthService

	shutdownTracing func(context.Context) error
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtimeDeps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	deps := &runtimeDeps{}

	opts := []coreapp.Option{
		coreapp.WithMaxDepth(cfg.Engine.MaxDepth),
		coreapp.WithLogger(slog.Default()),
	}

	if cfg.Observability.TracingEnabled && cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, observability.TracingOptions{
			Endpoint:    cfg.Observability.OTLPEndpoint,
			ServiceName: cfg.Observability.ServiceName,
			Insecure:    true,
		})
		if err != nil {
			return nil, err
		}
		deps.shutdownTracing = shutdown
	}

	var hist ports.RunHistory
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
		if err != nil {
			deps.Close(ctx)
			return nil, fmt.Errorf("open history store: %w", err)
		}
		deps.store = store
		deps.recorder = coreapp.NewRecorder(store, 0).WithRetention(cfg.History.Retain)
		opts = append(opts, coreapp.WithRecorder(deps.recorder))
		hist = store
	}

	deps.interp = coreapp.NewInterpreter(opts...)
	deps.history = hist
	deps.health = coreapp.NewHealthService(deps.interp, hist)
	return deps, nil
}

// Close drains pending history writes before closing the store.
func (d *runtimeDeps) Close(ctx context.Context) {
	if d == nil {
		return
	}
	if err := d.recorder.Close(ctx); err != nil {
		slog.Warn("history recorder did not drain", "error", err)
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
	}
	if d.shutdownTracing != nil {
		if err := d.shutdownTracing(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}
