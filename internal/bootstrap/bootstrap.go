// Package bootstrap wires configuration, the snapshot store and the services
// shared by the api server and batchctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/batch-trace/internal/config"
	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/handler"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"github.com/kursadbilgin/batch-trace/internal/service"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
	"go.uber.org/zap"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Store   snapshot.Store

	Lifecycle  *service.LifecycleService
	Completion *service.CompletionService
	Operators  *service.OperatorService
	Trace      *service.TraceabilityService

	closeStore func() error
}

// New opens the configured store and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seed, err := loadSeed(cfg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s snapshot store: %w", cfg.StoreDriver, err)
	}

	app, err := newApp(ctx, cfg, logger, store, seed)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	app.closeStore = closeStore
	return app, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, store snapshot.Store, seed []domain.Batch) (*App, error) {
	completion, err := service.NewCompletionService(ctx,
		repository.NewSnapshotLotRepo(store),
		repository.NewSnapshotCompletedBatchRepo(store),
		logger,
	)
	if err != nil {
		return nil, err
	}

	lifecycle, err := service.NewLifecycleService(ctx, repository.NewSnapshotBatchRepo(store, seed), completion, logger)
	if err != nil {
		return nil, err
	}

	operators, err := service.NewOperatorService(ctx, repository.NewSnapshotOperatorRepo(store), logger)
	if err != nil {
		return nil, err
	}

	tracer, err := service.NewTraceabilityService(completion)
	if err != nil {
		return nil, err
	}

	// Other processes may write the same store; each service reloads what it
	// owns when the corresponding keys change.
	watchers := []interface {
		Watch(context.Context, service.Subscriber) error
		Close()
	}{lifecycle, completion, operators}
	for i, w := range watchers {
		if err := w.Watch(ctx, store); err != nil {
			for _, started := range watchers[:i] {
				started.Close()
			}
			return nil, err
		}
	}

	metrics := observability.NewMetrics()
	lifecycle.SetMetrics(metrics)
	completion.SetMetrics(metrics)
	operators.SetMetrics(metrics)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Store:      store,
		Lifecycle:  lifecycle,
		Completion: completion,
		Operators:  operators,
		Trace:      tracer,
		closeStore: func() error { return nil },
	}, nil
}

// loadSeed returns the batches used when the store has no batch snapshot. A
// nil result selects the built-in list.
func loadSeed(cfg *config.Config) ([]domain.Batch, error) {
	if strings.TrimSpace(cfg.SeedFile) == "" {
		return nil, nil
	}
	return config.LoadSeedFile(cfg.SeedFile)
}

// Services returns the handler view of the app.
func (a *App) Services() handler.Services {
	return handler.Services{
		Lifecycle: a.Lifecycle,
		Lots:      a.Completion,
		Trace:     a.Trace,
		Operators: a.Operators,
	}
}

// Flusher retries failed snapshot writes of every service on the configured
// interval.
func (a *App) Flusher() (*service.SnapshotFlusher, error) {
	return service.NewSnapshotFlusher(a.Config.FlushInterval(), a.Logger, a.Lifecycle, a.Completion, a.Operators)
}

// Flush writes any snapshot still pending after an earlier failure.
func (a *App) Flush(ctx context.Context) error {
	return errors.Join(a.Lifecycle.Flush(ctx), a.Completion.Flush(ctx), a.Operators.Flush(ctx))
}

func (a *App) Close() error {
	a.Operators.Close()
	a.Completion.Close()
	a.Lifecycle.Close()
	return a.closeStore()
}
