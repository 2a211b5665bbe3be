package daemon

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/infra"
	"github.com/seeother/scrollguard/internal/usecase"
)

// App is the fully wired daemon: encrypted store, worker pool,
// settings, guard gate, socket event source and the detection loop.
type App struct {
	Gate     *usecase.GuardGate
	Stats    *usecase.StatisticsTracker
	Settings *infra.ViperSettings
	Store    *infra.GuardStore

	runner *Runner
	source *infra.SocketEventSource
	pool   *infra.WorkerPool
	logger *zap.Logger
}

// Bootstrap assembles the daemon from configuration. All collaborators
// are constructed here and injected; nothing inside the engine reaches
// for globals.
func Bootstrap(settings *infra.ViperSettings, logger *zap.Logger) (*App, error) {
	dataDir := settings.DataDir()

	key, err := infra.NewFileKeyProvider(dataDir).EnsureKey()
	if err != nil {
		return nil, fmt.Errorf("ensure encryption key: %w", err)
	}

	pool := infra.NewWorkerPool(infra.DefaultWorkerCount, logger)

	store, err := infra.NewGuardStore(dataDir, key, pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open guard store: %w", err)
	}

	stats := usecase.NewStatisticsTracker(store, settings, pool, logger)
	presenter := infra.NewLogPresenter(logger)
	gate := usecase.NewGuardGate(store, store, settings, stats, presenter, logger)

	source, err := infra.NewSocketEventSource(settings.SocketPath(), logger)
	if err != nil {
		store.Close()
		pool.Close()
		return nil, fmt.Errorf("open event source: %w", err)
	}

	if err := infra.WritePIDFile(dataDir); err != nil {
		logger.Warn("pid file write failed", zap.Error(err))
	}

	return &App{
		Gate:     gate,
		Stats:    stats,
		Settings: settings,
		Store:    store,
		runner:   NewRunner(gate, source, logger),
		source:   source,
		pool:     pool,
		logger:   logger,
	}, nil
}

// Run blocks in the detection loop until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	return a.runner.Run(ctx)
}

// Close tears the daemon down in dependency order: stop event intake,
// drain pending store writes, then release the database.
func (a *App) Close() {
	if err := a.source.Close(); err != nil {
		a.logger.Warn("event source close failed", zap.Error(err))
	}
	a.pool.Close()
	if err := a.Store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	if err := infra.RemovePIDFile(a.Settings.DataDir()); err != nil {
		a.logger.Warn("pid file remove failed", zap.Error(err))
	}
}
