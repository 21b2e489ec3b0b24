package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/trafficdash/internal/controllers/metricsserver"
	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/chrissnell/trafficdash/internal/loader"
	"github.com/chrissnell/trafficdash/internal/managers"
	"github.com/chrissnell/trafficdash/internal/observability"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	config  *config.ConfigData
	logger  *zap.SugaredLogger
	clock   clockwork.Clock
	metrics *observability.Metrics
	cache   *loader.Cache
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	metrics := observability.NewMetrics()
	return &App{
		config:  cfg,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		cache:   loader.NewCache(metrics),
	}
}

// Pipeline loads the dataset through the cache and builds the dashboard pipeline over it.
// A dataset that cannot be loaded stops startup.
func (a *App) Pipeline(ctx context.Context) (*dashboard.Pipeline, error) {
	l, err := loader.NewCSVLoader(a.config.Dataset, a.clock, a.logger)
	if err != nil {
		return nil, fmt.Errorf("dataset configuration: %w", err)
	}

	ds, err := a.cache.Get(ctx, l)
	if err != nil {
		return nil, err
	}

	opts := dashboard.Options{Clock: a.clock, Observer: a.metrics}
	if dc := a.config.Dashboard(); dc != nil {
		opts.PreviewRows = dc.PreviewRows
	}

	a.logger.Infow("dataset loaded",
		"source", ds.Source,
		"rows", ds.Len(),
		"years", ds.Years(),
		"weather_labels", len(ds.WeatherLabels()),
	)
	return dashboard.New(ds, opts), nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipeline, err := a.Pipeline(ctx)
	if err != nil {
		return err
	}

	ready := metricsserver.ReadinessFunc(func(context.Context) error {
		if a.cache.Len() == 0 {
			return fmt.Errorf("dataset not loaded")
		}
		return nil
	})

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, a.config.Controllers, managers.Dependencies{
		Pipeline:  pipeline,
		Metrics:   a.metrics,
		Readiness: ready,
	}, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	a.logger.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
