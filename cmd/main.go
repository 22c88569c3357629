package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/groupify/groupify/internal/adapters/http/api"
	"github.com/groupify/groupify/internal/adapters/http/swagger"
	app "github.com/groupify/groupify/internal/app"
	"github.com/groupify/groupify/internal/config"
	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/pkg/logger"
	"github.com/groupify/groupify/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	deviationBucketCount      = 9
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		stop()
		os.Exit(1)
	}

	// Re-initialize with the configured format and level.
	if err := logger.Init(
		logger.WithFormat(logger.Format(strings.ToLower(cfg.LogFormat))),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		logger.Get().Warn(ctx, "invalid logging config; keeping defaults", logger.Error(err))
	}
	loggerInstance := logger.Get()

	metrics.Configure(metricsOptions(cfg)...)

	opts, err := serviceOptions(cfg)
	if err != nil {
		loggerInstance.Error(ctx, "invalid service config", logger.Error(err))
		stop()
		os.Exit(1)
	}
	svc := app.New(append(opts, app.WithLogger(loggerInstance.Named("service")))...)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		stop()
		os.Exit(1)
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config) ([]app.Option, error) {
	mode, err := grouping.ParseSeedingMode(cfg.SeedingMode)
	if err != nil {
		return nil, fmt.Errorf("seeding_mode: %w", err)
	}
	return []app.Option{
		app.WithDBPath(cfg.DBPath),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithIterationFactor(cfg.IterationFactor),
		app.WithRandomSeed(cfg.RandomSeed),
		app.WithSeedingMode(mode),
		app.WithEnergyRange(cfg.MinEnergy, cfg.MaxEnergy),
		app.WithMaxGroupSize(cfg.MaxGroupSize),
		app.WithMatchLimit(cfg.MatchLimit),
	}, nil
}

// metricsOptions names the exported series and sizes the deviation
// histograms to the configured energy range.
func metricsOptions(cfg *config.Config) []metrics.Option {
	width := cfg.MaxEnergy - cfg.MinEnergy
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithDeviationBuckets(deviationBuckets(width)),
		metrics.WithRosterBuckets(cfg.MetricsRosterBuckets),
	}
}

// deviationBuckets spans width/60 to 16*width/3, which is 0.1..32 for the
// default 0..6 range.
func deviationBuckets(width float64) []float64 {
	if width <= 0 {
		return nil
	}
	return prometheus.ExponentialBucketsRange(width/60, width*16/3, deviationBucketCount)
}

// newMux registers the API docs and business routes.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	// GetStats refreshes queue and in-flight gauges itself.
	stats := svc.GetStats(ctx)

	rooms, okRooms := stats["rooms"].(int)
	members, okMembers := stats["members"].(int)
	groups, okGroups := stats["groups"].(int)
	if okRooms && okMembers && okGroups {
		metrics.UpdateStoredRecords(rooms, members, groups)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
