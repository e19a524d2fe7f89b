package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sentinel/internal/adapters/config"
	"sentinel/internal/adapters/errors/noop"
	"sentinel/internal/adapters/errors/sentry"
	"sentinel/internal/bootstrap"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	container, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	metrics.RegisterCollector(metrics.NewCustomCollector(log, container.RiskDB.DB(), container.KnowledgeDB.DB()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.Start(ctx); err != nil {
		container.Close()
		log.Fatalf("Failed to start: %v", err)
	}

	go func() {
		if err := container.Server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	log.Info("System started")

	waitForShutdown(ctx, cancel, container, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown blocks until a termination signal or a fatal server
// error, then tears everything down in order.
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	container *bootstrap.Container,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received %s, shutting down...", sig)
	case <-ctx.Done():
		log.Info("Shutting down...")
	}

	cancel()
	container.Shutdown()

	if err := errorTracker.Flush(context.Background()); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}
}
