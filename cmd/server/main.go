// Package main runs the HTTP API:
// - GET /swaps and /swaps/stream (GetSwaps over HTTP and WebSocket)
// - GET /sources, /healthz
// - GET /metrics (Prometheus)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"dex-swaps-lab/internal/analyzer"
	"dex-swaps-lab/internal/api"
	"dex-swaps-lab/internal/archive"
	"dex-swaps-lab/internal/config"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config values as defaults)
	listenAddr := flag.String("listen-addr", cfg.ListenAddr, "HTTP listen address")
	mode := flag.String("mode", cfg.Mode.String(), "Concurrency mode: parallel or sequential")
	workers := flag.Int("workers", cfg.FetchWorkers, "Maximum concurrent source fetches")
	flag.Parse()

	cfg.ListenAddr = *listenAddr
	cfg.FetchWorkers = *workers
	if cfg.Mode, err = config.ParseMode(*mode); err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Error("graceful shutdown timed out, forcing exit", zap.Duration("timeout", shutdownTimeout))
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.MetricsNamespace, registry)

	descriptors, err := cfg.SourceDescriptors()
	if err != nil {
		return err
	}

	a, err := analyzer.New(ctx, analyzer.Options{
		Sources:      descriptors,
		LoadMode:     cfg.Mode,
		FetchMode:    cfg.Mode,
		Workers:      cfg.FetchWorkers,
		RowLimit:     cfg.RowLimit,
		FetchTimeout: cfg.FetchTimeout,
		LoadTimeout:  cfg.LoadTimeout,
		HTTPTimeout:  cfg.HTTPTimeout,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	logger.Info("sources ready", zap.Int("loaded", len(a.Sources())), zap.Int("requested", len(descriptors)))

	archiver, cleanup, err := archive.Open(ctx, cfg.PostgresDSN, cfg.ClickHouseDSN, logger, metrics)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.New(api.Options{
			Service:  a,
			Archiver: archiver,
			Gatherer: registry,
			Logger:   logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return ctx.Err()
}
