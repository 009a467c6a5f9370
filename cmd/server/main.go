// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/breaker"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/supervisor"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("version", version).
		Str("driver", cfg.Database.Driver).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting Affinity")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var provider recommend.DataProvider = store.provider
	var health api.HealthReporter
	if cfg.CircuitBreaker.Enabled {
		cb := breaker.New(store.provider, &cfg.CircuitBreaker, logging.Component("breaker"))
		provider = cb
		health = cb
		logging.Info().
			Float64("failure_ratio", cfg.CircuitBreaker.FailureRatio).
			Dur("timeout", cfg.CircuitBreaker.Timeout).
			Msg("Circuit breakers enabled for order store")
	}

	engineCfg, err := cfg.Recommend.EngineConfig()
	if err != nil {
		return fmt.Errorf("engine configuration: %w", err)
	}
	engine, err := recommend.NewEngine(provider, engineCfg, logging.Component("recommend"))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	if err := prometheus.Register(metrics.NewEngineCollector(engine)); err != nil {
		return fmt.Errorf("register engine metrics: %w", err)
	}
	logging.Info().
		Float64("min_support", engineCfg.Rules.MinSupport).
		Float64("min_confidence", engineCfg.Rules.MinConfidence).
		Float64("decay_rate", engineCfg.Profile.DecayRate).
		Msg("Engine initialized")

	handler := api.NewHandler(api.Dependencies{
		Engine:  engine,
		Store:   store.pinger,
		Orders:  store.writer,
		Breaker: health,
		Version: version,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, &cfg.Server).Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if interval := cfg.Recommend.MaintenanceInterval; interval > 0 {
		tree.AddStoreService(services.NewMaintenanceService(engine, store.checkpointer, services.MaintenanceServiceConfig{
			Interval: interval,
		}, logging.Logger()))
	}

	if err := addOrderEvents(tree, cfg, engine, store.writer); err != nil {
		return err
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if path := config.ConfigFilePath(); path != "" {
		watchRecommendSettings(path, engine)
	}

	errCh := tree.ServeBackground(ctx)
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}

	unstopped, _ := tree.UnstoppedServiceReport() //nolint:errcheck // report is best effort
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}
