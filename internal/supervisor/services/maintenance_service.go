// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CachePruner drops expired cache entries and reports how many went.
// Satisfied by *recommend.Engine.
type CachePruner interface {
	PruneCaches() int
}

// Checkpointer flushes a write-ahead log. Satisfied by *database.DB.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// MaintenanceServiceConfig configures the maintenance loop.
type MaintenanceServiceConfig struct {
	// Interval between sweeps. Default: 10m
	Interval time.Duration

	// CheckpointTimeout bounds each checkpoint. Default: 1m
	CheckpointTimeout time.Duration
}

// MaintenanceService periodically sweeps the engine caches and checkpoints
// the embedded store.
type MaintenanceService struct {
	pruner       CachePruner
	checkpointer Checkpointer
	config       MaintenanceServiceConfig
	logger       zerolog.Logger
	name         string
}

// NewMaintenanceService creates the service. checkpointer may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMaintenanceService(pruner CachePruner, checkpointer Checkpointer, cfg MaintenanceServiceConfig, logger zerolog.Logger) *MaintenanceService {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.CheckpointTimeout <= 0 {
		cfg.CheckpointTimeout = time.Minute
	}
	return &MaintenanceService{
		pruner:       pruner,
		checkpointer: checkpointer,
		config:       cfg,
		logger:       logger.With().Str("service", "maintenance").Logger(),
		name:         "maintenance-service",
	}
}

// Serve implements suture.Service.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("checkpoint", s.checkpointer != nil).
		Msg("maintenance service starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("maintenance service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs one sweep. Failures are logged and retried next tick.
func (s *MaintenanceService) runOnce(ctx context.Context) {
	start := time.Now()
	pruned := s.pruner.PruneCaches()

	if s.checkpointer != nil {
		cpCtx, cancel := context.WithTimeout(ctx, s.config.CheckpointTimeout)
		err := s.checkpointer.Checkpoint(cpCtx)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Msg("checkpoint failed")
		}
	}

	s.logger.Debug().
		Int("pruned", pruned).
		Dur("duration", time.Since(start)).
		Msg("maintenance sweep complete")
}

// String returns the service name for logging.
func (s *MaintenanceService) String() string {
	return s.name
}
