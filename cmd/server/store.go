// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/pgstore"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// orderStore is the selected backend seen through the interfaces each
// consumer needs.
type orderStore struct {
	provider     recommend.DataProvider
	pinger       api.Pinger
	writer       api.OrderWriter
	checkpointer services.Checkpointer // nil for PostgreSQL
	close        func()
}

// Close releases the backend.
func (s *orderStore) Close() {
	if s.close != nil {
		s.close()
	}
}

// openStore opens the configured backend and seeds DuckDB when asked to.
func openStore(ctx context.Context, cfg *config.Config) (*orderStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := pgstore.New(ctx, &cfg.Postgres, logging.Component("pgstore"))
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logging.Info().Msg("PostgreSQL order store connected")
		return &orderStore{
			provider: pg,
			pinger:   pg,
			writer:   pg,
			close:    pg.Close,
		}, nil

	default:
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open duckdb store: %w", err)
		}
		if cfg.Database.SeedDemoData {
			n, err := db.SeedDemoData(ctx, time.Now().UTC())
			if err != nil {
				closeDuckDB(db)
				return nil, fmt.Errorf("seed demo data: %w", err)
			}
			if n > 0 {
				logging.Info().Int("orders", n).Msg("Demo order history seeded")
			}
		}
		logging.Info().Str("path", db.Path()).Msg("DuckDB order store opened")
		return &orderStore{
			provider:     db,
			pinger:       db,
			writer:       db,
			checkpointer: db,
			close:        func() { closeDuckDB(db) },
		}, nil
	}
}

func closeDuckDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}
