// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cli

import (
	"fmt"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/recommend"
)

// loadConfig reads the config file named by --config, falling back to the
// server's search path, and applies --db.
func (a *App) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = config.ConfigFilePath()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if cfg.Database.Driver != config.DriverDuckDB {
		return nil, fmt.Errorf("affinityctl only supports the %s driver, config selects %q",
			config.DriverDuckDB, cfg.Database.Driver)
	}
	return cfg, nil
}

// session is an open store with an engine on top of it.
type session struct {
	cfg    *config.Config
	db     *database.DB
	engine *recommend.Engine
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing database")
	}
}

func (a *App) openSession() (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open order store: %w", err)
	}

	engineCfg, err := cfg.Recommend.EngineConfig()
	if err != nil {
		_ = db.Close() //nolint:errcheck // already returning the config error
		return nil, err
	}

	engine, err := recommend.NewEngine(db, engineCfg, logging.Component("recommend"))
	if err != nil {
		_ = db.Close() //nolint:errcheck // already returning the engine error
		return nil, err
	}

	return &session{cfg: cfg, db: db, engine: engine}, nil
}
