// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/affinity/internal/validation"
)

// Validate checks field ranges with struct tags, then cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	return c.validateNATS()
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("DUCKDB_PATH is required when STORE_DRIVER=duckdb")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
		if c.Postgres.MinConns > c.Postgres.MaxConns && c.Postgres.MaxConns > 0 {
			return fmt.Errorf("postgres.min_conns (%d) exceeds postgres.max_conns (%d)",
				c.Postgres.MinConns, c.Postgres.MaxConns)
		}
	}
	return nil
}

// validateRecommend runs the engine's own validation so a config that loads
// is guaranteed to build an engine.
func (c *Config) validateRecommend() error {
	if _, err := c.Recommend.EngineConfig(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.Subject == "" || c.NATS.StreamName == "" {
		return fmt.Errorf("nats.subject and nats.stream_name are required when NATS_ENABLED=true")
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.StoreDir == "" {
			return fmt.Errorf("nats.store_dir is required when NATS_EMBEDDED=true")
		}
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	u, err := url.Parse(c.NATS.URL)
	if err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("NATS_URL must use the nats:// or tls:// scheme, got %q", u.Scheme)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
