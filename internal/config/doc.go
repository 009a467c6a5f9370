// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package config loads application configuration with Koanf v2.

Sources are layered, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, then config.yaml, config.yml,
    /etc/affinity/config.yaml and /etc/affinity/config.yml
 3. Environment variables, through an explicit mapping table

Only mapped environment variables are read. Some common ones:

	STORE_DRIVER            duckdb | postgres
	DUCKDB_PATH             DuckDB file (":memory:" for ephemeral)
	POSTGRES_DSN            pgx connection string
	HTTP_PORT               listen port (default 8080)
	LOG_LEVEL, LOG_FORMAT   zerolog level and json|console
	RECOMMEND_MIN_SUPPORT   rule support threshold
	RECOMMEND_DECAY_RATE    recency decay λ
	RECOMMEND_VERTICAL      perishables | grocery | retail | durables
	NATS_ENABLED, NATS_URL  order event subscription

Validation combines go-playground/validator struct tags with cross-field
checks, and the recommend section is validated by converting it with
RecommendConfig.EngineConfig.
*/
package config
