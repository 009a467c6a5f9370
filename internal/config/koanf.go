// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/affinity/config.yaml",
	"/etc/affinity/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied.
// Defaults are loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       DriverDuckDB,
			Path:         "/data/affinity.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
			SeedDemoData: false,
		},
		Postgres: PostgresConfig{
			DSN:            "",
			MaxConns:       10,
			MinConns:       1,
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			MinSupport:                0.01,
			MinConfidence:             0.10,
			MaxRulesPerItem:           50,
			RuleSampleSize:            1000,
			BundleSampleSize:          1000,
			BundleMinCount:            3,
			DecayRate:                 0.1, // ~7 day half-life
			ProfileCacheTTL:           30 * time.Minute,
			ProfileOrderLimit:         100,
			SimilarityCacheTTL:        30 * time.Minute,
			SimilaritySampleSize:      1000,
			MaxLikedItems:             20,
			NeighborLimit:             20,
			NeutralScore:              0.5,
			StrongPreferenceThreshold: 0.7,
			SuppressedScore:           0.3,
			LiftCap:                   2,
			SuggestionThreshold:       0.5,
			DefaultSuggestionLimit:    10,
			CacheMaxEntries:           10000,
			MaintenanceInterval:       10 * time.Minute,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:      true,
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			FailureRatio: 0.6,
			MinRequests:  10,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			StreamName:       "ORDERS",
			Subject:          "orders.>",
			DurableName:      "affinity-invalidator",
			QueueGroup:       "affinity",
			SubscribersCount: 1,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
			RetryCount:       3,
			RetryInterval:    100 * time.Millisecond,
			PersistOrders:    false,
			EmbeddedServer:   false,
			EmbeddedPort:     4222,
			StoreDir:         "/data/nats/jetstream",
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Config file, if one is found in DefaultConfigPaths or CONFIG_PATH
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit config file. An empty path
// skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RECOMMEND_MIN_SUPPORT -> recommend.min_support
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ConfigFilePath returns the config file LoadWithKoanf reads, or "" when
// none exists.
func ConfigFilePath() string {
	return findConfigFile()
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env vars.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Database mappings
	"store_driver":           "database.driver",
	"duckdb_path":            "database.path",
	"duckdb_max_memory":      "database.max_memory",
	"duckdb_threads":         "database.threads",
	"duckdb_query_timeout":   "database.query_timeout",
	"seed_demo_data":         "database.seed_demo_data",
	"postgres_dsn":           "postgres.dsn",
	"postgres_max_conns":     "postgres.max_conns",
	"postgres_min_conns":     "postgres.min_conns",
	"postgres_query_timeout": "postgres.query_timeout",

	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Recommendation engine mappings
	"recommend_min_support":            "recommend.min_support",
	"recommend_min_confidence":         "recommend.min_confidence",
	"recommend_max_rules_per_item":     "recommend.max_rules_per_item",
	"recommend_rule_sample_size":       "recommend.rule_sample_size",
	"recommend_bundle_sample_size":     "recommend.bundle_sample_size",
	"recommend_bundle_min_support":     "recommend.bundle_min_support",
	"recommend_bundle_min_count":       "recommend.bundle_min_count",
	"recommend_decay_rate":             "recommend.decay_rate",
	"recommend_vertical":               "recommend.vertical",
	"recommend_profile_cache_ttl":      "recommend.profile_cache_ttl",
	"recommend_profile_order_limit":    "recommend.profile_order_limit",
	"recommend_similarity_cache_ttl":   "recommend.similarity_cache_ttl",
	"recommend_similarity_sample_size": "recommend.similarity_sample_size",
	"recommend_max_liked_items":        "recommend.max_liked_items",
	"recommend_neighbor_limit":         "recommend.neighbor_limit",
	"recommend_lift_cap":               "recommend.lift_cap",
	"recommend_suggestion_threshold":   "recommend.suggestion_threshold",
	"recommend_suggestion_limit":       "recommend.default_suggestion_limit",
	"recommend_cache_max_entries":      "recommend.cache_max_entries",
	"recommend_maintenance_interval":   "recommend.maintenance_interval",

	// Circuit breaker mappings
	"circuit_breaker_enabled":       "circuit_breaker.enabled",
	"circuit_breaker_max_requests":  "circuit_breaker.max_requests",
	"circuit_breaker_interval":      "circuit_breaker.interval",
	"circuit_breaker_timeout":       "circuit_breaker.timeout",
	"circuit_breaker_failure_ratio": "circuit_breaker.failure_ratio",
	"circuit_breaker_min_requests":  "circuit_breaker.min_requests",

	// NATS mappings
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_stream":                "nats.stream_name",
	"nats_subject":               "nats.subject",
	"nats_durable_name":          "nats.durable_name",
	"nats_queue_group":           "nats.queue_group",
	"nats_subscribers":           "nats.subscribers_count",
	"nats_ack_wait":              "nats.ack_wait_timeout",
	"nats_close_timeout":         "nats.close_timeout",
	"nats_retry_count":           "nats.retry_count",
	"nats_retry_interval":        "nats.retry_interval",
	"nats_persist_orders":        "nats.persist_orders",
	"nats_embedded":              "nats.embedded_server",
	"nats_store_dir":             "nats.store_dir",
	"nats_embedded_port":         "nats.embedded_port",
	"nats_max_events_per_second": "nats.max_events_per_second",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped so unrelated environment
// variables never leak into the configuration.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - RECOMMEND_DECAY_RATE -> recommend.decay_rate
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for synchronizing access to a reloaded Config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
