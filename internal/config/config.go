// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"time"

	"github.com/tomtom215/affinity/internal/recommend"
)

// Store drivers selectable through database.driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (config.yaml or CONFIG_PATH)
//  3. Environment variables: override any mapped setting
//
// Config is immutable after loading and safe for concurrent reads.
type Config struct {
	Database       DatabaseConfig       `koanf:"database"`
	Postgres       PostgresConfig       `koanf:"postgres"`
	Server         ServerConfig         `koanf:"server"`
	Logging        LoggingConfig        `koanf:"logging"`
	Recommend      RecommendConfig      `koanf:"recommend"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	NATS           NATSConfig           `koanf:"nats"` // Optional: order events over NATS JetStream
}

// DatabaseConfig selects the order store and configures the embedded DuckDB file.
type DatabaseConfig struct {
	// Driver is the order store backend: duckdb or postgres.
	Driver string `koanf:"driver" validate:"oneof=duckdb postgres"`

	// Path is the DuckDB file. ":memory:" keeps everything in memory.
	Path string `koanf:"path"`

	MaxMemory    string        `koanf:"max_memory"`
	Threads      int           `koanf:"threads" validate:"gte=0"` // 0 = runtime.NumCPU()
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"gte=0"`
	SeedDemoData bool          `koanf:"seed_demo_data"` // Insert a deterministic demo corpus into an empty store
	SkipIndexes  bool          `koanf:"skip_indexes"`   // Skip index creation for fast test setup
}

// PostgresConfig configures the pgx connection pool used when database.driver is postgres.
type PostgresConfig struct {
	DSN            string        `koanf:"dsn"`
	MaxConns       int32         `koanf:"max_conns" validate:"gte=0"`
	MinConns       int32         `koanf:"min_conns" validate:"gte=0"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gte=0"`
	QueryTimeout   time.Duration `koanf:"query_timeout" validate:"gte=0"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// RecommendConfig holds the scoring engine tunables.
//
// Environment Variables:
//   - RECOMMEND_MIN_SUPPORT: minimum rule support (default: 0.01)
//   - RECOMMEND_MIN_CONFIDENCE: minimum rule confidence (default: 0.10)
//   - RECOMMEND_BUNDLE_MIN_SUPPORT: itemset support override; 0 follows min_support (default: 0)
//   - RECOMMEND_DECAY_RATE: λ for recency weighting (default: 0.1)
//   - RECOMMEND_VERTICAL: perishables, grocery, retail or durables; overrides the decay rate
//   - RECOMMEND_PROFILE_CACHE_TTL, RECOMMEND_SIMILARITY_CACHE_TTL: cache lifetimes (default: 30m)
type RecommendConfig struct {
	MinSupport      float64 `koanf:"min_support" validate:"gte=0,lte=1"`
	MinConfidence   float64 `koanf:"min_confidence" validate:"gte=0,lte=1"`
	MaxRulesPerItem int     `koanf:"max_rules_per_item" validate:"gte=1"`
	RuleSampleSize  int     `koanf:"rule_sample_size" validate:"gte=1"`

	BundleSampleSize int     `koanf:"bundle_sample_size" validate:"gte=1"`
	BundleMinSupport float64 `koanf:"bundle_min_support" validate:"gte=0,lte=1"`
	BundleMinCount   int     `koanf:"bundle_min_count" validate:"gte=1"`

	DecayRate         float64       `koanf:"decay_rate" validate:"gte=0"`
	Vertical          string        `koanf:"vertical" validate:"omitempty,oneof=perishables grocery retail durables"`
	ProfileCacheTTL   time.Duration `koanf:"profile_cache_ttl" validate:"gte=0"`
	ProfileOrderLimit int           `koanf:"profile_order_limit" validate:"gte=1"`

	SimilarityCacheTTL   time.Duration `koanf:"similarity_cache_ttl" validate:"gte=0"`
	SimilaritySampleSize int           `koanf:"similarity_sample_size" validate:"gte=1"`
	MaxLikedItems        int           `koanf:"max_liked_items" validate:"gte=1"`
	NeighborLimit        int           `koanf:"neighbor_limit" validate:"gte=1"`

	NeutralScore              float64 `koanf:"neutral_score" validate:"gte=0,lte=1"`
	StrongPreferenceThreshold float64 `koanf:"strong_preference_threshold" validate:"gte=0,lte=1"`
	SuppressedScore           float64 `koanf:"suppressed_score" validate:"gte=0,lte=1"`
	LiftCap                   float64 `koanf:"lift_cap" validate:"gt=0"`
	SuggestionThreshold       float64 `koanf:"suggestion_threshold" validate:"gte=0,lte=1"`
	DefaultSuggestionLimit    int     `koanf:"default_suggestion_limit" validate:"gte=1"`

	CacheMaxEntries int `koanf:"cache_max_entries" validate:"gte=0"`

	// MaintenanceInterval is how often expired cache entries are swept and
	// the DuckDB WAL is checkpointed. Zero disables the sweep.
	MaintenanceInterval time.Duration `koanf:"maintenance_interval" validate:"gte=0"`
}

// EngineConfig converts the loaded settings to the engine's configuration.
// A configured vertical takes precedence over DecayRate.
func (r *RecommendConfig) EngineConfig() (*recommend.Config, error) {
	decay := r.DecayRate
	if r.Vertical != "" {
		rate, err := recommend.DecayRateForVertical(recommend.Vertical(r.Vertical))
		if err != nil {
			return nil, err
		}
		decay = rate
	}

	cfg := &recommend.Config{
		Rules: recommend.RulesConfig{
			MinSupport:      r.MinSupport,
			MinConfidence:   r.MinConfidence,
			MaxRulesPerItem: r.MaxRulesPerItem,
			SampleSize:      r.RuleSampleSize,
		},
		Bundles: recommend.BundlesConfig{
			SampleSize:    r.BundleSampleSize,
			MinSupport:    r.BundleMinSupport,
			MinCountFloor: r.BundleMinCount,
		},
		Profile: recommend.ProfileConfig{
			DecayRate:  decay,
			CacheTTL:   r.ProfileCacheTTL,
			OrderLimit: r.ProfileOrderLimit,
		},
		Similarity: recommend.SimilarityConfig{
			CacheTTL:      r.SimilarityCacheTTL,
			SampleSize:    r.SimilaritySampleSize,
			MaxLikedItems: r.MaxLikedItems,
			NeighborLimit: r.NeighborLimit,
		},
		Scoring: recommend.ScoringConfig{
			NeutralScore:              r.NeutralScore,
			StrongPreferenceThreshold: r.StrongPreferenceThreshold,
			SuppressedScore:           r.SuppressedScore,
			LiftCap:                   r.LiftCap,
			SuggestionThreshold:       r.SuggestionThreshold,
			DefaultSuggestionLimit:    r.DefaultSuggestionLimit,
		},
		Cache: recommend.CacheConfig{
			MaxEntries: r.CacheMaxEntries,
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CircuitBreakerConfig configures the breaker around order-store reads.
// The breaker opens once at least MinRequests calls were seen in Interval
// and the failure ratio reaches FailureRatio.
type CircuitBreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests" validate:"gte=1"` // Probes allowed while half-open
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"` // Open -> half-open delay
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
	MinRequests  uint32        `koanf:"min_requests" validate:"gte=1"`
}

// NATSConfig holds the order-event subscription settings.
type NATSConfig struct {
	// Enabled controls whether the order-event subscriber runs.
	// It also requires a binary built with -tags nats.
	Enabled bool `koanf:"enabled"`

	URL              string        `koanf:"url"`
	StreamName       string        `koanf:"stream_name"`
	Subject          string        `koanf:"subject"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"gte=1"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout" validate:"gte=0"`
	CloseTimeout     time.Duration `koanf:"close_timeout" validate:"gte=0"`
	RetryCount       int           `koanf:"retry_count" validate:"gte=0"`
	RetryInterval    time.Duration `koanf:"retry_interval" validate:"gte=0"`

	// PersistOrders writes completed orders from events into the order store
	// before invalidating caches.
	PersistOrders bool `koanf:"persist_orders"`

	// EmbeddedServer starts an in-process JetStream server and ignores URL.
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedPort   int    `koanf:"embedded_port" validate:"gte=-1,lte=65535"` // -1 picks a random port
	StoreDir       string `koanf:"store_dir"`                                 // JetStream storage for the embedded server

	// MaxEventsPerSecond throttles event handling during backfills. Zero disables throttling.
	MaxEventsPerSecond float64 `koanf:"max_events_per_second" validate:"gte=0"`
}
