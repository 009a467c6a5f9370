// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Rules contains association-rule mining parameters.
	Rules RulesConfig `json:"rules"`

	// Bundles contains frequent itemset parameters.
	Bundles BundlesConfig `json:"bundles"`

	// Profile contains user preference profiling parameters.
	Profile ProfileConfig `json:"profile"`

	// Similarity contains item and user similarity parameters.
	Similarity SimilarityConfig `json:"similarity"`

	// Scoring contains the constants of the public scoring paths.
	Scoring ScoringConfig `json:"scoring"`

	// Cache contains cache sizing.
	Cache CacheConfig `json:"cache"`
}

// RulesConfig contains parameters for the rule miner.
type RulesConfig struct {
	// MinSupport is the minimum fraction of sampled orders a rule must cover.
	// Default: 0.01.
	MinSupport float64 `json:"min_support"`

	// MinConfidence is the minimum P(consequent | antecedent).
	// Default: 0.10.
	MinConfidence float64 `json:"min_confidence"`

	// MaxRulesPerItem truncates the sorted rule list.
	// Default: 50.
	MaxRulesPerItem int `json:"max_rules_per_item"`

	// SampleSize is the number of most recent orders mined per antecedent.
	// Default: 1000.
	SampleSize int `json:"sample_size"`
}

// BundlesConfig contains parameters for the frequent itemset finder.
type BundlesConfig struct {
	// SampleSize is the number of most recent orders scanned.
	// Default: 1000.
	SampleSize int `json:"sample_size"`

	// MinSupport overrides the relative support threshold for itemsets.
	// Zero follows Rules.MinSupport, including changes made at runtime.
	// Default: 0.
	MinSupport float64 `json:"min_support"`

	// MinCountFloor is the absolute minimum order count for any itemset.
	// Default: 3.
	MinCountFloor int `json:"min_count_floor"`
}

// ProfileConfig contains parameters for the preference profiler.
type ProfileConfig struct {
	// DecayRate is λ in exp(-λ × daysAgo). Zero disables decay.
	// Default: 0.1 (perishables).
	DecayRate float64 `json:"decay_rate"`

	// CacheTTL is how long a built profile is served from cache.
	// Default: 30 minutes.
	CacheTTL time.Duration `json:"cache_ttl"`

	// OrderLimit is the number of most recent orders read per customer.
	// Default: 100.
	OrderLimit int `json:"order_limit"`
}

// SimilarityConfig contains parameters for the similarity estimator.
type SimilarityConfig struct {
	// CacheTTL is how long pairwise similarities and customer sets are cached.
	// Default: 30 minutes.
	CacheTTL time.Duration `json:"cache_ttl"`

	// SampleSize caps the orders read when building an item's customer set
	// or scanning for similar users.
	// Default: 1000.
	SampleSize int `json:"sample_size"`

	// MaxLikedItems is how many of a customer's top items feed the collaborative score.
	// Default: 20.
	MaxLikedItems int `json:"max_liked_items"`

	// NeighborLimit is the number of similar users used for user-based recommendations.
	// Default: 20.
	NeighborLimit int `json:"neighbor_limit"`
}

// ScoringConfig contains the constants used by the public scoring paths.
type ScoringConfig struct {
	// NeutralScore is returned when there is no evidence either way.
	// Default: 0.5.
	NeutralScore float64 `json:"neutral_score"`

	// StrongPreferenceThreshold marks a candidate as recently bought.
	// Default: 0.7.
	StrongPreferenceThreshold float64 `json:"strong_preference_threshold"`

	// SuppressedScore is returned for recently bought candidates.
	// Default: 0.3.
	SuppressedScore float64 `json:"suppressed_score"`

	// LiftCap bounds lift in the rule-based score.
	// Default: 2.
	LiftCap float64 `json:"lift_cap"`

	// SuggestionThreshold is the exclusive lower bound for complete-meal suggestions.
	// Default: 0.5.
	SuggestionThreshold float64 `json:"suggestion_threshold"`

	// DefaultSuggestionLimit applies when callers pass limit <= 0.
	// Default: 10.
	DefaultSuggestionLimit int `json:"default_suggestion_limit"`
}

// CacheConfig contains cache sizing parameters.
type CacheConfig struct {
	// MaxEntries bounds each engine cache. Least recently used entries are evicted.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`
}

// Vertical names a business category with its own decay rate.
type Vertical string

// Known verticals.
const (
	VerticalPerishables Vertical = "perishables"
	VerticalGrocery     Vertical = "grocery"
	VerticalRetail      Vertical = "retail"
	VerticalDurables    Vertical = "durables"
)

// verticalDecayRates maps verticals to λ. Perishables decay with a ~7 day half-life.
var verticalDecayRates = map[Vertical]float64{
	VerticalPerishables: 0.1,
	VerticalGrocery:     0.05,
	VerticalRetail:      0.02,
	VerticalDurables:    0.01,
}

// DecayRateForVertical returns the preset λ for v.
func DecayRateForVertical(v Vertical) (float64, error) {
	rate, ok := verticalDecayRates[v]
	if !ok {
		return 0, fmt.Errorf("unknown vertical %q", v)
	}
	return rate, nil
}

// HalfLifeDays returns ln(2)/λ, or +Inf when λ is zero.
func HalfLifeDays(decayRate float64) float64 {
	if decayRate <= 0 {
		return math.Inf(1)
	}
	return math.Ln2 / decayRate
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			MinSupport:      0.01,
			MinConfidence:   0.10,
			MaxRulesPerItem: 50,
			SampleSize:      1000,
		},
		Bundles: BundlesConfig{
			SampleSize:    1000,
			MinCountFloor: 3,
		},
		Profile: ProfileConfig{
			DecayRate:  verticalDecayRates[VerticalPerishables],
			CacheTTL:   30 * time.Minute,
			OrderLimit: 100,
		},
		Similarity: SimilarityConfig{
			CacheTTL:      30 * time.Minute,
			SampleSize:    1000,
			MaxLikedItems: 20,
			NeighborLimit: 20,
		},
		Scoring: ScoringConfig{
			NeutralScore:              0.5,
			StrongPreferenceThreshold: 0.7,
			SuppressedScore:           0.3,
			LiftCap:                   2,
			SuggestionThreshold:       0.5,
			DefaultSuggestionLimit:    10,
		},
		Cache: CacheConfig{
			MaxEntries: 10000,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validateThresholds(c.Rules.MinSupport, c.Rules.MinConfidence); err != nil {
		return err
	}
	if c.Rules.MaxRulesPerItem < 1 {
		return fmt.Errorf("rules.max_rules_per_item must be positive, got %d", c.Rules.MaxRulesPerItem)
	}
	if c.Rules.SampleSize < 1 {
		return fmt.Errorf("rules.sample_size must be positive, got %d", c.Rules.SampleSize)
	}

	if c.Bundles.SampleSize < 1 {
		return fmt.Errorf("bundles.sample_size must be positive, got %d", c.Bundles.SampleSize)
	}
	if !inUnitInterval(c.Bundles.MinSupport) {
		return fmt.Errorf("bundles.min_support must be in [0, 1], got %f", c.Bundles.MinSupport)
	}
	if c.Bundles.MinCountFloor < 1 {
		return fmt.Errorf("bundles.min_count_floor must be positive, got %d", c.Bundles.MinCountFloor)
	}

	if err := validateDecayRate(c.Profile.DecayRate); err != nil {
		return err
	}
	if c.Profile.CacheTTL < 0 {
		return fmt.Errorf("profile.cache_ttl must be non-negative, got %v", c.Profile.CacheTTL)
	}
	if c.Profile.OrderLimit < 1 {
		return fmt.Errorf("profile.order_limit must be positive, got %d", c.Profile.OrderLimit)
	}

	if c.Similarity.CacheTTL < 0 {
		return fmt.Errorf("similarity.cache_ttl must be non-negative, got %v", c.Similarity.CacheTTL)
	}
	if c.Similarity.SampleSize < 1 {
		return fmt.Errorf("similarity.sample_size must be positive, got %d", c.Similarity.SampleSize)
	}
	if c.Similarity.MaxLikedItems < 1 {
		return fmt.Errorf("similarity.max_liked_items must be positive, got %d", c.Similarity.MaxLikedItems)
	}
	if c.Similarity.NeighborLimit < 1 {
		return fmt.Errorf("similarity.neighbor_limit must be positive, got %d", c.Similarity.NeighborLimit)
	}

	s := c.Scoring
	for name, v := range map[string]float64{
		"scoring.neutral_score":               s.NeutralScore,
		"scoring.strong_preference_threshold": s.StrongPreferenceThreshold,
		"scoring.suppressed_score":            s.SuppressedScore,
		"scoring.suggestion_threshold":        s.SuggestionThreshold,
	} {
		if !inUnitInterval(v) {
			return fmt.Errorf("%s must be in [0, 1], got %f", name, v)
		}
	}
	if s.LiftCap <= 0 || math.IsNaN(s.LiftCap) {
		return fmt.Errorf("scoring.lift_cap must be positive, got %f", s.LiftCap)
	}
	if s.DefaultSuggestionLimit < 1 {
		return fmt.Errorf("scoring.default_suggestion_limit must be positive, got %d", s.DefaultSuggestionLimit)
	}

	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative, got %d", c.Cache.MaxEntries)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types
	clone := *c
	return &clone
}

func validateThresholds(minSupport, minConfidence float64) error {
	if !inUnitInterval(minSupport) {
		return fmt.Errorf("min_support must be in [0, 1], got %f", minSupport)
	}
	if !inUnitInterval(minConfidence) {
		return fmt.Errorf("min_confidence must be in [0, 1], got %f", minConfidence)
	}
	return nil
}

func validateDecayRate(rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("decay_rate must be a non-negative finite number, got %f", rate)
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
