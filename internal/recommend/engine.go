// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/cache"
)

// Engine is the public entry point of the scoring core. It owns one rule
// miner, bundle finder, profiler and similarity estimator, together with
// their caches. It is safe for concurrent use.
//
// No method returns a read failure. Failed order-store reads degrade to
// empty results or the neutral score.
type Engine struct {
	config *Config
	logger zerolog.Logger
	data   DataProvider

	rules      *RuleMiner
	bundles    *BundleFinder
	profiles   *Profiler
	similarity *SimilarityEstimator

	counters *counters
	deg      degrader
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	clock cache.Clock
}

// WithClock sets the clock used for decay and cache expiry.
func WithClock(c cache.Clock) Option {
	return func(o *engineOptions) {
		o.clock = c
	}
}

// NewEngine creates a new recommendation engine reading from dp.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(dp DataProvider, cfg *Config, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if dp == nil {
		return nil, ErrNoDataProvider
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.Clone()

	o := engineOptions{clock: cache.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		config:   cfg,
		logger:   logger.With().Str("component", "recommend").Logger(),
		data:     dp,
		counters: &counters{},
	}
	e.deg = degrader{logger: e.logger, counters: e.counters}
	maxEntries := cfg.Cache.MaxEntries

	e.rules = newRuleMiner(dp, cfg.Rules, maxEntries, o.clock, e.deg)
	e.bundles = newBundleFinder(dp, cfg.Bundles, func() float64 {
		minSupport, _ := e.rules.Thresholds()
		return minSupport
	}, e.deg)
	e.profiles = newProfiler(dp, cfg.Profile, maxEntries, o.clock, e.deg)
	e.similarity = newSimilarityEstimator(dp, e.profiles, cfg.Similarity, maxEntries, o.clock, e.deg)

	return e, nil
}

// MineRules returns association rules for the seed items.
func (e *Engine) MineRules(ctx context.Context, seedItemIDs []string) []AffinityRule {
	e.counters.requests.Add(1)
	return e.rules.MineRules(ctx, seedItemIDs)
}

// FindFrequentBundles returns frequently co-ordered itemsets.
func (e *Engine) FindFrequentBundles(ctx context.Context, minSize, maxSize int) []ItemSet {
	e.counters.requests.Add(1)
	return e.bundles.FindFrequentBundles(ctx, minSize, maxSize)
}

// GetUserProfile returns the customer's preference profile.
func (e *Engine) GetUserProfile(ctx context.Context, customerID string) *UserProfile {
	e.counters.requests.Add(1)
	return e.profiles.GetUserProfile(ctx, customerID)
}

// GetItemSimilarity returns the Jaccard similarity of two items' customer sets.
func (e *Engine) GetItemSimilarity(ctx context.Context, itemA, itemB string) float64 {
	e.counters.requests.Add(1)
	return e.similarity.ItemSimilarity(ctx, itemA, itemB)
}

// FindSimilarUsers returns customers ranked by overlap with the target's preferences.
func (e *Engine) FindSimilarUsers(ctx context.Context, customerID string, limit int) []SimilarUser {
	e.counters.requests.Add(1)
	return e.similarity.FindSimilarUsers(ctx, customerID, limit)
}

// GetUserBasedRecommendations returns items ordered by similar customers.
func (e *Engine) GetUserBasedRecommendations(ctx context.Context, customerID string, limit int) []ScoredItem {
	e.counters.requests.Add(1)
	return e.similarity.UserBasedRecommendations(ctx, customerID, limit)
}

// CalculateAffinityScores scores candidates against the cart using mined rules.
//
// An empty cart scores every candidate neutral. A candidate already in the
// cart scores 0. Otherwise the score is the best confidence × min(lift, LiftCap)
// over rules recommending the candidate, capped at 1, or neutral when no rule
// does. Empty candidates means every available catalog item.
func (e *Engine) CalculateAffinityScores(ctx context.Context, candidateIDs, cartItemIDs []string) map[string]float64 {
	e.counters.requests.Add(1)

	candidates := e.resolveCandidates(ctx, candidateIDs)
	scores := make(map[string]float64, len(candidates))
	cart := normalizeItemIDs(cartItemIDs)
	neutral := e.config.Scoring.NeutralScore

	if len(cart) == 0 {
		for _, id := range candidates {
			scores[id] = neutral
		}
		return scores
	}

	byConsequent := groupByConsequent(e.rules.MineRules(ctx, cart))
	inCart := toSet(cart)

	for _, id := range candidates {
		if _, ok := inCart[id]; ok {
			scores[id] = 0
			continue
		}
		rules, ok := byConsequent[id]
		if !ok {
			scores[id] = neutral
			continue
		}
		scores[id] = e.ruleScore(rules)
	}
	return scores
}

// CalculateScores scores candidates for a customer by collaborative filtering.
//
// No customer or an empty profile scores every candidate neutral. A candidate
// the customer bought recently (decayed preference above the strong preference
// threshold) is suppressed. Otherwise the score is the similarity-weighted
// average of the customer's decayed preferences for their top items, or
// neutral when none of those items is similar to the candidate.
func (e *Engine) CalculateScores(ctx context.Context, candidateIDs []string, customerID string) map[string]float64 {
	e.counters.requests.Add(1)

	candidates := e.resolveCandidates(ctx, candidateIDs)
	scores := make(map[string]float64, len(candidates))
	sc := e.config.Scoring

	profile := e.profiles.GetUserProfile(ctx, customerID)
	if customerID == "" || profile.IsEmpty() {
		for _, id := range candidates {
			scores[id] = sc.NeutralScore
		}
		return scores
	}

	liked := profile.TopItems(e.config.Similarity.MaxLikedItems)
	for _, id := range candidates {
		if profile.RecencyWeightedPreferences[id] > sc.StrongPreferenceThreshold {
			scores[id] = sc.SuppressedScore
			continue
		}

		weighted, total := 0.0, 0.0
		for _, item := range liked {
			if item == id {
				continue
			}
			sim := e.similarity.ItemSimilarity(ctx, item, id)
			if sim <= 0 {
				continue
			}
			weighted += sim * profile.RecencyWeightedPreferences[item]
			total += sim
		}
		if total == 0 {
			scores[id] = sc.NeutralScore
			continue
		}
		scores[id] = clamp01(weighted / total)
	}
	return scores
}

// GetCompleteMealSuggestions returns rule consequents of the cart that score
// above the suggestion threshold, with the rules that produced them. Items
// the catalog reports unavailable are skipped when the catalog can be read.
func (e *Engine) GetCompleteMealSuggestions(ctx context.Context, cartItemIDs []string, limit int) []AffinityScore {
	e.counters.requests.Add(1)

	cart := normalizeItemIDs(cartItemIDs)
	if len(cart) == 0 {
		return []AffinityScore{}
	}

	byConsequent := groupByConsequent(e.rules.MineRules(ctx, cart))
	if len(byConsequent) == 0 {
		return []AffinityScore{}
	}

	available, haveCatalog := e.availableItems(ctx)
	inCart := toSet(cart)
	threshold := e.config.Scoring.SuggestionThreshold

	suggestions := make([]AffinityScore, 0, len(byConsequent))
	for id, rules := range byConsequent {
		if _, ok := inCart[id]; ok {
			continue
		}
		if haveCatalog {
			if _, ok := available[id]; !ok {
				continue
			}
		}
		score := e.ruleScore(rules)
		if score <= threshold {
			continue
		}
		suggestions = append(suggestions, AffinityScore{
			ItemID:            id,
			Score:             score,
			ContributingRules: cloneRules(rules),
		})
	}

	sortAffinityScores(suggestions)
	return truncate(suggestions, e.limitOrDefault(limit))
}

// GetAlsoBoughtSuggestions returns items frequently ordered with itemID.
func (e *Engine) GetAlsoBoughtSuggestions(ctx context.Context, itemID string, limit int) []AffinityScore {
	e.counters.requests.Add(1)

	rules := e.rules.MineRules(ctx, []string{itemID})
	suggestions := make([]AffinityScore, 0, len(rules))
	for _, r := range rules {
		suggestions = append(suggestions, AffinityScore{
			ItemID:            r.ConsequentID(),
			Score:             e.ruleScore([]AffinityRule{r}),
			ContributingRules: cloneRules([]AffinityRule{r}),
		})
	}

	sortAffinityScores(suggestions)
	return truncate(suggestions, e.limitOrDefault(limit))
}

// ClearCache drops every cached rule list, profile and similarity.
func (e *Engine) ClearCache() {
	e.rules.ClearCache()
	e.profiles.ClearCache()
	e.similarity.ClearCache()
	e.logger.Info().Msg("recommendation caches cleared")
}

// PruneCaches removes expired entries from every cache and returns how many
// were dropped. Expired entries are otherwise only collected on access.
func (e *Engine) PruneCaches() int {
	return e.rules.cache.CleanupExpired() +
		e.profiles.cache.CleanupExpired() +
		e.similarity.pairs.CleanupExpired() +
		e.similarity.customers.CleanupExpired()
}

// SetThresholds updates the support and confidence thresholds. The itemset
// finder follows the new support unless its own override is configured.
func (e *Engine) SetThresholds(minSupport, minConfidence float64) error {
	if err := e.rules.SetThresholds(minSupport, minConfidence); err != nil {
		return fmt.Errorf("set thresholds: %w", err)
	}
	e.logger.Info().
		Float64("min_support", minSupport).
		Float64("min_confidence", minConfidence).
		Msg("support thresholds updated")
	return nil
}

// SetDecayRate updates λ and clears the profile cache.
func (e *Engine) SetDecayRate(rate float64) error {
	if err := e.profiles.SetDecayRate(rate); err != nil {
		return fmt.Errorf("set decay rate: %w", err)
	}
	e.logger.Info().
		Float64("decay_rate", rate).
		Float64("half_life_days", HalfLifeDays(rate)).
		Msg("decay rate updated")
	return nil
}

// InvalidateOrder drops cached state a new or reversed order makes stale:
// every rule list, the customer's profile and similarities touching its items.
func (e *Engine) InvalidateOrder(order *Order) {
	if order == nil {
		return
	}
	e.rules.ClearCache()
	if order.CustomerID != "" {
		e.profiles.Invalidate(order.CustomerID)
	}
	ids := make([]string, 0, len(order.Items))
	for id := range order.ItemSet() {
		ids = append(ids, id)
	}
	e.similarity.InvalidateItems(ids)
}

// Thresholds returns the current rule thresholds.
func (e *Engine) Thresholds() (minSupport, minConfidence float64) {
	return e.rules.Thresholds()
}

// DecayRate returns the current decay rate.
func (e *Engine) DecayRate() float64 {
	return e.profiles.DecayRate()
}

// GetConfig returns a copy of the effective configuration, including
// thresholds and decay rate changed at runtime.
func (e *Engine) GetConfig() *Config {
	cfg := e.config.Clone()
	cfg.Rules.MinSupport, cfg.Rules.MinConfidence = e.rules.Thresholds()
	cfg.Profile.DecayRate = e.profiles.DecayRate()
	return cfg
}

// GetMetrics returns a snapshot of the engine counters.
func (e *Engine) GetMetrics() Metrics {
	c := e.counters
	return Metrics{
		RequestCount:          c.requests.Load(),
		RuleCacheHits:         c.ruleHits.Load(),
		RuleCacheMisses:       c.ruleMisses.Load(),
		ProfileCacheHits:      c.profileHits.Load(),
		ProfileCacheMisses:    c.profileMisses.Load(),
		SimilarityCacheHits:   c.similarityHits.Load(),
		SimilarityCacheMisses: c.similarityMisses.Load(),
		FallbackCount:         c.fallbacks.Load(),
		CachedRuleSets:        e.rules.cache.Len(),
		CachedProfiles:        e.profiles.cache.Len(),
		CachedSimilarity:      e.similarity.pairs.Len(),
	}
}

// ruleScore is max(confidence × min(lift, LiftCap)) over rules, capped at 1.
func (e *Engine) ruleScore(rules []AffinityRule) float64 {
	best := 0.0
	for i := range rules {
		s := rules[i].Confidence * math.Min(rules[i].Lift, e.config.Scoring.LiftCap)
		if s > best {
			best = s
		}
	}
	return clamp01(best)
}

// resolveCandidates returns the distinct candidates, or the available catalog
// when none are given.
func (e *Engine) resolveCandidates(ctx context.Context, candidateIDs []string) []string {
	if len(candidateIDs) > 0 {
		return normalizeItemIDs(candidateIDs)
	}
	ids, _ := orFallback(ctx, e.deg, "list_available_items", []string{}, e.data.ListAvailableItemIDs)
	return normalizeItemIDs(ids)
}

func (e *Engine) availableItems(ctx context.Context) (map[string]struct{}, bool) {
	ids, ok := orFallback(ctx, e.deg, "list_available_items", []string(nil), e.data.ListAvailableItemIDs)
	if !ok {
		return nil, false
	}
	return toSet(ids), true
}

func (e *Engine) limitOrDefault(limit int) int {
	if limit <= 0 {
		return e.config.Scoring.DefaultSuggestionLimit
	}
	return limit
}

func groupByConsequent(rules []AffinityRule) map[string][]AffinityRule {
	out := make(map[string][]AffinityRule)
	for _, r := range rules {
		id := r.ConsequentID()
		if id == "" {
			continue
		}
		out[id] = append(out[id], r)
	}
	return out
}

func sortAffinityScores(scores []AffinityScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ItemID < scores[j].ItemID
	})
}

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
