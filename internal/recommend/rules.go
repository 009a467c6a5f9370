// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/affinity/internal/cache"
)

// RuleMiner mines "frequently bought together" rules for a seed antecedent.
//
// Mined rule lists are cached by antecedent with no expiry: a cached list is
// served until ClearCache or SetThresholds is called. Read failures are never
// cached.
type RuleMiner struct {
	orders OrderHistory
	cache  *cache.TTLCache[string, []AffinityRule]
	deg    degrader

	mu  sync.RWMutex
	cfg RulesConfig
}

//nolint:gocritic // degrader is small and passed by value
func newRuleMiner(orders OrderHistory, cfg RulesConfig, maxEntries int, clock cache.Clock, deg degrader) *RuleMiner {
	return &RuleMiner{
		orders: orders,
		cache: cache.NewTTLCache[string, []AffinityRule](cache.Options{
			Capacity: maxEntries,
			Clock:    clock,
		}),
		deg: deg,
		cfg: cfg,
	}
}

// MineRules returns rules antecedent → consequent for the given seed items,
// sorted by confidence × lift descending. Empty input or a failed read yields
// an empty list.
func (m *RuleMiner) MineRules(ctx context.Context, seeds []string) []AffinityRule {
	antecedent := normalizeItemIDs(seeds)
	if len(antecedent) == 0 {
		return []AffinityRule{}
	}

	key := strings.Join(antecedent, ",")
	if rules, ok := m.cache.Get(key); ok {
		m.deg.counters.ruleHits.Add(1)
		return cloneRules(rules)
	}
	m.deg.counters.ruleMisses.Add(1)

	cfg := m.config()
	orders, ok := orFallback(ctx, m.deg, "mine_rules", []Order(nil), func(ctx context.Context) ([]Order, error) {
		return m.orders.FindOrders(ctx, OrderQuery{
			StatusNotIn: ExcludedStatuses,
			ItemIDIn:    antecedent,
			Limit:       cfg.SampleSize,
		})
	})
	if !ok {
		return []AffinityRule{}
	}

	rules := mineRules(orders, antecedent, cfg)
	m.cache.Set(key, rules)

	m.deg.logger.Debug().
		Str("antecedent", key).
		Int("orders", len(orders)).
		Int("rules", len(rules)).
		Msg("mined affinity rules")

	return cloneRules(rules)
}

// SetThresholds replaces the support and confidence thresholds and drops every
// cached rule list so the new thresholds apply immediately.
func (m *RuleMiner) SetThresholds(minSupport, minConfidence float64) error {
	if err := validateThresholds(minSupport, minConfidence); err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg.MinSupport = minSupport
	m.cfg.MinConfidence = minConfidence
	m.mu.Unlock()

	m.cache.Clear()
	return nil
}

// Thresholds returns the current support and confidence thresholds.
func (m *RuleMiner) Thresholds() (minSupport, minConfidence float64) {
	cfg := m.config()
	return cfg.MinSupport, cfg.MinConfidence
}

// ClearCache drops every cached rule list.
func (m *RuleMiner) ClearCache() {
	m.cache.Clear()
}

func (m *RuleMiner) config() RulesConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// mineRules computes rules from an order sample. antecedent must be normalized.
//
//nolint:gocritic // cfg is a small value snapshot
func mineRules(orders []Order, antecedent []string, cfg RulesConfig) []AffinityRule {
	inAntecedent := make(map[string]struct{}, len(antecedent))
	for _, id := range antecedent {
		inAntecedent[id] = struct{}{}
	}

	occurrences := make(map[string]int)
	coOccurrences := make(map[string]int)
	total := 0
	antecedentCount := 0

	for i := range orders {
		if orders[i].Status.Excluded() {
			continue
		}
		total++

		items := orders[i].ItemSet()
		for id := range items {
			occurrences[id]++
		}
		if !containsAll(items, antecedent) {
			continue
		}
		antecedentCount++
		for id := range items {
			if _, seed := inAntecedent[id]; !seed {
				coOccurrences[id]++
			}
		}
	}

	if total == 0 || antecedentCount == 0 {
		return []AffinityRule{}
	}

	rules := make([]AffinityRule, 0, len(coOccurrences))
	for consequent, co := range coOccurrences {
		support := float64(co) / float64(total)
		if support < cfg.MinSupport {
			continue
		}
		confidence := float64(co) / float64(antecedentCount)
		if confidence < cfg.MinConfidence {
			continue
		}

		lift := 0.0
		if baseRate := float64(occurrences[consequent]) / float64(total); baseRate > 0 {
			lift = confidence / baseRate
		}

		rules = append(rules, AffinityRule{
			Antecedent: append([]string(nil), antecedent...),
			Consequent: []string{consequent},
			Support:    support,
			Confidence: confidence,
			Lift:       lift,
			OrderCount: co,
		})
	}

	sort.Slice(rules, func(i, j int) bool {
		si, sj := rules[i].Strength(), rules[j].Strength()
		if si != sj {
			return si > sj
		}
		return rules[i].ConsequentID() < rules[j].ConsequentID()
	})

	if cfg.MaxRulesPerItem > 0 && len(rules) > cfg.MaxRulesPerItem {
		rules = rules[:cfg.MaxRulesPerItem]
	}
	return rules
}

// normalizeItemIDs returns the distinct non-empty IDs in sorted order.
func normalizeItemIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func containsAll(set map[string]struct{}, ids []string) bool {
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// cloneRules copies rules and their item slices so callers never share
// backing arrays with a cached entry.
func cloneRules(rules []AffinityRule) []AffinityRule {
	out := make([]AffinityRule, len(rules))
	for i := range rules {
		out[i] = rules[i]
		out[i].Antecedent = append([]string(nil), rules[i].Antecedent...)
		out[i].Consequent = append([]string(nil), rules[i].Consequent...)
	}
	return out
}
