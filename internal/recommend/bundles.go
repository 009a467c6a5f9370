// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"math"
	"sort"
	"strings"
)

const (
	minBundleSize = 2
	maxBundleSize = 3
)

// BundleFinder finds frequently co-ordered sets of 2 or 3 items across recent
// orders, independent of any seed.
//
// Candidate triples are generated from the frequent single items rather than
// from surviving pairs. Every counted triple still has to clear the same
// minimum count, so returned bundles keep support antimonotone.
type BundleFinder struct {
	orders OrderHistory
	cfg    BundlesConfig
	deg    degrader

	// sharedSupport reports the engine-wide minimum support. It is read on
	// every call so runtime threshold changes apply immediately.
	sharedSupport func() float64
}

//nolint:gocritic // degrader is small and passed by value
func newBundleFinder(orders OrderHistory, cfg BundlesConfig, sharedSupport func() float64, deg degrader) *BundleFinder {
	return &BundleFinder{orders: orders, cfg: cfg, sharedSupport: sharedSupport, deg: deg}
}

// config returns the parameters for one call. A zero MinSupport follows the
// shared threshold.
func (f *BundleFinder) config() BundlesConfig {
	cfg := f.cfg
	if cfg.MinSupport == 0 && f.sharedSupport != nil {
		cfg.MinSupport = f.sharedSupport()
	}
	return cfg
}

// FindFrequentBundles returns itemsets with size in [minSize, maxSize] whose
// order count reaches max(MinCountFloor, total × minSupport). Sizes outside
// 2..3 are clamped. Results are sorted by support descending.
func (f *BundleFinder) FindFrequentBundles(ctx context.Context, minSize, maxSize int) []ItemSet {
	minSize = clampInt(minSize, minBundleSize, maxBundleSize)
	maxSize = clampInt(maxSize, minBundleSize, maxBundleSize)
	if minSize > maxSize {
		return []ItemSet{}
	}

	cfg := f.config()
	orders, ok := orFallback(ctx, f.deg, "find_frequent_bundles", []Order(nil), func(ctx context.Context) ([]Order, error) {
		return f.orders.FindOrders(ctx, OrderQuery{
			StatusNotIn: ExcludedStatuses,
			Limit:       cfg.SampleSize,
		})
	})
	if !ok {
		return []ItemSet{}
	}

	bundles := findBundles(orders, minSize, maxSize, cfg)
	f.deg.logger.Debug().
		Int("orders", len(orders)).
		Float64("min_support", cfg.MinSupport).
		Int("bundles", len(bundles)).
		Msg("found frequent bundles")
	return bundles
}

//nolint:gocritic // cfg is a small value snapshot
func findBundles(orders []Order, minSize, maxSize int, cfg BundlesConfig) []ItemSet {
	baskets := make([]map[string]struct{}, 0, len(orders))
	for i := range orders {
		if orders[i].Status.Excluded() {
			continue
		}
		baskets = append(baskets, orders[i].ItemSet())
	}

	total := len(baskets)
	if total == 0 {
		return []ItemSet{}
	}
	minCount := minSupportCount(total, cfg)

	singles := make(map[string]int)
	for _, b := range baskets {
		for id := range b {
			singles[id]++
		}
	}

	base := make([]string, 0, len(singles))
	for id, n := range singles {
		if n >= minCount {
			base = append(base, id)
		}
	}
	sort.Strings(base)

	inBase := make(map[string]struct{}, len(base))
	for _, id := range base {
		inBase[id] = struct{}{}
	}

	// Count every candidate subset per basket instead of rescanning all
	// baskets per candidate. Only frequent single items take part.
	counts := make(map[string]int)
	for _, b := range baskets {
		frequent := make([]string, 0, len(b))
		for id := range b {
			if _, ok := inBase[id]; ok {
				frequent = append(frequent, id)
			}
		}
		sort.Strings(frequent)
		forEachCombination(frequent, minSize, maxSize, func(items []string) {
			counts[strings.Join(items, ",")]++
		})
	}

	sets := make([]ItemSet, 0, len(counts))
	for key, n := range counts {
		if n < minCount {
			continue
		}
		sets = append(sets, ItemSet{
			Items:   strings.Split(key, ","),
			Support: float64(n) / float64(total),
			Count:   n,
		})
	}

	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Count != sets[j].Count {
			return sets[i].Count > sets[j].Count
		}
		if len(sets[i].Items) != len(sets[j].Items) {
			return len(sets[i].Items) < len(sets[j].Items)
		}
		return sets[i].Key() < sets[j].Key()
	})
	return sets
}

// minSupportCount is max(floor, ceil(total × minSupport)).
//
//nolint:gocritic // cfg is a small value snapshot
func minSupportCount(total int, cfg BundlesConfig) int {
	relative := int(math.Ceil(float64(total) * cfg.MinSupport))
	if relative > cfg.MinCountFloor {
		return relative
	}
	return cfg.MinCountFloor
}

// forEachCombination calls fn with every sorted k-subset of items for k in
// [minK, maxK]. items must be sorted. fn must not retain its argument.
func forEachCombination(items []string, minK, maxK int, fn func([]string)) {
	buf := make([]string, 0, maxK)
	var walk func(start int)
	walk = func(start int) {
		if len(buf) >= minK {
			fn(buf)
		}
		if len(buf) == maxK {
			return
		}
		for i := start; i < len(items); i++ {
			buf = append(buf, items[i])
			walk(i + 1)
			buf = buf[:len(buf)-1]
		}
	}
	walk(0)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
