// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"sort"
	"strings"

	"github.com/tomtom215/affinity/internal/cache"
)

// SimilarityEstimator relates items to items (Jaccard over purchasing
// customers) and customers to customers (overlap with a preference set).
type SimilarityEstimator struct {
	orders   OrderHistory
	profiles *Profiler
	cfg      SimilarityConfig
	deg      degrader

	// pairs caches item-item similarity under an order-independent key.
	pairs *cache.TTLCache[string, float64]

	// customers caches the purchasing-customer set of each item.
	customers *cache.TTLCache[string, map[string]struct{}]
}

//nolint:gocritic // degrader is small and passed by value
func newSimilarityEstimator(orders OrderHistory, profiles *Profiler, cfg SimilarityConfig, maxEntries int, clock cache.Clock, deg degrader) *SimilarityEstimator {
	opts := cache.Options{TTL: cfg.CacheTTL, Capacity: maxEntries, Clock: clock}
	return &SimilarityEstimator{
		orders:    orders,
		profiles:  profiles,
		cfg:       cfg,
		deg:       deg,
		pairs:     cache.NewTTLCache[string, float64](opts),
		customers: cache.NewTTLCache[string, map[string]struct{}](opts),
	}
}

// ItemSimilarity returns |customers(a) ∩ customers(b)| / |customers(a) ∪ customers(b)|.
// An item is identical to itself without any read. A failed read yields 0 and
// is not cached.
func (s *SimilarityEstimator) ItemSimilarity(ctx context.Context, a, b string) float64 {
	if a == b {
		return 1
	}

	key := pairKey(a, b)
	if sim, ok := s.pairs.Get(key); ok {
		s.deg.counters.similarityHits.Add(1)
		return sim
	}
	s.deg.counters.similarityMisses.Add(1)

	ca, ok := s.customerSet(ctx, a)
	if !ok {
		return 0
	}
	cb, ok := s.customerSet(ctx, b)
	if !ok {
		return 0
	}

	sim := jaccard(ca, cb)
	s.pairs.Set(key, sim)
	return sim
}

// FindSimilarUsers ranks other customers by how many of the target's
// preferred items they ordered, normalized by the best overlap found. The
// measure is asymmetric: a customer with a broad history is not penalized.
func (s *SimilarityEstimator) FindSimilarUsers(ctx context.Context, customerID string, limit int) []SimilarUser {
	if customerID == "" {
		return []SimilarUser{}
	}

	profile := s.profiles.GetUserProfile(ctx, customerID)
	if len(profile.Preferences) == 0 {
		return []SimilarUser{}
	}
	preferred := make([]string, 0, len(profile.Preferences))
	for id := range profile.Preferences {
		preferred = append(preferred, id)
	}
	sort.Strings(preferred)

	orders, ok := orFallback(ctx, s.deg, "find_similar_users", []Order(nil), func(ctx context.Context) ([]Order, error) {
		return s.orders.FindOrders(ctx, OrderQuery{
			StatusNotIn: ExcludedStatuses,
			ItemIDIn:    preferred,
			Limit:       s.cfg.SampleSize,
		})
	})
	if !ok {
		return []SimilarUser{}
	}

	bought := make(map[string]map[string]struct{})
	for i := range orders {
		o := &orders[i]
		if o.Status.Excluded() || o.CustomerID == "" || o.CustomerID == customerID {
			continue
		}
		set, exists := bought[o.CustomerID]
		if !exists {
			set = make(map[string]struct{})
			bought[o.CustomerID] = set
		}
		for _, li := range o.Items {
			if _, liked := profile.Preferences[li.ItemID]; liked {
				set[li.ItemID] = struct{}{}
			}
		}
	}

	maxOverlap := 0
	for _, set := range bought {
		if len(set) > maxOverlap {
			maxOverlap = len(set)
		}
	}
	if maxOverlap == 0 {
		return []SimilarUser{}
	}

	users := make([]SimilarUser, 0, len(bought))
	for id, set := range bought {
		if len(set) == 0 {
			continue
		}
		users = append(users, SimilarUser{
			CustomerID: id,
			Similarity: float64(len(set)) / float64(maxOverlap),
			Overlap:    len(set),
		})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Similarity != users[j].Similarity {
			return users[i].Similarity > users[j].Similarity
		}
		return users[i].CustomerID < users[j].CustomerID
	})

	if limit <= 0 {
		limit = s.cfg.NeighborLimit
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users
}

// UserBasedRecommendations scores items the target has never ordered by the
// summed similarity of the neighbours who ordered them, scaled into [0, 1].
func (s *SimilarityEstimator) UserBasedRecommendations(ctx context.Context, customerID string, limit int) []ScoredItem {
	neighbors := s.FindSimilarUsers(ctx, customerID, s.cfg.NeighborLimit)
	if len(neighbors) == 0 {
		return []ScoredItem{}
	}
	owned := s.profiles.GetUserProfile(ctx, customerID).Preferences

	scores := make(map[string]float64)
	for _, n := range neighbors {
		orders, ok := orFallback(ctx, s.deg, "neighbor_orders", []Order(nil), func(ctx context.Context) ([]Order, error) {
			return s.orders.FindOrders(ctx, OrderQuery{
				StatusNotIn: ExcludedStatuses,
				CustomerID:  n.CustomerID,
				Limit:       s.profiles.config().OrderLimit,
			})
		})
		if !ok {
			continue
		}

		seen := make(map[string]struct{})
		for i := range orders {
			if orders[i].Status.Excluded() {
				continue
			}
			for id := range orders[i].ItemSet() {
				if _, has := owned[id]; has {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				scores[id] += n.Similarity
			}
		}
	}

	normalizeByMax(scores)
	items := make([]ScoredItem, 0, len(scores))
	for id, score := range scores {
		items = append(items, ScoredItem{ItemID: id, Score: score})
	}
	sortScoredItems(items)

	if limit <= 0 {
		limit = s.cfg.NeighborLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// InvalidateItems drops cached customer sets and pair similarities touching any of ids.
func (s *SimilarityEstimator) InvalidateItems(ids []string) {
	if len(ids) == 0 {
		return
	}
	touched := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		touched[id] = struct{}{}
		s.customers.Delete(id)
	}
	s.pairs.DeleteFunc(func(key string) bool {
		a, b := splitPairKey(key)
		_, hitA := touched[a]
		_, hitB := touched[b]
		return hitA || hitB
	})
}

// ClearCache drops every cached similarity and customer set.
func (s *SimilarityEstimator) ClearCache() {
	s.pairs.Clear()
	s.customers.Clear()
}

// customerSet returns the distinct customers who ordered item.
func (s *SimilarityEstimator) customerSet(ctx context.Context, item string) (map[string]struct{}, bool) {
	if set, ok := s.customers.Get(item); ok {
		return set, true
	}

	orders, ok := orFallback(ctx, s.deg, "item_customers", []Order(nil), func(ctx context.Context) ([]Order, error) {
		return s.orders.FindOrders(ctx, OrderQuery{
			StatusNotIn: ExcludedStatuses,
			ItemIDIn:    []string{item},
			Limit:       s.cfg.SampleSize,
		})
	})
	if !ok {
		return nil, false
	}

	set := make(map[string]struct{})
	for i := range orders {
		if orders[i].Status.Excluded() || orders[i].CustomerID == "" {
			continue
		}
		set[orders[i].CustomerID] = struct{}{}
	}
	s.customers.Set(item, set)
	return set, true
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

const pairSep = "\x00"

// pairKey is symmetric: pairKey(a, b) == pairKey(b, a).
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + pairSep + b
}

func splitPairKey(key string) (a, b string) {
	a, b, _ = strings.Cut(key, pairSep)
	return a, b
}

func sortScoredItems(items []ScoredItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID < items[j].ItemID
	})
}
