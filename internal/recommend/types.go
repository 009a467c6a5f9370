// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"sort"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of a historical order.
type OrderStatus string

const (
	// StatusCompleted marks a fulfilled order.
	StatusCompleted OrderStatus = "completed"

	// StatusCancelled marks an order that never completed.
	StatusCancelled OrderStatus = "cancelled"

	// StatusRefunded marks a completed order that was refunded.
	StatusRefunded OrderStatus = "refunded"
)

// ExcludedStatuses lists the statuses that never contribute to mining or profiling.
var ExcludedStatuses = []OrderStatus{StatusCancelled, StatusRefunded}

// Excluded reports whether orders with this status are ignored by the engine.
func (s OrderStatus) Excluded() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// LineItem is one item of an order.
type LineItem struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// Order is an immutable historical fact read from the order store.
type Order struct {
	ID         string      `json:"id" validate:"required"`
	CustomerID string      `json:"customer_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Status     OrderStatus `json:"status" validate:"required,oneof=completed cancelled refunded"`
	Items      []LineItem  `json:"items" validate:"required,min=1,dive"`
}

// ItemSet returns the distinct item IDs of the order.
func (o *Order) ItemSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Items))
	for _, li := range o.Items {
		if li.ItemID != "" {
			set[li.ItemID] = struct{}{}
		}
	}
	return set
}

// OrderQuery filters orders. Results are always newest first.
type OrderQuery struct {
	// StatusNotIn excludes orders with any of these statuses.
	StatusNotIn []OrderStatus

	// ItemIDIn restricts results to orders containing at least one of these items.
	ItemIDIn []string

	// CustomerID restricts results to one customer.
	CustomerID string

	// Limit caps the number of orders returned. Zero means no limit.
	Limit int
}

// AffinityRule is an association rule antecedent → consequent mined from orders.
// The consequent is always a single item.
type AffinityRule struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`

	// Support is the fraction of sampled orders containing antecedent and consequent.
	Support float64 `json:"support"`

	// Confidence is P(consequent | antecedent).
	Confidence float64 `json:"confidence"`

	// Lift is confidence divided by the consequent's base rate. Zero when the base rate is zero.
	Lift float64 `json:"lift"`

	// OrderCount is the number of sampled orders containing antecedent and consequent.
	OrderCount int `json:"order_count"`
}

// ConsequentID returns the single consequent item.
func (r *AffinityRule) ConsequentID() string {
	if len(r.Consequent) == 0 {
		return ""
	}
	return r.Consequent[0]
}

// Strength is the ranking key confidence × lift.
func (r *AffinityRule) Strength() float64 {
	return r.Confidence * r.Lift
}

// ItemSet is a frequently co-ordered bundle of 2 or 3 items.
type ItemSet struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
	Count   int      `json:"count"`
}

// Key returns the comma-joined sorted item list.
func (s *ItemSet) Key() string {
	return strings.Join(s.Items, ",")
}

// UserProfile is a customer's preference vector.
type UserProfile struct {
	CustomerID string `json:"customer_id"`

	// Preferences holds raw quantity totals normalized so the largest is 1.
	Preferences map[string]float64 `json:"preferences"`

	// RecencyWeightedPreferences holds decayed totals normalized so the largest is 1.
	RecencyWeightedPreferences map[string]float64 `json:"recency_weighted_preferences"`

	LastBuilt  time.Time `json:"last_built"`
	OrderCount int       `json:"order_count"`
}

// IsEmpty reports whether the profile carries no preferences.
func (p *UserProfile) IsEmpty() bool {
	return p == nil || len(p.RecencyWeightedPreferences) == 0
}

// TopItems returns up to n item IDs ordered by decayed preference, highest first.
// Ties are broken by item ID. n <= 0 returns all items.
func (p *UserProfile) TopItems(n int) []string {
	if p == nil {
		return nil
	}
	items := make([]string, 0, len(p.RecencyWeightedPreferences))
	for id := range p.RecencyWeightedPreferences {
		items = append(items, id)
	}
	sort.Slice(items, func(i, j int) bool {
		wi, wj := p.RecencyWeightedPreferences[items[i]], p.RecencyWeightedPreferences[items[j]]
		if wi != wj {
			return wi > wj
		}
		return items[i] < items[j]
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

func newEmptyProfile(customerID string, now time.Time) *UserProfile {
	return &UserProfile{
		CustomerID:                 customerID,
		Preferences:                map[string]float64{},
		RecencyWeightedPreferences: map[string]float64{},
		LastBuilt:                  now,
	}
}

// AffinityScore is a scored suggestion with the rules that produced it.
type AffinityScore struct {
	ItemID            string         `json:"item_id"`
	Score             float64        `json:"score"`
	ContributingRules []AffinityRule `json:"contributing_rules,omitempty"`
}

// SimilarUser is another customer ranked by purchase overlap with the target.
type SimilarUser struct {
	CustomerID string  `json:"customer_id"`
	Similarity float64 `json:"similarity"`
	Overlap    int     `json:"overlap"`
}

// ScoredItem is an item with a score in [0, 1].
type ScoredItem struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// Metrics contains engine counters.
type Metrics struct {
	// RequestCount is the number of public engine calls.
	RequestCount int64 `json:"request_count"`

	RuleCacheHits         int64 `json:"rule_cache_hits"`
	RuleCacheMisses       int64 `json:"rule_cache_misses"`
	ProfileCacheHits      int64 `json:"profile_cache_hits"`
	ProfileCacheMisses    int64 `json:"profile_cache_misses"`
	SimilarityCacheHits   int64 `json:"similarity_cache_hits"`
	SimilarityCacheMisses int64 `json:"similarity_cache_misses"`

	// FallbackCount is the number of times an order-store failure was absorbed.
	FallbackCount int64 `json:"fallback_count"`

	// Cache sizes at the time of the snapshot.
	CachedRuleSets   int `json:"cached_rule_sets"`
	CachedProfiles   int `json:"cached_profiles"`
	CachedSimilarity int `json:"cached_similarity"`
}
