// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/affinity/internal/cache"
)

const day = 24 * time.Hour

// Profiler builds per-customer preference vectors with exponential temporal decay.
// Profiles are cached for ProfileConfig.CacheTTL and rebuilt from scratch on expiry.
type Profiler struct {
	orders OrderHistory
	clock  cache.Clock
	cache  *cache.TTLCache[string, *UserProfile]
	deg    degrader

	mu  sync.RWMutex
	cfg ProfileConfig
}

//nolint:gocritic // degrader is small and passed by value
func newProfiler(orders OrderHistory, cfg ProfileConfig, maxEntries int, clock cache.Clock, deg degrader) *Profiler {
	return &Profiler{
		orders: orders,
		clock:  clock,
		cache: cache.NewTTLCache[string, *UserProfile](cache.Options{
			TTL:      cfg.CacheTTL,
			Capacity: maxEntries,
			Clock:    clock,
		}),
		deg: deg,
		cfg: cfg,
	}
}

// GetUserProfile returns the customer's profile. Unknown customers, an empty
// ID and read failures all yield an empty profile. Failed builds are not cached.
// The returned profile is shared with the cache and must not be modified.
func (p *Profiler) GetUserProfile(ctx context.Context, customerID string) *UserProfile {
	if customerID == "" {
		return newEmptyProfile("", p.clock.Now())
	}

	if profile, ok := p.cache.Get(customerID); ok {
		p.deg.counters.profileHits.Add(1)
		return profile
	}
	p.deg.counters.profileMisses.Add(1)

	cfg := p.config()
	orders, ok := orFallback(ctx, p.deg, "get_user_profile", []Order(nil), func(ctx context.Context) ([]Order, error) {
		return p.orders.FindOrders(ctx, OrderQuery{
			StatusNotIn: ExcludedStatuses,
			CustomerID:  customerID,
			Limit:       cfg.OrderLimit,
		})
	})
	if !ok {
		return newEmptyProfile(customerID, p.clock.Now())
	}

	profile := buildProfile(customerID, orders, cfg.DecayRate, p.clock.Now())
	p.cache.Set(customerID, profile)
	return profile
}

// SetDecayRate replaces λ and drops every cached profile, since decayed
// weights computed under the old rate are stale.
func (p *Profiler) SetDecayRate(rate float64) error {
	if err := validateDecayRate(rate); err != nil {
		return err
	}

	p.mu.Lock()
	p.cfg.DecayRate = rate
	p.mu.Unlock()

	p.cache.Clear()
	return nil
}

// DecayRate returns the current λ.
func (p *Profiler) DecayRate() float64 {
	return p.config().DecayRate
}

// Invalidate drops one customer's cached profile.
func (p *Profiler) Invalidate(customerID string) {
	p.cache.Delete(customerID)
}

// ClearCache drops every cached profile.
func (p *Profiler) ClearCache() {
	p.cache.Clear()
}

func (p *Profiler) config() ProfileConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// buildProfile accumulates quantities per item, raw and decayed by
// exp(-decayRate × daysAgo), then scales each map so its largest entry is 1.
func buildProfile(customerID string, orders []Order, decayRate float64, now time.Time) *UserProfile {
	profile := newEmptyProfile(customerID, now)

	for i := range orders {
		o := &orders[i]
		if o.Status.Excluded() || (o.CustomerID != "" && o.CustomerID != customerID) {
			continue
		}
		profile.OrderCount++

		weight := decayWeight(now.Sub(o.CreatedAt), decayRate)
		for _, li := range o.Items {
			if li.ItemID == "" || li.Quantity <= 0 {
				continue
			}
			q := float64(li.Quantity)
			profile.Preferences[li.ItemID] += q
			profile.RecencyWeightedPreferences[li.ItemID] += q * weight
		}
	}

	normalizeByMax(profile.Preferences)
	normalizeByMax(profile.RecencyWeightedPreferences)
	return profile
}

// decayWeight returns exp(-rate × days). Orders timestamped in the future count as today.
func decayWeight(age time.Duration, rate float64) float64 {
	if age < 0 {
		age = 0
	}
	daysAgo := float64(age) / float64(day)
	return math.Exp(-rate * daysAgo)
}

// normalizeByMax scales m in place so the largest value becomes 1.
// Empty maps and maps whose maximum is not positive are left unchanged.
func normalizeByMax(m map[string]float64) {
	maxVal := 0.0
	for _, v := range m {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		return
	}
	for k, v := range m {
		m[k] = v / maxVal
	}
}
