// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/cache"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("order store unreachable")

// newOrder builds a completed order placed age ago with quantity 1 per item.
func newOrder(id, customer string, age time.Duration, items ...string) Order {
	o := Order{
		ID:         id,
		CustomerID: customer,
		CreatedAt:  testNow.Add(-age),
		Status:     StatusCompleted,
	}
	for _, item := range items {
		o.Items = append(o.Items, LineItem{ItemID: item, Quantity: 1})
	}
	return o
}

// biryaniCorpus returns 1000 orders containing biryani: 650 with raita,
// 300 with naan, 5 with coke and 10 with gulab jamun, plus 50 raita-only orders.
func biryaniCorpus() []Order {
	orders := make([]Order, 0, 1050)
	for i := 0; i < 1000; i++ {
		items := []string{"biryani"}
		if i < 650 {
			items = append(items, "raita")
		}
		if i%10 < 3 {
			items = append(items, "naan")
		}
		if i < 5 {
			items = append(items, "coke")
		}
		if i%100 == 99 {
			items = append(items, "gulab_jamun")
		}
		orders = append(orders, newOrder(fmt.Sprintf("o-%04d", i), fmt.Sprintf("c-%03d", i%200), time.Duration(i)*time.Hour, items...))
	}
	for i := 0; i < 50; i++ {
		orders = append(orders, newOrder(fmt.Sprintf("r-%04d", i), fmt.Sprintf("c-%03d", i), time.Duration(i)*time.Hour, "raita"))
	}
	return orders
}

func newTestEngine(t *testing.T, store DataProvider, mutate func(*Config)) (*Engine, *cache.ManualClock) {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	clock := cache.NewManualClock(testNow)
	e, err := NewEngine(store, cfg, zerolog.New(io.Discard), WithClock(clock))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e, clock
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func findRule(rules []AffinityRule, consequent string) (AffinityRule, bool) {
	for _, r := range rules {
		if r.ConsequentID() == consequent {
			return r, true
		}
	}
	return AffinityRule{}, false
}

// failingCatalog serves orders but cannot list the catalog.
type failingCatalog struct {
	*MemoryStore
}

func (failingCatalog) ListAvailableItemIDs(context.Context) ([]string, error) {
	return nil, errStoreDown
}
