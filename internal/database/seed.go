// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/recommend"
)

// demoMenu is the catalog loaded by SeedDemoData.
var demoMenu = []MenuItem{
	{ID: "biryani", Name: "Chicken Biryani", Category: "mains", Available: true},
	{ID: "butter_chicken", Name: "Butter Chicken", Category: "mains", Available: true},
	{ID: "paneer_tikka", Name: "Paneer Tikka", Category: "starters", Available: true},
	{ID: "samosa", Name: "Samosa", Category: "starters", Available: true},
	{ID: "raita", Name: "Cucumber Raita", Category: "sides", Available: true},
	{ID: "naan", Name: "Garlic Naan", Category: "breads", Available: true},
	{ID: "rice", Name: "Jeera Rice", Category: "sides", Available: true},
	{ID: "dal", Name: "Dal Makhani", Category: "mains", Available: true},
	{ID: "lassi", Name: "Mango Lassi", Category: "drinks", Available: true},
	{ID: "coke", Name: "Coke", Category: "drinks", Available: true},
	{ID: "gulab_jamun", Name: "Gulab Jamun", Category: "desserts", Available: true},
	{ID: "kulfi", Name: "Pista Kulfi", Category: "desserts", Available: false},
}

// DemoOrderCount is the number of orders SeedDemoData writes.
const DemoOrderCount = 400

// SeedDemoData fills an empty store with a deterministic demo history.
// Biryani orders usually carry raita, butter chicken pairs with naan, and
// about one order in twenty is cancelled or refunded. It returns the number
// of orders written, which is zero when the store already holds orders.
func (db *DB) SeedDemoData(ctx context.Context, now time.Time) (int, error) {
	existing, err := db.CountOrders(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		logging.Info().Int64("orders", existing).Msg("Order store not empty, skipping demo data")
		return 0, nil
	}

	for i := range demoMenu {
		if err := db.UpsertMenuItem(ctx, &demoMenu[i]); err != nil {
			return 0, err
		}
	}

	orders := GenerateDemoOrders(DemoOrderCount, now)
	for i := range orders {
		if err := db.InsertOrder(ctx, &orders[i]); err != nil {
			return i, err
		}
	}

	logging.Info().Int("orders", len(orders)).Int("menu_items", len(demoMenu)).Msg("Seeded demo data")
	return len(orders), nil
}

// GenerateDemoOrders builds n orders spread over the 90 days before now.
// The output depends only on n and now.
func GenerateDemoOrders(n int, now time.Time) []recommend.Order {
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic demo data, not security sensitive

	orders := make([]recommend.Order, 0, n)
	for i := 0; i < n; i++ {
		var items []string
		switch r := rng.Float64(); {
		case r < 0.40:
			items = append(items, "biryani")
			if rng.Float64() < 0.65 {
				items = append(items, "raita")
			}
			if rng.Float64() < 0.20 {
				items = append(items, "lassi")
			}
		case r < 0.70:
			items = append(items, "butter_chicken")
			if rng.Float64() < 0.70 {
				items = append(items, "naan")
			}
			if rng.Float64() < 0.40 {
				items = append(items, "rice")
			}
		case r < 0.85:
			items = append(items, "dal", "rice")
			if rng.Float64() < 0.50 {
				items = append(items, "naan")
			}
		default:
			items = append(items, "paneer_tikka")
			if rng.Float64() < 0.50 {
				items = append(items, "samosa")
			}
		}
		if rng.Float64() < 0.10 {
			items = append(items, "gulab_jamun")
		}
		if rng.Float64() < 0.05 {
			items = append(items, "coke")
		}

		status := recommend.StatusCompleted
		switch r := rng.Float64(); {
		case r < 0.03:
			status = recommend.StatusCancelled
		case r < 0.05:
			status = recommend.StatusRefunded
		}

		order := recommend.Order{
			ID:         fmt.Sprintf("demo-%04d", i),
			CustomerID: fmt.Sprintf("cust-%03d", rng.Intn(60)),
			CreatedAt:  now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour).UTC().Truncate(time.Second),
			Status:     status,
		}
		for _, id := range items {
			order.Items = append(order.Items, recommend.LineItem{ItemID: id, Quantity: 1 + rng.Intn(2)})
		}
		orders = append(orders, order)
	}
	return orders
}
