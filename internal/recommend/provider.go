// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"errors"
)

// ErrNoDataProvider is returned by NewEngine when no provider is supplied.
var ErrNoDataProvider = errors.New("recommend: data provider is required")

// OrderHistory reads historical orders. It is typically implemented by the database layer.
type OrderHistory interface {
	// FindOrders returns orders matching q, newest first.
	FindOrders(ctx context.Context, q OrderQuery) ([]Order, error)
}

// Catalog reads the menu catalog.
type Catalog interface {
	// ListAvailableItemIDs returns the IDs of items that can currently be ordered.
	ListAvailableItemIDs(ctx context.Context) ([]string, error)
}

// DataProvider is everything the engine reads from its environment.
type DataProvider interface {
	OrderHistory
	Catalog
}
