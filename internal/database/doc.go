// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package database provides the embedded DuckDB order store.

DB implements recommend.DataProvider: FindOrders reads historical orders and
ListAvailableItemIDs reads the menu catalog. Writes go through InsertOrder,
SetOrderStatus, UpsertMenuItem and SetItemAvailability, which the order
event consumer and the affinityctl seed command use.

# Schema

	menu_items(id, name, category, available, updated_at)
	orders(id, customer_id, status, created_at)
	order_items(order_id, item_id, quantity)

Timestamps are stored as UTC TIMESTAMP values so no ICU extension is needed.

# Queries

FindOrders runs two statements: one over orders that applies the status,
customer and item filters plus ordering and limit, and one that loads the
line items of the returned orders. The item filter is an EXISTS subquery, so
an order matches when it contains any of the requested items.

All statements use ? placeholders and honor the configured query timeout
when the caller's context has no deadline.

# Thread Safety

DB is safe for concurrent use. DuckDB serializes writers internally.
*/
package database
