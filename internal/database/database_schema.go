// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"fmt"
)

// order_items has no primary key: DuckDB rejects deleting and re-inserting
// the same key inside one transaction, which InsertOrder does on replay.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS menu_items (
		id         VARCHAR PRIMARY KEY,
		name       VARCHAR NOT NULL DEFAULT '',
		category   VARCHAR NOT NULL DEFAULT '',
		available  BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          VARCHAR PRIMARY KEY,
		customer_id VARCHAR NOT NULL DEFAULT '',
		status      VARCHAR NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id VARCHAR NOT NULL,
		item_id  VARCHAR NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1
	)`,
}

var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)",
	"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_order_items_item ON order_items(item_id)",
	"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
}

// CreateSchema creates the tables and, unless SkipIndexes is set, their indexes.
// It is idempotent.
func (db *DB) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if db.cfg.SkipIndexes {
		return nil
	}
	for _, stmt := range indexStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
