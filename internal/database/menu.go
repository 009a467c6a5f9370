// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/validation"
)

// MenuItem is a catalog entry.
type MenuItem struct {
	ID        string `json:"id" validate:"required,itemid"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Available bool   `json:"available"`
}

// UpsertMenuItem inserts or replaces a catalog entry.
func (db *DB) UpsertMenuItem(ctx context.Context, item *MenuItem) error {
	if verr := validation.ValidateStruct(item); verr != nil {
		return fmt.Errorf("upsert menu item: %w", verr)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, category, available, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			available = EXCLUDED.available,
			updated_at = EXCLUDED.updated_at`,
		item.ID, item.Name, item.Category, item.Available)
	metrics.RecordStoreQuery(backend, "upsert_menu_item", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert menu item %s: %w", item.ID, err)
	}
	return nil
}

// SetItemAvailability marks a catalog entry as orderable or not.
func (db *DB) SetItemAvailability(ctx context.Context, itemID string, available bool) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		"UPDATE menu_items SET available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		available, itemID)
	metrics.RecordStoreQuery(backend, "set_item_availability", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set availability of %s: %w", itemID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set availability of %s: %w", itemID, ErrItemNotFound)
	}
	return nil
}

// ListAvailableItemIDs implements recommend.Catalog.
func (db *DB) ListAvailableItemIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	ids, err := queryAndScan(ctx, db.conn,
		"SELECT id FROM menu_items WHERE available ORDER BY id", nil,
		func(rows *sql.Rows) (string, error) {
			var id string
			err := rows.Scan(&id)
			return id, err
		})
	metrics.RecordStoreQuery(backend, "list_available_items", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list available items: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ListMenuItems returns the whole catalog ordered by ID.
func (db *DB) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	items, err := queryAndScan(ctx, db.conn,
		"SELECT id, name, category, available FROM menu_items ORDER BY id", nil,
		func(rows *sql.Rows) (MenuItem, error) {
			var m MenuItem
			err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Available)
			return m, err
		})
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}
