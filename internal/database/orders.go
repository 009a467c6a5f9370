// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/validation"
)

// FindOrders implements recommend.OrderHistory. Orders are returned newest
// first with their line items.
func (db *DB) FindOrders(ctx context.Context, q recommend.OrderQuery) ([]recommend.Order, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	orders, err := db.findOrders(ctx, q)
	metrics.RecordStoreQuery(backend, "find_orders", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	metrics.RecordOrdersReturned(backend, len(orders))
	return orders, nil
}

func (db *DB) findOrders(ctx context.Context, q recommend.OrderQuery) ([]recommend.Order, error) {
	query, args := buildFindOrdersQuery(q)
	orders, err := queryAndScan(ctx, db.conn, query, args, func(rows *sql.Rows) (recommend.Order, error) {
		var o recommend.Order
		var status string
		if err := rows.Scan(&o.ID, &o.CustomerID, &status, &o.CreatedAt); err != nil {
			return o, err
		}
		o.Status = recommend.OrderStatus(status)
		o.CreatedAt = o.CreatedAt.UTC()
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []recommend.Order{}, nil
	}

	if err := db.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the line items of orders in one query.
func (db *DB) attachItems(ctx context.Context, orders []recommend.Order) error {
	index := make(map[string]int, len(orders))
	args := make([]interface{}, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		args[i] = orders[i].ID
	}

	query := fmt.Sprintf(
		"SELECT order_id, item_id, quantity FROM order_items WHERE order_id IN (%s) ORDER BY order_id, item_id",
		placeholders(len(orders)))

	type row struct {
		orderID string
		item    recommend.LineItem
	}
	rows, err := queryAndScan(ctx, db.conn, query, args, func(rows *sql.Rows) (row, error) {
		var r row
		err := rows.Scan(&r.orderID, &r.item.ItemID, &r.item.Quantity)
		return r, err
	})
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}

	for _, r := range rows {
		if i, ok := index[r.orderID]; ok {
			orders[i].Items = append(orders[i].Items, r.item)
		}
	}
	return nil
}

// InsertOrder stores an order and its items in one transaction. Replaying an
// order with a known ID replaces its status and items. Every ordered item is
// added to the menu as available if it is not listed yet.
func (db *DB) InsertOrder(ctx context.Context, order *recommend.Order) error {
	if order == nil {
		return errors.New("insert order: nil order")
	}
	if verr := validation.ValidateStruct(order); verr != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, verr)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.insertOrder(ctx, order)
	metrics.RecordStoreQuery(backend, "insert_order", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (db *DB) insertOrder(ctx context.Context, order *recommend.Order) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	createdAt := order.CreatedAt.UTC()
	if order.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, status, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		order.ID, order.CustomerID, string(order.Status), createdAt); err != nil {
		rollbackQuietly(tx)
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", order.ID); err != nil {
		rollbackQuietly(tx)
		return err
	}

	for itemID, qty := range aggregateQuantities(order.Items) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, item_id, quantity) VALUES (?, ?, ?)",
			order.ID, itemID, qty); err != nil {
			rollbackQuietly(tx)
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO menu_items (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING",
			itemID, itemID); err != nil {
			rollbackQuietly(tx)
			return err
		}
	}

	return tx.Commit()
}

// SetOrderStatus changes the status of a stored order.
func (db *DB) SetOrderStatus(ctx context.Context, orderID string, status recommend.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set order status: unknown status %q", status)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id = ?", string(status), orderID)
	metrics.RecordStoreQuery(backend, "set_order_status", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set order status %s: %w", orderID, ErrOrderNotFound)
	}
	return nil
}

// CountOrders returns the number of stored orders, optionally excluding statuses.
func (db *DB) CountOrders(ctx context.Context, excluded ...recommend.OrderStatus) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args := newQueryBuilder("SELECT COUNT(*) FROM orders o WHERE 1=1").
		addStatusNotInFilter(excluded).
		build("", 0)

	var count int64
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count)
	metrics.RecordStoreQuery(backend, "count_orders", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// aggregateQuantities merges repeated line items of the same item.
func aggregateQuantities(items []recommend.LineItem) map[string]int {
	out := make(map[string]int, len(items))
	for _, li := range items {
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		out[li.ItemID] += qty
	}
	return out
}
