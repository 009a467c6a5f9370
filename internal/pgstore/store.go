// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/recommend"
)

const backend = "postgres"

// ErrNotConfigured is returned by New when no DSN is set.
var ErrNotConfigured = errors.New("pgstore: postgres.dsn is empty")

// Store is a PostgreSQL-backed recommend.DataProvider.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	logger       zerolog.Logger
}

var _ recommend.DataProvider = (*Store)(nil)

// New opens a connection pool, verifies it and creates the schema.
func New(ctx context.Context, cfg *config.PostgresConfig, logger zerolog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, ErrNotConfigured
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s := &Store{
		pool:         pool,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger.With().Str("component", "pgstore").Logger(),
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = 30 * time.Second
	}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(errors.New("postgres connection failed"), err)
	}
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("PostgreSQL order store opened")
	return s, nil
}

// Ping verifies the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS menu_items (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		category   TEXT NOT NULL DEFAULT '',
		available  BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		item_id  TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (order_id, item_id)
	)`,
	"CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)",
	"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_order_items_item ON order_items(item_id)",
}

// CreateSchema creates the tables and indexes if they do not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// FindOrders implements recommend.OrderHistory.
func (s *Store) FindOrders(ctx context.Context, q recommend.OrderQuery) ([]recommend.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	orders, err := s.findOrders(ctx, q)
	metrics.RecordStoreQuery(backend, "find_orders", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	metrics.RecordOrdersReturned(backend, len(orders))
	return orders, nil
}

func (s *Store) findOrders(ctx context.Context, q recommend.OrderQuery) ([]recommend.Order, error) {
	query, args := buildFindOrdersQuery(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (recommend.Order, error) {
		var o recommend.Order
		var status string
		err := row.Scan(&o.ID, &o.CustomerID, &status, &o.CreatedAt)
		o.Status = recommend.OrderStatus(status)
		o.CreatedAt = o.CreatedAt.UTC()
		return o, err
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []recommend.Order{}, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
	}

	rows, err = s.pool.Query(ctx, itemsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var li recommend.LineItem
		if err := rows.Scan(&orderID, &li.ItemID, &li.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, li)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return orders, nil
}

// ListAvailableItemIDs implements recommend.Catalog.
func (s *Store) ListAvailableItemIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.pool.Query(ctx, "SELECT id FROM menu_items WHERE available ORDER BY id")
	var ids []string
	if err == nil {
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
	}
	metrics.RecordStoreQuery(backend, "list_available_items", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list available items: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// InsertOrder upserts an order and replaces its items in one transaction.
func (s *Store) InsertOrder(ctx context.Context, order *recommend.Order) error {
	if order == nil || order.ID == "" || len(order.Items) == 0 {
		return errors.New("insert order: order needs an id and at least one item")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		createdAt := order.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, status, created_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
			order.ID, order.CustomerID, string(order.Status), createdAt.UTC()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM order_items WHERE order_id = $1", order.ID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, li := range order.Items {
			qty := li.Quantity
			if qty < 1 {
				qty = 1
			}
			batch.Queue(`INSERT INTO order_items (order_id, item_id, quantity) VALUES ($1, $2, $3)
				ON CONFLICT (order_id, item_id) DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity`,
				order.ID, li.ItemID, qty)
			batch.Queue("INSERT INTO menu_items (id, name) VALUES ($1, $1) ON CONFLICT (id) DO NOTHING", li.ItemID)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	metrics.RecordStoreQuery(backend, "insert_order", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}
