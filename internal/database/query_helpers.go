// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tomtom215/affinity/internal/recommend"
)

// queryBuilder helps construct SQL queries with filters
type queryBuilder struct {
	baseQuery string
	args      []interface{}
	filters   []string
}

// newQueryBuilder creates a query builder. baseQuery must end in a WHERE
// clause so filters can be appended with AND.
func newQueryBuilder(baseQuery string) *queryBuilder {
	return &queryBuilder{
		baseQuery: baseQuery,
		args:      make([]interface{}, 0, 8),
		filters:   make([]string, 0, 4),
	}
}

// addStatusNotInFilter excludes the given statuses.
func (qb *queryBuilder) addStatusNotInFilter(statuses []recommend.OrderStatus) *queryBuilder {
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			qb.args = append(qb.args, string(s))
		}
		qb.filters = append(qb.filters, fmt.Sprintf("o.status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	return qb
}

// addItemsFilter keeps orders containing at least one of the items.
func (qb *queryBuilder) addItemsFilter(itemIDs []string) *queryBuilder {
	if len(itemIDs) > 0 {
		placeholders := make([]string, len(itemIDs))
		for i, id := range itemIDs {
			placeholders[i] = "?"
			qb.args = append(qb.args, id)
		}
		qb.filters = append(qb.filters, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.item_id IN (%s))",
			strings.Join(placeholders, ",")))
	}
	return qb
}

// addCustomerFilter restricts results to one customer.
func (qb *queryBuilder) addCustomerFilter(customerID string) *queryBuilder {
	if customerID != "" {
		qb.addFilter("o.customer_id = ?", customerID)
	}
	return qb
}

// addFilter adds a custom filter condition
func (qb *queryBuilder) addFilter(condition string, args ...interface{}) {
	qb.filters = append(qb.filters, condition)
	qb.args = append(qb.args, args...)
}

// build constructs the final query. A positive limit appends a LIMIT clause.
func (qb *queryBuilder) build(orderBy string, limit int) (string, []interface{}) {
	query := qb.baseQuery
	if len(qb.filters) > 0 {
		query += " AND " + strings.Join(qb.filters, " AND ")
	}
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	args := qb.args
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return query, args
}

// buildFindOrdersQuery translates an OrderQuery to SQL over the orders table.
func buildFindOrdersQuery(q recommend.OrderQuery) (string, []interface{}) {
	return newQueryBuilder("SELECT o.id, o.customer_id, o.status, o.created_at FROM orders o WHERE 1=1").
		addStatusNotInFilter(q.StatusNotIn).
		addCustomerFilter(q.CustomerID).
		addItemsFilter(q.ItemIDIn).
		build("o.created_at DESC, o.id", q.Limit)
}

// scanFunc is a function that scans a single row into a result type
type scanFunc[T any] func(*sql.Rows) (T, error)

// queryAndScan executes a query and scans all rows using the provided scan function
func queryAndScan[T any](ctx context.Context, db *sql.DB, query string, args []interface{}, scan scanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "rows")

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
