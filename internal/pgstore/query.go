// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package pgstore

import (
	"fmt"
	"strings"

	"github.com/tomtom215/affinity/internal/recommend"
)

const itemsQuery = `SELECT order_id, item_id, quantity FROM order_items
WHERE order_id = ANY($1) ORDER BY order_id, item_id`

// buildFindOrdersQuery renders q with $n placeholders. Slice filters are
// passed as single array arguments.
func buildFindOrdersQuery(q recommend.OrderQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.StatusNotIn) > 0 {
		statuses := make([]string, len(q.StatusNotIn))
		for i, st := range q.StatusNotIn {
			statuses[i] = string(st)
		}
		where = append(where, "o.status <> ALL("+next(statuses)+")")
	}
	if q.CustomerID != "" {
		where = append(where, "o.customer_id = "+next(q.CustomerID))
	}
	if len(q.ItemIDIn) > 0 {
		where = append(where,
			"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.item_id = ANY("+next(q.ItemIDIn)+"))")
	}

	var b strings.Builder
	b.WriteString("SELECT o.id, o.customer_id, o.status, o.created_at FROM orders o")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY o.created_at DESC, o.id")
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + next(q.Limit))
	}
	return b.String(), args
}
