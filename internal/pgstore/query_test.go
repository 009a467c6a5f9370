// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package pgstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/recommend"
)

func TestBuildFindOrdersQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    recommend.OrderQuery
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "unfiltered",
			query:   recommend.OrderQuery{},
			wantSQL: "SELECT o.id, o.customer_id, o.status, o.created_at FROM orders o ORDER BY o.created_at DESC, o.id",
		},
		{
			name:     "status and limit",
			query:    recommend.OrderQuery{StatusNotIn: recommend.ExcludedStatuses, Limit: 100},
			wantSQL:  "SELECT o.id, o.customer_id, o.status, o.created_at FROM orders o WHERE o.status <> ALL($1) ORDER BY o.created_at DESC, o.id LIMIT $2",
			wantArgs: []any{[]string{"cancelled", "refunded"}, 100},
		},
		{
			name:  "customer and items",
			query: recommend.OrderQuery{CustomerID: "c1", ItemIDIn: []string{"biryani", "raita"}},
			wantSQL: "SELECT o.id, o.customer_id, o.status, o.created_at FROM orders o WHERE o.customer_id = $1 AND " +
				"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.item_id = ANY($2)) ORDER BY o.created_at DESC, o.id",
			wantArgs: []any{"c1", []string{"biryani", "raita"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs := buildFindOrdersQuery(tt.query)
			if gotSQL != tt.wantSQL {
				t.Errorf("sql =\n%s\nwant\n%s", gotSQL, tt.wantSQL)
			}
			if len(gotArgs) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", gotArgs, tt.wantArgs)
			}
			for i := range gotArgs {
				if !reflect.DeepEqual(gotArgs[i], tt.wantArgs[i]) {
					t.Errorf("args[%d] = %#v, want %#v", i, gotArgs[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestNew_RequiresDSN(t *testing.T) {
	_, err := New(context.Background(), &config.PostgresConfig{}, zerolog.Nop())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New() error = %v, want ErrNotConfigured", err)
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(context.Background(), &config.PostgresConfig{DSN: "postgres://%zz"}, zerolog.Nop())
	if err == nil {
		t.Error("New() should reject a malformed DSN")
	}
}
