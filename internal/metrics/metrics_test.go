// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/affinity/internal/recommend"
)

func TestRecordStoreQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantType  string
	}{
		{"success", "find_orders_ok", nil, ""},
		{"timeout", "find_orders_timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", "find_orders_canceled", context.Canceled, "canceled"},
		{"other", "find_orders_other", errors.New("connection refused"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordStoreQuery("duckdb", tt.operation, 5*time.Millisecond, tt.err)

			if tt.wantType == "" {
				for _, et := range []string{"timeout", "canceled", "other"} {
					if got := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("duckdb", tt.operation, et)); got != 0 {
						t.Errorf("error counter %s = %f, want 0", et, got)
					}
				}
				return
			}
			if got := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("duckdb", tt.operation, tt.wantType)); got != 1 {
				t.Errorf("error counter %s = %f, want 1", tt.wantType, got)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test/affinity", "200"))
	RecordAPIRequest("GET", "/test/affinity", "200", 10*time.Millisecond)
	RecordAPIRequest("GET", "/test/affinity", "200", 20*time.Millisecond)

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test/affinity", "200")); got != before+2 {
		t.Errorf("api_requests_total = %f, want %f", got, before+2)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			TrackActiveRequest(true)
			TrackActiveRequest(false)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("api_active_requests = %f, want %f", got, start)
	}
}

func TestRecordOrderEvent(t *testing.T) {
	before := testutil.ToFloat64(OrderEventsConsumed.WithLabelValues("order.completed"))
	RecordOrderEvent("order.completed", time.Millisecond)
	if got := testutil.ToFloat64(OrderEventsConsumed.WithLabelValues("order.completed")); got != before+1 {
		t.Errorf("order_events_consumed_total = %f, want %f", got, before+1)
	}

	failedBefore := testutil.ToFloat64(OrderEventsFailed.WithLabelValues("parse"))
	RecordOrderEventFailure("parse")
	if got := testutil.ToFloat64(OrderEventsFailed.WithLabelValues("parse")); got != failedBefore+1 {
		t.Errorf("order_events_failed_total = %f, want %f", got, failedBefore+1)
	}
}

type fixedSource struct {
	m recommend.Metrics
}

func (f fixedSource) GetMetrics() recommend.Metrics { return f.m }

func TestEngineCollector(t *testing.T) {
	source := fixedSource{m: recommend.Metrics{
		RequestCount:          42,
		RuleCacheHits:         7,
		RuleCacheMisses:       3,
		ProfileCacheHits:      5,
		ProfileCacheMisses:    1,
		SimilarityCacheHits:   9,
		SimilarityCacheMisses: 4,
		FallbackCount:         2,
		CachedRuleSets:        3,
		CachedProfiles:        1,
		CachedSimilarity:      4,
	}}

	collector := NewEngineCollector(source)
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(collector); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// 2 scalar metrics + 3 caches × (hits, misses, entries)
	if n := testutil.CollectAndCount(collector); n != 11 {
		t.Errorf("collected %d metrics, want 11", n)
	}

	expected := `
# HELP recommend_cache_hits_total Total number of engine cache hits
# TYPE recommend_cache_hits_total counter
recommend_cache_hits_total{cache="profiles"} 5
recommend_cache_hits_total{cache="rules"} 7
recommend_cache_hits_total{cache="similarity"} 9
# HELP recommend_fallbacks_total Total number of order store failures absorbed by a neutral fallback
# TYPE recommend_fallbacks_total counter
recommend_fallbacks_total 2
# HELP recommend_requests_total Total number of public recommendation engine calls
# TYPE recommend_requests_total counter
recommend_requests_total 42
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"recommend_cache_hits_total", "recommend_fallbacks_total", "recommend_requests_total")
	if err != nil {
		t.Errorf("unexpected metrics:\n%v", err)
	}
}
