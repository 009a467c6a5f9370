// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/recommend"
)

var errStoreDown = errors.New("order store unreachable")

// testOrders returns 100 biryani orders, 65 of them with raita and 20 with
// naan, plus a second customer's dosa history.
func testOrders() []recommend.Order {
	now := time.Now().UTC()
	orders := make([]recommend.Order, 0, 110)
	for i := 0; i < 100; i++ {
		items := []recommend.LineItem{{ItemID: "biryani", Quantity: 1}}
		if i < 65 {
			items = append(items, recommend.LineItem{ItemID: "raita", Quantity: 1})
		}
		if i%5 == 0 {
			items = append(items, recommend.LineItem{ItemID: "naan", Quantity: 2})
		}
		orders = append(orders, recommend.Order{
			ID:         fmt.Sprintf("o-%03d", i),
			CustomerID: fmt.Sprintf("c-%02d", i%10),
			CreatedAt:  now.Add(-time.Duration(i) * time.Hour),
			Status:     recommend.StatusCompleted,
			Items:      items,
		})
	}
	for i := 0; i < 10; i++ {
		orders = append(orders, recommend.Order{
			ID:         fmt.Sprintf("d-%03d", i),
			CustomerID: "dosa-fan",
			CreatedAt:  now.Add(-time.Duration(i) * 24 * time.Hour),
			Status:     recommend.StatusCompleted,
			Items:      []recommend.LineItem{{ItemID: "dosa", Quantity: 1}},
		})
	}
	return orders
}

// memoryWriter stores orders in a MemoryStore.
type memoryWriter struct {
	store *recommend.MemoryStore
	err   error
}

func (w *memoryWriter) InsertOrder(_ context.Context, order *recommend.Order) error {
	if w.err != nil {
		return w.err
	}
	w.store.AddOrders(*order)
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubBreaker struct{ healthy bool }

func (b stubBreaker) Healthy() bool { return b.healthy }

type testServer struct {
	store   *recommend.MemoryStore
	engine  *recommend.Engine
	handler *Handler
	mux     http.Handler
}

// newTestServer builds a router over an in-memory store with rate limiting off.
func newTestServer(t *testing.T, deps Dependencies) *testServer {
	t.Helper()

	store := recommend.NewMemoryStore(testOrders()...)
	engine, err := recommend.NewEngine(store, nil, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	deps.Engine = engine
	if deps.Store == nil {
		deps.Store = stubPinger{}
	}
	h := NewHandler(deps)
	router := NewRouter(h, &config.ServerConfig{RateLimitDisabled: true})

	return &testServer{store: store, engine: engine, handler: h, mux: router.Setup()}
}

// do performs a request and decodes the envelope.
func (s *testServer) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, resp
}

// decodeData re-decodes the envelope's data field into v.
func decodeData(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}
