// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/recommend"
)

var errWriteFailed = errors.New("write failed")

type recordingInvalidator struct {
	mu     sync.Mutex
	orders []recommend.Order
}

func (r *recordingInvalidator) InvalidateOrder(order *recommend.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *order)
}

func (r *recordingInvalidator) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.orders))
	for i := range r.orders {
		ids[i] = r.orders[i].ID
	}
	return ids
}

type memoryWriter struct {
	mu     sync.Mutex
	err    error
	orders map[string]recommend.Order
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{orders: make(map[string]recommend.Order)}
}

func (w *memoryWriter) InsertOrder(_ context.Context, order *recommend.Order) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.orders[order.ID] = *order
	return nil
}

func (w *memoryWriter) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

func (w *memoryWriter) get(id string) (recommend.Order, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.orders[id]
	return o, ok
}

func testOrder(id string, items ...string) recommend.Order {
	order := recommend.Order{
		ID:         id,
		CustomerID: "c-1",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, item := range items {
		order.Items = append(order.Items, recommend.LineItem{ItemID: item, Quantity: 1})
	}
	return order
}

func mustEvent(t *testing.T, eventType EventType, order recommend.Order) *OrderEvent {
	t.Helper()
	event, err := NewOrderEvent(eventType, order)
	if err != nil {
		t.Fatalf("NewOrderEvent() error = %v", err)
	}
	return event
}

func newTestHandler(t *testing.T, cfg HandlerConfig) (*Handler, *recordingInvalidator, *memoryWriter) {
	t.Helper()
	inv := &recordingInvalidator{}
	store := newMemoryWriter()
	h, err := NewHandler(inv, store, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return h, inv, store
}

// encodeUnchecked marshals an event without validating it.
func encodeUnchecked(event *OrderEvent) ([]byte, error) {
	return json.Marshal(event)
}
