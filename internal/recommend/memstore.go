// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory DataProvider. It backs tests and small
// embedded deployments. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    []Order
	available map[string]bool
	err       error

	findCalls int
}

// NewMemoryStore creates a store holding orders.
func NewMemoryStore(orders ...Order) *MemoryStore {
	s := &MemoryStore{available: make(map[string]bool)}
	s.AddOrders(orders...)
	return s
}

// AddOrders appends orders. Every item they mention becomes available unless
// its availability was set explicitly.
func (s *MemoryStore) AddOrders(orders ...Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range orders {
		s.orders = append(s.orders, orders[i])
		for _, li := range orders[i].Items {
			if _, known := s.available[li.ItemID]; !known {
				s.available[li.ItemID] = true
			}
		}
	}
}

// SetAvailable marks an item as orderable or not.
func (s *MemoryStore) SetAvailable(itemID string, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available[itemID] = available
}

// FindCalls returns how many times FindOrders was called.
func (s *MemoryStore) FindCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findCalls
}

// FindOrders implements OrderHistory.
func (s *MemoryStore) FindOrders(ctx context.Context, q OrderQuery) ([]Order, error) {
	s.mu.Lock()
	s.findCalls++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	excluded := make(map[OrderStatus]struct{}, len(q.StatusNotIn))
	for _, st := range q.StatusNotIn {
		excluded[st] = struct{}{}
	}
	wanted := toSet(q.ItemIDIn)

	out := make([]Order, 0)
	for i := range s.orders {
		o := s.orders[i]
		if _, skip := excluded[o.Status]; skip {
			continue
		}
		if q.CustomerID != "" && o.CustomerID != q.CustomerID {
			continue
		}
		if len(wanted) > 0 && !containsAny(o.Items, wanted) {
			continue
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ListAvailableItemIDs implements Catalog.
func (s *MemoryStore) ListAvailableItemIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	ids := make([]string, 0, len(s.available))
	for id, ok := range s.available {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SetErr sets the error returned by every read.
func (s *MemoryStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func containsAny(items []LineItem, wanted map[string]struct{}) bool {
	for _, li := range items {
		if _, ok := wanted[li.ItemID]; ok {
			return true
		}
	}
	return false
}
