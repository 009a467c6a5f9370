// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"fmt"
	"time"
)

// EventConsumer is the order-event pipeline lifecycle.
// Satisfied by *eventprocessor.Components.
type EventConsumer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// OrderEventsService supervises the order-event consumer.
type OrderEventsService struct {
	consumer        EventConsumer
	shutdownTimeout time.Duration
	name            string
}

// NewOrderEventsService wraps consumer. A non-positive timeout uses 10s.
func NewOrderEventsService(consumer EventConsumer, shutdownTimeout time.Duration) *OrderEventsService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &OrderEventsService{
		consumer:        consumer,
		shutdownTimeout: shutdownTimeout,
		name:            "order-events",
	}
}

// Serve implements suture.Service. A failed Start is returned so the
// supervisor restarts the service with backoff.
func (s *OrderEventsService) Serve(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("order event consumer start failed: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.consumer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("order event consumer shutdown failed: %w", err)
	}
	return ctx.Err()
}

// String returns the service name for logging.
func (s *OrderEventsService) String() string {
	return s.name
}
