// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package eventprocessor

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/validation"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = 1

// EventType is the kind of order change an event reports.
type EventType string

// Event types. The subject suffix of each is the part after "order.".
const (
	EventOrderCompleted EventType = "order.completed"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderRefunded  EventType = "order.refunded"
)

// Status returns the order status the event type implies.
func (t EventType) Status() (recommend.OrderStatus, bool) {
	switch t {
	case EventOrderCompleted:
		return recommend.StatusCompleted, true
	case EventOrderCancelled:
		return recommend.StatusCancelled, true
	case EventOrderRefunded:
		return recommend.StatusRefunded, true
	default:
		return "", false
	}
}

// OrderEvent is the message published for every order change.
type OrderEvent struct {
	SchemaVersion int             `json:"schema_version,omitempty"`
	EventID       string          `json:"event_id"`
	Type          EventType       `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Order         recommend.Order `json:"order"`
}

// NewOrderEvent builds an event for order with a fresh ID. The order's
// status is set from the event type.
func NewOrderEvent(eventType EventType, order recommend.Order) (*OrderEvent, error) {
	status, ok := eventType.Status()
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, eventType)
	}
	order.Status = status

	return &OrderEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Type:          eventType,
		OccurredAt:    time.Now().UTC(),
		Order:         order,
	}, nil
}

// Validate checks the event and the order it carries. An empty order status
// is filled from the event type. A status that contradicts the type is an error.
func (e *OrderEvent) Validate() error {
	if e.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than %d", ErrInvalidEvent, e.SchemaVersion, SchemaVersion)
	}
	if e.EventID == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	}
	status, ok := e.Type.Status()
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.Order.Status == "" {
		e.Order.Status = status
	}
	if e.Order.Status != status {
		return fmt.Errorf("%w: order status %q contradicts event type %q", ErrInvalidEvent, e.Order.Status, e.Type)
	}
	if verr := validation.ValidateStruct(&e.Order); verr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, verr)
	}
	return nil
}

// Subject returns the NATS subject for the event under prefix, e.g.
// "orders.completed" for prefix "orders".
func (e *OrderEvent) Subject(prefix string) string {
	return prefix + "." + strings.TrimPrefix(string(e.Type), "order.")
}
