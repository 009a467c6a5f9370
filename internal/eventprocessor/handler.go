// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/recommend"
)

// Invalidator drops cached state made stale by an order.
// Satisfied by *recommend.Engine.
type Invalidator interface {
	InvalidateOrder(order *recommend.Order)
}

// OrderWriter persists orders. Satisfied by *database.DB and *pgstore.Store.
type OrderWriter interface {
	InsertOrder(ctx context.Context, order *recommend.Order) error
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Persist writes each event's order to the store before invalidating.
	Persist bool

	// MaxEventsPerSecond throttles handling. Zero disables throttling.
	MaxEventsPerSecond float64
}

// HandlerStats counts handled events.
type HandlerStats struct {
	Processed int64 `json:"processed"`
	Invalid   int64 `json:"invalid"`
	Failed    int64 `json:"failed"`
}

// Handler applies order events to the store and the engine caches.
type Handler struct {
	engine  Invalidator
	store   OrderWriter
	persist bool
	limiter *rate.Limiter
	logger  zerolog.Logger

	processed atomic.Int64
	invalid   atomic.Int64
	failed    atomic.Int64
}

// NewHandler creates a handler. store may be nil when cfg.Persist is false.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine Invalidator, store OrderWriter, cfg HandlerConfig, logger zerolog.Logger) (*Handler, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidConfig)
	}
	if cfg.Persist && store == nil {
		return nil, fmt.Errorf("%w: persisting orders requires a store", ErrInvalidConfig)
	}
	if cfg.MaxEventsPerSecond < 0 || math.IsNaN(cfg.MaxEventsPerSecond) {
		return nil, fmt.Errorf("%w: max events per second must be non-negative", ErrInvalidConfig)
	}

	h := &Handler{
		engine:  engine,
		store:   store,
		persist: cfg.Persist,
		logger:  logger.With().Str("component", "order-events").Logger(),
	}
	if cfg.MaxEventsPerSecond > 0 {
		burst := int(math.Ceil(cfg.MaxEventsPerSecond))
		h.limiter = rate.NewLimiter(rate.Limit(cfg.MaxEventsPerSecond), burst)
	}
	return h, nil
}

// Handle decodes and applies one message payload.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	event, err := DeserializeEvent(payload)
	if err != nil {
		h.invalid.Add(1)
		metrics.RecordOrderEventFailure("parse")
		h.logger.Warn().Err(err).Int("bytes", len(payload)).Msg("dropping malformed order event")
		return err
	}
	return h.HandleEvent(ctx, event)
}

// HandleEvent validates and applies one event. Errors wrapping
// ErrInvalidEvent are permanent.
func (h *Handler) HandleEvent(ctx context.Context, event *OrderEvent) error {
	start := time.Now()

	if err := event.Validate(); err != nil {
		h.invalid.Add(1)
		metrics.RecordOrderEventFailure("validation")
		h.logger.Warn().Err(err).Str("event_id", event.EventID).Msg("dropping invalid order event")
		return err
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle: %w", err)
		}
	}

	order := event.Order
	if h.persist {
		if err := h.store.InsertOrder(ctx, &order); err != nil {
			h.failed.Add(1)
			metrics.RecordOrderEventFailure("persist")
			return fmt.Errorf("persist order %s: %w", order.ID, err)
		}
	}

	h.engine.InvalidateOrder(&order)
	h.processed.Add(1)
	metrics.RecordOrderEvent(string(event.Type), time.Since(start))

	h.logger.Debug().
		Str("event_id", event.EventID).
		Str("type", string(event.Type)).
		Str("order_id", order.ID).
		Int("items", len(order.Items)).
		Msg("order event applied")
	return nil
}

// MessageHandler adapts Handle to a Watermill consumer handler. Permanent
// failures are acked so that they are not redelivered.
func (h *Handler) MessageHandler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		err := h.Handle(msg.Context(), msg.Payload)
		if err != nil && IsPermanent(err) {
			return nil
		}
		return err
	}
}

// Stats returns a snapshot of the handler counters.
func (h *Handler) Stats() HandlerStats {
	return HandlerStats{
		Processed: h.processed.Load(),
		Invalid:   h.invalid.Load(),
		Failed:    h.failed.Load(),
	}
}

// IsPermanent reports whether err can never succeed on redelivery.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidEvent)
}
