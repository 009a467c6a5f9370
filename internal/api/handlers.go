// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"time"

	"github.com/tomtom215/affinity/internal/recommend"
)

// requestTimeout bounds engine work per request.
const requestTimeout = 10 * time.Second

// Pinger reports store connectivity for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OrderWriter persists orders submitted through the API.
type OrderWriter interface {
	InsertOrder(ctx context.Context, order *recommend.Order) error
}

// HealthReporter reports whether the store circuit breakers are closed.
type HealthReporter interface {
	Healthy() bool
}

// Dependencies groups everything the handlers need. Only Engine is required.
type Dependencies struct {
	Engine  *recommend.Engine
	Store   Pinger
	Orders  OrderWriter
	Breaker HealthReporter
	Version string
}

// Handler serves the HTTP API.
type Handler struct {
	engine    *recommend.Engine
	store     Pinger
	orders    OrderWriter
	breaker   HealthReporter
	version   string
	startTime time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		engine:    deps.Engine,
		store:     deps.Store,
		orders:    deps.Orders,
		breaker:   deps.Breaker,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
