// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of the readiness probe.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	StoreConnected bool    `json:"store_connected"`
	BreakersClosed bool    `json:"breakers_closed"`
	Uptime         float64 `json:"uptime"`
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: newMetadata(r, time.Time{}),
	})
}

// HealthReady handles readiness probe requests.
// Returns 503 when the order store cannot be reached. An open breaker is
// reported but does not fail readiness, since scoring degrades to neutral.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeConnected := h.store != nil && h.store.Ping(ctx) == nil
	breakersClosed := h.breaker == nil || h.breaker.Healthy()

	statusCode := http.StatusOK
	status := "ready"
	if !storeConnected {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &APIResponse{
		Status: status,
		Data: HealthStatus{
			Status:         status,
			Version:        h.version,
			StoreConnected: storeConnected,
			BreakersClosed: breakersClosed,
			Uptime:         time.Since(h.startTime).Seconds(),
		},
		Metadata: newMetadata(r, time.Time{}),
	})
}
