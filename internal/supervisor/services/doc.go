// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package services adapts Affinity's long-running components to suture's
context-aware Serve pattern.

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Services

HTTPServerService (api-layer):
  - Runs the scoring API's *http.Server
  - Shuts down with a bounded timeout on cancellation

MaintenanceService (store-layer):
  - Sweeps expired profile and similarity cache entries on a ticker
  - Optionally checkpoints the DuckDB WAL on the same ticker

OrderEventsService (events-layer):
  - Starts the NATS order-event consumer and stops it on cancellation
  - A failed Start is returned so that suture restarts it with backoff

Every service implements fmt.Stringer so suture logs a readable name.

# Shutdown

Services receive a cancelled context from the supervisor and must return
promptly. Cleanup that needs time (HTTP drain, consumer close) runs with a
fresh context bounded by the service's shutdown timeout, because the
supervisor's context is already done.
*/
package services
