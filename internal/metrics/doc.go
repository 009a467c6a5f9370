// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package metrics provides Prometheus instrumentation.

Package-level vectors are registered with the default registry through
promauto and cover:

  - Order store queries (duration, errors, result sizes) per backend
  - HTTP API requests (count, latency, in-flight, rate-limit rejections)
  - Circuit breaker state, requests and transitions
  - Order events consumed from NATS

EngineCollector exports the counters a recommend.Engine keeps internally
(requests, per-cache hits and misses, fallbacks, cache sizes). It reads a
snapshot at scrape time:

	prometheus.MustRegister(metrics.NewEngineCollector(engine))

All metrics are exposed at /metrics by the api package.
*/
package metrics
