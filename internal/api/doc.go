// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package api serves the recommendation engine over HTTP using the Chi router.

# Endpoints

Recommendation endpoints live under /api/v1/recommendations:

	GET  /rules?items=a,b                   association rules for seed items
	GET  /bundles?min_size=2&max_size=3     frequent itemsets
	POST /affinity-scores                   {"candidates": [...], "cart_items": [...]}
	POST /scores                            {"candidates": [...], "customer_id": "..."}
	GET  /complete-meal?items=a,b&limit=5   complementary items for a cart
	GET  /also-bought/{itemID}?limit=5      items frequently ordered with one item
	GET  /profiles/{customerID}             decayed preference profile
	GET  /similarity?a=x&b=y                Jaccard similarity of two items
	GET  /similar-users/{customerID}        customers with overlapping purchases
	GET  /users/{customerID}/recommendations  user-based collaborative filtering
	POST /cache/clear                       drop every engine cache
	GET  /thresholds, PUT /thresholds       rule mining thresholds
	GET  /decay-rate, PUT /decay-rate       recency decay rate or vertical
	GET  /status                            effective config and counters

POST /api/v1/orders records a completed, cancelled or refunded order and
invalidates the caches it affects. Health probes are served at
/api/v1/health/live and /api/v1/health/ready, Prometheus metrics at /metrics.

# Responses

Every JSON response uses one envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": ..., "query_time_ms": ...}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "...", "message": "..."}}

Scoring endpoints never fail because of the order store: the engine degrades
to neutral scores and the response is still a success.

# Middleware

Global: request ID with logging context, RealIP, Recoverer and CORS.
Data routes add httprate rate limiting, security headers and Prometheus
request metrics labelled by route pattern.
*/
package api
