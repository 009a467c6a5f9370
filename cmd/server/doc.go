// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package main is the entry point for the Affinity scoring server.
//
// Affinity scores candidate items against a shopping cart and a customer's
// order history. It mines association rules from past orders, builds
// recency-weighted customer profiles and serves the results over HTTP.
//
// # Startup
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Order store: embedded DuckDB or PostgreSQL, wrapped in circuit breakers
//  3. Engine: rule, bundle, profile and similarity caches
//  4. Supervisor tree: maintenance, order events (optional) and the HTTP API
//
// # Build Tags
//
//	go build ./cmd/server               # HTTP ingestion only
//	go build -tags nats ./cmd/server    # Adds the NATS JetStream order consumer
//
// # Example
//
//	export DUCKDB_PATH=/data/affinity.duckdb
//	export SEED_DEMO_DATA=true
//	export RECOMMEND_VERTICAL=perishables
//	./affinity
//
// SIGINT and SIGTERM stop the supervisor tree. The HTTP server drains
// in-flight requests for up to server.shutdown_timeout.
package main
