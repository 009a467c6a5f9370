// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package eventprocessor consumes order events from NATS JetStream and keeps the
recommendation caches consistent with new, cancelled and refunded orders.

# Event flow

	POS / order service
	    │ publish orders.completed | orders.cancelled | orders.refunded
	    ▼
	JetStream stream ORDERS (subjects orders.>)
	    │ durable queue subscription (Watermill)
	    ▼
	Consumer ──► Handler ──► order store (optional) ──► Engine.InvalidateOrder

Each message carries one OrderEvent encoded as JSON. The event type decides
the stored status of the order. Cancelled and refunded events replace the
status of an order that was stored as completed, so the order drops out of
rule mining and profiles once caches are invalidated.

# Delivery

Messages are acked after the handler succeeds. Malformed or invalid events
can never succeed, so they are acked and counted instead of redelivered.
Store failures are nacked and redelivered by JetStream.

# Build tags

Everything that links the NATS client, Watermill's NATS transport or the
embedded server is behind the nats build tag:

	go build -tags nats ./cmd/server

Without the tag, NewComponents and NewPublisher return ErrNATSNotEnabled.
The event model, serializer and Handler are always available and are used
by the HTTP ingestion path as well.
*/
package eventprocessor
