// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// msgIDHeader is the JetStream deduplication header.
const msgIDHeader = "Nats-Msg-Id"

// Publisher publishes order events under a subject prefix.
type Publisher struct {
	publisher message.Publisher
	prefix    string

	mu     sync.RWMutex
	closed bool
}

// NewEventPublisher wraps any Watermill publisher.
func NewEventPublisher(pub message.Publisher, subjectPrefix string) *Publisher {
	return &Publisher{publisher: pub, prefix: subjectPrefix}
}

// PublishOrderEvent validates, encodes and publishes event. The event ID
// doubles as the JetStream message ID so that retried publishes are
// deduplicated by the stream.
func (p *Publisher) PublishOrderEvent(ctx context.Context, event *OrderEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(msgIDHeader, event.EventID)
	msg.Metadata.Set("type", string(event.Type))
	msg.Metadata.Set("order_id", event.Order.ID)

	subject := event.Subject(p.prefix)
	if err := p.publisher.Publish(subject, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close closes the underlying publisher. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
