// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build nats

package eventprocessor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNATSIntegration_OrderEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	cfg := testComponentsConfig()
	cfg.Embedded = true
	cfg.Server = ServerConfig{
		Host:              "127.0.0.1",
		Port:              -1,
		StoreDir:          t.TempDir(),
		JetStreamMaxMem:   32 << 20,
		JetStreamMaxStore: 64 << 20,
	}
	cfg.Subscriber.URL = ""
	cfg.Subscriber.AckWaitTimeout = 5 * time.Second
	cfg.Subscriber.CloseTimeout = 5 * time.Second
	cfg.Topic = "orders.>"

	h, inv, store := newTestHandler(t, HandlerConfig{Persist: true})
	c, err := NewComponents(cfg, h, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewComponents() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = c.Shutdown(context.Background()) }()

	pubCfg := DefaultPublisherConfig(c.ClientURL())
	pub, err := NewPublisher(&pubCfg, NewWatermillLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer pub.Close()

	completed := mustEvent(t, EventOrderCompleted, testOrder("o-1", "biryani", "raita"))
	refunded := mustEvent(t, EventOrderRefunded, testOrder("o-1", "biryani", "raita"))
	for _, event := range []*OrderEvent{completed, refunded} {
		if err := pub.PublishOrderEvent(ctx, event); err != nil {
			t.Fatalf("PublishOrderEvent() error = %v", err)
		}
	}

	waitFor(t, 10*time.Second, func() bool { return len(inv.IDs()) == 2 })

	stored, ok := store.get("o-1")
	if !ok {
		t.Fatal("order not persisted")
	}
	if stored.Status != "refunded" {
		t.Errorf("final status = %q, want refunded", stored.Status)
	}
}

func TestEnsureStream_Idempotent(t *testing.T) {
	srvCfg := ServerConfig{Host: "127.0.0.1", Port: -1, StoreDir: t.TempDir(), JetStreamMaxMem: 16 << 20, JetStreamMaxStore: 32 << 20}
	srv, err := NewEmbeddedServer(&srvCfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	defer func() { _ = srv.Shutdown(context.Background()) }()

	streamCfg := DefaultStreamConfig()
	for i := 0; i < 2; i++ {
		state, err := EnsureStream(context.Background(), srv.ClientURL(), &streamCfg)
		if err != nil {
			t.Fatalf("EnsureStream() call %d error = %v", i+1, err)
		}
		if state.Name != "ORDERS" {
			t.Errorf("stream name = %q", state.Name)
		}
	}
}
