// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/affinity/internal/eventprocessor"
	"github.com/tomtom215/affinity/internal/recommend"
)

// publishWith runs publish against an in-process pub/sub and returns the
// event delivered on subject.
func publishWith(t *testing.T, subject string, args ...string) (*eventprocessor.OrderEvent, string) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")

	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	var gotURL string
	factory := func(url, prefix string) (*eventprocessor.Publisher, error) {
		gotURL = url
		return eventprocessor.NewEventPublisher(pubSub, prefix), nil
	}

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithPublisherFactory(factory)
	if err := app.ExecuteWithArgs(context.Background(), append([]string{"publish"}, args...)); err != nil {
		t.Fatalf("publish: %v (stderr: %s)", err, stderr.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, subject)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		event, err := eventprocessor.DeserializeEvent(msg.Payload)
		if err != nil {
			t.Fatalf("deserialize: %v", err)
		}
		if msg.UUID != event.EventID {
			t.Errorf("message UUID %s != event ID %s", msg.UUID, event.EventID)
		}
		if !strings.Contains(stdout.String(), event.EventID) {
			t.Errorf("output does not report the event ID: %s", stdout.String())
		}
		return event, gotURL
	case <-ctx.Done():
		t.Fatalf("no message on %s", subject)
	}
	return nil, ""
}

func TestPublish_FromFlags(t *testing.T) {
	event, url := publishWith(t, "orders.completed",
		"--url", "nats://example:4222",
		"--order-id", "o-1", "--customer", "c-7",
		"--item", "biryani", "--item", "raita:2")

	if url != "nats://example:4222" {
		t.Errorf("factory got URL %q", url)
	}
	if event.Type != eventprocessor.EventOrderCompleted {
		t.Errorf("Type = %s", event.Type)
	}
	if event.Order.ID != "o-1" || event.Order.CustomerID != "c-7" {
		t.Errorf("order = %+v", event.Order)
	}
	want := []recommend.LineItem{{ItemID: "biryani", Quantity: 1}, {ItemID: "raita", Quantity: 2}}
	if len(event.Order.Items) != len(want) {
		t.Fatalf("items = %+v", event.Order.Items)
	}
	for i := range want {
		if event.Order.Items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, event.Order.Items[i], want[i])
		}
	}
}

func TestPublish_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.json")
	body := `{"id":"o-9","customer_id":"c-1","items":[{"item_id":"dal","quantity":1}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	event, url := publishWith(t, "orders.refunded", "--type", "refunded", "--file", path)

	if url != "nats://127.0.0.1:4222" {
		t.Errorf("expected the configured URL, got %q", url)
	}
	if event.Order.Status != recommend.StatusRefunded {
		t.Errorf("Status = %s, want refunded", event.Order.Status)
	}
	if event.Order.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestPublish_RejectsInvalidOrders(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	called := false
	factory := func(string, string) (*eventprocessor.Publisher, error) {
		called = true
		return nil, nil
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no items", []string{"--order-id", "o-1"}},
		{"no order id", []string{"--item", "dal"}},
		{"bad quantity", []string{"--order-id", "o-1", "--item", "dal:0"}},
		{"unknown type", []string{"--type", "pending", "--order-id", "o-1", "--item", "dal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			app := New().WithOutput(&stdout, &stderr).WithPublisherFactory(factory)
			if err := app.ExecuteWithArgs(context.Background(), append([]string{"publish"}, tt.args...)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	if called {
		t.Error("publisher opened for an invalid order")
	}
}

func TestParseLineItem(t *testing.T) {
	tests := []struct {
		in      string
		want    recommend.LineItem
		wantErr bool
	}{
		{"naan", recommend.LineItem{ItemID: "naan", Quantity: 1}, false},
		{"naan:3", recommend.LineItem{ItemID: "naan", Quantity: 3}, false},
		{" naan : 2 ", recommend.LineItem{ItemID: "naan", Quantity: 2}, false},
		{"naan:x", recommend.LineItem{}, true},
		{"naan:-1", recommend.LineItem{}, true},
		{":2", recommend.LineItem{}, true},
	}
	for _, tt := range tests {
		got, err := parseLineItem(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLineItem(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLineItem(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
