// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/affinity/internal/eventprocessor"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/recommend"
)

type publishOptions struct {
	url        string
	eventType  string
	file       string
	orderID    string
	customerID string
	items      []string
}

func (a *App) newPublishCmd() *cobra.Command {
	opts := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an order event to NATS JetStream",
		Long: `Publish one order event. The order comes from --file (JSON, "-" for stdin)
or from --order-id, --customer and repeated --item flags. Items take the form
ID or ID:QUANTITY. Requires a binary built with -tags nats.`,
		Example: `  affinityctl publish --type completed --order-id o-1 --customer c-7 --item biryani --item raita:2
  affinityctl publish --type refunded --file order.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPublish(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "", "NATS URL (default: nats.url from config)")
	flags.StringVar(&opts.eventType, "type", "completed", "event type: completed, cancelled or refunded")
	flags.StringVar(&opts.file, "file", "", "read the order from a JSON file")
	flags.StringVar(&opts.orderID, "order-id", "", "order ID")
	flags.StringVar(&opts.customerID, "customer", "", "customer ID")
	flags.StringArrayVar(&opts.items, "item", nil, "line item as ID or ID:QUANTITY")
	cmd.MarkFlagsMutuallyExclusive("file", "order-id")
	cmd.MarkFlagsMutuallyExclusive("file", "item")
	return cmd
}

func (a *App) runPublish(cmd *cobra.Command, opts *publishOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	order, err := opts.order(cmd.InOrStdin())
	if err != nil {
		return err
	}

	event, err := eventprocessor.NewOrderEvent(eventprocessor.EventType("order."+opts.eventType), *order)
	if err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return err
	}

	url := opts.url
	if url == "" {
		url = cfg.NATS.URL
	}
	prefix := eventprocessor.SubjectPrefix(cfg.NATS.Subject)

	pub, err := a.newPublisher(url, prefix)
	if err != nil {
		return fmt.Errorf("connect publisher: %w", err)
	}
	defer func() {
		if cerr := pub.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing publisher")
		}
	}()

	if err := pub.PublishOrderEvent(cmd.Context(), event); err != nil {
		return err
	}

	subject := event.Subject(prefix)
	result := struct {
		EventID string `json:"event_id"`
		Subject string `json:"subject"`
		OrderID string `json:"order_id"`
	}{event.EventID, subject, event.Order.ID}
	return a.render(result, table{
		header: []string{"EVENT ID", "SUBJECT", "ORDER"},
		rows:   [][]string{{event.EventID, subject, event.Order.ID}},
	})
}

// order builds the order from --file or from the item flags.
func (o *publishOptions) order(stdin io.Reader) (*recommend.Order, error) {
	if o.file != "" {
		var r io.Reader = stdin
		if o.file != "-" {
			f, err := os.Open(o.file)
			if err != nil {
				return nil, fmt.Errorf("open order file: %w", err)
			}
			defer f.Close() //nolint:errcheck // read-only
			r = f
		}
		var order recommend.Order
		if err := json.NewDecoder(r).Decode(&order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now().UTC()
		}
		return &order, nil
	}

	order := &recommend.Order{
		ID:         o.orderID,
		CustomerID: o.customerID,
		CreatedAt:  time.Now().UTC(),
	}
	for _, raw := range o.items {
		item, err := parseLineItem(raw)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return order, nil
}

// parseLineItem parses ID or ID:QUANTITY.
func parseLineItem(s string) (recommend.LineItem, error) {
	id, qty, found := strings.Cut(s, ":")
	item := recommend.LineItem{ItemID: strings.TrimSpace(id), Quantity: 1}
	if found {
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 1 {
			return recommend.LineItem{}, fmt.Errorf("invalid quantity in item %q", s)
		}
		item.Quantity = n
	}
	if item.ItemID == "" {
		return recommend.LineItem{}, fmt.Errorf("invalid item %q", s)
	}
	return item, nil
}
