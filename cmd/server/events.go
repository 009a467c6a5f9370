// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"fmt"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/eventprocessor"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/supervisor"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// addOrderEvents wires the NATS order consumer into the events layer when
// it is enabled and compiled in.
func addOrderEvents(tree *supervisor.SupervisorTree, cfg *config.Config, engine *recommend.Engine, writer eventprocessor.OrderWriter) error {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("Order events disabled (NATS_ENABLED=false)")
		return nil
	}
	if !natsCompiled {
		logging.Warn().Msg("NATS_ENABLED=true but the binary was built without -tags nats, order events disabled")
		return nil
	}

	components, err := newOrderEventComponents(&cfg.NATS, engine, writer)
	if err != nil {
		return err
	}

	tree.AddEventService(services.NewOrderEventsService(components, cfg.NATS.CloseTimeout))
	logging.Info().
		Str("subject", cfg.NATS.Subject).
		Bool("embedded", cfg.NATS.EmbeddedServer).
		Bool("persist", cfg.NATS.PersistOrders).
		Msg("Order event consumer added to supervisor tree")
	return nil
}

func newOrderEventComponents(cfg *config.NATSConfig, engine eventprocessor.Invalidator, writer eventprocessor.OrderWriter) (*eventprocessor.Components, error) {
	compCfg := eventprocessor.ComponentsConfigFrom(cfg)

	handler, err := eventprocessor.NewHandler(engine, writer, compCfg.Handler, logging.Component("order-events"))
	if err != nil {
		return nil, fmt.Errorf("create order event handler: %w", err)
	}

	components, err := eventprocessor.NewComponents(compCfg, handler, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("create order event components: %w", err)
	}
	return components, nil
}
