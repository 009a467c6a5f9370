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
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// handlerName identifies the order handler in Watermill logs.
const handlerName = "order-invalidation"

// subscriberFactory builds the message source. Overridden in tests.
type subscriberFactory func(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error)

// Components owns the order event pipeline: an optional embedded server,
// the stream, the subscriber and the router that drives the Handler.
type Components struct {
	cfg           ComponentsConfig
	handler       *Handler
	logger        zerolog.Logger
	wmLogger      watermill.LoggerAdapter
	newSubscriber subscriberFactory
	ensureStream  bool

	mu         sync.Mutex
	server     *EmbeddedServer
	subscriber message.Subscriber
	router     *Router
	runErr     chan error
	running    bool
}

// NewComponents validates cfg and prepares the pipeline. Nothing connects
// until Start.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewComponents(cfg ComponentsConfig, handler *Handler, logger zerolog.Logger) (*Components, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrInvalidConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	if !cfg.Embedded && cfg.Subscriber.URL == "" {
		return nil, fmt.Errorf("%w: NATS URL is required without the embedded server", ErrInvalidConfig)
	}

	return &Components{
		cfg:           cfg,
		handler:       handler,
		logger:        logger.With().Str("component", "nats").Logger(),
		wmLogger:      NewWatermillLogger(logger),
		newSubscriber: NewSubscriber,
		ensureStream:  true,
	}, nil
}

// Start brings up the pipeline and returns once the router is subscribed.
func (c *Components) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	subCfg := c.cfg.Subscriber
	if c.cfg.Embedded {
		srv, err := NewEmbeddedServer(&c.cfg.Server)
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		c.server = srv
		subCfg.URL = srv.ClientURL()
		c.logger.Info().Str("url", subCfg.URL).Msg("embedded NATS server started")
	}

	if c.ensureStream {
		state, err := EnsureStream(ctx, subCfg.URL, &c.cfg.Stream)
		if err != nil {
			c.cleanupLocked(ctx)
			return fmt.Errorf("ensure stream: %w", err)
		}
		c.logger.Info().
			Str("stream", state.Name).
			Uint64("messages", state.Messages).
			Int("consumers", state.Consumers).
			Msg("order stream ready")
	}

	sub, err := c.newSubscriber(&subCfg, c.wmLogger)
	if err != nil {
		c.cleanupLocked(ctx)
		return fmt.Errorf("create subscriber: %w", err)
	}
	c.subscriber = sub

	router, err := NewRouter(c.cfg.Router, c.wmLogger)
	if err != nil {
		c.cleanupLocked(ctx)
		return err
	}
	router.AddOrderHandler(handlerName, c.cfg.Topic, sub, c.handler)
	c.router = router

	// The router outlives the Start call, so it gets its own context.
	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(context.Background())
	}()

	select {
	case <-router.Running():
	case err := <-runErr:
		c.cleanupLocked(ctx)
		return fmt.Errorf("router exited during startup: %w", err)
	case <-ctx.Done():
		c.runErr = runErr
		c.cleanupLocked(ctx)
		return ctx.Err()
	}

	c.runErr = runErr
	c.running = true
	c.logger.Info().Str("topic", c.cfg.Topic).Msg("order event consumer started")
	return nil
}

// Shutdown stops the router, the subscriber and the embedded server.
func (c *Components) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	err := c.cleanupLocked(ctx)
	c.logger.Info().Interface("stats", c.handler.Stats()).Msg("order event consumer stopped")
	return err
}

// cleanupLocked releases whatever Start created. Callers hold mu.
func (c *Components) cleanupLocked(ctx context.Context) error {
	var errs []error

	if c.router != nil {
		if err := c.router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close router: %w", err))
		}
		if c.runErr != nil {
			select {
			case <-c.runErr:
			case <-ctx.Done():
				errs = append(errs, ctx.Err())
			case <-time.After(c.cfg.Router.CloseTimeout + time.Second):
			}
		}
		c.router = nil
		c.runErr = nil
	}
	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
		c.subscriber = nil
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown embedded NATS: %w", err))
		}
		c.server = nil
	}
	return errors.Join(errs...)
}

// IsRunning reports whether the consumer is subscribed.
func (c *Components) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.router != nil && c.router.IsRunning()
}

// ClientURL returns the embedded server URL, or "" without one.
func (c *Components) ClientURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.server == nil {
		return ""
	}
	return c.server.ClientURL()
}

// Stats returns the handler counters.
func (c *Components) Stats() HandlerStats {
	return c.handler.Stats()
}
