// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package eventprocessor

import (
	"strings"
	"time"

	"github.com/tomtom215/affinity/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int // -1 picks a random free port
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 4 << 30,   // 4GB
	}
}

// StreamConfig defines the order event stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// DefaultStreamConfig returns the ORDERS stream definition.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "ORDERS",
		Subjects:        []string{"orders.>"},
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// StreamState summarizes a stream after EnsureStream.
type StreamState struct {
	Name      string
	Messages  uint64
	Consumers int
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxDeliver       int
	MaxAckPending    int
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultSubscriberConfig returns production defaults for the subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		StreamName:       "ORDERS",
		DurableName:      "affinity-invalidator",
		QueueGroup:       "affinity",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	SubjectPrefix    string
	MaxReconnects    int
	ReconnectWait    time.Duration
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		SubjectPrefix:    "orders",
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		EnableTrackMsgID: true,
	}
}

// RouterConfig configures the Watermill router that drives the Handler.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultRouterConfig returns production defaults for the router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// ComponentsConfig is everything NewComponents needs.
type ComponentsConfig struct {
	Embedded   bool
	Server     ServerConfig
	Stream     StreamConfig
	Subscriber SubscriberConfig
	Router     RouterConfig
	Topic      string
	Handler    HandlerConfig
}

// ComponentsConfigFrom maps the application NATS settings onto component
// configuration. When the embedded server is enabled the subscriber URL is
// filled in at start time.
func ComponentsConfigFrom(cfg *config.NATSConfig) ComponentsConfig {
	server := DefaultServerConfig()
	server.Port = cfg.EmbeddedPort
	if cfg.StoreDir != "" {
		server.StoreDir = cfg.StoreDir
	}

	stream := DefaultStreamConfig()
	stream.Name = cfg.StreamName
	stream.Subjects = []string{cfg.Subject}

	sub := DefaultSubscriberConfig(cfg.URL)
	sub.StreamName = cfg.StreamName
	sub.DurableName = cfg.DurableName
	sub.QueueGroup = cfg.QueueGroup
	sub.SubscribersCount = cfg.SubscribersCount
	if cfg.AckWaitTimeout > 0 {
		sub.AckWaitTimeout = cfg.AckWaitTimeout
	}
	if cfg.CloseTimeout > 0 {
		sub.CloseTimeout = cfg.CloseTimeout
	}

	router := DefaultRouterConfig()
	router.CloseTimeout = sub.CloseTimeout
	router.RetryMaxRetries = cfg.RetryCount
	if cfg.RetryInterval > 0 {
		router.RetryInitialInterval = cfg.RetryInterval
	}

	return ComponentsConfig{
		Embedded:   cfg.EmbeddedServer,
		Server:     server,
		Stream:     stream,
		Subscriber: sub,
		Router:     router,
		Topic:      cfg.Subject,
		Handler: HandlerConfig{
			Persist:            cfg.PersistOrders,
			MaxEventsPerSecond: cfg.MaxEventsPerSecond,
		},
	}
}

// SubjectPrefix returns the literal part of a subscription subject, e.g.
// "orders" for "orders.>".
func SubjectPrefix(subject string) string {
	prefix := strings.TrimSuffix(subject, ".>")
	return strings.TrimSuffix(prefix, ".*")
}
