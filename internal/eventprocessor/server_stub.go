// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build !nats

package eventprocessor

import "context"

// EmbeddedServer is a stub. Build with -tags nats for the real server.
type EmbeddedServer struct{}

// NewEmbeddedServer returns ErrNATSNotEnabled.
func NewEmbeddedServer(_ *ServerConfig) (*EmbeddedServer, error) {
	return nil, ErrNATSNotEnabled
}

// ClientURL returns an empty string.
func (s *EmbeddedServer) ClientURL() string { return "" }

// Shutdown is a no-op.
func (s *EmbeddedServer) Shutdown(_ context.Context) error { return nil }

// IsRunning always returns false.
func (s *EmbeddedServer) IsRunning() bool { return false }
