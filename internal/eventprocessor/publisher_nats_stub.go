// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build !nats

package eventprocessor

import "github.com/ThreeDotsLabs/watermill"

// NewPublisher returns ErrNATSNotEnabled.
func NewPublisher(_ *PublisherConfig, _ watermill.LoggerAdapter) (*Publisher, error) {
	return nil, ErrNATSNotEnabled
}
