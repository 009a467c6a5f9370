// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build !nats

package eventprocessor

import "context"

// EnsureStream returns ErrNATSNotEnabled.
func EnsureStream(_ context.Context, _ string, _ *StreamConfig) (*StreamState, error) {
	return nil, ErrNATSNotEnabled
}
