// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// counters are shared by the engine and its components.
type counters struct {
	requests         atomic.Int64
	ruleHits         atomic.Int64
	ruleMisses       atomic.Int64
	profileHits      atomic.Int64
	profileMisses    atomic.Int64
	similarityHits   atomic.Int64
	similarityMisses atomic.Int64
	fallbacks        atomic.Int64
}

// degrader converts order-store failures into caller-supplied fallback values.
// Nothing in this package returns a read failure to its caller; every such path
// goes through orFallback so the substitution is logged and counted.
type degrader struct {
	logger   zerolog.Logger
	counters *counters
}

// orFallback runs fn and returns its result, or fallback and false if fn fails.
//
//nolint:gocritic // degrader is small and passed by value
func orFallback[T any](ctx context.Context, d degrader, op string, fallback T, fn func(context.Context) (T, error)) (T, bool) {
	v, err := fn(ctx)
	if err != nil {
		d.counters.fallbacks.Add(1)
		d.logger.Warn().
			Err(err).
			Str("operation", op).
			Msg("order store read failed, using fallback")
		return fallback, false
	}
	return v, true
}
