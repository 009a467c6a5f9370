// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package breaker protects the order store with circuit breakers.
//
// Provider decorates a recommend.DataProvider. When the store keeps failing
// the breaker opens and calls fail fast with gobreaker.ErrOpenState, which the
// recommendation engine absorbs as a neutral fallback instead of waiting on a
// dead database for every request.
//
// The breaker uses real time for its interval and timeout. Tests drive it
// with failure counts rather than a fake clock.
package breaker

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/recommend"
)

// Breaker names used as the metrics "name" label.
const (
	OrderHistoryName = "order-history"
	CatalogName      = "catalog"
)

// Provider is a recommend.DataProvider guarded by one breaker per read path.
type Provider struct {
	next    recommend.DataProvider
	orders  *gobreaker.CircuitBreaker[[]recommend.Order]
	catalog *gobreaker.CircuitBreaker[[]string]
	logger  zerolog.Logger
}

var _ recommend.DataProvider = (*Provider)(nil)

// New wraps next. The configuration's Enabled flag is not consulted here;
// callers decide whether to wrap at all.
func New(next recommend.DataProvider, cfg *config.CircuitBreakerConfig, logger zerolog.Logger) *Provider {
	p := &Provider{
		next:   next,
		logger: logger.With().Str("component", "breaker").Logger(),
	}
	p.orders = gobreaker.NewCircuitBreaker[[]recommend.Order](p.settings(OrderHistoryName, cfg))
	p.catalog = gobreaker.NewCircuitBreaker[[]string](p.settings(CatalogName, cfg))

	for _, name := range []string{OrderHistoryName, CatalogName} {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	}
	return p
}

func (p *Provider) settings(name string, cfg *config.CircuitBreakerConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		// Opens when the failure ratio reaches the threshold over enough requests.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				p.logger.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("Opening circuit")
				return true
			}
			return false
		},

		// A caller giving up is not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	}
}

// FindOrders implements recommend.OrderHistory.
func (p *Provider) FindOrders(ctx context.Context, q recommend.OrderQuery) ([]recommend.Order, error) {
	return execute(p.orders, func() ([]recommend.Order, error) {
		return p.next.FindOrders(ctx, q)
	})
}

// ListAvailableItemIDs implements recommend.Catalog.
func (p *Provider) ListAvailableItemIDs(ctx context.Context) ([]string, error) {
	return execute(p.catalog, func() ([]string, error) {
		return p.next.ListAvailableItemIDs(ctx)
	})
}

// OrderHistoryState returns the state of the order-history breaker.
func (p *Provider) OrderHistoryState() gobreaker.State {
	return p.orders.State()
}

// CatalogState returns the state of the catalog breaker.
func (p *Provider) CatalogState() gobreaker.State {
	return p.catalog.State()
}

// Healthy reports whether both breakers are closed.
func (p *Provider) Healthy() bool {
	return p.orders.State() == gobreaker.StateClosed && p.catalog.State() == gobreaker.StateClosed
}

// execute runs fn through cb and records the outcome.
func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)

	name := cb.Name()
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	case IsRejected(err):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(float64(cb.Counts().ConsecutiveFailures))
	}
	return result, err
}

// IsRejected reports whether err came from an open or saturated breaker
// rather than from the store itself.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
