// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/affinity/internal/config"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil cfg uses the default middleware settings.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	mwCfg := DefaultChiMiddlewareConfig()
	if cfg != nil {
		mwCfg.CORSAllowedOrigins = cfg.CORSOrigins
		mwCfg.RateLimitDisabled = cfg.RateLimitDisabled
		if cfg.RateLimitReqs > 0 {
			mwCfg.RateLimitRequests = cfg.RateLimitReqs
		}
		if cfg.RateLimitWindow > 0 {
			mwCfg.RateLimitWindow = cfg.RateLimitWindow
		}
	}

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwCfg),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, ErrCodeNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/recommendations", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Get("/rules", router.handler.GetRules)
		r.Get("/bundles", router.handler.GetBundles)
		r.Post("/affinity-scores", router.handler.PostAffinityScores)
		r.Post("/scores", router.handler.PostScores)
		r.Get("/complete-meal", router.handler.GetCompleteMeal)
		r.Get("/also-bought/{itemID}", router.handler.GetAlsoBought)
		r.Get("/profiles/{customerID}", router.handler.GetProfile)
		r.Get("/similarity", router.handler.GetSimilarity)
		r.Get("/similar-users/{customerID}", router.handler.GetSimilarUsers)
		r.Get("/users/{customerID}/recommendations", router.handler.GetUserRecommendations)
		r.Get("/status", router.handler.GetStatus)
		r.Get("/thresholds", router.handler.GetThresholds)
		r.Get("/decay-rate", router.handler.GetDecayRate)

		// State-changing calls get the stricter limiter
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAdmin())
			r.Post("/cache/clear", router.handler.ClearCache)
			r.Put("/thresholds", router.handler.PutThresholds)
			r.Put("/decay-rate", router.handler.PutDecayRate)
		})
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Post("/", router.handler.PostOrder)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
