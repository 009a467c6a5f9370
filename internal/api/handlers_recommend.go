// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/affinity/internal/recommend"
)

// ScoresResponse is the body of the scoring endpoints.
type ScoresResponse struct {
	Scores map[string]float64 `json:"scores"`
}

// SimilarityResponse is the body of GET /similarity.
type SimilarityResponse struct {
	ItemA      string  `json:"item_a"`
	ItemB      string  `json:"item_b"`
	Similarity float64 `json:"similarity"`
}

// ThresholdsResponse reports the current rule thresholds.
type ThresholdsResponse struct {
	MinSupport    float64 `json:"min_support"`
	MinConfidence float64 `json:"min_confidence"`
}

// DecayRateResponse reports the current decay rate and its half-life.
type DecayRateResponse struct {
	DecayRate    float64 `json:"decay_rate"`
	HalfLifeDays float64 `json:"half_life_days"`
}

// StatusResponse summarizes engine state.
type StatusResponse struct {
	Metrics        recommend.Metrics `json:"metrics"`
	MinSupport     float64           `json:"min_support"`
	MinConfidence  float64           `json:"min_confidence"`
	DecayRate      float64           `json:"decay_rate"`
	NeutralScore   float64           `json:"neutral_score"`
	StoreAvailable bool              `json:"store_available"`
}

// GetRules handles GET /api/v1/recommendations/rules?items=a,b
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := itemListQuery{Items: itemsParam(r, "items")}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.MineRules(ctx, q.Items), start)
}

// GetBundles handles GET /api/v1/recommendations/bundles?min_size=2&max_size=3
func (h *Handler) GetBundles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	minSize, okMin := getIntParam(r, "min_size", 2)
	maxSize, okMax := getIntParam(r, "max_size", 3)
	if !okMin || !okMax {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "min_size and max_size must be integers", nil)
		return
	}
	q := bundleQuery{MinSize: minSize, MaxSize: maxSize}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.FindFrequentBundles(ctx, q.MinSize, q.MaxSize), start)
}

// PostAffinityScores handles POST /api/v1/recommendations/affinity-scores
func (h *Handler) PostAffinityScores(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AffinityScoresRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	scores := h.engine.CalculateAffinityScores(ctx, req.Candidates, req.CartItems)
	respondSuccess(w, r, ScoresResponse{Scores: scores}, start)
}

// PostScores handles POST /api/v1/recommendations/scores
func (h *Handler) PostScores(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ScoresRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	scores := h.engine.CalculateScores(ctx, req.Candidates, req.CustomerID)
	respondSuccess(w, r, ScoresResponse{Scores: scores}, start)
}

// GetCompleteMeal handles GET /api/v1/recommendations/complete-meal?items=a,b&limit=5
func (h *Handler) GetCompleteMeal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, ok := getIntParam(r, "limit", 0)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}
	q := itemListQuery{Items: itemsParam(r, "items"), Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.GetCompleteMealSuggestions(ctx, q.Items, q.Limit), start)
}

// GetAlsoBought handles GET /api/v1/recommendations/also-bought/{itemID}
func (h *Handler) GetAlsoBought(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, ok := h.pathLimitQuery(w, r, "itemID")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.GetAlsoBoughtSuggestions(ctx, q.ID, q.Limit), start)
}

// GetProfile handles GET /api/v1/recommendations/profiles/{customerID}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, ok := h.pathLimitQuery(w, r, "customerID")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.GetUserProfile(ctx, q.ID), start)
}

// GetSimilarity handles GET /api/v1/recommendations/similarity?a=x&b=y
func (h *Handler) GetSimilarity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	pair := struct {
		A string `validate:"required,itemid"`
		B string `validate:"required,itemid"`
	}{A: r.URL.Query().Get("a"), B: r.URL.Query().Get("b")}
	if apiErr := validateRequest(&pair); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, SimilarityResponse{
		ItemA:      pair.A,
		ItemB:      pair.B,
		Similarity: h.engine.GetItemSimilarity(ctx, pair.A, pair.B),
	}, start)
}

// GetSimilarUsers handles GET /api/v1/recommendations/similar-users/{customerID}
func (h *Handler) GetSimilarUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, ok := h.pathLimitQuery(w, r, "customerID")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.FindSimilarUsers(ctx, q.ID, q.Limit), start)
}

// GetUserRecommendations handles GET /api/v1/recommendations/users/{customerID}/recommendations
func (h *Handler) GetUserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, ok := h.pathLimitQuery(w, r, "customerID")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	respondSuccess(w, r, h.engine.GetUserBasedRecommendations(ctx, q.ID, q.Limit), start)
}

// ClearCache handles POST /api/v1/recommendations/cache/clear
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.engine.ClearCache()
	respondSuccess(w, r, map[string]string{"message": "caches cleared"}, start)
}

// GetThresholds handles GET /api/v1/recommendations/thresholds
func (h *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, c := h.engine.Thresholds()
	respondSuccess(w, r, ThresholdsResponse{MinSupport: s, MinConfidence: c}, start)
}

// PutThresholds handles PUT /api/v1/recommendations/thresholds
func (h *Handler) PutThresholds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ThresholdsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.engine.SetThresholds(*req.MinSupport, *req.MinConfidence); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	s, c := h.engine.Thresholds()
	respondSuccess(w, r, ThresholdsResponse{MinSupport: s, MinConfidence: c}, start)
}

// GetDecayRate handles GET /api/v1/recommendations/decay-rate
func (h *Handler) GetDecayRate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rate := h.engine.DecayRate()
	respondSuccess(w, r, DecayRateResponse{DecayRate: rate, HalfLifeDays: halfLife(rate)}, start)
}

// PutDecayRate handles PUT /api/v1/recommendations/decay-rate.
// The body carries either decay_rate or a vertical name.
func (h *Handler) PutDecayRate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req DecayRateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var rate float64
	if req.Vertical != "" {
		var err error
		rate, err = recommend.DecayRateForVertical(recommend.Vertical(req.Vertical))
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
			return
		}
	} else {
		rate = *req.DecayRate
	}

	if err := h.engine.SetDecayRate(rate); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	rate = h.engine.DecayRate()
	respondSuccess(w, r, DecayRateResponse{DecayRate: rate, HalfLifeDays: halfLife(rate)}, start)
}

// GetStatus handles GET /api/v1/recommendations/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	cfg := h.engine.GetConfig()
	respondSuccess(w, r, StatusResponse{
		Metrics:        h.engine.GetMetrics(),
		MinSupport:     cfg.Rules.MinSupport,
		MinConfidence:  cfg.Rules.MinConfidence,
		DecayRate:      cfg.Profile.DecayRate,
		NeutralScore:   cfg.Scoring.NeutralScore,
		StoreAvailable: h.breaker == nil || h.breaker.Healthy(),
	}, start)
}

// PostOrder handles POST /api/v1/orders. The order is stored and the caches
// it makes stale are dropped.
func (h *Handler) PostOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.orders == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Order ingestion is not enabled", nil)
		return
	}

	var order recommend.Order
	if !h.decodeAndValidate(w, r, &order) {
		return
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	if err := h.orders.InsertOrder(ctx, &order); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeStoreError, "Failed to store order", err)
		return
	}
	h.engine.InvalidateOrder(&order)

	respondJSON(w, http.StatusCreated, &APIResponse{
		Status:   "success",
		Data:     order,
		Metadata: newMetadata(r, start),
	})
}

// decodeAndValidate decodes the JSON body into v and validates it, writing
// the error response itself. It reports whether handling should continue.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeJSON(w, r, v); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, errEmptyBody) {
			msg = "Request body is required"
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, nil)
		return false
	}
	if apiErr := validateRequest(v); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

func (h *Handler) pathLimitQuery(w http.ResponseWriter, r *http.Request, param string) (limitQuery, bool) {
	limit, ok := getIntParam(r, "limit", 0)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return limitQuery{}, false
	}
	q := limitQuery{ID: chi.URLParam(r, param), Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return limitQuery{}, false
	}
	return q, true
}

// halfLife keeps +Inf out of the JSON encoder.
func halfLife(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return recommend.HalfLifeDays(rate)
}
