// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// AffinityScoresRequest is the body of POST /affinity-scores.
type AffinityScoresRequest struct {
	Candidates []string `json:"candidates" validate:"max=500,dive,itemid"`
	CartItems  []string `json:"cart_items" validate:"max=100,dive,itemid"`
}

// ScoresRequest is the body of POST /scores.
type ScoresRequest struct {
	Candidates []string `json:"candidates" validate:"max=500,dive,itemid"`
	CustomerID string   `json:"customer_id" validate:"omitempty,itemid"`
}

// ThresholdsRequest is the body of PUT /thresholds.
type ThresholdsRequest struct {
	MinSupport    *float64 `json:"min_support" validate:"required,gte=0,lte=1"`
	MinConfidence *float64 `json:"min_confidence" validate:"required,gte=0,lte=1"`
}

// DecayRateRequest is the body of PUT /decay-rate. Vertical, when set,
// selects the vertical's default rate and DecayRate must be omitted.
type DecayRateRequest struct {
	DecayRate *float64 `json:"decay_rate" validate:"required_without=Vertical,excluded_with=Vertical,omitempty,gte=0"`
	Vertical  string   `json:"vertical" validate:"omitempty,oneof=perishables grocery retail durables"`
}

// itemListQuery validates list-style query parameters.
type itemListQuery struct {
	Items []string `validate:"required,min=1,max=100,dive,itemid"`
	Limit int      `validate:"gte=0,lte=100"`
}

// limitQuery validates a bare limit parameter.
type limitQuery struct {
	ID    string `validate:"required,itemid"`
	Limit int    `validate:"gte=0,lte=100"`
}

// bundleQuery validates GET /bundles.
type bundleQuery struct {
	MinSize int `validate:"gte=2,lte=3"`
	MaxSize int `validate:"gte=2,lte=3,gtefield=MinSize"`
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// validateRequest validates a struct and converts failures to an APIError.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// getIntParam extracts an integer query parameter. A malformed value is
// reported as invalid rather than silently replaced.
func getIntParam(r *http.Request, key string, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// itemsParam reads repeated and comma-separated values of key.
func itemsParam(r *http.Request, key string) []string {
	var items []string
	for _, v := range r.URL.Query()[key] {
		items = append(items, parseCommaSeparated(v)...)
	}
	return items
}
