// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/affinity/internal/recommend"
)

func TestGetRules(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/rules?items=biryani", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp.Status != "success" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.Metadata.RequestID == "" {
		t.Error("metadata should carry the request ID")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	var rules []recommend.AffinityRule
	decodeData(t, resp, &rules)
	if len(rules) == 0 {
		t.Fatal("expected rules for biryani")
	}
	if rules[0].ConsequentID() != "raita" {
		t.Errorf("strongest rule consequent = %q, want raita", rules[0].ConsequentID())
	}
}

func TestGetRules_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	tests := []struct {
		name   string
		target string
	}{
		{"missing items", "/api/v1/recommendations/rules"},
		{"only separators", "/api/v1/recommendations/rules?items=,,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodGet, tt.target, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != ErrCodeValidation {
				t.Errorf("error = %+v, want %s", resp.Error, ErrCodeValidation)
			}
		})
	}
}

func TestGetBundles(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"defaults", "", http.StatusOK},
		{"pairs only", "?min_size=2&max_size=2", http.StatusOK},
		{"min above max", "?min_size=3&max_size=2", http.StatusBadRequest},
		{"size four", "?max_size=4", http.StatusBadRequest},
		{"not a number", "?min_size=two", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/bundles"+tt.query, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var bundles []recommend.ItemSet
			decodeData(t, resp, &bundles)
			found := false
			for _, b := range bundles {
				if b.Key() == "biryani,raita" {
					found = true
				}
			}
			if !found {
				t.Errorf("biryani,raita bundle missing from %+v", bundles)
			}
		})
	}
}

func TestPostAffinityScores(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodPost, "/api/v1/recommendations/affinity-scores", AffinityScoresRequest{
		Candidates: []string{"raita", "dosa", "biryani"},
		CartItems:  []string{"biryani"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body ScoresResponse
	decodeData(t, resp, &body)
	if len(body.Scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(body.Scores))
	}
	if body.Scores["biryani"] != 0 {
		t.Errorf("item already in cart scored %f, want 0", body.Scores["biryani"])
	}
	if body.Scores["raita"] <= body.Scores["dosa"] {
		t.Errorf("raita %f should outscore dosa %f", body.Scores["raita"], body.Scores["dosa"])
	}
}

func TestPostAffinityScores_BadBodies(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	tests := []struct {
		name     string
		body     interface{}
		wantCode string
	}{
		{"empty body", nil, ErrCodeBadRequest},
		{"malformed json", `{"candidates": [`, ErrCodeBadRequest},
		{"unknown field", `{"candidates": ["a"], "cart": ["b"]}`, ErrCodeBadRequest},
		{"comma in id", AffinityScoresRequest{Candidates: []string{"a,b"}}, ErrCodeValidation},
		{"blank id", AffinityScoresRequest{CartItems: []string{" "}}, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodPost, "/api/v1/recommendations/affinity-scores", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestPostScores_NeutralWithoutCustomer(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodPost, "/api/v1/recommendations/scores", ScoresRequest{
		Candidates: []string{"raita", "dosa"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body ScoresResponse
	decodeData(t, resp, &body)
	for id, score := range body.Scores {
		if score != 0.5 {
			t.Errorf("score[%s] = %f, want neutral 0.5", id, score)
		}
	}
}

func TestPostScores_KnownCustomer(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	_, resp := s.do(t, http.MethodPost, "/api/v1/recommendations/scores", ScoresRequest{
		Candidates: []string{"dosa", "raita"},
		CustomerID: "dosa-fan",
	})
	var body ScoresResponse
	decodeData(t, resp, &body)
	// dosa was bought recently and is suppressed. raita shares no customers
	// with dosa and stays neutral.
	if body.Scores["dosa"] != 0.3 || body.Scores["raita"] != 0.5 {
		t.Errorf("scores = %v, want dosa 0.3 and raita 0.5", body.Scores)
	}
}

func TestGetCompleteMeal(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/complete-meal?items=biryani&limit=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var suggestions []recommend.AffinityScore
	decodeData(t, resp, &suggestions)
	if len(suggestions) != 1 || suggestions[0].ItemID != "raita" {
		t.Fatalf("suggestions = %+v, want raita only", suggestions)
	}
	if len(suggestions[0].ContributingRules) == 0 {
		t.Error("suggestion should list contributing rules")
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/recommendations/complete-meal?items=biryani&limit=500", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit 500 status = %d, want 400", rec.Code)
	}
}

func TestGetAlsoBought(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/also-bought/biryani?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var suggestions []recommend.AffinityScore
	decodeData(t, resp, &suggestions)
	if len(suggestions) == 0 || suggestions[0].ItemID != "raita" {
		t.Errorf("suggestions = %+v, want raita first", suggestions)
	}
	if len(suggestions) > 2 {
		t.Errorf("limit 2 returned %d suggestions", len(suggestions))
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/recommendations/also-bought/biryani?limit=x", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestGetProfile(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	_, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/profiles/dosa-fan", nil)
	var profile recommend.UserProfile
	decodeData(t, resp, &profile)
	if profile.CustomerID != "dosa-fan" || profile.OrderCount != 10 {
		t.Errorf("profile = %+v", profile)
	}
	if profile.RecencyWeightedPreferences["dosa"] != 1 {
		t.Errorf("dosa preference = %f, want 1", profile.RecencyWeightedPreferences["dosa"])
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/recommendations/profiles/nobody", nil)
	decodeData(t, resp, &profile)
	if len(profile.Preferences) != 0 {
		t.Errorf("unknown customer should have an empty profile, got %+v", profile)
	}
}

func TestGetSimilarity(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	_, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/similarity?a=raita&b=raita", nil)
	var sim SimilarityResponse
	decodeData(t, resp, &sim)
	if sim.Similarity != 1 {
		t.Errorf("self similarity = %f, want 1", sim.Similarity)
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/recommendations/similarity?a=raita&b=dosa", nil)
	decodeData(t, resp, &sim)
	if sim.Similarity != 0 {
		t.Errorf("disjoint similarity = %f, want 0", sim.Similarity)
	}

	rec, _ := s.do(t, http.MethodGet, "/api/v1/recommendations/similarity?a=raita", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing b status = %d, want 400", rec.Code)
	}
}

func TestSimilarUsersAndRecommendations(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/similar-users/c-00?limit=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var users []recommend.SimilarUser
	decodeData(t, resp, &users)
	if len(users) == 0 || len(users) > 3 {
		t.Fatalf("got %d similar users, want 1..3", len(users))
	}
	for _, u := range users {
		if u.CustomerID == "c-00" || u.CustomerID == "dosa-fan" {
			t.Errorf("unexpected similar user %+v", u)
		}
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/recommendations/users/dosa-fan/recommendations", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("recommendations status = %d", rec.Code)
	}
}

func TestThresholds(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	rec, resp := s.do(t, http.MethodPut, "/api/v1/recommendations/thresholds", `{"min_support":0.05,"min_confidence":0.3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var th ThresholdsResponse
	decodeData(t, resp, &th)
	if th.MinSupport != 0.05 || th.MinConfidence != 0.3 {
		t.Errorf("thresholds = %+v", th)
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/recommendations/thresholds", nil)
	decodeData(t, resp, &th)
	if th.MinConfidence != 0.3 {
		t.Errorf("GET after PUT = %+v", th)
	}

	for _, body := range []string{
		`{"min_support":1.5,"min_confidence":0.3}`,
		`{"min_support":0.05}`,
		`{"min_support":-0.1,"min_confidence":0.3}`,
	} {
		rec, _ := s.do(t, http.MethodPut, "/api/v1/recommendations/thresholds", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want 400", body, rec.Code)
		}
	}
	if ms, mc := s.engine.Thresholds(); ms != 0.05 || mc != 0.3 {
		t.Errorf("rejected updates changed thresholds to %f, %f", ms, mc)
	}
}

func TestDecayRate(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantRate   float64
	}{
		{"explicit rate", `{"decay_rate":0.05}`, http.StatusOK, 0.05},
		{"vertical", `{"vertical":"durables"}`, http.StatusOK, 0.01},
		{"zero disables decay", `{"decay_rate":0}`, http.StatusOK, 0},
		{"negative", `{"decay_rate":-1}`, http.StatusBadRequest, 0},
		{"unknown vertical", `{"vertical":"spaceships"}`, http.StatusBadRequest, 0},
		{"both", `{"decay_rate":0.2,"vertical":"grocery"}`, http.StatusBadRequest, 0},
		{"neither", `{}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodPut, "/api/v1/recommendations/decay-rate", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var dr DecayRateResponse
			decodeData(t, resp, &dr)
			if dr.DecayRate != tt.wantRate {
				t.Errorf("DecayRate = %f, want %f", dr.DecayRate, tt.wantRate)
			}
		})
	}
}

func TestClearCacheAndStatus(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Dependencies{Breaker: stubBreaker{healthy: false}})

	s.do(t, http.MethodGet, "/api/v1/recommendations/rules?items=biryani", nil)
	if s.engine.GetMetrics().CachedRuleSets == 0 {
		t.Fatal("rules should be cached")
	}

	rec, _ := s.do(t, http.MethodPost, "/api/v1/recommendations/cache/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if n := s.engine.GetMetrics().CachedRuleSets; n != 0 {
		t.Errorf("CachedRuleSets after clear = %d", n)
	}

	_, resp := s.do(t, http.MethodGet, "/api/v1/recommendations/status", nil)
	var status StatusResponse
	decodeData(t, resp, &status)
	if status.Metrics.RequestCount == 0 {
		t.Error("status should report engine requests")
	}
	if status.StoreAvailable {
		t.Error("open breaker should report the store unavailable")
	}
	if status.NeutralScore != 0.5 {
		t.Errorf("NeutralScore = %f", status.NeutralScore)
	}
}

func TestPostOrder(t *testing.T) {
	t.Parallel()

	t.Run("ingestion disabled", func(t *testing.T) {
		s := newTestServer(t, Dependencies{})
		rec, _ := s.do(t, http.MethodPost, "/api/v1/orders", `{}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("stores and invalidates", func(t *testing.T) {
		writer := &memoryWriter{}
		s := newTestServer(t, Dependencies{Orders: writer})
		writer.store = s.store

		before := s.engine.GetUserProfile(t.Context(), "dosa-fan")
		if _, ok := before.Preferences["raita"]; ok {
			t.Fatal("dosa-fan should not have raita yet")
		}

		order := recommend.Order{
			ID:         "new-1",
			CustomerID: "dosa-fan",
			CreatedAt:  time.Now().UTC(),
			Status:     recommend.StatusCompleted,
			Items:      []recommend.LineItem{{ItemID: "raita", Quantity: 3}},
		}
		rec, _ := s.do(t, http.MethodPost, "/api/v1/orders", order)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		after := s.engine.GetUserProfile(t.Context(), "dosa-fan")
		if _, ok := after.Preferences["raita"]; !ok {
			t.Error("profile cache was not invalidated by the new order")
		}
	})

	t.Run("validation", func(t *testing.T) {
		s := newTestServer(t, Dependencies{Orders: &memoryWriter{}})
		for _, body := range []string{
			`{"id":"x","status":"completed","items":[]}`,
			`{"id":"x","status":"pending","items":[{"item_id":"a","quantity":1}]}`,
			`{"id":"x","status":"completed","items":[{"item_id":"a","quantity":0}]}`,
			`{"status":"completed","items":[{"item_id":"a","quantity":1}]}`,
		} {
			rec, resp := s.do(t, http.MethodPost, "/api/v1/orders", body)
			if rec.Code != http.StatusBadRequest || resp.Error.Code != ErrCodeValidation {
				t.Errorf("%s: status = %d, error = %+v", body, rec.Code, resp.Error)
			}
		}
	})

	t.Run("store failure", func(t *testing.T) {
		s := newTestServer(t, Dependencies{Orders: &memoryWriter{err: errStoreDown}})
		rec, resp := s.do(t, http.MethodPost, "/api/v1/orders",
			`{"id":"x","status":"completed","items":[{"item_id":"a","quantity":1}]}`)
		if rec.Code != http.StatusServiceUnavailable || resp.Error.Code != ErrCodeStoreError {
			t.Errorf("status = %d, error = %+v", rec.Code, resp.Error)
		}
	})
}
