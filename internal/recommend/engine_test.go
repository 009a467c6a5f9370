// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewEngine(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewEngine(nil, nil, logger)
		if !errors.Is(err, ErrNoDataProvider) {
			t.Errorf("error = %v, want ErrNoDataProvider", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rules.MinSupport = 2
		if _, err := NewEngine(NewMemoryStore(), cfg, logger); err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		e, err := NewEngine(NewMemoryStore(), nil, logger)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		if s, c := e.Thresholds(); s != 0.01 || c != 0.10 {
			t.Errorf("thresholds = %f, %f, want defaults", s, c)
		}
	})

	t.Run("config is copied", func(t *testing.T) {
		cfg := DefaultConfig()
		e, err := NewEngine(NewMemoryStore(), cfg, logger)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		cfg.Scoring.NeutralScore = 0.9
		if e.GetConfig().Scoring.NeutralScore != 0.5 {
			t.Error("engine config changed through caller's pointer")
		}
	})
}

func TestCalculateAffinityScores(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore(biryaniCorpus()...), nil)
	ctx := context.Background()

	t.Run("empty cart is neutral", func(t *testing.T) {
		scores := e.CalculateAffinityScores(ctx, []string{"A", "B", "C"}, nil)
		want := map[string]float64{"A": 0.5, "B": 0.5, "C": 0.5}
		if len(scores) != len(want) {
			t.Fatalf("got %v, want %v", scores, want)
		}
		for id, w := range want {
			if scores[id] != w {
				t.Errorf("score[%s] = %f, want %f", id, scores[id], w)
			}
		}
	})

	t.Run("rule scores", func(t *testing.T) {
		scores := e.CalculateAffinityScores(ctx, []string{"raita", "naan", "coke", "biryani"}, []string{"biryani"})

		tests := []struct {
			item string
			want float64
		}{
			{"raita", 0.65},  // confidence 0.65, lift 1
			{"naan", 0.3},    // confidence 0.3, lift 1
			{"coke", 0.5},    // no rule
			{"biryani", 0.0}, // already in cart
		}
		for _, tt := range tests {
			if !approxEqual(scores[tt.item], tt.want) {
				t.Errorf("score[%s] = %f, want %f", tt.item, scores[tt.item], tt.want)
			}
		}
	})

	t.Run("cart items always zero", func(t *testing.T) {
		cart := []string{"biryani", "raita"}
		scores := e.CalculateAffinityScores(ctx, []string{"biryani", "raita", "naan"}, cart)
		for _, id := range cart {
			if scores[id] != 0 {
				t.Errorf("cart item %s scored %f", id, scores[id])
			}
		}
	})

	t.Run("candidates default to catalog", func(t *testing.T) {
		scores := e.CalculateAffinityScores(ctx, nil, []string{"biryani"})
		for _, id := range []string{"raita", "naan", "coke", "gulab_jamun", "biryani"} {
			if _, ok := scores[id]; !ok {
				t.Errorf("catalog item %s missing from scores", id)
			}
		}
	})
}

func TestCalculateAffinityScores_LiftCap(t *testing.T) {
	// b appears in every order containing a and nowhere else, so its lift is 4.
	orders := []Order{
		newOrder("1", "u1", 0, "a", "b"),
		newOrder("2", "u2", 0, "c"),
		newOrder("3", "u3", 0, "d"),
		newOrder("4", "u4", 0, "e"),
	}
	rules := mineRules(orders, []string{"a"}, DefaultConfig().Rules)
	if r, ok := findRule(rules, "b"); !ok || r.Lift != 4 {
		t.Fatalf("expected lift 4 for a -> b, got %+v", rules)
	}

	e, _ := newTestEngine(t, NewMemoryStore(orders...), nil)
	if got := e.ruleScore(rules); got != 1 {
		t.Errorf("ruleScore = %f, want 1 (confidence 1 × min(4, 2) capped at 1)", got)
	}
	half := []AffinityRule{{Confidence: 0.3, Lift: 4}}
	if got := e.ruleScore(half); !approxEqual(got, 0.6) {
		t.Errorf("ruleScore = %f, want 0.6", got)
	}
}

func TestScoresAlwaysInUnitInterval(t *testing.T) {
	store := NewMemoryStore(append(biryaniCorpus(), neighbourCorpus()...)...)
	e, _ := newTestEngine(t, store, nil)
	ctx := context.Background()

	carts := [][]string{nil, {"biryani"}, {"raita"}, {"biryani", "naan"}, {"a"}}
	for _, cart := range carts {
		for id, s := range e.CalculateAffinityScores(ctx, nil, cart) {
			if s < 0 || s > 1 || math.IsNaN(s) {
				t.Errorf("cart %v: affinity score[%s] = %f", cart, id, s)
			}
		}
		for _, sug := range e.GetCompleteMealSuggestions(ctx, cart, 0) {
			if sug.Score < 0 || sug.Score > 1 {
				t.Errorf("cart %v: suggestion %s = %f", cart, sug.ItemID, sug.Score)
			}
		}
	}
	for _, customer := range []string{"", "u1", "u2", "c-001", "ghost"} {
		for id, s := range e.CalculateScores(ctx, nil, customer) {
			if s < 0 || s > 1 || math.IsNaN(s) {
				t.Errorf("customer %q: collaborative score[%s] = %f", customer, id, s)
			}
		}
	}
}

// collaborativeCorpus: u1 ordered a today and 4 × b twenty days ago. u2 bought a and c, u3 bought b and c.
func collaborativeCorpus() []Order {
	old := newOrder("2", "u1", 20*24*time.Hour, "b")
	old.Items[0].Quantity = 4
	return []Order{
		newOrder("1", "u1", 0, "a"),
		old,
		newOrder("3", "u2", 30*24*time.Hour, "a", "c"),
		newOrder("4", "u3", 30*24*time.Hour, "b", "c"),
	}
}

func TestCalculateScores(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore(collaborativeCorpus()...), nil)
	ctx := context.Background()

	profile := e.GetUserProfile(ctx, "u1")
	ra := profile.RecencyWeightedPreferences["a"]
	rb := profile.RecencyWeightedPreferences["b"]
	if ra != 1 || rb >= 0.7 {
		t.Fatalf("unexpected fixture profile: a=%f b=%f", ra, rb)
	}

	scores := e.CalculateScores(ctx, []string{"a", "c", "z"}, "u1")

	if scores["a"] != 0.3 {
		t.Errorf("recently bought a scored %f, want suppressed 0.3", scores["a"])
	}

	simA := e.GetItemSimilarity(ctx, "a", "c")
	simB := e.GetItemSimilarity(ctx, "b", "c")
	want := (simA*ra + simB*rb) / (simA + simB)
	if !approxEqual(scores["c"], want) {
		t.Errorf("score[c] = %f, want %f", scores["c"], want)
	}

	if scores["z"] != 0.5 {
		t.Errorf("item with no similar liked items scored %f, want neutral 0.5", scores["z"])
	}
}

func TestCalculateScores_Neutral(t *testing.T) {
	store := NewMemoryStore(collaborativeCorpus()...)
	e, _ := newTestEngine(t, store, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		customer string
	}{
		{"no customer", ""},
		{"unknown customer", "never-ordered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := e.CalculateScores(ctx, []string{"a", "b", "c"}, tt.customer)
			for id, s := range scores {
				if s != 0.5 {
					t.Errorf("score[%s] = %f, want 0.5", id, s)
				}
			}
			if len(scores) != 3 {
				t.Errorf("got %d scores, want 3", len(scores))
			}
		})
	}

	t.Run("store down", func(t *testing.T) {
		downStore := NewMemoryStore(collaborativeCorpus()...)
		downStore.SetErr(errStoreDown)
		down, _ := newTestEngine(t, downStore, nil)
		for id, s := range down.CalculateScores(ctx, []string{"a", "c"}, "u1") {
			if s != 0.5 {
				t.Errorf("score[%s] = %f, want 0.5 on failure", id, s)
			}
		}
	})
}

func TestGetCompleteMealSuggestions(t *testing.T) {
	store := NewMemoryStore(biryaniCorpus()...)
	e, _ := newTestEngine(t, store, nil)
	ctx := context.Background()

	suggestions := e.GetCompleteMealSuggestions(ctx, []string{"biryani"}, 0)
	if len(suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1 (only raita clears 0.5): %+v", len(suggestions), suggestions)
	}
	s := suggestions[0]
	if s.ItemID != "raita" || !approxEqual(s.Score, 0.65) {
		t.Errorf("suggestion = %s %f, want raita 0.65", s.ItemID, s.Score)
	}
	if len(s.ContributingRules) != 1 || s.ContributingRules[0].ConsequentID() != "raita" {
		t.Errorf("contributing rules = %+v", s.ContributingRules)
	}

	if got := e.GetCompleteMealSuggestions(ctx, nil, 10); len(got) != 0 {
		t.Errorf("empty cart returned %+v", got)
	}

	store.SetAvailable("raita", false)
	if got := e.GetCompleteMealSuggestions(ctx, []string{"biryani"}, 10); len(got) != 0 {
		t.Errorf("unavailable raita still suggested: %+v", got)
	}
}

func TestGetCompleteMealSuggestions_CatalogDown(t *testing.T) {
	store := NewMemoryStore(biryaniCorpus()...)
	store.SetAvailable("raita", false)
	e, _ := newTestEngine(t, failingCatalog{store}, nil)

	got := e.GetCompleteMealSuggestions(context.Background(), []string{"biryani"}, 10)
	if len(got) != 1 || got[0].ItemID != "raita" {
		t.Errorf("catalog failure should skip availability filtering, got %+v", got)
	}
}

func TestGetCompleteMealSuggestions_Limit(t *testing.T) {
	var orders []Order
	for i := 0; i < 20; i++ {
		orders = append(orders, newOrder(string(rune('a'+i)), "u", 0, "main", "x", "y", "z"))
	}
	e, _ := newTestEngine(t, NewMemoryStore(orders...), nil)

	got := e.GetCompleteMealSuggestions(context.Background(), []string{"main"}, 2)
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(got))
	}
	if got[0].ItemID != "x" || got[1].ItemID != "y" {
		t.Errorf("ties should be ordered by item ID, got %s, %s", got[0].ItemID, got[1].ItemID)
	}
}

func TestGetAlsoBoughtSuggestions(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore(biryaniCorpus()...), nil)
	ctx := context.Background()

	got := e.GetAlsoBoughtSuggestions(ctx, "biryani", 10)
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want raita and naan: %+v", len(got), got)
	}
	if got[0].ItemID != "raita" || got[1].ItemID != "naan" {
		t.Errorf("order = %s, %s, want raita, naan", got[0].ItemID, got[1].ItemID)
	}

	if one := e.GetAlsoBoughtSuggestions(ctx, "biryani", 1); len(one) != 1 {
		t.Errorf("limit 1 returned %d", len(one))
	}
	if none := e.GetAlsoBoughtSuggestions(ctx, "", 5); len(none) != 0 {
		t.Errorf("empty item returned %+v", none)
	}
}

func TestSuggestions_ContributingRulesAreCopies(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore(biryaniCorpus()...), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		suggest func() []AffinityScore
	}{
		{"complete meal", func() []AffinityScore { return e.GetCompleteMealSuggestions(ctx, []string{"biryani"}, 0) }},
		{"also bought", func() []AffinityScore { return e.GetAlsoBoughtSuggestions(ctx, "biryani", 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.suggest()
			if len(got) == 0 || len(got[0].ContributingRules) == 0 {
				t.Fatalf("expected suggestions with rules, got %+v", got)
			}
			got[0].ContributingRules[0].Antecedent[0] = "mutated"
			got[0].ContributingRules[0].Consequent[0] = "mutated"

			for _, r := range e.MineRules(ctx, []string{"biryani"}) {
				if r.Antecedent[0] != "biryani" || r.ConsequentID() == "mutated" {
					t.Errorf("cached rule changed through suggestion: %+v", r)
				}
			}
			again := tt.suggest()
			if again[0].ContributingRules[0].Antecedent[0] != "biryani" {
				t.Errorf("repeat suggestion antecedent = %v", again[0].ContributingRules[0].Antecedent)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	store := NewMemoryStore(append(biryaniCorpus(), similarityCorpus()...)...)
	e, _ := newTestEngine(t, store, nil)
	ctx := context.Background()

	e.MineRules(ctx, []string{"biryani"})
	e.GetUserProfile(ctx, "c1")
	e.GetItemSimilarity(ctx, "a", "b")
	m := e.GetMetrics()
	if m.CachedRuleSets != 1 || m.CachedProfiles != 1 || m.CachedSimilarity != 1 {
		t.Fatalf("cache sizes before clear = %+v", m)
	}

	e.ClearCache()
	m = e.GetMetrics()
	if m.CachedRuleSets != 0 || m.CachedProfiles != 0 || m.CachedSimilarity != 0 {
		t.Errorf("cache sizes after clear = %+v", m)
	}

	calls := store.FindCalls()
	e.MineRules(ctx, []string{"biryani"})
	if store.FindCalls() == calls {
		t.Error("MineRules after ClearCache should query the store")
	}
}

func TestPruneCaches(t *testing.T) {
	store := NewMemoryStore(append(biryaniCorpus(), similarityCorpus()...)...)
	e, clock := newTestEngine(t, store, nil)
	ctx := context.Background()

	e.MineRules(ctx, []string{"biryani"})
	e.GetUserProfile(ctx, "c1")
	e.GetItemSimilarity(ctx, "a", "b")

	if n := e.PruneCaches(); n != 0 {
		t.Errorf("PruneCaches() before TTL = %d, want 0", n)
	}

	clock.Advance(31 * time.Minute)
	if n := e.PruneCaches(); n == 0 {
		t.Error("PruneCaches() after TTL removed nothing")
	}
	m := e.GetMetrics()
	if m.CachedProfiles != 0 || m.CachedSimilarity != 0 {
		t.Errorf("expired entries left behind: %+v", m)
	}
	if m.CachedRuleSets != 1 {
		t.Errorf("rule lists have no TTL and should survive, got %d", m.CachedRuleSets)
	}
}

func TestInvalidateOrder(t *testing.T) {
	store := NewMemoryStore(similarityCorpus()...)
	e, _ := newTestEngine(t, store, nil)
	ctx := context.Background()

	if got := e.GetItemSimilarity(ctx, "a", "b"); !approxEqual(got, 0.5) {
		t.Fatalf("similarity = %f, want 0.5", got)
	}
	e.GetUserProfile(ctx, "c1")

	o := newOrder("new", "c1", 0, "b")
	store.AddOrders(o)
	e.InvalidateOrder(&o)

	// c1 now bought both, so the intersection grows to 3 of 4.
	if got := e.GetItemSimilarity(ctx, "a", "b"); !approxEqual(got, 0.75) {
		t.Errorf("similarity after invalidation = %f, want 0.75", got)
	}
	if _, ok := e.GetUserProfile(ctx, "c1").Preferences["b"]; !ok {
		t.Error("profile should be rebuilt with the new order")
	}

	e.InvalidateOrder(nil)
}

func TestGetConfigReflectsRuntimeChanges(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore(), nil)

	if err := e.SetThresholds(0.05, 0.2); err != nil {
		t.Fatal(err)
	}
	if err := e.SetDecayRate(0.02); err != nil {
		t.Fatal(err)
	}

	cfg := e.GetConfig()
	if cfg.Rules.MinSupport != 0.05 || cfg.Rules.MinConfidence != 0.2 || cfg.Profile.DecayRate != 0.02 {
		t.Errorf("GetConfig() = %+v", cfg)
	}
}

func TestConcurrentScoring(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore(append(biryaniCorpus(), neighbourCorpus()...)...), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			switch n % 4 {
			case 0:
				e.CalculateAffinityScores(ctx, []string{"raita", "naan"}, []string{"biryani"})
			case 1:
				e.CalculateScores(ctx, []string{"d", "f"}, "u1")
			case 2:
				e.GetUserBasedRecommendations(ctx, "u1", 5)
			case 3:
				e.ClearCache()
			}
		}(i)
	}
	wg.Wait()

	// ClearCache is not a scoring request.
	if e.GetMetrics().RequestCount != 15 {
		t.Errorf("RequestCount = %d, want 15", e.GetMetrics().RequestCount)
	}
}
