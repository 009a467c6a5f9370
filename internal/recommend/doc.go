// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package recommend implements the order recommendation scoring engine.
//
// # Architecture
//
// The engine combines two families of signal over historical orders:
//
//   - Association rules: "customers who ordered X also ordered Y", mined per
//     antecedent with support, confidence and lift (RuleMiner), plus seedless
//     frequent 2- and 3-item bundles (BundleFinder).
//   - Collaborative filtering: per-customer preference vectors with
//     exponential temporal decay (Profiler), item-item Jaccard similarity over
//     purchasing customers and user-user overlap (SimilarityEstimator).
//
// Engine exposes both as scores in [0, 1].
//
// # Formulas
//
//	support    = co(A, c) / |sample|
//	confidence = co(A, c) / |orders ⊇ A|
//	lift       = confidence / (occ(c) / |sample|)
//	decay      = exp(-λ × daysAgo)        λ = 0.1 ⇒ half-life ≈ 7 days
//	sim(a, b)  = |C(a) ∩ C(b)| / |C(a) ∪ C(b)|
//
// # Failure Model
//
// Scoring is best effort. An order-store failure never reaches the caller:
// rule mining and bundle finding return empty lists, profiles come back empty,
// similarity is 0 and scores fall back to neutral (0.5). Every substitution is
// logged at warn level and counted in Metrics.FallbackCount. Failed reads are
// never cached.
//
// # Caching
//
// Each Engine owns its caches (internal/cache.TTLCache). Rule lists never
// expire and are dropped by ClearCache, SetThresholds or InvalidateOrder.
// Profiles and similarities expire after their TTL, checked lazily against the
// clock passed with WithClock.
//
// # Usage
//
//	engine, err := recommend.NewEngine(store, recommend.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	scores := engine.CalculateAffinityScores(ctx, []string{"raita", "naan"}, []string{"biryani"})
//	meal := engine.GetCompleteMealSuggestions(ctx, []string{"biryani"}, 5)
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use. Concurrent misses on the
// same key may compute the same entry twice; the result is identical and the
// entry is replaced as a whole.
package recommend
