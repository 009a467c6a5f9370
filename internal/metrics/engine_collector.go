// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/affinity/internal/recommend"
)

// EngineSource is implemented by *recommend.Engine.
type EngineSource interface {
	GetMetrics() recommend.Metrics
}

// EngineCollector exports the engine's internal counters on every scrape.
// The engine keeps its own atomic counters, so the collector reads a
// snapshot instead of mirroring each increment into promauto vectors.
type EngineCollector struct {
	source EngineSource

	requests   *prometheus.Desc
	cacheHits  *prometheus.Desc
	cacheMiss  *prometheus.Desc
	fallbacks  *prometheus.Desc
	cacheItems *prometheus.Desc
}

// NewEngineCollector creates a collector for source. Register it with
// prometheus.MustRegister or a custom registry.
func NewEngineCollector(source EngineSource) *EngineCollector {
	return &EngineCollector{
		source: source,
		requests: prometheus.NewDesc(
			"recommend_requests_total",
			"Total number of public recommendation engine calls",
			nil, nil,
		),
		cacheHits: prometheus.NewDesc(
			"recommend_cache_hits_total",
			"Total number of engine cache hits",
			[]string{"cache"}, nil,
		),
		cacheMiss: prometheus.NewDesc(
			"recommend_cache_misses_total",
			"Total number of engine cache misses",
			[]string{"cache"}, nil,
		),
		fallbacks: prometheus.NewDesc(
			"recommend_fallbacks_total",
			"Total number of order store failures absorbed by a neutral fallback",
			nil, nil,
		),
		cacheItems: prometheus.NewDesc(
			"recommend_cache_entries",
			"Current number of entries per engine cache",
			[]string{"cache"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.cacheHits
	ch <- c.cacheMiss
	ch <- c.fallbacks
	ch <- c.cacheItems
}

// Collect implements prometheus.Collector.
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.source.GetMetrics()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(m.RequestCount))
	ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue, float64(m.FallbackCount))

	for _, s := range []struct {
		cache        string
		hits, misses int64
		entries      int
	}{
		{"rules", m.RuleCacheHits, m.RuleCacheMisses, m.CachedRuleSets},
		{"profiles", m.ProfileCacheHits, m.ProfileCacheMisses, m.CachedProfiles},
		{"similarity", m.SimilarityCacheHits, m.SimilarityCacheMisses, m.CachedSimilarity},
	} {
		ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(s.hits), s.cache)
		ch <- prometheus.MustNewConstMetric(c.cacheMiss, prometheus.CounterValue, float64(s.misses), s.cache)
		ch <- prometheus.MustNewConstMetric(c.cacheItems, prometheus.GaugeValue, float64(s.entries), s.cache)
	}
}
