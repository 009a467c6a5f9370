// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package cache provides a thread-safe, generic in-memory cache with optional
TTL expiration and LRU eviction.

The recommendation engine keeps three caches per engine instance (mined rules,
customer profiles and pairwise item similarity). Each one is a TTLCache owned by
the engine, so two engines never share state and tests can drive expiry through
a ManualClock instead of sleeping.

# Expiration

Entries are checked lazily on Get. A TTL of zero means entries never expire and
are only removed by Delete, Clear or LRU eviction.

# Usage Example

	c := cache.NewTTLCache[string, []Rule](cache.Options{
	    TTL:      30 * time.Minute,
	    Capacity: 10000,
	})
	c.Set("biryani", rules)
	if v, ok := c.Get("biryani"); ok {
	    // use v
	}

# Testing

	clock := cache.NewManualClock(time.Unix(0, 0))
	c := cache.NewTTLCache[string, int](cache.Options{TTL: time.Minute, Clock: clock})
	c.Set("k", 1)
	clock.Advance(2 * time.Minute)
	_, ok := c.Get("k") // false
*/
package cache
