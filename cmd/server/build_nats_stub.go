// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build !nats

package main

// natsCompiled reports whether the NATS transport is linked in.
const natsCompiled = false
