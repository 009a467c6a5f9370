// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package logging provides the zerolog-based logger shared by every component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Msg("Server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("order store unavailable")
//
// Components take a zerolog.Logger in their constructor and tag it:
//
//	engine, _ := recommend.NewEngine(cfg, logging.Logger())
//	// every engine line carries "component":"recommend"
//
// # Configuration
//
// Configured through the logging section of the application config
// (LOG_LEVEL, LOG_FORMAT, LOG_CALLER environment variables).
//
// Always terminate log chains with .Msg() or .Send().
package logging
