// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/logging"
)

// RecommendTuner is the part of the engine that can be retuned at runtime.
type RecommendTuner interface {
	SetThresholds(minSupport, minConfidence float64) error
	SetDecayRate(rate float64) error
}

// watchRecommendSettings reloads the config file on change and applies the
// rule thresholds and decay rate. Other settings need a restart.
func watchRecommendSettings(path string, engine RecommendTuner) {
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		if err := applyRecommendSettings(&cfg.Recommend, engine); err != nil {
			logging.Warn().Err(err).Msg("Failed to apply reloaded recommend settings")
			return
		}
		logging.Info().Str("path", path).Msg("Recommend settings reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}

// applyRecommendSettings pushes the tunable subset of rc into the engine.
func applyRecommendSettings(rc *config.RecommendConfig, engine RecommendTuner) error {
	engineCfg, err := rc.EngineConfig()
	if err != nil {
		return err
	}
	if err := engine.SetThresholds(engineCfg.Rules.MinSupport, engineCfg.Rules.MinConfidence); err != nil {
		return err
	}
	return engine.SetDecayRate(engineCfg.Profile.DecayRate)
}
