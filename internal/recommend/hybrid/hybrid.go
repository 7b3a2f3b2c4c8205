// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package hybrid assembles a recommend.Engine with the TF-IDF content
// engine, the latent-factor collaborative engine, and the reranking
// stages enabled in the configuration.
package hybrid

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/codex/internal/recommend"
	"github.com/tomtom215/codex/internal/recommend/algorithms"
	"github.com/tomtom215/codex/internal/recommend/reranking"
)

// NewEngine returns a fully wired engine. It still needs a Fit or Restore
// before it serves queries.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *recommend.Config, provider recommend.DataProvider, logger zerolog.Logger) (*recommend.Engine, error) {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	engine, err := recommend.NewEngine(cfg, provider, logger)
	if err != nil {
		return nil, err
	}

	engine.SetAlgorithms(
		algorithms.NewContentBased(cfg.Content),
		algorithms.NewCollaborative(cfg.Collaborative),
	)
	for _, stage := range reranking.FromConfig(cfg) {
		engine.RegisterReranker(stage)
	}
	return engine, nil
}
