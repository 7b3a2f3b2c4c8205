// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package reranking

import "github.com/tomtom215/codex/internal/recommend"

// QualityBoost rewards highly rated titles.
type QualityBoost struct {
	threshold  float64
	multiplier float64
}

// NewQualityBoost creates a boost stage from cfg.
func NewQualityBoost(cfg recommend.BoostConfig) *QualityBoost {
	return &QualityBoost{threshold: cfg.Threshold, multiplier: cfg.Multiplier}
}

// Name returns the reranker identifier.
func (q *QualityBoost) Name() string {
	return "quality_boost"
}

// Applies reports whether a title's score would be boosted.
func (q *QualityBoost) Applies(t *recommend.Title) bool {
	v, ok := t.QualityScore()
	return ok && v > q.threshold
}

// Rerank multiplies qualifying scores in place.
func (q *QualityBoost) Rerank(_ *recommend.Title, candidates []recommend.Candidate) []recommend.Candidate {
	for i := range candidates {
		if candidates[i].Title != nil && q.Applies(candidates[i].Title) {
			candidates[i].Score *= q.multiplier
		}
	}
	return candidates
}

var _ recommend.Reranker = (*QualityBoost)(nil)

// FromConfig returns the enabled stages in pipeline order.
func FromConfig(cfg *recommend.Config) []recommend.Reranker {
	var stages []recommend.Reranker
	if cfg.Boost.Enabled {
		stages = append(stages, NewQualityBoost(cfg.Boost))
	}
	if cfg.Sequel.Enabled {
		stages = append(stages, NewSequelFilter(cfg.Sequel))
	}
	return stages
}
