// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package reranking implements the post-blend stages of the hybrid ranker.

Stages run in registration order on the blended candidate list, before the
final sort and truncation:

  - QualityBoost multiplies the score of titles whose numeric quality is
    strictly above a threshold (default 8.0, x1.1). Unknown or
    non-numeric quality leaves the score untouched.
  - SequelFilter drops titles whose name repeats most of the target's
    significant words (default: words of 4+ characters, overlap > 0.6),
    which catches seasons, sequels, and spin-offs of the query.

Both thresholds come from recommend.Config so they can be tuned per
dataset without code changes.

# Extension point

A popularity penalty (damping titles everyone has seen) would be a third
stage registered after QualityBoost. It is intentionally absent; the
catalog carries no audience-size column to drive it.
*/
package reranking
