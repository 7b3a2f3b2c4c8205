// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"math"
	"slices"
	"sort"
)

// rank blends both engines' neighbours of target, runs the rerankers, and
// returns at most k records. Equal scores keep ascending title ID order.
//
//nolint:gocritic // hugeParam: weights passed by value
func rank(snap *Snapshot, target *Title, weights Weights, k, pool int, rerankers []Reranker) []Recommendation {
	content := snap.Content.Recommend(target.ID, pool)
	collaborative := snap.Collaborative.Recommend(target.ID, pool)

	candidates := blend(snap, content, collaborative, weights)
	for _, rr := range rerankers {
		candidates = rr.Rerank(target, candidates)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	out := make([]Recommendation, 0, min(k, len(candidates)))
	for i := range candidates {
		if len(out) >= k {
			break
		}
		out = append(out, toRecommendation(&candidates[i]))
	}
	return out
}

// blend builds one candidate per title in either map, in ascending ID
// order. A missing score counts as 0. IDs without catalog metadata and
// non-finite scores are skipped.
//
//nolint:gocritic // hugeParam: weights passed by value
func blend(snap *Snapshot, content, collaborative ScoreMap, weights Weights) []Candidate {
	ids := unionIDs(content, collaborative)
	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		t, ok := snap.Title(id)
		if !ok {
			continue
		}
		c, cl := content[id], collaborative[id]
		score := weights.Blend(c, cl)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:         t,
			Content:       c,
			Collaborative: cl,
			Score:         score,
		})
	}
	return candidates
}

func unionIDs(a, b ScoreMap) []int64 {
	ids := make([]int64, 0, len(a)+len(b))
	for id := range a {
		ids = append(ids, id)
	}
	for id := range b {
		if _, dup := a[id]; !dup {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func toRecommendation(c *Candidate) Recommendation {
	t := c.Title
	r := Recommendation{
		ID:      t.ID,
		Title:   t.Name,
		Genres:  t.GenreList(),
		Type:    t.Type,
		Artwork: t.Artwork(),
		Score:   c.Score,
	}
	if r.Genres == nil {
		r.Genres = []string{}
	}
	if q, ok := t.QualityScore(); ok && !math.IsInf(q, 0) {
		r.Quality = &q
	}
	if n, ok := t.EpisodeCount(); ok {
		r.Episodes = &n
	}
	return r
}
