// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package algorithms implements the two similarity engines of the hybrid
// ranker.
//
//   - ContentBased fits a TF-IDF vector space over genre, type, and
//     synopsis text and ranks neighbours by cosine similarity.
//   - Collaborative reduces the title x user rating matrix with a seeded
//     randomized truncated SVD and ranks neighbours by Pearson correlation
//     of the latent rows.
//
// # Thread Safety
//
// Fit returns a new immutable model on every call. Models are read-only
// and safe for any number of concurrent readers.
package algorithms

import (
	"container/heap"
	"context"
	"encoding/gob"
	"sync"
	"time"

	"github.com/tomtom215/codex/internal/recommend"
)

//nolint:gochecknoinits // snapshots hold models behind recommend.Similarity
func init() {
	gob.Register(&ContentModel{})
	gob.Register(&CollaborativeModel{})
}

// BaseAlgorithm provides bookkeeping shared by both algorithms.
type BaseAlgorithm struct {
	name        string
	fits        int
	lastFitAt   time.Time
	lastFitTook time.Duration
	mu          sync.RWMutex
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{name: name}
}

// Name returns the algorithm identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// Fits returns how many fits completed successfully.
func (b *BaseAlgorithm) Fits() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fits
}

// LastFitAt returns when the last successful fit finished.
func (b *BaseAlgorithm) LastFitAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastFitAt
}

// LastFitDuration returns how long the last successful fit took.
func (b *BaseAlgorithm) LastFitDuration() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastFitTook
}

func (b *BaseAlgorithm) markFitted(start time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fits++
	b.lastFitAt = time.Now()
	b.lastFitTook = b.lastFitAt.Sub(start)
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// rowIndex maps title IDs to rows, keeping the first row per ID.
func rowIndex(ids []int64) map[int64]int {
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}
	return index
}

// scored pairs a row with its score.
type scored struct {
	row   int
	score float64
}

// better orders by score descending, then row ascending.
func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.row < b.row
}

// worstFirst is a heap whose root is the weakest kept entry.
type worstFirst []scored

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topRows returns up to n rows with the highest scores, skipping exclude,
// ordered by score descending with ties broken by lower row. This equals
// a stable descending sort truncated to n.
func topRows(scores []float64, exclude, n int) []scored {
	if n <= 0 {
		return nil
	}
	h := make(worstFirst, 0, min(n, len(scores)))
	for row, s := range scores {
		if row == exclude {
			continue
		}
		c := scored{row: row, score: s}
		if h.Len() < n {
			heap.Push(&h, c)
			continue
		}
		if better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]scored, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(scored)
	}
	return out
}

// toScoreMap converts ranked rows to a ScoreMap keyed by title ID.
func toScoreMap(rows []scored, ids []int64) recommend.ScoreMap {
	out := make(recommend.ScoreMap, len(rows))
	for _, r := range rows {
		out[ids[r.row]] = r.score
	}
	return out
}

var (
	_ recommend.Algorithm  = (*ContentBased)(nil)
	_ recommend.Algorithm  = (*Collaborative)(nil)
	_ recommend.Similarity = (*ContentModel)(nil)
	_ recommend.Similarity = (*CollaborativeModel)(nil)
)
