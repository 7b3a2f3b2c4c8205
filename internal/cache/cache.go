// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/recommend"
)

// Recommender is the part of the engine the result cache fronts.
type Recommender interface {
	Snapshot() *recommend.Snapshot
	Recommend(ctx context.Context, req recommend.RecommendRequest) (*recommend.RecommendResult, error)
}

// ResultCache memoizes recommendation results per snapshot version. A nil
// *ResultCache is valid and caches nothing.
type ResultCache struct {
	lru *LRU[*recommend.RecommendResult]
}

// NewResultCache creates a cache of at most maxEntries results.
func NewResultCache(maxEntries int, ttl time.Duration) *ResultCache {
	return &ResultCache{lru: NewLRU[*recommend.RecommendResult](maxEntries, ttl)}
}

// Recommend serves req from the cache when the current snapshot already
// answered it, and otherwise asks r and caches a successful result. hit
// reports whether the cache answered. Cached results are shared and must
// not be modified.
//
//nolint:gocritic // hugeParam: mirrors Engine.Recommend
func (c *ResultCache) Recommend(ctx context.Context, r Recommender, req recommend.RecommendRequest) (res *recommend.RecommendResult, hit bool, err error) {
	snap := r.Snapshot()
	if c == nil || snap == nil {
		res, err = r.Recommend(ctx, req)
		return res, false, err
	}

	key := GenerateKey(snap.Version, req)
	if cached, ok := c.lru.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return cached, true, nil
	}
	metrics.RecordCacheLookup(false)

	res, err = r.Recommend(ctx, req)
	if err != nil {
		return nil, false, err
	}
	// A swap between the lookup and the call is keyed by the version that
	// actually served the request.
	c.lru.Add(GenerateKey(res.SnapshotVersion, req), res)
	metrics.SetCacheEntries(c.lru.Len())
	return res, false, nil
}

// Invalidate drops results computed from any snapshot other than current
// and returns how many were dropped.
func (c *ResultCache) Invalidate(current int) int {
	if c == nil {
		return 0
	}
	n := c.lru.RemoveFunc(func(_ string, res *recommend.RecommendResult) bool {
		return res.SnapshotVersion != current
	})
	metrics.SetCacheEntries(c.lru.Len())
	return n
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats returns the underlying LRU statistics.
func (c *ResultCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.lru.Stats()
}

// requestKey is the normalized form of a request. Queries differing only
// in case or surrounding space resolve to the same title, so they share an
// entry.
type requestKey struct {
	Query         string   `json:"q"`
	TopK          int      `json:"k"`
	Content       *float64 `json:"cw,omitempty"`
	Collaborative *float64 `json:"lw,omitempty"`
}

// GenerateKey builds the cache key for req served by snapshot version.
//
//nolint:gocritic // hugeParam: see Recommend
func GenerateKey(version int, req recommend.RecommendRequest) string {
	k := requestKey{
		Query: recommend.FoldName(strings.TrimSpace(req.Query)),
		TopK:  req.TopK,
	}
	if req.Weights != nil {
		content, collaborative := req.Weights.Content, req.Weights.Collaborative
		k.Content, k.Collaborative = &content, &collaborative
	}

	data, err := json.Marshal(k)
	if err != nil {
		return fmt.Sprintf("v%d:%v", version, k)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("v%d:%x", version, hash[:16])
}
