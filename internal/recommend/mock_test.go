// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"context"
	"sync"
)

// staticSimilarity returns fixed neighbour maps, truncated by score.
type staticSimilarity struct {
	name      string
	neighbors map[int64]ScoreMap
	calls     []int
	mu        sync.Mutex
}

func (s *staticSimilarity) Name() string { return s.name }
func (s *staticSimilarity) Len() int     { return len(s.neighbors) }

func (s *staticSimilarity) Recommend(id int64, topN int) ScoreMap {
	s.mu.Lock()
	s.calls = append(s.calls, topN)
	s.mu.Unlock()

	out := ScoreMap{}
	for k, v := range s.neighbors[id] {
		if k != id {
			out[k] = v
		}
	}
	return out
}

// mockAlgorithm returns sim or err from Fit and can block until released.
type mockAlgorithm struct {
	name    string
	sim     Similarity
	err     error
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (m *mockAlgorithm) Name() string { return m.name }

func (m *mockAlgorithm) Fit(ctx context.Context, _ *TrainingData) (Similarity, error) {
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.sim, nil
}

// mockProvider serves fixed tables.
type mockProvider struct {
	titles       []Title
	interactions []Interaction
	err          error
}

func (m *mockProvider) LoadTitles(context.Context) ([]Title, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.titles, nil
}

func (m *mockProvider) LoadInteractions(context.Context) ([]Interaction, error) {
	return m.interactions, nil
}

// memoryStore keeps snapshots in memory.
type memoryStore struct {
	mu    sync.Mutex
	snaps []*Snapshot
	err   error
}

func (m *memoryStore) SaveSnapshot(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *memoryStore) LatestSnapshot(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return nil, ErrNoSnapshot
	}
	return m.snaps[len(m.snaps)-1], nil
}

func (m *memoryStore) LatestVersion(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := 0
	for _, s := range m.snaps {
		latest = max(latest, s.Version)
	}
	return latest, nil
}

// versionedProvider is a mockProvider that reports a data version.
type versionedProvider struct {
	mockProvider
	version string
}

func (v *versionedProvider) DataVersion(context.Context) (string, error) {
	return v.version, nil
}

// scoreScaler multiplies every score, standing in for a real reranker.
type scoreScaler struct{ factor float64 }

func (s scoreScaler) Name() string { return "scale" }

func (s scoreScaler) Rerank(_ *Title, c []Candidate) []Candidate {
	for i := range c {
		c[i].Score *= s.factor
	}
	return c
}

func sampleTitles() []Title {
	return []Title{
		{ID: 1, Name: "Fullmetal Alchemist", Genres: "Action, Adventure", Type: "TV", Quality: "8.1", Episodes: "51"},
		{ID: 2, Name: "Fullmetal Alchemist: Brotherhood", Genres: "Action, Adventure", Type: "TV", Quality: "9.1", Episodes: "64"},
		{ID: 3, Name: "Naruto", Genres: "Action", Type: "TV", Quality: "8.0", Episodes: "220"},
		{ID: 4, Name: "Bleach", Genres: "Action", Type: "TV", Quality: "7.9", Episodes: "UNKNOWN"},
		{ID: 5, Name: "Soul Eater", Genres: "Action, Comedy", Type: "TV", Quality: "UNKNOWN", ImageURL: "https://img/5.jpg"},
		{ID: 6, Name: "naruto shippuden", Genres: "Action", Type: "TV", Quality: "8.2"},
	}
}
