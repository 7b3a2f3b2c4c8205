// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"encoding/gob"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

//nolint:gochecknoinits // gob needs concrete types behind the Similarity fields
func init() {
	gob.Register(&EmptySimilarity{})
}

// Snapshot is the fitted state served to queries. A snapshot is never
// modified after install; a refresh builds and installs a new one.
type Snapshot struct {
	// Version increases by one per successful fit.
	Version int

	// RunID correlates the fit's log lines.
	RunID string

	// DataVersion identifies the imported data the snapshot was fitted
	// from. Empty when the provider does not report one.
	DataVersion string

	// FittedAt is when fitting finished.
	FittedAt time.Time

	// FitDuration covers loading and both engine fits.
	FitDuration time.Duration

	// EngineDurations holds per-engine fit times keyed by engine name.
	EngineDurations map[string]time.Duration

	// Titles is the catalog in row order.
	Titles []Title

	// Interactions is the number of interactions fitted.
	Interactions int

	Content       Similarity
	Collaborative Similarity

	byID   map[int64]int
	folded []string
}

// NewSnapshot assembles a snapshot from fitted engines. Titles with a blank
// name or an ID already seen are dropped.
func NewSnapshot(titles []Title, content, collaborative Similarity) *Snapshot {
	s := &Snapshot{
		Titles:          cleanTitles(titles),
		Content:         content,
		Collaborative:   collaborative,
		EngineDurations: make(map[string]time.Duration),
	}
	s.index()
	return s
}

func cleanTitles(titles []Title) []Title {
	seen := make(map[int64]struct{}, len(titles))
	out := make([]Title, 0, len(titles))
	for i := range titles {
		if strings.TrimSpace(titles[i].Name) == "" {
			continue
		}
		if _, dup := seen[titles[i].ID]; dup {
			continue
		}
		seen[titles[i].ID] = struct{}{}
		out = append(out, titles[i])
	}
	return out
}

// index rebuilds the lookup tables. Snapshots decoded from storage arrive
// without them.
func (s *Snapshot) index() {
	s.byID = make(map[int64]int, len(s.Titles))
	s.folded = make([]string, len(s.Titles))
	for i := range s.Titles {
		if _, dup := s.byID[s.Titles[i].ID]; !dup {
			s.byID[s.Titles[i].ID] = i
		}
		s.folded[i] = FoldName(s.Titles[i].Name)
	}
}

// Len returns the number of catalog titles.
func (s *Snapshot) Len() int {
	return len(s.Titles)
}

// Title returns the catalog entry for id.
func (s *Snapshot) Title(id int64) (*Title, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.Titles[i], true
}

// Resolve finds the title whose name contains query, ignoring case. When
// several match, the highest numeric quality wins; titles with unknown
// quality rank below any numeric score, and remaining ties go to the
// earlier catalog row. A blank query matches nothing.
func (s *Snapshot) Resolve(query string) (*Title, error) {
	q := FoldName(strings.TrimSpace(query))
	if q == "" {
		return nil, ErrNotFound
	}

	best := -1
	var bestScore float64
	bestKnown := false
	for i := range s.Titles {
		if !strings.Contains(s.folded[i], q) {
			continue
		}
		score, known := s.Titles[i].QualityScore()
		switch {
		case best < 0:
		case known && !bestKnown:
		case known && bestKnown && score > bestScore:
		default:
			continue
		}
		best, bestScore, bestKnown = i, score, known
	}
	if best < 0 {
		return nil, ErrNotFound
	}
	return &s.Titles[best], nil
}

// FoldName applies Unicode case folding as used for name matching. A
// Caser holds state, so one is created per call.
func FoldName(s string) string {
	return cases.Fold().String(s)
}

// EmptySimilarity answers every query with an empty map. It stands in for
// the collaborative engine when the interaction log is too small and
// CollaborativeConfig.Optional is set.
type EmptySimilarity struct {
	Engine string
}

// Name returns the engine name this value stands in for.
func (e *EmptySimilarity) Name() string { return e.Engine }

// Recommend always returns an empty map.
func (e *EmptySimilarity) Recommend(int64, int) ScoreMap { return ScoreMap{} }

// Len is always zero.
func (e *EmptySimilarity) Len() int { return 0 }
