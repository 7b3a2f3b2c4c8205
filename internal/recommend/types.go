// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
)

// PlaceholderArtwork is used when a title has no image.
const PlaceholderArtwork = "https://via.placeholder.com/300x450?text=No+Image"

// Title is one catalog entry. Quality and Episodes keep the raw source text
// because catalogs write "UNKNOWN" for missing values; use QualityScore and
// EpisodeCount to read them.
type Title struct {
	// ID is the catalog identifier, unique and immutable.
	ID int64 `json:"id"`

	// Name is the canonical display name. Never empty.
	Name string `json:"name"`

	// EnglishName is an optional alternate name.
	EnglishName string `json:"english_name,omitempty"`

	// Genres is comma separated free text, possibly empty.
	Genres string `json:"genres"`

	// Type is the media type (TV, Movie, OVA, ...).
	Type string `json:"type"`

	// Synopsis is free text, possibly empty.
	Synopsis string `json:"synopsis,omitempty"`

	// Quality is the raw quality score text.
	Quality string `json:"quality,omitempty"`

	// Episodes is the raw episode count text.
	Episodes string `json:"episodes,omitempty"`

	// ImageURL is the artwork reference, possibly empty.
	ImageURL string `json:"image_url,omitempty"`
}

// QualityScore returns the numeric quality score and whether the raw value
// parsed as a number. NaN counts as not numeric.
//
//nolint:gocritic // hugeParam: Title is read by value throughout the ranker
func (t Title) QualityScore() (float64, bool) {
	return parseNumber(t.Quality)
}

// EpisodeCount returns the episode count when known and positive.
//
//nolint:gocritic // hugeParam: see QualityScore
func (t Title) EpisodeCount() (int, bool) {
	v, ok := parseNumber(t.Episodes)
	if !ok || v <= 0 || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Round(v)), true
}

// GenreList splits Genres on commas, dropping blanks.
//
//nolint:gocritic // hugeParam: see QualityScore
func (t Title) GenreList() []string {
	return splitAndTrim(t.Genres, ",")
}

// Artwork returns ImageURL or the placeholder.
//
//nolint:gocritic // hugeParam: see QualityScore
func (t Title) Artwork() string {
	if strings.TrimSpace(t.ImageURL) == "" {
		return PlaceholderArtwork
	}
	return t.ImageURL
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Interaction is a single (user, title, rating) event. Rating is positive.
type Interaction struct {
	UserID  int64   `json:"user_id"`
	TitleID int64   `json:"title_id"`
	Rating  float64 `json:"rating"`
}

// ScoreMap maps title IDs to similarity scores. Owned by the caller that
// produced it.
type ScoreMap map[int64]float64

// Weights controls how the two similarity signals are blended.
type Weights struct {
	Content       float64 `json:"content" koanf:"content"`
	Collaborative float64 `json:"collaborative" koanf:"collaborative"`
}

// Blend returns content*w.Content + collaborative*w.Collaborative.
func (w Weights) Blend(content, collaborative float64) float64 {
	return content*w.Content + collaborative*w.Collaborative
}

// Recommendation is one entry of a result list.
type Recommendation struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Genres   []string `json:"genres"`
	Quality  *float64 `json:"quality,omitempty"`
	Episodes *int     `json:"episodes,omitempty"`
	Type     string   `json:"type"`
	Artwork  string   `json:"artwork"`
	Score    float64  `json:"score"`
}

// EpisodesLabel renders the episode count for display, "?" when unknown.
//
//nolint:gocritic // hugeParam: display helper on a value type
func (r Recommendation) EpisodesLabel() string {
	if r.Episodes == nil {
		return "?"
	}
	return strconv.Itoa(*r.Episodes) + " eps"
}

// RecommendRequest is the input to Engine.Recommend.
type RecommendRequest struct {
	// Query is free text matched against catalog names.
	Query string

	// TopK is the maximum number of results. Zero means Config.DefaultTopK.
	TopK int

	// Weights overrides Config.Weights when non-nil.
	Weights *Weights
}

// RecommendResult is the output of Engine.Recommend.
type RecommendResult struct {
	// Target is the resolved query title.
	Target Title `json:"target"`

	// Items is ordered by descending score and may be shorter than TopK.
	Items []Recommendation `json:"items"`

	// SnapshotVersion identifies the fitted state that served the request.
	SnapshotVersion int `json:"snapshot_version"`
}

// Similarity answers item-to-item queries over fitted, immutable state.
// Implementations must be safe for concurrent readers.
type Similarity interface {
	// Name identifies the engine ("content", "collaborative").
	Name() string

	// Recommend returns up to topN most similar titles to id, never
	// including id itself. An unknown id yields an empty map.
	Recommend(id int64, topN int) ScoreMap

	// Len reports how many titles the fitted state covers.
	Len() int
}

// TrainingData is the input to Algorithm.Fit.
type TrainingData struct {
	Titles       []Title
	Interactions []Interaction
}

// Algorithm fits a Similarity from training data. Fit never mutates
// previously returned Similarity values.
type Algorithm interface {
	Name() string
	Fit(ctx context.Context, data *TrainingData) (Similarity, error)
}

// Candidate is a scored title moving through the ranking pipeline.
type Candidate struct {
	Title         *Title
	Content       float64
	Collaborative float64
	Score         float64
}

// Reranker adjusts or filters blended candidates for a resolved target.
// Implementations must not reorder; the ranker sorts afterwards.
type Reranker interface {
	Name() string
	Rerank(target *Title, candidates []Candidate) []Candidate
}

// DataProvider supplies the catalog and interaction log to fit from.
type DataProvider interface {
	LoadTitles(ctx context.Context) ([]Title, error)
	LoadInteractions(ctx context.Context) ([]Interaction, error)
}

// DataVersioner is implemented by providers that can identify the data
// they currently serve. An empty version means no data has been loaded.
type DataVersioner interface {
	DataVersion(ctx context.Context) (string, error)
}

// SnapshotStore persists fitted snapshots between runs.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LatestSnapshot(ctx context.Context) (*Snapshot, error)

	// LatestVersion returns the newest stored version, or 0 when empty.
	LatestVersion(ctx context.Context) (int, error)
}

// Status describes the engine for health and status endpoints.
type Status struct {
	Ready             bool          `json:"ready"`
	Fitting           bool          `json:"fitting"`
	Version           int           `json:"version"`
	FittedAt          time.Time     `json:"fitted_at"`
	RunID             string        `json:"run_id,omitempty"`
	Titles            int           `json:"titles"`
	Interactions      int           `json:"interactions"`
	ContentRows       int           `json:"content_rows"`
	CollaborativeRows int           `json:"collaborative_rows"`
	Restored          bool          `json:"restored"`
	LastFitDuration   time.Duration `json:"last_fit_duration_ns"`
	LastError         string        `json:"last_error,omitempty"`
}
