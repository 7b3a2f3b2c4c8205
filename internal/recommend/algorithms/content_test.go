// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package algorithms

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/codex/internal/recommend"
)

func contentCatalog() []recommend.Title {
	return []recommend.Title{
		{ID: 1, Name: "One Piece", Genres: "Action, Adventure", Type: "TV", Synopsis: "Pirates sail the sea."},
		{ID: 2, Name: "Naruto", Genres: "Action, Adventure", Type: "TV", Synopsis: "A ninja village."},
		{ID: 3, Name: "Gintama", Genres: "Action, Comedy", Type: "TV", Synopsis: "Samurai odd jobs."},
		{ID: 4, Name: "Your Name", Genres: "Romance, Drama", Type: "Movie", Synopsis: "Two strangers swap bodies."},
		{ID: 5, Name: "Toradora", Genres: "Romance, Comedy", Type: "TV", Synopsis: ""},
		{ID: 6, Name: "Clannad", Genres: "Romance, Drama", Type: "TV", Synopsis: "A family story."},
	}
}

func fitContent(t *testing.T, cfg recommend.ContentConfig, titles []recommend.Title) *ContentModel {
	t.Helper()
	sim, err := NewContentBased(cfg).Fit(context.Background(), &recommend.TrainingData{Titles: titles})
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return sim.(*ContentModel)
}

func TestNewContentBased_Defaults(t *testing.T) {
	c := NewContentBased(recommend.ContentConfig{})
	if c.config.GenreRepeat != 2 || c.config.MinDF != 3 || c.config.MaxFeatures != 5000 {
		t.Errorf("defaults not applied: %+v", c.config)
	}
	if c.Name() != "content" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestContentBased_Document(t *testing.T) {
	c := NewContentBased(recommend.ContentConfig{GenreRepeat: 2})
	got := c.Document(recommend.Title{Genres: "Action", Type: "TV", Synopsis: "Plot"})
	if got != "Action Action TV Plot" {
		t.Errorf("Document() = %q", got)
	}

	empty := c.Document(recommend.Title{})
	if empty != "   " {
		t.Errorf("Document() of empty title = %q", empty)
	}
}

func TestContentBased_EmptyCatalog(t *testing.T) {
	_, err := NewContentBased(recommend.ContentConfig{}).Fit(context.Background(), &recommend.TrainingData{})
	if !errors.Is(err, recommend.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestContentBased_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewContentBased(recommend.ContentConfig{MinDF: 1}).Fit(ctx, &recommend.TrainingData{Titles: contentCatalog()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestContentModel_Recommend(t *testing.T) {
	model := fitContent(t, recommend.ContentConfig{MinDF: 1}, contentCatalog())

	got := model.Recommend(1, 3)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if _, self := got[1]; self {
		t.Error("query title returned among results")
	}
	if got[2] <= got[3] {
		t.Errorf("expected Naruto (%v) above Gintama (%v)", got[2], got[3])
	}
	for id, s := range got {
		if s < 0 || s > 1+1e-9 {
			t.Errorf("score for %d out of range: %v", id, s)
		}
	}
}

func TestContentModel_RecommendProperties(t *testing.T) {
	model := fitContent(t, recommend.ContentConfig{MinDF: 1}, contentCatalog())

	for _, title := range contentCatalog() {
		for _, n := range []int{0, 1, 2, 5, 10} {
			got := model.Recommend(title.ID, n)
			if len(got) > n {
				t.Errorf("Recommend(%d, %d) returned %d entries", title.ID, n, len(got))
			}
			if _, self := got[title.ID]; self {
				t.Errorf("Recommend(%d, %d) includes itself", title.ID, n)
			}
		}

		// Every title outside the top 2 scores no higher than the 2nd.
		top := model.Recommend(title.ID, 2)
		all := model.Recommend(title.ID, 10)
		lowest := 2.0
		for _, s := range top {
			lowest = min(lowest, s)
		}
		for id, s := range all {
			if _, in := top[id]; !in && s > lowest {
				t.Errorf("title %d: %d scores %v above kept minimum %v", title.ID, id, s, lowest)
			}
		}
	}
}

func TestContentModel_TiesKeepCatalogOrder(t *testing.T) {
	titles := []recommend.Title{
		{ID: 30, Name: "C", Genres: "Action", Type: "TV"},
		{ID: 10, Name: "A", Genres: "Action", Type: "TV"},
		{ID: 20, Name: "B", Genres: "Action", Type: "TV"},
	}
	model := fitContent(t, recommend.ContentConfig{MinDF: 1}, titles)

	got := model.Recommend(30, 1)
	if _, ok := got[10]; !ok || len(got) != 1 {
		t.Errorf("expected the earlier row (ID 10) to win the tie, got %v", got)
	}
}

func TestContentModel_UnknownID(t *testing.T) {
	model := fitContent(t, recommend.ContentConfig{MinDF: 1}, contentCatalog())
	got := model.Recommend(999, 5)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}
}

func TestContentModel_MinDFPrunesEverything(t *testing.T) {
	titles := []recommend.Title{
		{ID: 1, Name: "A", Genres: "Action"},
		{ID: 2, Name: "B", Genres: "Drama"},
	}
	model := fitContent(t, recommend.ContentConfig{MinDF: 3}, titles)
	if len(model.Terms) != 0 {
		t.Fatalf("expected empty vocabulary, got %v", model.Terms)
	}
	got := model.Recommend(1, 5)
	if len(got) != 1 || got[2] != 0 {
		t.Errorf("expected a single zero score, got %v", got)
	}
}

func TestContentModel_Lookups(t *testing.T) {
	model := fitContent(t, recommend.ContentConfig{MinDF: 1}, contentCatalog())
	if model.Len() != 6 || model.Name() != "content" {
		t.Errorf("Len() = %d, Name() = %q", model.Len(), model.Name())
	}
	if row, ok := model.RowByName("Gintama"); !ok || row != 2 {
		t.Errorf("RowByName(Gintama) = %d, %v", row, ok)
	}
	if row, ok := model.Row(6); !ok || row != 5 {
		t.Errorf("Row(6) = %d, %v", row, ok)
	}
	if s := model.Similarity(0, 0); s < 0.999999 {
		t.Errorf("self similarity = %v, want 1", s)
	}
}
