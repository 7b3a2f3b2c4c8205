// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package algorithms

import (
	"context"
	"errors"
	"maps"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/codex/internal/recommend"
)

func defaultCollaborativeConfig() recommend.CollaborativeConfig {
	return recommend.DefaultConfig().Collaborative
}

// clusteredInteractions has two audiences: users 1-20 rate titles 100-104,
// users 21-40 rate titles 200-204, and a few users cross over.
func clusteredInteractions() []recommend.Interaction {
	rng := rand.New(rand.NewPCG(7, 7))
	var out []recommend.Interaction
	for u := int64(1); u <= 40; u++ {
		base := int64(100)
		if u > 20 {
			base = 200
		}
		for i := int64(0); i < 5; i++ {
			if i > 0 && rng.IntN(5) == 0 {
				continue
			}
			out = append(out, recommend.Interaction{UserID: u, TitleID: base + i, Rating: float64(6 + rng.IntN(5))})
		}
		if u%10 == 0 {
			out = append(out, recommend.Interaction{UserID: u, TitleID: 300, Rating: 7})
		}
	}
	return out
}

func fitCollaborative(t *testing.T, interactions []recommend.Interaction) *CollaborativeModel {
	t.Helper()
	sim, err := NewCollaborative(defaultCollaborativeConfig()).Fit(context.Background(),
		&recommend.TrainingData{Interactions: interactions})
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return sim.(*CollaborativeModel)
}

func TestCollaborative_TooFewTitles(t *testing.T) {
	tests := []struct {
		name         string
		interactions []recommend.Interaction
	}{
		{"no interactions", nil},
		{"one title", []recommend.Interaction{{UserID: 1, TitleID: 5, Rating: 8}, {UserID: 2, TitleID: 5, Rating: 9}}},
		{"second title only has a zero rating", []recommend.Interaction{{UserID: 1, TitleID: 5, Rating: 8}, {UserID: 1, TitleID: 6, Rating: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCollaborative(defaultCollaborativeConfig()).Fit(context.Background(),
				&recommend.TrainingData{Interactions: tt.interactions})
			if !errors.Is(err, recommend.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestCollaborative_Fit(t *testing.T) {
	model := fitCollaborative(t, clusteredInteractions())

	if model.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", model.Len())
	}
	if model.Components != 11 {
		t.Errorf("Components = %d, want 11 (clamped to title count)", model.Components)
	}
	if model.Users != 40 {
		t.Errorf("Users = %d, want 40", model.Users)
	}
	for i := 1; i < len(model.IDs); i++ {
		if model.IDs[i-1] >= model.IDs[i] {
			t.Fatalf("IDs not ascending: %v", model.IDs)
		}
	}
}

func TestCollaborativeModel_Recommend(t *testing.T) {
	model := fitCollaborative(t, clusteredInteractions())

	for _, id := range model.IDs {
		got := model.Recommend(id, 4)
		if len(got) != 4 {
			t.Errorf("Recommend(%d, 4) returned %d", id, len(got))
		}
		if _, self := got[id]; self {
			t.Errorf("Recommend(%d) includes itself", id)
		}
		for other, s := range got {
			if s < -1 || s > 1 || math.IsNaN(s) {
				t.Errorf("score %d->%d out of range: %v", id, other, s)
			}
		}
	}
}

func TestCollaborativeModel_NoInteractions(t *testing.T) {
	model := fitCollaborative(t, clusteredInteractions())
	got := model.Recommend(999, 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty map for a title without interactions, got %v", got)
	}
	if got := model.Recommend(100, 0); len(got) != 0 {
		t.Errorf("expected empty map for topN=0, got %v", got)
	}
}

func TestCollaborative_Deterministic(t *testing.T) {
	a := fitCollaborative(t, clusteredInteractions())
	b := fitCollaborative(t, clusteredInteractions())
	for _, id := range a.IDs {
		if !maps.Equal(a.Recommend(id, 5), b.Recommend(id, 5)) {
			t.Fatalf("fits differ for title %d", id)
		}
	}
}

func TestCollaborativeModel_Correlation(t *testing.T) {
	model := fitCollaborative(t, clusteredInteractions())
	for i := range model.Factors {
		for j := range model.Factors {
			if c := model.Correlation(i, j); c != model.Correlation(j, i) {
				t.Fatalf("correlation not symmetric at %d,%d", i, j)
			}
		}
	}
}

func TestStandardize_MatchesPearson(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 20; trial++ {
		a := make([]float64, 12)
		b := make([]float64, 12)
		for i := range a {
			a[i] = rng.NormFloat64()
			b[i] = rng.NormFloat64()
		}
		want := stat.Correlation(a, b, nil)

		za := standardize(append([]float64(nil), a...))
		zb := standardize(append([]float64(nil), b...))
		var got float64
		for i := range za {
			got += za[i] * zb[i]
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("trial %d: dot = %v, Pearson = %v", trial, got, want)
		}
	}
}

func TestStandardize_ConstantRow(t *testing.T) {
	got := standardize([]float64{3, 3, 3})
	for _, v := range got {
		if v != 0 {
			t.Fatalf("constant row should standardize to zeros, got %v", got)
		}
	}
}

func TestBuildRatingMatrix_AveragesDuplicates(t *testing.T) {
	m, ids, users := buildRatingMatrix([]recommend.Interaction{
		{UserID: 2, TitleID: 9, Rating: 6},
		{UserID: 2, TitleID: 9, Rating: 8},
		{UserID: 1, TitleID: 9, Rating: 5},
		{UserID: 1, TitleID: 3, Rating: 10},
	})
	if users != 2 || len(ids) != 2 || ids[0] != 3 || ids[1] != 9 {
		t.Fatalf("ids = %v, users = %d", ids, users)
	}
	// Row for title 9: user 1 -> 5, user 2 -> mean(6, 8) = 7.
	start, end := m.rowPtr[1], m.rowPtr[2]
	if end-start != 2 || m.vals[start] != 5 || m.vals[start+1] != 7 {
		t.Errorf("row 9 = cols %v vals %v", m.colIdx[start:end], m.vals[start:end])
	}
}
