// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package algorithms

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/codex/internal/recommend"
)

// Collaborative derives item-item similarity from co-rating behaviour.
//
// The title x user rating matrix (absent ratings are 0, repeated ratings
// are averaged) is reduced to Components latent dimensions with a seeded
// randomized truncated SVD. Similarity between two titles is the Pearson
// correlation of their latent rows. Reducing first keeps the correlation
// step at O(titles x components) per query instead of O(titles x users).
type Collaborative struct {
	BaseAlgorithm
	config recommend.CollaborativeConfig
}

// NewCollaborative creates a collaborative algorithm. Zero Components
// takes the default.
func NewCollaborative(cfg recommend.CollaborativeConfig) *Collaborative {
	if cfg.Components == 0 {
		cfg.Components = recommend.DefaultConfig().Collaborative.Components
	}
	return &Collaborative{
		BaseAlgorithm: NewBaseAlgorithm("collaborative"),
		config:        cfg,
	}
}

// Fit reduces the interaction log. Fewer than two titles with
// interactions fails with recommend.ErrConfiguration.
func (c *Collaborative) Fit(ctx context.Context, data *recommend.TrainingData) (recommend.Similarity, error) {
	start := time.Now()
	if data == nil {
		return nil, fmt.Errorf("%w: no training data", recommend.ErrConfiguration)
	}

	matrix, titleIDs, users := buildRatingMatrix(data.Interactions)
	if len(titleIDs) < 2 {
		return nil, fmt.Errorf("%w: %d titles with interactions, need at least 2",
			recommend.ErrConfiguration, len(titleIDs))
	}
	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	reduced, sigma, err := randomizedSVD(ctx, matrix, c.config.Components,
		c.config.Oversamples, c.config.PowerIterations, c.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("truncated svd: %w", err)
	}

	_, k := reduced.Dims()
	factors := make([][]float64, len(titleIDs))
	for i := range factors {
		factors[i] = standardize(slices.Clone(reduced.RawRowView(i)))
	}

	model := &CollaborativeModel{
		IDs:            titleIDs,
		Factors:        factors,
		SingularValues: sigma,
		Components:     k,
		Users:          users,
	}
	c.markFitted(start)
	return model, nil
}

// buildRatingMatrix returns the title x user matrix with titles and users
// in ascending ID order.
func buildRatingMatrix(interactions []recommend.Interaction) (*csr, []int64, int) {
	type cell struct {
		sum float64
		n   int
	}
	byTitle := make(map[int64]map[int64]*cell)
	userSet := make(map[int64]struct{})
	for _, in := range interactions {
		if !(in.Rating > 0) || math.IsInf(in.Rating, 0) {
			continue
		}
		row, ok := byTitle[in.TitleID]
		if !ok {
			row = make(map[int64]*cell)
			byTitle[in.TitleID] = row
		}
		if c, ok := row[in.UserID]; ok {
			c.sum += in.Rating
			c.n++
		} else {
			row[in.UserID] = &cell{sum: in.Rating, n: 1}
		}
		userSet[in.UserID] = struct{}{}
	}

	titleIDs := make([]int64, 0, len(byTitle))
	for id := range byTitle {
		titleIDs = append(titleIDs, id)
	}
	slices.Sort(titleIDs)

	userIDs := make([]int64, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}
	slices.Sort(userIDs)
	userCol := make(map[int64]int, len(userIDs))
	for i, id := range userIDs {
		userCol[id] = i
	}

	m := &csr{rows: len(titleIDs), cols: len(userIDs), rowPtr: make([]int, 1, len(titleIDs)+1)}
	for _, tid := range titleIDs {
		cols := make([]int, 0, len(byTitle[tid]))
		for uid := range byTitle[tid] {
			cols = append(cols, userCol[uid])
		}
		slices.Sort(cols)
		for _, col := range cols {
			c := byTitle[tid][userIDs[col]]
			m.colIdx = append(m.colIdx, col)
			m.vals = append(m.vals, c.sum/float64(c.n))
		}
		m.rowPtr = append(m.rowPtr, len(m.colIdx))
	}
	return m, titleIDs, len(userIDs)
}

// standardize centers x and scales it to unit length, so the dot product
// of two standardized rows is their Pearson correlation. A constant row
// becomes all zeros and correlates as 0 with everything.
func standardize(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}
	mean := floats.Sum(x) / float64(len(x))
	floats.AddConst(-mean, x)
	norm := floats.Norm(x, 2)
	if norm < 1e-12 {
		floats.Scale(0, x)
		return x
	}
	floats.Scale(1/norm, x)
	return x
}

// CollaborativeModel is a fitted latent-factor space. Fields are exported
// for gob.
type CollaborativeModel struct {
	// IDs holds the title ID of each row, ascending.
	IDs []int64

	// Factors are the standardized latent rows.
	Factors [][]float64

	// SingularValues of the retained components.
	SingularValues []float64

	// Components is the number of latent dimensions kept.
	Components int

	// Users is how many distinct users were fitted.
	Users int

	once  sync.Once
	index map[int64]int
}

// Name returns "collaborative".
func (m *CollaborativeModel) Name() string { return "collaborative" }

// Len returns the number of titles with interactions.
func (m *CollaborativeModel) Len() int { return len(m.IDs) }

// Row returns the row of id.
func (m *CollaborativeModel) Row(id int64) (int, bool) {
	m.once.Do(func() { m.index = rowIndex(m.IDs) })
	row, ok := m.index[id]
	return row, ok
}

// Correlation returns the Pearson correlation of two rows' latent factors.
func (m *CollaborativeModel) Correlation(a, b int) float64 {
	return clampUnit(floats.Dot(m.Factors[a], m.Factors[b]))
}

// Recommend returns up to topN titles with the highest correlation to id.
// Ties go to the lower row; id itself is never included. A title without
// interactions yields an empty map.
func (m *CollaborativeModel) Recommend(id int64, topN int) recommend.ScoreMap {
	row, ok := m.Row(id)
	if !ok || topN <= 0 {
		return recommend.ScoreMap{}
	}

	scores := make([]float64, len(m.Factors))
	for i := range m.Factors {
		scores[i] = m.Correlation(row, i)
	}
	return toScoreMap(topRows(scores, row, topN), m.IDs)
}

func clampUnit(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
