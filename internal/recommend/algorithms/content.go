// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package algorithms

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/codex/internal/recommend"
)

// ContentBased fits a TF-IDF vector space over title metadata.
//
// Each title becomes one document:
//
//	(genres + " ") * GenreRepeat + type + " " + synopsis
//
// Repeating the genre text doubles its term counts, so genre overlap
// outweighs incidental synopsis wording. Neighbours are ranked by cosine
// similarity, which for L2-normalized rows is the dot product.
type ContentBased struct {
	BaseAlgorithm
	config recommend.ContentConfig
}

// NewContentBased creates a content algorithm. Zero fields take defaults.
func NewContentBased(cfg recommend.ContentConfig) *ContentBased {
	def := recommend.DefaultConfig().Content
	if cfg.GenreRepeat == 0 {
		cfg.GenreRepeat = def.GenreRepeat
	}
	if cfg.MinDF == 0 {
		cfg.MinDF = def.MinDF
	}
	if cfg.MaxFeatures == 0 {
		cfg.MaxFeatures = def.MaxFeatures
	}
	return &ContentBased{
		BaseAlgorithm: NewBaseAlgorithm("content"),
		config:        cfg,
	}
}

// Document returns the feature text of t.
//
//nolint:gocritic // hugeParam: Title read by value
func (c *ContentBased) Document(t recommend.Title) string {
	var b strings.Builder
	for range c.config.GenreRepeat {
		b.WriteString(t.Genres)
		b.WriteByte(' ')
	}
	b.WriteString(t.Type)
	b.WriteByte(' ')
	b.WriteString(t.Synopsis)
	return b.String()
}

// Fit vectorizes the catalog. An empty catalog fails with
// recommend.ErrConfiguration.
func (c *ContentBased) Fit(ctx context.Context, data *recommend.TrainingData) (recommend.Similarity, error) {
	start := time.Now()
	if data == nil || len(data.Titles) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", recommend.ErrConfiguration)
	}

	docs := make([]string, len(data.Titles))
	ids := make([]int64, len(data.Titles))
	names := make(map[string]int, len(data.Titles))
	for i := range data.Titles {
		docs[i] = c.Document(data.Titles[i])
		ids[i] = data.Titles[i].ID
		if _, dup := names[data.Titles[i].Name]; !dup {
			names[data.Titles[i].Name] = i
		}
	}
	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	vectorizer := Vectorizer{MinDF: c.config.MinDF, MaxFeatures: c.config.MaxFeatures}
	vocab, rows := vectorizer.FitTransform(docs)
	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	model := &ContentModel{
		IDs:       ids,
		Rows:      rows,
		Terms:     vocab.Terms,
		IDF:       vocab.IDF,
		NameIndex: names,
	}
	c.markFitted(start)
	return model, nil
}

// ContentModel is a fitted TF-IDF space. Fields are exported for gob.
type ContentModel struct {
	// IDs holds the title ID of each row, in catalog order.
	IDs []int64

	// Rows are L2-normalized TF-IDF vectors.
	Rows []SparseVector

	// Terms and IDF describe the vocabulary.
	Terms []string
	IDF   []float64

	// NameIndex maps a title name to its first row.
	NameIndex map[string]int

	once  sync.Once
	index map[int64]int
}

// Name returns "content".
func (m *ContentModel) Name() string { return "content" }

// Len returns the number of rows.
func (m *ContentModel) Len() int { return len(m.IDs) }

// Row returns the row of id.
func (m *ContentModel) Row(id int64) (int, bool) {
	m.once.Do(func() { m.index = rowIndex(m.IDs) })
	row, ok := m.index[id]
	return row, ok
}

// RowByName returns the row of the title named name.
func (m *ContentModel) RowByName(name string) (int, bool) {
	row, ok := m.NameIndex[name]
	return row, ok
}

// Similarity returns the cosine similarity of two rows.
func (m *ContentModel) Similarity(a, b int) float64 {
	return m.Rows[a].Dot(m.Rows[b])
}

// Recommend returns up to topN titles most similar to id by cosine
// similarity. Ties keep catalog order; id itself is never included.
func (m *ContentModel) Recommend(id int64, topN int) recommend.ScoreMap {
	row, ok := m.Row(id)
	if !ok || topN <= 0 {
		return recommend.ScoreMap{}
	}

	query := m.Rows[row]
	scores := make([]float64, len(m.Rows))
	for i := range m.Rows {
		scores[i] = query.Dot(m.Rows[i])
	}
	return toScoreMap(topRows(scores, row, topN), m.IDs)
}
