// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/recommend"
)

// Provider serves the processed tables to the recommendation engine.
type Provider struct {
	db *DB
}

var _ recommend.DataProvider = (*Provider)(nil)

// NewProvider creates a provider over db.
func NewProvider(db *DB) *Provider {
	return &Provider{db: db}
}

// LoadTitles returns the catalog in source file order.
func (p *Provider) LoadTitles(ctx context.Context) ([]recommend.Title, error) {
	ctx, cancel := p.db.queryContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.db.conn.QueryContext(ctx, `
		SELECT id, name, english_name, genres, type, synopsis, quality, episodes, image_url
		FROM titles
		ORDER BY source_order`)
	if err != nil {
		metrics.RecordDBQuery("SELECT", "titles", time.Since(start), err)
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer closeQuietly(rows)

	var titles []recommend.Title
	for rows.Next() {
		var t recommend.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.EnglishName, &t.Genres, &t.Type,
			&t.Synopsis, &t.Quality, &t.Episodes, &t.ImageURL); err != nil {
			metrics.RecordDBQuery("SELECT", "titles", time.Since(start), err)
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	err = rows.Err()
	metrics.RecordDBQuery("SELECT", "titles", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

// LoadInteractions returns every retained rating.
func (p *Provider) LoadInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	ctx, cancel := p.db.queryContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.db.conn.QueryContext(ctx, `SELECT user_id, title_id, rating FROM ratings`)
	if err != nil {
		metrics.RecordDBQuery("SELECT", "ratings", time.Since(start), err)
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer closeQuietly(rows)

	var out []recommend.Interaction
	for rows.Next() {
		var in recommend.Interaction
		if err := rows.Scan(&in.UserID, &in.TitleID, &in.Rating); err != nil {
			metrics.RecordDBQuery("SELECT", "ratings", time.Since(start), err)
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, in)
	}
	err = rows.Err()
	metrics.RecordDBQuery("SELECT", "ratings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

// DataVersion returns the ID of the last import run, or "" before the
// first import.
func (p *Provider) DataVersion(ctx context.Context) (string, error) {
	run, err := p.db.LastImport(ctx)
	if err != nil || run == nil {
		return "", err
	}
	return run.ID, nil
}

var _ recommend.DataVersioner = (*Provider)(nil)

// Counts reports the sizes of the processed tables.
type Counts struct {
	Titles  int `json:"titles"`
	Ratings int `json:"ratings"`
	Users   int `json:"users"`
}

// Counts returns the current table sizes.
func (p *Provider) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := p.db.queryContext(ctx)
	defer cancel()

	var c Counts
	err := p.db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM titles),
			(SELECT count(*) FROM ratings),
			(SELECT count(DISTINCT user_id) FROM ratings)`,
	).Scan(&c.Titles, &c.Ratings, &c.Users)
	if err != nil {
		return Counts{}, fmt.Errorf("count tables: %w", err)
	}
	return c, nil
}
