// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Weights are the default blend weights for a request.
	Weights Weights `json:"weights"`

	// CandidatePool is how many neighbours each sub-engine contributes.
	// Default: 50.
	CandidatePool int `json:"candidate_pool"`

	// DefaultTopK is used when a request leaves TopK at zero.
	DefaultTopK int `json:"default_top_k"`

	// MaxTopK bounds TopK.
	MaxTopK int `json:"max_top_k"`

	// Content contains TF-IDF parameters.
	Content ContentConfig `json:"content"`

	// Collaborative contains latent-factor parameters.
	Collaborative CollaborativeConfig `json:"collaborative"`

	// Boost contains the quality boost policy.
	Boost BoostConfig `json:"boost"`

	// Sequel contains the sequel suppression policy.
	Sequel SequelConfig `json:"sequel"`

	// FitTimeout bounds a single fit, including data loading.
	FitTimeout time.Duration `json:"fit_timeout"`
}

// ContentConfig contains parameters for the TF-IDF content engine.
type ContentConfig struct {
	// GenreRepeat is how many times the genre text appears in the
	// feature string. Default: 2.
	GenreRepeat int `json:"genre_repeat"`

	// MinDF drops terms present in fewer titles. Default: 3.
	MinDF int `json:"min_df"`

	// MaxFeatures caps the vocabulary, keeping the most frequent terms.
	// Default: 5000.
	MaxFeatures int `json:"max_features"`
}

// CollaborativeConfig contains parameters for the latent-factor engine.
type CollaborativeConfig struct {
	// Components is the number of latent dimensions. Default: 12.
	Components int `json:"components"`

	// Seed makes the randomized SVD reproducible. Default: 42.
	Seed uint64 `json:"seed"`

	// Oversamples is the extra range-finder width. Default: 10.
	Oversamples int `json:"oversamples"`

	// PowerIterations sharpens the range finder. Default: 5.
	PowerIterations int `json:"power_iterations"`

	// Optional lets the engine serve content-only results when the
	// interaction log is too small to fit. Default: false.
	Optional bool `json:"optional"`
}

// BoostConfig multiplies the score of candidates whose numeric quality is
// strictly above Threshold.
type BoostConfig struct {
	Enabled    bool    `json:"enabled"`
	Threshold  float64 `json:"threshold"`
	Multiplier float64 `json:"multiplier"`
}

// SequelConfig drops candidates whose names share too many significant
// words with the target name.
type SequelConfig struct {
	Enabled bool `json:"enabled"`

	// OverlapThreshold is the exclusive upper bound on the fraction of
	// target words a candidate may share. Default: 0.6.
	OverlapThreshold float64 `json:"overlap_threshold"`

	// MinTokenLength is the shortest word counted. Default: 4.
	MinTokenLength int `json:"min_token_length"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights:       Weights{Content: 0.4, Collaborative: 0.6},
		CandidatePool: 50,
		DefaultTopK:   6,
		MaxTopK:       50,
		Content: ContentConfig{
			GenreRepeat: 2,
			MinDF:       3,
			MaxFeatures: 5000,
		},
		Collaborative: CollaborativeConfig{
			Components:      12,
			Seed:            42,
			Oversamples:     10,
			PowerIterations: 5,
		},
		Boost: BoostConfig{
			Enabled:    true,
			Threshold:  8.0,
			Multiplier: 1.1,
		},
		Sequel: SequelConfig{
			Enabled:          true,
			OverlapThreshold: 0.6,
			MinTokenLength:   4,
		},
		FitTimeout: 30 * time.Minute,
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.CandidatePool < 1 {
		return fmt.Errorf("candidate_pool must be positive, got %d", c.CandidatePool)
	}
	if c.DefaultTopK < 1 {
		return fmt.Errorf("default_top_k must be positive, got %d", c.DefaultTopK)
	}
	if c.MaxTopK < c.DefaultTopK {
		return fmt.Errorf("max_top_k must be >= default_top_k, got %d < %d", c.MaxTopK, c.DefaultTopK)
	}

	if c.Content.GenreRepeat < 0 {
		return fmt.Errorf("content.genre_repeat must be non-negative, got %d", c.Content.GenreRepeat)
	}
	if c.Content.MinDF < 1 {
		return fmt.Errorf("content.min_df must be positive, got %d", c.Content.MinDF)
	}
	if c.Content.MaxFeatures < 1 {
		return fmt.Errorf("content.max_features must be positive, got %d", c.Content.MaxFeatures)
	}

	if c.Collaborative.Components < 1 {
		return fmt.Errorf("collaborative.components must be positive, got %d", c.Collaborative.Components)
	}
	if c.Collaborative.Oversamples < 0 {
		return fmt.Errorf("collaborative.oversamples must be non-negative, got %d", c.Collaborative.Oversamples)
	}
	if c.Collaborative.PowerIterations < 0 {
		return fmt.Errorf("collaborative.power_iterations must be non-negative, got %d", c.Collaborative.PowerIterations)
	}

	if c.Boost.Multiplier <= 0 {
		return fmt.Errorf("boost.multiplier must be positive, got %f", c.Boost.Multiplier)
	}
	if c.Sequel.OverlapThreshold < 0 || c.Sequel.OverlapThreshold > 1 {
		return fmt.Errorf("sequel.overlap_threshold must be in [0, 1], got %f", c.Sequel.OverlapThreshold)
	}
	if c.Sequel.MinTokenLength < 1 {
		return fmt.Errorf("sequel.min_token_length must be positive, got %d", c.Sequel.MinTokenLength)
	}

	if c.FitTimeout <= 0 {
		return fmt.Errorf("fit_timeout must be positive, got %v", c.FitTimeout)
	}
	return nil
}

// Validate rejects negative weights and the all-zero blend.
func (w Weights) Validate() error {
	if w.Content < 0 {
		return fmt.Errorf("weights.content must be non-negative, got %f", w.Content)
	}
	if w.Collaborative < 0 {
		return fmt.Errorf("weights.collaborative must be non-negative, got %f", w.Collaborative)
	}
	if w.Content == 0 && w.Collaborative == 0 {
		return fmt.Errorf("weights must not both be zero")
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
