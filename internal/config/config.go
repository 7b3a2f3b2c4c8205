// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package config

import (
	"path/filepath"
	"time"

	"github.com/tomtom215/codex/internal/recommend"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Recommend RecommendConfig `koanf:"recommend"`
	Snapshot  SnapshotConfig  `koanf:"snapshot"`
	Logging   LoggingConfig   `koanf:"logging"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout bounds a single API request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	CORSOrigins []string `koanf:"cors_origins"`

	// Per-IP rate limit across the API.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// Token bucket on the manual refresh endpoint: RefreshBurst tokens,
	// one refilled every RefreshEvery.
	RefreshBurst int           `koanf:"refresh_burst"`
	RefreshEvery time.Duration `koanf:"refresh_every"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// DataConfig locates the raw CSV files and the processed DuckDB database.
type DataConfig struct {
	// Dir holds the raw CSV files.
	Dir string `koanf:"dir"`

	// DatabasePath is the DuckDB file. ":memory:" keeps everything in RAM.
	DatabasePath string `koanf:"database_path"`

	// TitlesFile is the preferred catalog file, FallbackTitlesFile the
	// older layout without synopsis or artwork.
	TitlesFile         string `koanf:"titles_file"`
	FallbackTitlesFile string `koanf:"fallback_titles_file"`

	// RatingsFile is the preferred interaction file. RatingsGlob finds a
	// fallback under Dir when it is missing.
	RatingsFile string `koanf:"ratings_file"`
	RatingsGlob string `koanf:"ratings_glob"`

	// MaxRatings caps how many rating rows are read.
	MaxRatings int `koanf:"max_ratings"`

	// MinUserRatings drops users with fewer ratings.
	MinUserRatings int `koanf:"min_user_ratings"`

	// MaxMemory is passed to DuckDB's memory_limit when set.
	MaxMemory string `koanf:"max_memory"`

	QueryTimeout time.Duration `koanf:"query_timeout"`

	// Watch refits when files under Dir change.
	Watch         bool          `koanf:"watch"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// TitlesPath returns the preferred catalog file path.
func (d DataConfig) TitlesPath() string { return filepath.Join(d.Dir, d.TitlesFile) }

// FallbackTitlesPath returns the fallback catalog file path.
func (d DataConfig) FallbackTitlesPath() string { return filepath.Join(d.Dir, d.FallbackTitlesFile) }

// RatingsPath returns the preferred ratings file path.
func (d DataConfig) RatingsPath() string { return filepath.Join(d.Dir, d.RatingsFile) }

// RecommendConfig holds engine parameters. It converts to
// recommend.Config with Engine.
type RecommendConfig struct {
	ContentWeight       float64       `koanf:"content_weight"`
	CollaborativeWeight float64       `koanf:"collaborative_weight"`
	CandidatePool       int           `koanf:"candidate_pool"`
	DefaultTopK         int           `koanf:"default_top_k"`
	MaxTopK             int           `koanf:"max_top_k"`
	RefreshInterval     time.Duration `koanf:"refresh_interval"`
	FitTimeout          time.Duration `koanf:"fit_timeout"`

	Content       ContentSection       `koanf:"content"`
	Collaborative CollaborativeSection `koanf:"collaborative"`
	Boost         BoostSection         `koanf:"boost"`
	Sequel        SequelSection        `koanf:"sequel"`
	Cache         CacheSection         `koanf:"cache"`
	Breaker       BreakerSection       `koanf:"breaker"`
}

// ContentSection mirrors recommend.ContentConfig.
type ContentSection struct {
	GenreRepeat int `koanf:"genre_repeat"`
	MinDF       int `koanf:"min_df"`
	MaxFeatures int `koanf:"max_features"`
}

// CollaborativeSection mirrors recommend.CollaborativeConfig.
type CollaborativeSection struct {
	Components      int    `koanf:"components"`
	Seed            uint64 `koanf:"seed"`
	Oversamples     int    `koanf:"oversamples"`
	PowerIterations int    `koanf:"power_iterations"`
	Optional        bool   `koanf:"optional"`
}

// BoostSection mirrors recommend.BoostConfig.
type BoostSection struct {
	Enabled    bool    `koanf:"enabled"`
	Threshold  float64 `koanf:"threshold"`
	Multiplier float64 `koanf:"multiplier"`
}

// SequelSection mirrors recommend.SequelConfig.
type SequelSection struct {
	Enabled          bool    `koanf:"enabled"`
	OverlapThreshold float64 `koanf:"overlap_threshold"`
	MinTokenLength   int     `koanf:"min_token_length"`
}

// CacheSection configures the API result cache.
type CacheSection struct {
	Enabled    bool          `koanf:"enabled"`
	MaxEntries int           `koanf:"max_entries"`
	TTL        time.Duration `koanf:"ttl"`
}

// BreakerSection configures the circuit breaker around data loads.
type BreakerSection struct {
	// MaxFailures consecutive failed fits open the breaker.
	MaxFailures uint32 `koanf:"max_failures"`

	// Timeout is how long the breaker stays open.
	Timeout time.Duration `koanf:"timeout"`
}

// Engine converts the section to the engine's configuration.
func (r *RecommendConfig) Engine() *recommend.Config {
	return &recommend.Config{
		Weights: recommend.Weights{
			Content:       r.ContentWeight,
			Collaborative: r.CollaborativeWeight,
		},
		CandidatePool: r.CandidatePool,
		DefaultTopK:   r.DefaultTopK,
		MaxTopK:       r.MaxTopK,
		Content: recommend.ContentConfig{
			GenreRepeat: r.Content.GenreRepeat,
			MinDF:       r.Content.MinDF,
			MaxFeatures: r.Content.MaxFeatures,
		},
		Collaborative: recommend.CollaborativeConfig{
			Components:      r.Collaborative.Components,
			Seed:            r.Collaborative.Seed,
			Oversamples:     r.Collaborative.Oversamples,
			PowerIterations: r.Collaborative.PowerIterations,
			Optional:        r.Collaborative.Optional,
		},
		Boost: recommend.BoostConfig{
			Enabled:    r.Boost.Enabled,
			Threshold:  r.Boost.Threshold,
			Multiplier: r.Boost.Multiplier,
		},
		Sequel: recommend.SequelConfig{
			Enabled:          r.Sequel.Enabled,
			OverlapThreshold: r.Sequel.OverlapThreshold,
			MinTokenLength:   r.Sequel.MinTokenLength,
		},
		FitTimeout: r.FitTimeout,
	}
}

// SnapshotConfig controls persistence of fitted state.
type SnapshotConfig struct {
	Enabled bool `koanf:"enabled"`

	// Backend is "file" or "badger".
	Backend string `koanf:"backend"`

	Dir              string `koanf:"dir"`
	KeepVersions     int    `koanf:"keep_versions"`
	RestoreOnStartup bool   `koanf:"restore_on_startup"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// EventsConfig configures the in-process event bus.
type EventsConfig struct {
	Enabled bool `koanf:"enabled"`

	// BufferSize is the per-subscriber channel buffer.
	BufferSize int64 `koanf:"buffer_size"`
}
