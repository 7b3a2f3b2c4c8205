// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package config

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tomtom215/codex/internal/logging"
)

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validSnapshotBackends = map[string]bool{
	"file":   true,
	"badger": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	s := &c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return fmt.Errorf("server read and write timeouts must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", s.ShutdownTimeout)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", s.RequestTimeout)
	}
	if !s.RateLimitDisabled {
		if s.RateLimitReqs < 1 {
			return fmt.Errorf("server.rate_limit_reqs must be positive, got %d", s.RateLimitReqs)
		}
		if s.RateLimitWindow <= 0 {
			return fmt.Errorf("server.rate_limit_window must be positive, got %v", s.RateLimitWindow)
		}
	}
	if s.RefreshBurst < 1 {
		return fmt.Errorf("server.refresh_burst must be positive, got %d", s.RefreshBurst)
	}
	if s.RefreshEvery <= 0 {
		return fmt.Errorf("server.refresh_every must be positive, got %v", s.RefreshEvery)
	}
	return nil
}

func (c *Config) validateData() error {
	d := &c.Data
	if strings.TrimSpace(d.Dir) == "" {
		return fmt.Errorf("data.dir is required")
	}
	if strings.TrimSpace(d.DatabasePath) == "" {
		return fmt.Errorf("data.database_path is required")
	}
	if d.TitlesFile == "" && d.FallbackTitlesFile == "" {
		return fmt.Errorf("data.titles_file or data.fallback_titles_file is required")
	}
	if d.RatingsGlob != "" && !doublestar.ValidatePattern(d.RatingsGlob) {
		return fmt.Errorf("data.ratings_glob is not a valid pattern: %q", d.RatingsGlob)
	}
	if d.MaxRatings < 1 {
		return fmt.Errorf("data.max_ratings must be positive, got %d", d.MaxRatings)
	}
	if d.MinUserRatings < 0 {
		return fmt.Errorf("data.min_user_ratings must be non-negative, got %d", d.MinUserRatings)
	}
	if d.QueryTimeout <= 0 {
		return fmt.Errorf("data.query_timeout must be positive, got %v", d.QueryTimeout)
	}
	if d.Watch && d.WatchDebounce <= 0 {
		return fmt.Errorf("data.watch_debounce must be positive when data.watch is set")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := &c.Recommend
	if err := r.Engine().Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if r.RefreshInterval < 0 {
		return fmt.Errorf("recommend.refresh_interval must be non-negative, got %v", r.RefreshInterval)
	}
	if r.Cache.Enabled {
		if r.Cache.MaxEntries < 1 {
			return fmt.Errorf("recommend.cache.max_entries must be positive, got %d", r.Cache.MaxEntries)
		}
		if r.Cache.TTL <= 0 {
			return fmt.Errorf("recommend.cache.ttl must be positive, got %v", r.Cache.TTL)
		}
	}
	if r.Breaker.MaxFailures < 1 {
		return fmt.Errorf("recommend.breaker.max_failures must be positive, got %d", r.Breaker.MaxFailures)
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	s := &c.Snapshot
	if !s.Enabled {
		return nil
	}
	if !validSnapshotBackends[s.Backend] {
		return fmt.Errorf("snapshot.backend must be one of: file, badger")
	}
	if strings.TrimSpace(s.Dir) == "" {
		return fmt.Errorf("snapshot.dir is required when snapshots are enabled")
	}
	if s.KeepVersions < 1 {
		return fmt.Errorf("snapshot.keep_versions must be positive, got %d", s.KeepVersions)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.Enabled && c.Events.BufferSize < 0 {
		return fmt.Errorf("events.buffer_size must be non-negative, got %d", c.Events.BufferSize)
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}
	return nil
}
