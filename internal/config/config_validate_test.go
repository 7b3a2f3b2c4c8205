// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package config

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"rate limit zero", func(c *Config) { c.Server.RateLimitReqs = 0 }, "rate_limit_reqs"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.Server.RateLimitDisabled = true
			c.Server.RateLimitReqs = 0
		}, ""},
		{"refresh burst zero", func(c *Config) { c.Server.RefreshBurst = 0 }, "refresh_burst"},
		{"empty data dir", func(c *Config) { c.Data.Dir = " " }, "data.dir"},
		{"no titles files", func(c *Config) {
			c.Data.TitlesFile = ""
			c.Data.FallbackTitlesFile = ""
		}, "titles_file"},
		{"bad ratings glob", func(c *Config) { c.Data.RatingsGlob = "[" }, "ratings_glob"},
		{"max ratings zero", func(c *Config) { c.Data.MaxRatings = 0 }, "max_ratings"},
		{"watch without debounce", func(c *Config) {
			c.Data.Watch = true
			c.Data.WatchDebounce = 0
		}, "watch_debounce"},
		{"negative weight", func(c *Config) { c.Recommend.ContentWeight = -1 }, "weights.content"},
		{"zero pool", func(c *Config) { c.Recommend.CandidatePool = 0 }, "candidate_pool"},
		{"overlap out of range", func(c *Config) { c.Recommend.Sequel.OverlapThreshold = 1.5 }, "overlap_threshold"},
		{"cache without entries", func(c *Config) { c.Recommend.Cache.MaxEntries = 0 }, "max_entries"},
		{"cache disabled skips checks", func(c *Config) {
			c.Recommend.Cache.Enabled = false
			c.Recommend.Cache.MaxEntries = 0
		}, ""},
		{"breaker zero", func(c *Config) { c.Recommend.Breaker.MaxFailures = 0 }, "max_failures"},
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "s3" }, "snapshot.backend"},
		{"snapshots disabled skips checks", func(c *Config) {
			c.Snapshot.Enabled = false
			c.Snapshot.Backend = "s3"
		}, ""},
		{"keep zero", func(c *Config) { c.Snapshot.KeepVersions = 0 }, "keep_versions"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
