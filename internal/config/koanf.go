// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"codex.yaml",
	"codex.yml",
	"/etc/codex/config.yaml",
	"/etc/codex/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix is stripped from every environment variable considered.
const EnvPrefix = "CODEX_"

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestTimeout:    10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			RefreshBurst:      1,
			RefreshEvery:      time.Minute,
		},
		Data: DataConfig{
			Dir:                "./data",
			DatabasePath:       "./data/codex.duckdb",
			TitlesFile:         "anime-dataset-2023.csv",
			FallbackTitlesFile: "anime.csv",
			RatingsFile:        "final_animedataset.csv",
			RatingsGlob:        "*ratings*.csv",
			MaxRatings:         2_000_000,
			MinUserRatings:     10,
			QueryTimeout:       30 * time.Second,
			Watch:              false,
			WatchDebounce:      2 * time.Second,
		},
		Recommend: RecommendConfig{
			ContentWeight:       0.4,
			CollaborativeWeight: 0.6,
			CandidatePool:       50,
			DefaultTopK:         6,
			MaxTopK:             50,
			RefreshInterval:     24 * time.Hour,
			FitTimeout:          30 * time.Minute,
			Content: ContentSection{
				GenreRepeat: 2,
				MinDF:       3,
				MaxFeatures: 5000,
			},
			Collaborative: CollaborativeSection{
				Components:      12,
				Seed:            42,
				Oversamples:     10,
				PowerIterations: 5,
			},
			Boost: BoostSection{
				Enabled:    true,
				Threshold:  8.0,
				Multiplier: 1.1,
			},
			Sequel: SequelSection{
				Enabled:          true,
				OverlapThreshold: 0.6,
				MinTokenLength:   4,
			},
			Cache: CacheSection{
				Enabled:    true,
				MaxEntries: 1024,
				TTL:        10 * time.Minute,
			},
			Breaker: BreakerSection{
				MaxFailures: 3,
				Timeout:     5 * time.Minute,
			},
		},
		Snapshot: SnapshotConfig{
			Enabled:          true,
			Backend:          "file",
			Dir:              "./data/snapshots",
			KeepVersions:     3,
			RestoreOnStartup: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 64,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first of DefaultConfigPaths when path is empty), then CODEX_
// environment variables. The result is validated.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are the keys that accept comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envSections are the top-level sections an environment variable may
// address. The first underscore after the section separates it from the
// field; nested sections under recommend are listed explicitly.
var envSections = []string{
	"recommend_content_",
	"recommend_collaborative_",
	"recommend_boost_",
	"recommend_sequel_",
	"recommend_cache_",
	"recommend_breaker_",
	"server_",
	"data_",
	"recommend_",
	"snapshot_",
	"logging_",
	"events_",
}

// envAliases map short variable names to keys.
var envAliases = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
	"port":       "server.port",
	"host":       "server.host",
}

// envTransformFunc maps CODEX_RECOMMEND_CONTENT_WEIGHT to
// recommend.content_weight and CODEX_RECOMMEND_SEQUEL_MIN_TOKEN_LENGTH to
// recommend.sequel.min_token_length. Unknown sections return "" and are
// skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	if mapped, ok := envAliases[key]; ok {
		return mapped
	}

	for _, section := range envSections {
		field, ok := strings.CutPrefix(key, section)
		if !ok || field == "" {
			continue
		}
		prefix := strings.ReplaceAll(strings.TrimSuffix(section, "_"), "_", ".")
		// "recommend_content_weight" is a recommend field, not a content one.
		if section == "recommend_content_" && field == "weight" {
			return "recommend.content_weight"
		}
		if section == "recommend_collaborative_" && field == "weight" {
			return "recommend.collaborative_weight"
		}
		return prefix + "." + field
	}
	return ""
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for reloading and swapping configuration.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
