// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/tomtom215/codex/internal/database"
	"github.com/tomtom215/codex/internal/metrics"
)

// Importer reloads the raw files into the database.
type Importer interface {
	Import(ctx context.Context) (*database.ImportRun, error)
}

// Refresher queues a refit.
type Refresher interface {
	Trigger(reason string) bool
}

// WatchServiceConfig selects what the watcher reacts to.
type WatchServiceConfig struct {
	// Dir is watched non-recursively.
	Dir string

	// Patterns are matched against the base name of changed files.
	Patterns []string

	// Debounce is the quiet period after the last change before
	// re-importing.
	Debounce time.Duration
}

// WatchService re-imports the data files and queues a refit when they
// change on disk.
type WatchService struct {
	importer  Importer
	refresher Refresher
	config    WatchServiceConfig
	logger    zerolog.Logger
	name      string
}

// NewWatchService creates a watcher over cfg.Dir.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWatchService(importer Importer, refresher Refresher, cfg WatchServiceConfig, logger zerolog.Logger) *WatchService {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"*.csv"}
	}
	return &WatchService{
		importer:  importer,
		refresher: refresher,
		config:    cfg,
		logger:    logger.With().Str("service", "watch").Str("dir", cfg.Dir).Logger(),
		name:      "watch-service",
	}
}

// Serve implements suture.Service.
func (s *WatchService) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.config.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.config.Dir, err)
	}
	s.logger.Info().Strs("patterns", s.config.Patterns).Msg("watching data files")

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !s.relevant(ev) {
				continue
			}
			s.logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("data file changed")
			fire = time.After(s.config.Debounce)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			s.logger.Warn().Err(werr).Msg("watcher error")

		case <-fire:
			fire = nil
			s.reload(ctx)
		}
	}
}

// relevant reports whether ev touches a watched file.
func (s *WatchService) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(ev.Name)
	for _, pattern := range s.config.Patterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *WatchService) reload(ctx context.Context) {
	metrics.RecordWatchTrigger()

	run, err := s.importer.Import(ctx)
	switch {
	case errors.Is(err, database.ErrImportLocked):
		s.logger.Warn().Msg("import skipped: another import holds the lock")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("re-import after file change failed")
		return
	}

	s.logger.Info().
		Int("titles", run.Titles).
		Int("ratings", run.Ratings).
		Msg("data re-imported after file change")
	if !s.refresher.Trigger("watch") {
		s.logger.Debug().Msg("refit already queued")
	}
}

// String identifies the service in supervisor logs.
func (s *WatchService) String() string {
	return s.name
}
