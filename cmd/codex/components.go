// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/database"
	"github.com/tomtom215/codex/internal/logging"
	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/recommend"
	"github.com/tomtom215/codex/internal/recommend/hybrid"
	"github.com/tomtom215/codex/internal/recommend/storage"
)

// components is the engine with everything it reads from and writes to.
type components struct {
	cfg      *config.Config
	db       *database.DB
	importer *database.Importer
	provider *database.Provider
	store    storage.Store
	engine   *recommend.Engine
}

func openComponents(cfg *config.Config) (*components, error) {
	db, err := database.Open(&cfg.Data)
	if err != nil {
		return nil, err
	}
	c := &components{
		cfg:      cfg,
		db:       db,
		importer: database.NewImporter(db, &cfg.Data),
		provider: database.NewProvider(db),
	}

	c.engine, err = hybrid.NewEngine(cfg.Recommend.Engine(), c.provider, logging.WithComponent("recommend"))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.engine.OnSwap(metrics.RecordSnapshotInstalled)

	if cfg.Snapshot.Enabled {
		store, err := openSnapshotStore(&cfg.Snapshot)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.store = store
		c.engine.SetSnapshotStore(storage.NewRetention(store, cfg.Snapshot.KeepVersions))
	}
	return c, nil
}

func openSnapshotStore(cfg *config.SnapshotConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "badger":
		store, err := storage.OpenBadgerStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "file", "":
		store, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// ready installs a snapshot for one-shot commands: the newest stored one
// when it was fitted from the imported data, otherwise a fresh fit. With
// the raw files missing, a stored snapshot is the only option.
func (c *components) ready(ctx context.Context) error {
	_, importErr := c.importer.EnsureImported(ctx)
	if importErr != nil && !missingRawData(importErr) {
		return importErr
	}
	if c.cfg.Snapshot.Enabled {
		restored, err := c.engine.Restore(ctx)
		switch {
		case errors.Is(err, recommend.ErrStaleSnapshot):
			logging.Info().Err(err).Msg("Stored snapshot predates the imported data, refitting")
		case err != nil:
			logging.Warn().Err(err).Msg("Snapshot restore failed, fitting from scratch")
		}
		if restored {
			return nil
		}
	}
	if importErr != nil {
		return importErr
	}
	_, err := c.engine.Fit(ctx)
	return err
}

func missingRawData(err error) bool {
	return errors.Is(err, database.ErrNoTitlesFile) || errors.Is(err, database.ErrNoRatingsFile)
}

func (c *components) Close() {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logging.Warn().Err(err).Msg("Close failed")
	}
}
