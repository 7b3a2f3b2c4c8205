// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package storage

import (
	"context"
	"fmt"

	"github.com/tomtom215/codex/internal/logging"
	"github.com/tomtom215/codex/internal/recommend"
)

// Retention adapts a Store to recommend.SnapshotStore, pruning to the
// newest Keep versions after every save.
type Retention struct {
	Store
	Keep int
}

// NewRetention wraps store.
func NewRetention(store Store, keep int) *Retention {
	return &Retention{Store: store, Keep: keep}
}

// SaveSnapshot saves snap, then prunes. A prune failure is logged only;
// the new snapshot is already durable.
func (r *Retention) SaveSnapshot(ctx context.Context, snap *recommend.Snapshot) error {
	meta, err := r.Save(ctx, snap)
	if err != nil {
		return fmt.Errorf("save snapshot v%d: %w", snap.Version, err)
	}

	removed, err := r.Prune(ctx, r.Keep)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("keep", r.Keep).Msg("Snapshot prune failed")
	}
	logging.Ctx(ctx).Debug().
		Int("version", meta.Version).
		Int64("size_bytes", meta.SizeBytes).
		Int("pruned", removed).
		Msg("Snapshot saved")
	return nil
}

// LatestSnapshot loads the newest stored snapshot.
func (r *Retention) LatestSnapshot(ctx context.Context) (*recommend.Snapshot, error) {
	snap, _, err := r.Load(ctx, 0)
	return snap, err
}

// LatestVersion returns the newest stored version, or 0 when empty.
func (r *Retention) LatestVersion(ctx context.Context) (int, error) {
	metas, err := r.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}
	if len(metas) == 0 {
		return 0, nil
	}
	return metas[0].Version, nil
}

var _ recommend.SnapshotStore = (*Retention)(nil)
