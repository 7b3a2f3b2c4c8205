// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/recommend/storage"
)

var errSnapshotsDisabled = errors.New("snapshots are disabled (snapshot.enabled is false)")

func newSnapshotsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and prune stored fitted snapshots",
	}
	cmd.AddCommand(newSnapshotsListCommand(ctx))
	cmd.AddCommand(newSnapshotsPruneCommand(ctx))
	return cmd
}

func withSnapshotStore(cmd *cobra.Command, ctx *commandContext, fn func(*config.Config, storage.Store) error) error {
	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Snapshot.Enabled {
		return errSnapshotsDisabled
	}
	store, err := openSnapshotStore(&cfg.Snapshot)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

func newSnapshotsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshotStore(cmd, ctx, func(_ *config.Config, store storage.Store) error {
				metas, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, metas)
				}
				out := cmd.OutOrStdout()
				if len(metas) == 0 {
					fmt.Fprintln(out, "No snapshots stored.")
					return nil
				}
				fmt.Fprintln(out, renderSnapshots(metas, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderSnapshots(metas []storage.Metadata, colorize bool) string {
	rows := make([][]string, 0, len(metas))
	for i := range metas {
		m := &metas[i]
		rows = append(rows, []string{
			strconv.Itoa(m.Version),
			m.RunID,
			m.FittedAt.Local().Format(time.DateTime),
			strconv.Itoa(m.Titles),
			strconv.Itoa(m.Interactions),
			formatBytes(m.SizeBytes),
			(time.Duration(m.FitDurationMS) * time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Version", "Run", "Fitted", "Titles", "Interactions", "Size", "Fit time"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		colorize,
	)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func newSnapshotsPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshotStore(cmd, ctx, func(cfg *config.Config, store storage.Store) error {
				if !cmd.Flags().Changed("keep") {
					keep = cfg.Snapshot.KeepVersions
				}
				if keep < 1 {
					return fmt.Errorf("--keep must be positive, got %d", keep)
				}
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s), kept the newest %d.\n", removed, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Versions to keep (default snapshot.keep_versions)")
	return cmd
}
