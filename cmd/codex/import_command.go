// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/codex/internal/database"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Re-import the raw CSV files into the processed tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			db, err := database.Open(&cfg.Data)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := database.NewImporter(db, &cfg.Data).Import(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := database.NewProvider(db).Counts(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, struct {
					*database.ImportRun
					Users int `json:"users"`
				}{run, counts.Users})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Run", run.ID},
					{"Titles file", filepath.Base(run.TitlesFile)},
					{"Ratings file", filepath.Base(run.RatingsFile)},
					{"Titles", strconv.Itoa(run.Titles)},
					{"Ratings", strconv.Itoa(run.Ratings)},
					{"Users", strconv.Itoa(counts.Users)},
					{"Took", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()},
				},
				[]columnAlignment{alignLeft, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
