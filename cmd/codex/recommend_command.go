// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/codex/internal/cache"
	"github.com/tomtom215/codex/internal/recommend"
)

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var (
		topK                int
		contentWeight       float64
		collaborativeWeight float64
		jsonOutput          bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <query>",
		Short: "Recommend titles similar to the best match for query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			req := recommend.RecommendRequest{
				Query: strings.Join(args, " "),
				TopK:  topK,
			}
			flags := cmd.Flags()
			if flags.Changed("content-weight") || flags.Changed("collaborative-weight") {
				w := cfg.Recommend.Engine().Weights
				if flags.Changed("content-weight") {
					w.Content = contentWeight
				}
				if flags.Changed("collaborative-weight") {
					w.Collaborative = collaborativeWeight
				}
				req.Weights = &w
			}

			comps, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer comps.Close()

			if err := comps.ready(cmd.Context()); err != nil {
				return err
			}
			res, err := comps.engine.Recommend(cmd.Context(), req)
			if errors.Is(err, recommend.ErrNotFound) {
				return errors.New(recommend.NotFoundMessage)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Because you liked %s (snapshot v%d):\n", res.Target.Name, res.SnapshotVersion)
			if len(res.Items) == 0 {
				fmt.Fprintln(out, "No recommendations.")
				return nil
			}
			fmt.Fprintln(out, renderRecommendations(res.Items, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of recommendations (default from config)")
	cmd.Flags().Float64Var(&contentWeight, "content-weight", 0, "Override the content similarity weight")
	cmd.Flags().Float64Var(&collaborativeWeight, "collaborative-weight", 0, "Override the collaborative similarity weight")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderRecommendations(items []recommend.Recommendation, colorize bool) string {
	rows := make([][]string, 0, len(items))
	for i := range items {
		it := &items[i]
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			it.Title,
			it.Type,
			strings.Join(it.Genres, ", "),
			it.EpisodesLabel(),
			formatQuality(it.Quality),
			strconv.FormatFloat(it.Score, 'f', 3, 64),
		})
	}
	return renderTable(
		[]string{"#", "Title", "Type", "Genres", "Episodes", "Quality", "Score"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		colorize,
	)
}

func formatQuality(q *float64) string {
	if q == nil {
		return "?"
	}
	return strconv.FormatFloat(*q, 'f', 2, 64)
}

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "suggest [prefix]",
		Short: "Autocomplete title names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}

			comps, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer comps.Close()

			if err := comps.ready(cmd.Context()); err != nil {
				return err
			}
			index := cache.NewTitleIndex()
			index.Rebuild(comps.engine.Snapshot())
			suggestions := index.Suggest(prefix, limit)

			if jsonOutput {
				return writeJSON(cmd, suggestions)
			}
			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintln(out, "No matching titles.")
				return nil
			}
			rows := make([][]string, 0, len(suggestions))
			for _, s := range suggestions {
				rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, s.EnglishName})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "English name"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of suggestions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
