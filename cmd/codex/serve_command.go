// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/codex/internal/api"
	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/events"
	"github.com/tomtom215/codex/internal/logging"
	"github.com/tomtom215/codex/internal/recommend"
	"github.com/tomtom215/codex/internal/supervisor"
	"github.com/tomtom215/codex/internal/supervisor/services"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, fitting in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(sigCtx, cmd, ctx.configPath(), cfg)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, configPath string, cfg *config.Config) error {
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("data_dir", cfg.Data.Dir).
		Str("snapshot_backend", snapshotBackend(cfg)).
		Msg("Starting Codex")

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	if _, err := comps.importer.EnsureImported(ctx); err != nil {
		if !canServeWithoutImport(cfg, err) {
			return err
		}
		logging.Warn().Err(err).Msg("Raw data unavailable, serving the stored snapshot only")
	}

	fitService := services.NewFitService(comps.engine, services.FitServiceConfig{
		RestoreOnStartup:   cfg.Snapshot.Enabled && cfg.Snapshot.RestoreOnStartup,
		RefreshInterval:    cfg.Recommend.RefreshInterval,
		FitTimeout:         cfg.Recommend.FitTimeout,
		BreakerMaxFailures: cfg.Recommend.Breaker.MaxFailures,
		BreakerTimeout:     cfg.Recommend.Breaker.Timeout,
	}, logging.WithComponent("fit"))

	handler := api.NewHandler(comps.engine, cfg, fitService)
	if cfg.Events.Enabled {
		bus := events.NewBus(cfg.Events.BufferSize)
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Warn().Err(err).Msg("Event bus close failed")
			}
		}()
		if err := handler.Subscribe(ctx, bus); err != nil {
			return err
		}
		bus.AttachEngine(comps.engine)
	} else {
		comps.engine.OnSwap(func(snap *recommend.Snapshot) {
			handler.OnSnapshotSwapped(events.NewSnapshotSwapped(snap))
		})
	}

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfigFromServer(&cfg.Server))
	if err != nil {
		return err
	}
	tree.AddDataService(fitService)
	if cfg.Data.Watch {
		tree.AddDataService(services.NewWatchService(comps.importer, fitService, services.WatchServiceConfig{
			Dir:      cfg.Data.Dir,
			Patterns: watchPatterns(&cfg.Data),
			Debounce: cfg.Data.WatchDebounce,
		}, logging.WithComponent("watch")))
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, &cfg.Server),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))

	if configPath != "" {
		watchLogLevel(cmd, configPath)
	}

	errCh := tree.ServeBackground(ctx)
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor stopped with error")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	logging.Info().Msg("Codex stopped")
	return nil
}

// canServeWithoutImport reports whether a missing raw file can be
// tolerated because a stored snapshot will be restored.
func canServeWithoutImport(cfg *config.Config, err error) bool {
	return missingRawData(err) && cfg.Snapshot.Enabled && cfg.Snapshot.RestoreOnStartup
}

// watchPatterns lists the file names the data watcher reacts to.
func watchPatterns(cfg *config.DataConfig) []string {
	var patterns []string
	for _, p := range []string{cfg.TitlesFile, cfg.FallbackTitlesFile, cfg.RatingsFile, cfg.RatingsGlob} {
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func snapshotBackend(cfg *config.Config) string {
	if !cfg.Snapshot.Enabled {
		return "disabled"
	}
	return cfg.Snapshot.Backend
}

// watchLogLevel re-applies the logging section when the config file
// changes. Everything else needs a restart.
func watchLogLevel(cmd *cobra.Command, path string) {
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load(path)
		if err != nil {
			logging.Warn().Err(err).Msg("Config reload failed, keeping current logging settings")
			return
		}
		logging.Init(loggingConfig(cfg, cmd))
		logging.Info().Str("level", cfg.Logging.Level).Msg("Logging configuration reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Config file watch unavailable")
	}
}
