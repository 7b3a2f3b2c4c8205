// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package services adapts Codex components to the suture v4 Service model.

Each service implements suture.Service (Serve(ctx) error) and fmt.Stringer
so the supervisor can name it in logs.

FitService:
  - restores the newest stored snapshot when configured, then fits
  - refits every RefreshInterval and whenever Trigger is called
  - wraps each fit in a gobreaker circuit breaker; consecutive failures
    open it and later refits are skipped until it half-opens

WatchService:
  - watches the data directory with fsnotify
  - after a debounce, re-imports the CSV files and triggers a refit

HTTPServerService:
  - runs *http.Server and shuts it down gracefully on cancellation

Example:

	fit := services.NewFitService(engine, fitCfg, logger)
	tree.AddEngineService(fit)
	tree.AddDataService(services.NewWatchService(importer, fit, watchCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second, logger))
*/
package services
