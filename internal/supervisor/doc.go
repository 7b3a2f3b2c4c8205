// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package supervisor runs the long-lived Codex services under suture v4.

	Root ("codex")
	├── data-layer
	│   ├── FitService     (restore, startup fit, scheduled and triggered refits)
	│   └── WatchService   (only when data.watch is set)
	└── api-layer
	    └── HTTPServerService

Crashed services are restarted with backoff. Supervisor events go to slog
through sutureslog, and from there to zerolog via logging.NewSlogHandler.

Usage:

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfigFromServer(&cfg.Server))
	if err != nil {
	    return err
	}
	tree.AddDataService(fitService)
	tree.AddAPIService(httpService)
	return tree.Serve(ctx)
*/
package supervisor
