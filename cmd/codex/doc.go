// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Command codex serves and queries the hybrid title recommendation engine.

Usage:

	codex [--config codex.yaml] <command>

Commands:

	serve                  Run the HTTP API under supervision
	import                 Re-import the raw CSV files into DuckDB
	recommend <query>      Print recommendations for a title
	suggest <prefix>       Autocomplete title names
	snapshots list         List stored fitted snapshots
	snapshots prune        Delete all but the newest snapshots

The configuration file is YAML; every key can be overridden with a CODEX_
environment variable (CODEX_SERVER_PORT, CODEX_DATA_DIR, ...). Without
--config the first of codex.yaml, codex.yml, /etc/codex/config.yaml is used
when present.

recommend and suggest restore the newest stored snapshot when snapshots are
enabled and fit from the processed tables otherwise, importing the raw files
first if the database is empty.
*/
package main
