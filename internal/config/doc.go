// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package config loads Codex configuration with koanf.

# Configuration Sources

Sources are layered, later ones overriding earlier ones:

 1. Defaults from Default()
 2. A YAML file: the --config flag, else CONFIG_PATH, else the first of
    DefaultConfigPaths that exists
 3. Environment variables prefixed with CODEX_

# Environment Variables

A variable names its section and field joined by underscores:

	CODEX_SERVER_PORT=9090                      server.port
	CODEX_RECOMMEND_CONTENT_WEIGHT=0.5          recommend.content_weight
	CODEX_RECOMMEND_SEQUEL_MIN_TOKEN_LENGTH=3   recommend.sequel.min_token_length
	CODEX_SNAPSHOT_BACKEND=badger               snapshot.backend
	CODEX_LOG_LEVEL=debug                       logging.level

List values such as CODEX_SERVER_CORS_ORIGINS are comma separated.
Variables for unknown sections are ignored.

# Example File

	server:
	  port: 8080
	data:
	  dir: ./data
	  watch: true
	recommend:
	  content_weight: 0.4
	  collaborative_weight: 0.6
	  sequel:
	    overlap_threshold: 0.6
	snapshot:
	  backend: file
	  keep_versions: 3

The recommend section converts to the engine's own configuration with
RecommendConfig.Engine.
*/
package config
