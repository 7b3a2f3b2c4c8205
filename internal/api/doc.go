// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package api serves recommendations over HTTP.

Endpoints (all JSON, wrapped in {status, data, metadata, error}):

	GET  /api/v1/recommendations?q=&k=&content_weight=&collaborative_weight=
	GET  /api/v1/titles/suggest?q=&limit=
	GET  /api/v1/titles/{id}
	GET  /api/v1/status
	POST /api/v1/admin/refresh
	GET  /health/live
	GET  /health/ready
	GET  /metrics

Status codes:

	400  malformed or out-of-range parameters (code VALIDATION_ERROR or BAD_REQUEST)
	404  query matched no catalog title
	409  a refresh is already queued
	429  per-IP rate limit or refresh token bucket exhausted
	503  no snapshot installed yet (Retry-After is set)
	504  request deadline exceeded

Recommendation results are cached per snapshot version; metadata.cached
reports a cache hit. Handler.OnSnapshotSwapped purges stale results and
rebuilds the suggestion index when a new snapshot is installed.
*/
package api
