// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package middleware provides the HTTP middleware shared by the API router.

All middleware has the chi signature func(http.Handler) http.Handler:

  - RequestID: reads or generates X-Request-ID and stores request and
    correlation IDs in the context for logging.Ctx
  - PrometheusMetrics: records api_requests_total, api_request_duration_seconds
    and api_active_requests, labelled by chi route pattern
  - Compression: gzip for clients that accept it

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)
*/
package middleware
