// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package metrics exposes Prometheus collectors for Codex.

Collectors are registered with the default registry by promauto at init
and served on /metrics by the API router:

	curl http://localhost:8080/metrics

# Available Metrics

Recommendation:
  - recommend_requests_total{outcome}: ok, not_found, not_ready, invalid, error
  - recommend_duration_seconds: resolve, merge and rank time of successful requests
  - recommend_result_size: items returned per request

Fitting and snapshots:
  - recommend_fits_total{outcome}: success, failure, busy, breaker_open
  - recommend_fit_duration_seconds{engine}: per-engine fit time
  - recommend_fit_last_success_timestamp
  - recommend_fit_breaker_state: 0=closed, 1=half-open, 2=open
  - recommend_engine_ready
  - recommend_snapshot_version, recommend_snapshot_titles, recommend_snapshot_interactions
  - recommend_snapshot_persist_total{operation,outcome}

Result cache:
  - recommend_cache_hits_total, recommend_cache_misses_total, recommend_cache_entries

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Data:
  - duckdb_query_duration_seconds{operation,table}, duckdb_query_errors_total{operation,table}
  - catalog_import_rows_total{table}, catalog_import_duration_seconds
  - data_watch_triggers_total
  - events_published_total{topic}

Use the Record* helpers rather than the collectors directly so label
values stay consistent.
*/
package metrics
