// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/codex/internal/recommend"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_rows_total",
			Help: "Rows persisted by catalog imports",
		},
		[]string{"table"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_import_duration_seconds",
			Help:    "Duration of catalog imports in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "not_found", "not_ready", "invalid", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Time to resolve, merge and rank one recommendation request",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	RecommendResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_result_size",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 2, 4, 6, 10, 20, 50},
		},
	)

	// Fit Metrics
	FitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_fit_duration_seconds",
			Help:    "Fit duration per engine in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"engine"},
	)

	FitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fits_total",
			Help: "Fits by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "busy", "breaker_open"
	)

	FitLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_fit_last_success_timestamp",
			Help: "Unix timestamp of the last successful fit",
		},
	)

	EngineReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_engine_ready",
			Help: "1 once a snapshot is installed",
		},
	)

	// Snapshot Metrics
	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_version",
			Help: "Version of the installed snapshot",
		},
	)

	SnapshotTitles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_titles",
			Help: "Titles in the installed snapshot",
		},
	)

	SnapshotInteractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_interactions",
			Help: "Interactions fitted into the installed snapshot",
		},
	)

	SnapshotPersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_snapshot_persist_total",
			Help: "Snapshot save and restore attempts by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Result cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_cache_entries",
			Help: "Current number of cached results",
		},
	)

	// Watcher and Event Metrics
	WatchTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "data_watch_triggers_total",
			Help: "Refits triggered by data file changes",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events published on the in-process bus",
		},
		[]string{"topic"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_fit_breaker_state",
			Help: "Fit circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordImport records a finished catalog import.
func RecordImport(duration time.Duration, titles, ratings int) {
	ImportDuration.Observe(duration.Seconds())
	ImportRowsTotal.WithLabelValues("titles").Add(float64(titles))
	ImportRowsTotal.WithLabelValues("ratings").Add(float64(ratings))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecommendOutcome classifies a recommendation error for the outcome label.
func RecommendOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, recommend.ErrNotFound):
		return "not_found"
	case errors.Is(err, recommend.ErrNotReady):
		return "not_ready"
	case errors.Is(err, recommend.ErrInvalidRequest):
		return "invalid"
	default:
		return "error"
	}
}

// RecordRecommend records one recommendation request.
func RecordRecommend(duration time.Duration, results int, err error) {
	RecommendRequests.WithLabelValues(RecommendOutcome(err)).Inc()
	if err != nil {
		return
	}
	RecommendDuration.Observe(duration.Seconds())
	RecommendResultSize.Observe(float64(results))
}

// RecordFit records a fit attempt. durations holds per-engine fit times.
func RecordFit(durations map[string]time.Duration, err error) {
	switch {
	case errors.Is(err, recommend.ErrFitInProgress):
		FitTotal.WithLabelValues("busy").Inc()
		return
	case err != nil:
		FitTotal.WithLabelValues("failure").Inc()
		return
	}
	FitTotal.WithLabelValues("success").Inc()
	FitLastSuccess.Set(float64(time.Now().Unix()))
	for engine, d := range durations {
		FitDuration.WithLabelValues(engine).Observe(d.Seconds())
	}
}

// RecordBreakerRejection records a fit skipped by an open circuit breaker.
func RecordBreakerRejection() {
	FitTotal.WithLabelValues("breaker_open").Inc()
}

// SetBreakerState records the fit breaker state.
func SetBreakerState(state int) {
	BreakerState.Set(float64(state))
}

// RecordSnapshotInstalled updates the snapshot gauges for a newly
// installed snapshot.
func RecordSnapshotInstalled(snap *recommend.Snapshot) {
	if snap == nil {
		return
	}
	EngineReady.Set(1)
	SnapshotVersion.Set(float64(snap.Version))
	SnapshotTitles.Set(float64(snap.Len()))
	SnapshotInteractions.Set(float64(snap.Interactions))
}

// RecordSnapshotPersist records a snapshot save or restore.
func RecordSnapshotPersist(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SnapshotPersistTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// SetCacheEntries records the current cache size.
func SetCacheEntries(n int) {
	CacheEntries.Set(float64(n))
}

// RecordWatchTrigger records a refit requested by the file watcher.
func RecordWatchTrigger() {
	WatchTriggers.Inc()
}

// RecordEventPublished records an event published on topic.
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}
