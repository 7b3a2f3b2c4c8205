// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/middleware"
)

// apiPrefix is the mount point of the versioned API.
const apiPrefix = "/api/v1"

// NewRouter builds the chi router for h. RealIP must run before the rate
// limiter, which keys on the client address.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg.CORSOrigins))
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(apiPrefix, func(r chi.Router) {
		if !cfg.RateLimitDisabled && cfg.RateLimitReqs > 0 {
			r.Use(rateLimiter(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}

		r.Get("/recommendations", h.Recommendations)
		r.Get("/titles/suggest", h.SuggestTitles)
		r.Get("/titles/{id}", h.Title)
		r.Get("/status", h.Status)
		r.Post("/admin/refresh", h.Refresh)
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, o := range origins {
		if o == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "ETag", "Retry-After"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})
}

// rateLimiter limits each client IP to reqs requests per window.
func rateLimiter(reqs int, window time.Duration) func(http.Handler) http.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		reqs,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(apiPrefix).Inc()
			respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Rate limit exceeded", nil)
		}),
	)
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
