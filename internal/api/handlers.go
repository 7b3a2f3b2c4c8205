// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/codex/internal/cache"
	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/events"
	"github.com/tomtom215/codex/internal/logging"
	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/recommend"
	"github.com/tomtom215/codex/internal/validation"
)

// defaultSuggestLimit applies when the limit parameter is absent.
const defaultSuggestLimit = 10

// retryAfterSeconds is sent with 503 responses while the engine warms up.
const retryAfterSeconds = "5"

// Refresher queues an asynchronous refit. Trigger reports false when a
// refit is already queued.
type Refresher interface {
	Trigger(reason string) bool
}

// Handler serves the recommendation API.
type Handler struct {
	engine         *recommend.Engine
	results        *cache.ResultCache
	titles         *cache.TitleIndex
	refresher      Refresher
	refreshLimiter *rate.Limiter
	requestTimeout time.Duration
	startTime      time.Time
}

// NewHandler creates the API handler. refresher may be nil, in which case
// the refresh endpoint answers 503.
func NewHandler(engine *recommend.Engine, cfg *config.Config, refresher Refresher) *Handler {
	h := &Handler{
		engine:         engine,
		titles:         cache.NewTitleIndex(),
		refresher:      refresher,
		refreshLimiter: newRefreshLimiter(cfg.Server.RefreshBurst, cfg.Server.RefreshEvery),
		requestTimeout: cfg.Server.RequestTimeout,
		startTime:      time.Now(),
	}
	if cfg.Recommend.Cache.Enabled {
		h.results = cache.NewResultCache(cfg.Recommend.Cache.MaxEntries, cfg.Recommend.Cache.TTL)
	}
	if snap := engine.Snapshot(); snap != nil {
		h.titles.Rebuild(snap)
	}
	return h
}

func newRefreshLimiter(burst int, every time.Duration) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Every(every), burst)
}

// OnSnapshotSwapped drops cached results from older snapshots and rebuilds
// the suggestion index.
func (h *Handler) OnSnapshotSwapped(ev events.SnapshotSwapped) {
	dropped := h.results.Invalidate(ev.Version)
	h.titles.Rebuild(h.engine.Snapshot())
	logging.Debug().
		Int("version", ev.Version).
		Int("dropped", dropped).
		Msg("API caches refreshed for new snapshot")
}

// Subscribe registers OnSnapshotSwapped on bus until ctx is cancelled.
func (h *Handler) Subscribe(ctx context.Context, bus *events.Bus) error {
	return bus.SubscribeSnapshotSwapped(ctx, h.OnSnapshotSwapped)
}

// Recommendations handles GET /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	values := r.URL.Query()

	q := validation.RecommendQuery{Query: values.Get("q")}
	var err error
	if q.TopK, err = queryInt(values.Get("k"), 0); err != nil {
		respondBadParam(w, r, "k", err)
		return
	}
	if q.ContentWeight, err = queryFloat(values.Get("content_weight")); err != nil {
		respondBadParam(w, r, "content_weight", err)
		return
	}
	if q.CollaborativeWeight, err = queryFloat(values.Get("collaborative_weight")); err != nil {
		respondBadParam(w, r, "collaborative_weight", err)
		return
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	req := recommend.RecommendRequest{Query: q.Query, TopK: q.TopK, Weights: h.requestWeights(&q)}
	res, hit, err := h.results.Recommend(ctx, h.engine, req)
	if err != nil {
		metrics.RecordRecommend(time.Since(start), 0, err)
		h.respondEngineError(w, r, err)
		return
	}
	metrics.RecordRecommend(time.Since(start), len(res.Items), nil)

	respondSuccess(w, r, start, res, Metadata{Cached: hit, SnapshotVersion: res.SnapshotVersion})
}

// requestWeights overlays the weights given in q on the configured
// defaults. Nil means the request did not override them.
func (h *Handler) requestWeights(q *validation.RecommendQuery) *recommend.Weights {
	if q.ContentWeight == nil && q.CollaborativeWeight == nil {
		return nil
	}
	w := h.engine.Config().Weights
	if q.ContentWeight != nil {
		w.Content = *q.ContentWeight
	}
	if q.CollaborativeWeight != nil {
		w.Collaborative = *q.CollaborativeWeight
	}
	return &w
}

// SuggestTitles handles GET /api/v1/titles/suggest.
func (h *Handler) SuggestTitles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	values := r.URL.Query()

	q := validation.SuggestQuery{Prefix: values.Get("q")}
	var err error
	if q.Limit, err = queryInt(values.Get("limit"), defaultSuggestLimit); err != nil {
		respondBadParam(w, r, "limit", err)
		return
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	snap := h.engine.Snapshot()
	if snap == nil {
		h.respondEngineError(w, r, recommend.ErrNotReady)
		return
	}
	// Normally done by the swap event; covers a handler built before the
	// first fit with no bus attached.
	h.titles.Rebuild(snap)

	suggestions := h.titles.Suggest(q.Prefix, q.Limit)
	if suggestions == nil {
		suggestions = []cache.Suggestion{}
	}
	respondSuccess(w, r, start, suggestions, Metadata{SnapshotVersion: snap.Version})
}

// titleResponse adds parsed presentation fields to a catalog title.
type titleResponse struct {
	recommend.Title
	GenreList []string `json:"genre_list"`
	Artwork   string   `json:"artwork"`
}

// Title handles GET /api/v1/titles/{id}.
func (h *Handler) Title(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := strconv.ParseInt(urlParam(r, "id"), 10, 64)
	if err != nil {
		respondBadParam(w, r, "id", err)
		return
	}
	if verr := validation.ValidateStruct(&validation.TitleQuery{ID: id}); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	snap := h.engine.Snapshot()
	if snap == nil {
		h.respondEngineError(w, r, recommend.ErrNotReady)
		return
	}
	title, ok := snap.Title(id)
	if !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Title not found", nil)
		return
	}

	respondSuccess(w, r, start, titleResponse{
		Title:     *title,
		GenreList: title.GenreList(),
		Artwork:   title.Artwork(),
	}, Metadata{SnapshotVersion: snap.Version})
}

// statusResponse is the payload of GET /api/v1/status.
type statusResponse struct {
	recommend.Status
	UptimeSeconds float64     `json:"uptime_seconds"`
	Cache         cacheStatus `json:"cache"`
}

type cacheStatus struct {
	Enabled bool    `json:"enabled"`
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	st := h.engine.Status()
	stats := h.results.Stats()

	respondSuccess(w, r, start, statusResponse{
		Status:        st,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Cache: cacheStatus{
			Enabled: h.results != nil,
			Entries: h.results.Len(),
			Hits:    stats.Hits,
			Misses:  stats.Misses,
			HitRate: stats.HitRate(),
		},
	}, Metadata{SnapshotVersion: st.Version})
}

// Refresh handles POST /api/v1/admin/refresh by queueing a refit.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.refresher == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Refresh is not available", nil)
		return
	}
	if !h.refreshLimiter.Allow() {
		w.Header().Set("Retry-After", strconv.Itoa(h.refreshRetryAfter()))
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Refresh requested too often", nil)
		return
	}
	if !h.refresher.Trigger("api") {
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "A refresh is already pending", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Refresh queued via API")
	respondJSON(w, http.StatusAccepted, &APIResponse{
		Status: statusSuccess,
		Data:   map[string]string{"refresh": "queued"},
		Metadata: Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			RequestID:   logging.RequestIDFromContext(r.Context()),
		},
	})
}

func (h *Handler) refreshRetryAfter() int {
	limit := h.refreshLimiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 1
	}
	secs := int(1/float64(limit)) + 1
	return secs
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, time.Now(), map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}, Metadata{})
}

// Ready handles GET /health/ready: 200 once a snapshot is installed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.engine.IsReady() {
		w.Header().Set("Retry-After", retryAfterSeconds)
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Engine is not ready", nil)
		return
	}
	st := h.engine.Status()
	respondSuccess(w, r, time.Now(), map[string]interface{}{
		"status":  "ready",
		"version": st.Version,
	}, Metadata{SnapshotVersion: st.Version})
}

// respondEngineError maps engine errors onto HTTP statuses.
func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, recommend.NotFoundMessage, nil)
	case errors.Is(err, recommend.ErrNotReady):
		w.Header().Set("Retry-After", retryAfterSeconds)
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Engine is not ready", nil)
	case errors.Is(err, recommend.ErrInvalidRequest):
		respondError(w, r, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, ErrCodeTimeout, "Request timed out", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", err)
	}
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	ae := verr.ToAPIError()
	respondErrorDetails(w, r, http.StatusBadRequest, &APIError{Code: ae.Code, Message: ae.Message, Details: ae.Details}, nil)
}

func respondBadParam(w http.ResponseWriter, r *http.Request, field string, err error) {
	respondErrorDetails(w, r, http.StatusBadRequest, &APIError{
		Code:    ErrCodeBadRequest,
		Message: "Invalid " + field + " parameter",
		Details: map[string]interface{}{"field": field, "error": err.Error()},
	}, nil)
}

// queryInt parses an optional integer parameter.
func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// queryFloat parses an optional float parameter; absent yields nil.
func queryFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
