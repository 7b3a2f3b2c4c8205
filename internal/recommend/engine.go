// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine fits snapshots from a DataProvider and serves hybrid
// recommendations from the current one. Queries never block on a fit.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	provider      DataProvider
	content       Algorithm
	collaborative Algorithm
	rerankers     []Reranker
	store         SnapshotStore
	listeners     []func(*Snapshot)
	regMu         sync.RWMutex

	current   atomic.Pointer[Snapshot]
	ready     chan struct{}
	readyOnce sync.Once

	fitMu   sync.Mutex
	fitting atomic.Bool
	version atomic.Int64

	statusMu        sync.Mutex
	lastError       string
	lastFitDuration time.Duration
	restored        bool
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, provider DataProvider, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return &Engine{
		config:   cfg.Clone(),
		logger:   logger.With().Str("component", "recommend").Logger(),
		provider: provider,
		ready:    make(chan struct{}),
	}, nil
}

// SetAlgorithms installs the content and collaborative algorithms used by
// subsequent fits.
func (e *Engine) SetAlgorithms(content, collaborative Algorithm) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	e.content = content
	e.collaborative = collaborative
	e.logger.Info().
		Str("content", content.Name()).
		Str("collaborative", collaborative.Name()).
		Msg("registered algorithms")
}

// RegisterReranker appends a stage to the post-blend pipeline.
func (e *Engine) RegisterReranker(rr Reranker) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	e.rerankers = append(e.rerankers, rr)
	e.logger.Info().Str("reranker", rr.Name()).Msg("registered reranker")
}

// SetSnapshotStore enables saving after each fit and Restore.
func (e *Engine) SetSnapshotStore(store SnapshotStore) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	e.store = store
}

// OnSwap registers fn to run after every snapshot install.
func (e *Engine) OnSwap(fn func(*Snapshot)) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Ready is closed once the first snapshot is installed.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// IsReady reports whether a snapshot is installed.
func (e *Engine) IsReady() bool {
	return e.current.Load() != nil
}

// Snapshot returns the current snapshot, or nil before the first install.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Fit loads data, fits both engines, and installs the result. A failed fit
// leaves the current snapshot in place. Concurrent calls fail fast with
// ErrFitInProgress.
func (e *Engine) Fit(ctx context.Context) (*Snapshot, error) {
	if !e.fitMu.TryLock() {
		return nil, ErrFitInProgress
	}
	defer e.fitMu.Unlock()

	e.fitting.Store(true)
	defer e.fitting.Store(false)

	start := time.Now()
	runID := uuid.New().String()[:8]
	logger := e.logger.With().Str("run_id", runID).Logger()
	logger.Info().Msg("starting fit")

	snap, err := e.fit(ctx, logger)
	e.recordFit(time.Since(start), err)
	if err != nil {
		logger.Error().Err(err).Msg("fit failed")
		return nil, err
	}

	snap.RunID = runID
	snap.FittedAt = time.Now()
	snap.FitDuration = time.Since(start)
	e.seedVersion(ctx, logger)
	snap.Version = int(e.version.Add(1))
	e.install(snap)

	logger.Info().
		Int("version", snap.Version).
		Int("titles", snap.Len()).
		Int("interactions", snap.Interactions).
		Dur("duration", snap.FitDuration).
		Msg("fit complete")

	e.persist(ctx, snap, logger)
	return snap, nil
}

func (e *Engine) fit(ctx context.Context, logger zerolog.Logger) (*Snapshot, error) {
	e.regMu.RLock()
	provider, content, collaborative := e.provider, e.content, e.collaborative
	e.regMu.RUnlock()

	if provider == nil {
		return nil, fmt.Errorf("%w: data provider not set", ErrConfiguration)
	}
	if content == nil || collaborative == nil {
		return nil, fmt.Errorf("%w: algorithms not set", ErrConfiguration)
	}

	fitCtx, cancel := context.WithTimeout(ctx, e.config.FitTimeout)
	defer cancel()

	// Read before loading so a concurrent import leaves the stamp behind
	// the data, never ahead of it.
	dataVersion, err := currentDataVersion(fitCtx, provider)
	if err != nil {
		return nil, err
	}

	data, err := e.loadTrainingData(fitCtx, provider)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("titles", len(data.Titles)).
		Int("interactions", len(data.Interactions)).
		Msg("training data loaded")

	results := e.fitAlgorithms(fitCtx, data, content, collaborative)

	contentRes, collabRes := results[0], results[1]
	if contentRes.err != nil {
		return nil, fmt.Errorf("fit %s: %w", content.Name(), contentRes.err)
	}
	if collabRes.err != nil {
		if !e.config.Collaborative.Optional || !errors.Is(collabRes.err, ErrConfiguration) {
			return nil, fmt.Errorf("fit %s: %w", collaborative.Name(), collabRes.err)
		}
		logger.Warn().Err(collabRes.err).Msg("collaborative engine unavailable, serving content only")
		collabRes.sim = &EmptySimilarity{Engine: collaborative.Name()}
	}
	if err := fitCtx.Err(); err != nil {
		return nil, fmt.Errorf("fit aborted: %w", err)
	}

	snap := NewSnapshot(data.Titles, contentRes.sim, collabRes.sim)
	snap.Interactions = len(data.Interactions)
	snap.DataVersion = dataVersion
	snap.EngineDurations[content.Name()] = contentRes.took
	snap.EngineDurations[collaborative.Name()] = collabRes.took
	return snap, nil
}

func currentDataVersion(ctx context.Context, provider DataProvider) (string, error) {
	dv, ok := provider.(DataVersioner)
	if !ok {
		return "", nil
	}
	v, err := dv.DataVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

// loadTrainingData fetches both tables and checks the catalog is usable.
func (e *Engine) loadTrainingData(ctx context.Context, provider DataProvider) (*TrainingData, error) {
	titles, err := provider.LoadTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrConfiguration)
	}

	interactions, err := provider.LoadInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	return &TrainingData{Titles: cleanTitles(titles), Interactions: interactions}, nil
}

type fitResult struct {
	sim  Similarity
	took time.Duration
	err  error
}

// fitAlgorithms runs both fits concurrently; they share read-only input.
func (e *Engine) fitAlgorithms(ctx context.Context, data *TrainingData, algs ...Algorithm) []fitResult {
	results := make([]fitResult, len(algs))
	var wg sync.WaitGroup
	for i, alg := range algs {
		wg.Add(1)
		go func(i int, alg Algorithm) {
			defer wg.Done()
			start := time.Now()
			sim, err := alg.Fit(ctx, data)
			results[i] = fitResult{sim: sim, took: time.Since(start), err: err}
			e.logger.Debug().
				Str("algorithm", alg.Name()).
				Dur("duration", results[i].took).
				Err(err).
				Msg("algorithm fitted")
		}(i, alg)
	}
	wg.Wait()
	return results
}

// install swaps snap in and opens the readiness gate.
func (e *Engine) install(snap *Snapshot) {
	if snap.byID == nil {
		snap.index()
	}
	e.current.Store(snap)
	e.readyOnce.Do(func() { close(e.ready) })

	e.regMu.RLock()
	listeners := append([]func(*Snapshot){}, e.listeners...)
	e.regMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (e *Engine) persist(ctx context.Context, snap *Snapshot, logger zerolog.Logger) {
	e.regMu.RLock()
	store := e.store
	e.regMu.RUnlock()
	if store == nil {
		return
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		logger.Warn().Err(err).Int("version", snap.Version).Msg("snapshot not saved")
		return
	}
	logger.Debug().Int("version", snap.Version).Msg("snapshot saved")
}

// seedVersion raises the version counter to the newest stored version so
// a fit in a fresh process never reuses a stored version number.
func (e *Engine) seedVersion(ctx context.Context, logger zerolog.Logger) {
	e.regMu.RLock()
	store := e.store
	e.regMu.RUnlock()
	if store == nil {
		return
	}
	latest, err := store.LatestVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read stored snapshot versions")
		return
	}
	e.raiseVersion(latest)
}

func (e *Engine) raiseVersion(v int) {
	for {
		cur := e.version.Load()
		if int64(v) <= cur || e.version.CompareAndSwap(cur, int64(v)) {
			return
		}
	}
}

// Restore installs the newest stored snapshot. It reports false when no
// store is configured or the store is empty, and fails with
// ErrStaleSnapshot when the snapshot was fitted from data other than what
// the provider serves now.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	e.regMu.RLock()
	store, provider := e.store, e.provider
	e.regMu.RUnlock()
	if store == nil {
		return false, nil
	}

	snap, err := store.LatestSnapshot(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Len() == 0 || snap.Content == nil || snap.Collaborative == nil {
		return false, fmt.Errorf("%w: stored snapshot v%d is incomplete", ErrConfiguration, snap.Version)
	}

	e.raiseVersion(snap.Version)

	if provider != nil {
		current, err := currentDataVersion(ctx, provider)
		if err != nil {
			return false, err
		}
		if current != "" && snap.DataVersion != current {
			return false, fmt.Errorf("%w: v%d was fitted from data %q, current data is %q",
				ErrStaleSnapshot, snap.Version, snap.DataVersion, current)
		}
	}

	snap.index()
	e.install(snap)

	e.statusMu.Lock()
	e.restored = true
	e.statusMu.Unlock()

	e.logger.Info().
		Int("version", snap.Version).
		Int("titles", snap.Len()).
		Time("fitted_at", snap.FittedAt).
		Msg("snapshot restored")
	return true, nil
}

func (e *Engine) recordFit(took time.Duration, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.lastFitDuration = took
	if err != nil {
		e.lastError = err.Error()
		return
	}
	e.lastError = ""
	e.restored = false
}

// Resolve maps free text to a catalog title using the current snapshot.
func (e *Engine) Resolve(ctx context.Context, query string) (Title, error) {
	snap := e.current.Load()
	if snap == nil {
		return Title{}, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return Title{}, err
	}
	t, err := snap.Resolve(query)
	if err != nil {
		return Title{}, err
	}
	return *t, nil
}

// Recommend resolves req.Query and returns the blended, filtered top-K
// list. A query matching no title fails with ErrNotFound.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResult, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k, weights, err := e.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	target, err := snap.Resolve(req.Query)
	if err != nil {
		return nil, err
	}

	e.regMu.RLock()
	rerankers := e.rerankers
	e.regMu.RUnlock()

	items := rank(snap, target, weights, k, e.config.CandidatePool, rerankers)

	e.logger.Debug().
		Str("query", req.Query).
		Int64("target_id", target.ID).
		Int("returned", len(items)).
		Int("version", snap.Version).
		Msg("recommendation complete")

	return &RecommendResult{
		Target:          *target,
		Items:           items,
		SnapshotVersion: snap.Version,
	}, nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req RecommendRequest) (int, Weights, error) {
	k := req.TopK
	if k == 0 {
		k = e.config.DefaultTopK
	}
	if k < 1 || k > e.config.MaxTopK {
		return 0, Weights{}, fmt.Errorf("%w: top_k must be in [1, %d], got %d", ErrInvalidRequest, e.config.MaxTopK, k)
	}

	weights := e.config.Weights
	if req.Weights != nil {
		weights = *req.Weights
		if err := weights.Validate(); err != nil {
			return 0, Weights{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return k, weights, nil
}

// Status reports readiness and details of the current snapshot.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	st := Status{
		Fitting:         e.fitting.Load(),
		LastError:       e.lastError,
		LastFitDuration: e.lastFitDuration,
		Restored:        e.restored,
	}
	e.statusMu.Unlock()

	snap := e.current.Load()
	if snap == nil {
		return st
	}
	st.Ready = true
	st.Version = snap.Version
	st.FittedAt = snap.FittedAt
	st.RunID = snap.RunID
	st.Titles = snap.Len()
	st.Interactions = snap.Interactions
	st.ContentRows = snap.Content.Len()
	st.CollaborativeRows = snap.Collaborative.Len()
	return st
}
