// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/recommend"
)

// Fitter is the part of *recommend.Engine the fit service drives.
type Fitter interface {
	Fit(ctx context.Context) (*recommend.Snapshot, error)
	Restore(ctx context.Context) (bool, error)
}

// FitServiceConfig controls when the engine is fitted.
type FitServiceConfig struct {
	// RestoreOnStartup installs the newest stored snapshot before the
	// first fit so queries are served while it runs.
	RestoreOnStartup bool

	// RefreshInterval between scheduled refits. Zero disables them.
	RefreshInterval time.Duration

	// FitTimeout bounds one fit.
	FitTimeout time.Duration

	// BreakerMaxFailures consecutive failed fits open the breaker for
	// BreakerTimeout, during which refits are skipped.
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// FitService fits the engine on startup, on a schedule, and on demand.
// Fits run one at a time on the service goroutine.
type FitService struct {
	fitter  Fitter
	config  FitServiceConfig
	breaker *gobreaker.CircuitBreaker[*recommend.Snapshot]
	trigger chan string
	logger  zerolog.Logger
	name    string
}

// NewFitService creates a fit service for fitter.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFitService(fitter Fitter, cfg FitServiceConfig, logger zerolog.Logger) *FitService {
	if cfg.FitTimeout <= 0 {
		cfg.FitTimeout = 30 * time.Minute
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 5 * time.Minute
	}

	s := &FitService{
		fitter:  fitter,
		config:  cfg,
		trigger: make(chan string, 1),
		logger:  logger.With().Str("service", "fit").Logger(),
		name:    "fit-service",
	}
	s.breaker = gobreaker.NewCircuitBreaker[*recommend.Snapshot](gobreaker.Settings{
		Name:        "engine-fit",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		// A busy engine or a cancelled context says nothing about the data.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, recommend.ErrFitInProgress) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("fit circuit breaker state change")
			metrics.SetBreakerState(int(to))
		},
	})
	metrics.SetBreakerState(int(gobreaker.StateClosed))
	return s
}

// Trigger queues a refit. It reports false when one is already queued.
func (s *FitService) Trigger(reason string) bool {
	select {
	case s.trigger <- reason:
		s.logger.Debug().Str("reason", reason).Msg("refit queued")
		return true
	default:
		return false
	}
}

// Serve implements suture.Service.
func (s *FitService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("restore_on_startup", s.config.RestoreOnStartup).
		Dur("refresh_interval", s.config.RefreshInterval).
		Msg("fit service starting")

	if s.config.RestoreOnStartup {
		s.restore(ctx)
	}
	s.fit(ctx, "startup")

	var tick <-chan time.Time
	if s.config.RefreshInterval > 0 {
		ticker := time.NewTicker(s.config.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("fit service shutting down")
			return ctx.Err()
		case <-tick:
			s.fit(ctx, "schedule")
		case reason := <-s.trigger:
			s.fit(ctx, reason)
		}
	}
}

func (s *FitService) restore(ctx context.Context) {
	restored, err := s.fitter.Restore(ctx)
	switch {
	case errors.Is(err, recommend.ErrStaleSnapshot):
		s.logger.Info().Err(err).Msg("stored snapshot predates the imported data; fitting from scratch")
	case err != nil:
		s.logger.Warn().Err(err).Msg("snapshot restore failed; fitting from scratch")
	case restored:
		s.logger.Info().Msg("serving restored snapshot while refitting")
	default:
		s.logger.Info().Msg("no stored snapshot to restore")
	}
}

// fit runs one fit through the breaker. Failures are logged and leave the
// current snapshot in place.
func (s *FitService) fit(ctx context.Context, reason string) {
	fitCtx, cancel := context.WithTimeout(ctx, s.config.FitTimeout)
	defer cancel()

	logger := s.logger.With().Str("reason", reason).Logger()
	start := time.Now()

	snap, err := s.breaker.Execute(func() (*recommend.Snapshot, error) {
		return s.fitter.Fit(fitCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordBreakerRejection()
		logger.Warn().Msg("refit skipped: circuit breaker open")
		return
	}

	var durations map[string]time.Duration
	if snap != nil {
		durations = snap.EngineDurations
	}
	metrics.RecordFit(durations, err)

	switch {
	case errors.Is(err, recommend.ErrFitInProgress):
		logger.Info().Msg("refit skipped: fit already in progress")
	case err != nil:
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("refit failed")
	default:
		logger.Info().
			Int("version", snap.Version).
			Int("titles", snap.Len()).
			Dur("duration", time.Since(start)).
			Msg("refit complete")
	}
}

// String identifies the service in supervisor logs.
func (s *FitService) String() string {
	return s.name
}
