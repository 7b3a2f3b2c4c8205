// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import "errors"

var (
	// ErrNotFound means no catalog title matched the query text. It is an
	// expected outcome, reported to the user rather than logged as a failure.
	ErrNotFound = errors.New("title not found")

	// ErrConfiguration means fitting preconditions were not met (empty
	// catalog, too few interacted titles, invalid settings). No snapshot is
	// installed when a fit fails with it.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotReady means no snapshot has been installed yet.
	ErrNotReady = errors.New("engine not ready")

	// ErrFitInProgress means another fit currently holds the fit lock.
	ErrFitInProgress = errors.New("fit already in progress")

	// ErrNoSnapshot means a snapshot store holds nothing to restore.
	ErrNoSnapshot = errors.New("no stored snapshot")

	// ErrStaleSnapshot means the stored snapshot was fitted from data other
	// than what the provider currently serves.
	ErrStaleSnapshot = errors.New("stored snapshot is stale")
)

// NotFoundMessage is the user-facing text for ErrNotFound.
const NotFoundMessage = "Title not found. Try a more specific name."

// ErrInvalidRequest wraps request parameter problems (TopK, weights).
var ErrInvalidRequest = errors.New("invalid request")
