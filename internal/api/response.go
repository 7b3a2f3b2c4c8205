// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package api

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/codex/internal/logging"
)

// APIResponse is the envelope every API endpoint returns.
type APIResponse struct {
	// Status is "success" or "error".
	Status string `json:"status"`

	// Data is the response payload, omitted on error.
	Data interface{} `json:"data,omitempty"`

	Metadata Metadata `json:"metadata"`

	// Error is set when Status is "error".
	Error *APIError `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp       time.Time `json:"timestamp"`
	QueryTimeMS     int64     `json:"query_time_ms"`
	Cached          bool      `json:"cached"`
	RequestID       string    `json:"request_id,omitempty"`
	SnapshotVersion int       `json:"snapshot_version,omitempty"`
}

// APIError is the machine-readable error body.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes for API responses.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeConflict           = "CONFLICT"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// respondSuccess writes a 200 envelope around data. start is when handling
// began and feeds query_time_ms.
func respondSuccess(w http.ResponseWriter, r *http.Request, start time.Time, data interface{}, meta Metadata) {
	meta.Timestamp = time.Now()
	meta.QueryTimeMS = time.Since(start).Milliseconds()
	meta.RequestID = logging.RequestIDFromContext(r.Context())
	respondJSON(w, http.StatusOK, &APIResponse{
		Status:   statusSuccess,
		Data:     data,
		Metadata: meta,
	})
}

// respondJSON encodes response with an ETag derived from the body.
func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	body, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","error":{"code":"INTERNAL_ERROR","message":"Failed to encode response"}}`)) //nolint:errcheck // best effort
		return
	}

	h := fnv.New64a()
	_, _ = h.Write(body) //nolint:errcheck // hash.Hash never returns an error
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", fmt.Sprintf(`"%x"`, h.Sum64()))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to write response body")
	}
}

// respondError writes an error envelope. Server-side failures are logged
// with the request's IDs.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	respondErrorDetails(w, r, status, &APIError{Code: code, Message: message}, err)
}

func respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("code", apiErr.Code).
			Msg("API request failed")
	}
	respondJSON(w, status, &APIResponse{
		Status: statusError,
		Metadata: Metadata{
			Timestamp: time.Now(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: apiErr,
	})
}
