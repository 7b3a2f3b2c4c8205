// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package validation checks API request parameters with
// go-playground/validator v10.
//
// Request structs carry validate tags; ValidateStruct runs the shared
// validator and returns a *RequestValidationError whose ToAPIError result
// feeds the API's error envelope:
//
//	req := validation.RecommendQuery{Query: q, TopK: k}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Besides the built-in tags the validator knows "notblank", which rejects
// strings that are empty after trimming whitespace.
package validation
