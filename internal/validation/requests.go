// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package validation

// RecommendQuery holds the parameters of GET /api/v1/recommendations.
// Zero TopK and nil weights mean "use the configured default". The upper
// bound on TopK is the engine's MaxTopK and is checked by the engine.
type RecommendQuery struct {
	Query               string   `query:"q" validate:"required,notblank,max=200"`
	TopK                int      `query:"k" validate:"gte=0"`
	ContentWeight       *float64 `query:"content_weight" validate:"omitempty,gte=0"`
	CollaborativeWeight *float64 `query:"collaborative_weight" validate:"omitempty,gte=0"`
}

// SuggestQuery holds the parameters of GET /api/v1/titles/suggest.
type SuggestQuery struct {
	Prefix string `query:"q" validate:"required,notblank,max=200"`
	Limit  int    `query:"limit" validate:"gte=1,lte=50"`
}

// TitleQuery holds the path parameter of GET /api/v1/titles/{id}.
type TitleQuery struct {
	ID int64 `query:"id" validate:"gt=0"`
}
