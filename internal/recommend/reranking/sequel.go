// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package reranking

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tomtom215/codex/internal/recommend"
)

// SequelFilter suppresses sequels and spin-offs of the target title.
type SequelFilter struct {
	threshold float64
	minLen    int
}

// NewSequelFilter creates a filter stage from cfg.
func NewSequelFilter(cfg recommend.SequelConfig) *SequelFilter {
	return &SequelFilter{threshold: cfg.OverlapThreshold, minLen: cfg.MinTokenLength}
}

// Name returns the reranker identifier.
func (s *SequelFilter) Name() string {
	return "sequel_filter"
}

// Rerank drops candidates that look like relatives of target. A target
// without significant words suppresses nothing.
func (s *SequelFilter) Rerank(target *recommend.Title, candidates []recommend.Candidate) []recommend.Candidate {
	targetWords := Tokens(target.Name, s.minLen)
	if len(targetWords) == 0 {
		return candidates
	}

	kept := candidates[:0]
	for i := range candidates {
		if candidates[i].Title == nil {
			continue
		}
		if Overlap(targetWords, Tokens(candidates[i].Title.Name, s.minLen)) > s.threshold {
			continue
		}
		kept = append(kept, candidates[i])
	}
	return kept
}

// Suppresses reports whether candidate would be dropped for target.
func (s *SequelFilter) Suppresses(target, candidate string) bool {
	targetWords := Tokens(target, s.minLen)
	if len(targetWords) == 0 {
		return false
	}
	return Overlap(targetWords, Tokens(candidate, s.minLen)) > s.threshold
}

// Tokens returns the set of lowercase words in name with at least minLen
// characters. Words are runs of letters, digits, marks, and underscores.
func Tokens(name string, minLen int) map[string]struct{} {
	lower := cases.Lower(language.Und).String(name)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !isWordRune(r)
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minLen {
			set[w] = struct{}{}
		}
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Overlap returns |target ∩ candidate| / |target|, or 0 for an empty target.
func Overlap(target, candidate map[string]struct{}) float64 {
	if len(target) == 0 {
		return 0
	}
	shared := 0
	for w := range target {
		if _, ok := candidate[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(target))
}

var _ recommend.Reranker = (*SequelFilter)(nil)
