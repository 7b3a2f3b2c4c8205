// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package algorithms

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SparseVector is a row of the TF-IDF matrix. Indices are ascending.
type SparseVector struct {
	Indices []int32
	Values  []float64
}

// Dot returns the inner product of two sparse vectors.
//
//nolint:gocritic // hugeParam: SparseVector is two slice headers
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the L2 norm.
//
//nolint:gocritic // hugeParam: see Dot
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Vectorizer turns documents into L2-normalized TF-IDF rows.
//
// Tokens are runs of two or more word characters after lowercasing.
// English stop words are dropped, as are terms found in fewer than MinDF
// documents. When more than MaxFeatures terms survive, the ones with the
// highest total count are kept (ties alphabetical). IDF is smoothed:
//
//	idf(t) = ln((1 + n) / (1 + df(t))) + 1
type Vectorizer struct {
	MinDF       int
	MaxFeatures int
}

// Vocabulary is the fitted term space.
type Vocabulary struct {
	Terms []string
	IDF   []float64
}

// Tokenize lowercases text and splits it into terms, stop words removed.
func Tokenize(text string) []string {
	lower := cases.Lower(language.Und).String(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// FitTransform builds the vocabulary from docs and returns one row per
// document. A vocabulary can be empty, in which case every row is empty.
func (v Vectorizer) FitTransform(docs []string) (*Vocabulary, []SparseVector) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	total := make(map[string]int)
	for i, doc := range docs {
		c := make(map[string]int)
		for _, tok := range Tokenize(doc) {
			c[tok]++
		}
		for tok, n := range c {
			df[tok]++
			total[tok] += n
		}
		counts[i] = c
	}

	terms := make([]string, 0, len(df))
	for tok, d := range df {
		if d >= v.MinDF {
			terms = append(terms, tok)
		}
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vocab := &Vocabulary{Terms: terms, IDF: make([]float64, len(terms))}
	index := make(map[string]int32, len(terms))
	for i, t := range terms {
		index[t] = int32(i) //nolint:gosec // vocabulary is bounded by MaxFeatures
		vocab.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	rows := make([]SparseVector, len(docs))
	for i, c := range counts {
		rows[i] = weigh(c, index, vocab.IDF)
	}
	return vocab, rows
}

// weigh builds the normalized row for one document's term counts.
func weigh(counts map[string]int, index map[string]int32, idf []float64) SparseVector {
	type entry struct {
		col int32
		w   float64
	}
	entries := make([]entry, 0, len(counts))
	var norm float64
	for tok, n := range counts {
		j, ok := index[tok]
		if !ok {
			continue
		}
		w := float64(n) * idf[j]
		entries = append(entries, entry{col: j, w: w})
		norm += w * w
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].col < entries[b].col })

	row := SparseVector{Indices: make([]int32, len(entries)), Values: make([]float64, len(entries))}
	norm = math.Sqrt(norm)
	for k, e := range entries {
		row.Indices[k] = e.col
		if norm > 0 {
			row.Values[k] = e.w / norm
		}
	}
	return row
}
