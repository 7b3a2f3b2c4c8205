// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

/*
Package cache provides the in-memory structures the API serves from.

# Result Cache

ResultCache fronts Engine.Recommend with an LRU keyed by snapshot version
and normalized request. Queries that differ only in case or surrounding
whitespace share an entry:

	results := cache.NewResultCache(1024, 10*time.Minute)
	res, hit, err := results.Recommend(ctx, engine, recommend.RecommendRequest{Query: "bebop"})

Entries of older snapshots can never be served, since the key carries the
version; Invalidate drops them early when a snapshot.swapped event
arrives.

# Title Autocomplete

TitleIndex holds a Trie of case-folded names and English names for the
current snapshot:

	index := cache.NewTitleIndex()
	index.Rebuild(engine.Snapshot())
	for _, s := range index.Suggest("cowboy", 10) {
	    fmt.Println(s.ID, s.Name)
	}

# Thread Safety

LRU, Trie, ResultCache and TitleIndex are safe for concurrent use.
*/
package cache
