// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package cache

import (
	"slices"
	"strings"
	"sync"

	"github.com/tomtom215/codex/internal/recommend"
)

// trieNode is a node in the Trie.
type trieNode struct {
	children map[rune]*trieNode
	entries  []TrieEntry // values whose key ends here
}

// TrieEntry is a value stored under a key. Order ranks entries in results.
type TrieEntry struct {
	ID    int64
	Order int
}

// Trie is a thread-safe prefix tree for autocomplete. Keys are case
// folded, so lookups ignore case. Insert and prefix lookup are O(m) in the
// key length.
type Trie struct {
	mu   sync.RWMutex
	root *trieNode
	size int
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// Insert stores entry under key. Blank keys are ignored.
func (t *Trie) Insert(key string, entry TrieEntry) {
	key = recommend.FoldName(strings.TrimSpace(key))
	if key == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	node := t.root
	for _, ch := range key {
		next := node.children[ch]
		if next == nil {
			next = newTrieNode()
			node.children[ch] = next
		}
		node = next
	}
	node.entries = append(node.entries, entry)
	t.size++
}

// Autocomplete returns up to limit entries whose key starts with prefix,
// ordered by Order. An entry stored under several matching keys appears
// once. limit <= 0 means no limit.
func (t *Trie) Autocomplete(prefix string, limit int) []TrieEntry {
	key := recommend.FoldName(strings.TrimSpace(prefix))

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.root
	for _, ch := range key {
		node = node.children[ch]
		if node == nil {
			return nil
		}
	}

	best := make(map[int64]int)
	collect(node, best)

	results := make([]TrieEntry, 0, len(best))
	for id, order := range best {
		results = append(results, TrieEntry{ID: id, Order: order})
	}
	slices.SortFunc(results, func(a, b TrieEntry) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// collect records the lowest Order per ID under node.
func collect(node *trieNode, best map[int64]int) {
	for _, e := range node.entries {
		if order, ok := best[e.ID]; !ok || e.Order < order {
			best[e.ID] = e.Order
		}
	}
	for _, child := range node.children {
		collect(child, best)
	}
}

// Size returns the number of stored keys.
func (t *Trie) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Suggestion is one autocomplete result.
type Suggestion struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	EnglishName string `json:"english_name,omitempty"`
}

// TitleIndex answers name autocomplete over the current snapshot. It is
// rebuilt whenever a new snapshot is installed.
type TitleIndex struct {
	mu      sync.RWMutex
	snap    *recommend.Snapshot
	trie    *Trie
	version int
}

// NewTitleIndex creates an empty index.
func NewTitleIndex() *TitleIndex {
	return &TitleIndex{trie: NewTrie()}
}

// Rebuild indexes snap by name and English name in catalog order. A
// snapshot already indexed is skipped.
func (x *TitleIndex) Rebuild(snap *recommend.Snapshot) {
	if snap == nil {
		return
	}
	x.mu.RLock()
	same := x.snap != nil && x.version == snap.Version
	x.mu.RUnlock()
	if same {
		return
	}

	trie := NewTrie()
	for i := range snap.Titles {
		t := &snap.Titles[i]
		entry := TrieEntry{ID: t.ID, Order: i}
		trie.Insert(t.Name, entry)
		if t.EnglishName != "" && t.EnglishName != t.Name {
			trie.Insert(t.EnglishName, entry)
		}
	}

	x.mu.Lock()
	x.snap, x.trie, x.version = snap, trie, snap.Version
	x.mu.Unlock()
}

// Version returns the indexed snapshot version, zero before the first
// Rebuild.
func (x *TitleIndex) Version() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.version
}

// Suggest returns up to limit titles whose name or English name starts
// with prefix, in catalog order. An empty prefix lists the catalog from
// the top.
func (x *TitleIndex) Suggest(prefix string, limit int) []Suggestion {
	x.mu.RLock()
	snap, trie := x.snap, x.trie
	x.mu.RUnlock()
	if snap == nil {
		return nil
	}

	entries := trie.Autocomplete(prefix, limit)
	out := make([]Suggestion, 0, len(entries))
	for _, e := range entries {
		t, ok := snap.Title(e.ID)
		if !ok {
			continue
		}
		out = append(out, Suggestion{ID: t.ID, Name: t.Name, EnglishName: t.EnglishName})
	}
	return out
}
