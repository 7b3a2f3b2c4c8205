// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package storage persists fitted recommendation snapshots.
//
// A snapshot holds the catalog plus both fitted similarity models. Saving
// one after each fit lets a restarted server answer queries immediately
// from the last good state while a fresh fit runs in the background.
//
// # Storage Format
//
// Snapshots are gob-encoded, checksummed with SHA-256 over the raw gob
// bytes, and gzip-compressed. Two backends share the codec:
//
//	FileStore:   {dir}/snapshot_v{version}.gob.gz
//	BadgerStore: key snapshot:{version:010d}, metadata under snapshot_meta:
//
// A checksum mismatch on load is an error; the snapshot is never installed.
//
// # Usage Example
//
//	store, err := storage.NewFileStore("/data/snapshots")
//	if err != nil {
//	    return err
//	}
//	engine.SetSnapshotStore(storage.NewRetention(store, 3))
//
//	// On startup:
//	restored, err := engine.Restore(ctx)
//
// Models travel behind the recommend.Similarity interface, so the packages
// defining them (algorithms) must be linked in for gob to decode them.
//
// # Thread Safety
//
// Both stores are safe for concurrent use.
package storage
