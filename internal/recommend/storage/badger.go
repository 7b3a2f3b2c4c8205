// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/codex/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	snapshotKeyPrefix = "snapshot:"
	metaKeyPrefix     = "snapshot_meta:"
)

// BadgerStore keeps snapshots in a BadgerDB key-value store. Metadata is
// stored separately as JSON so listing never decodes a model.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at dir. An empty dir opens
// an in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewBadgerStore wraps an already open database. Close leaves it open.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func snapshotKey(version int) []byte {
	return []byte(fmt.Sprintf("%s%010d", snapshotKeyPrefix, version))
}

func metaKey(version int) []byte {
	return []byte(fmt.Sprintf("%s%010d", metaKeyPrefix, version))
}

// Save stores the snapshot and its metadata in one transaction.
func (s *BadgerStore) Save(ctx context.Context, snap *recommend.Snapshot) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if snap.Version < 1 {
		return nil, fmt.Errorf("snapshot version must be positive, got %d", snap.Version)
	}

	sf, err := encodeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeStoredFile(&buf, sf); err != nil {
		return nil, fmt.Errorf("encode stored snapshot: %w", err)
	}
	meta, err := json.Marshal(sf.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(snapshotKey(snap.Version), buf.Bytes()); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}
		if err := txn.Set(metaKey(snap.Version), meta); err != nil {
			return fmt.Errorf("set metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sf.Metadata, nil
}

// Load reads a snapshot. Version 0 loads the latest.
func (s *BadgerStore) Load(ctx context.Context, version int) (*recommend.Snapshot, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if version == 0 {
		versions, err := s.versions()
		if err != nil {
			return nil, nil, err
		}
		if len(versions) == 0 {
			return nil, nil, recommend.ErrNoSnapshot
		}
		version = versions[len(versions)-1]
	}

	var sf *storedFile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("snapshot v%d: %w", version, recommend.ErrNoSnapshot)
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			var rerr error
			sf, rerr = readStoredFile(bytes.NewReader(val))
			return rerr
		})
	})
	if err != nil {
		return nil, nil, err
	}

	snap, err := decodeSnapshot(sf)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot v%d: %w", version, err)
	}
	return snap, &sf.Metadata, nil
}

// versions returns stored versions ascending.
func (s *BadgerStore) versions() ([]int, error) {
	var out []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(metaKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), metaKeyPrefix)
			v, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// List returns metadata for every stored version, newest first.
func (s *BadgerStore) List(ctx context.Context) ([]Metadata, error) {
	var out []Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(metaKeyPrefix)
		// Reverse iteration seeks from the largest key with this prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta Metadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				continue
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Delete removes one version.
func (s *BadgerStore) Delete(_ context.Context, version int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(version)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("snapshot v%d: %w", version, recommend.ErrNoSnapshot)
		}
		if err := txn.Delete(snapshotKey(version)); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		if err := txn.Delete(metaKey(version)); err != nil {
			return fmt.Errorf("delete metadata: %w", err)
		}
		return nil
	})
}

// Prune removes all but the newest keep versions. keep below 1 counts as 1.
func (s *BadgerStore) Prune(ctx context.Context, keep int) (int, error) {
	keep = max(keep, 1)
	versions, err := s.versions()
	if err != nil {
		return 0, err
	}
	if len(versions) <= keep {
		return 0, nil
	}

	removed := 0
	for _, v := range versions[:len(versions)-keep] {
		if err := s.Delete(ctx, v); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Close closes the database when the store opened it.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
