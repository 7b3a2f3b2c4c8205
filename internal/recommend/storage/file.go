// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tomtom215/codex/internal/recommend"
)

const (
	filePrefix = "snapshot_v"
	fileSuffix = ".gob.gz"
)

// FileStore keeps one file per snapshot version in a directory.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex

	// versions is kept sorted ascending.
	versions []int
}

// NewFileStore creates a store at dir, creating it when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for snapshot storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &FileStore{baseDir: dir}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing snapshots: %w", err)
	}
	return s, nil
}

// scan records the versions present on disk.
func (s *FileStore) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	s.versions = s.versions[:0]
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseSnapshotFilename(entry.Name()); ok {
			s.versions = append(s.versions, v)
		}
	}
	slices.Sort(s.versions)
	return nil
}

// parseSnapshotFilename extracts the version from "snapshot_v12.gob.gz".
func parseSnapshotFilename(name string) (int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	var version int
	digits := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if _, err := fmt.Sscanf(digits, "%d", &version); err != nil || version < 1 {
		return 0, false
	}
	if fmt.Sprint(version) != digits {
		return 0, false
	}
	return version, true
}

func (s *FileStore) path(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s%d%s", filePrefix, version, fileSuffix))
}

// Save writes the snapshot atomically via a temporary file.
func (s *FileStore) Save(ctx context.Context, snap *recommend.Snapshot) (*Metadata, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, ".snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("create snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // temp file is gone after a successful rename

	if err := writeStoredFile(tmp, sf); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return nil, fmt.Errorf("write snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(snap.Version)); err != nil {
		return nil, fmt.Errorf("install snapshot file: %w", err)
	}

	if _, found := slices.BinarySearch(s.versions, snap.Version); !found {
		s.versions = append(s.versions, snap.Version)
		slices.Sort(s.versions)
	}
	return &sf.Metadata, nil
}

// Load reads a snapshot. Version 0 loads the latest.
func (s *FileStore) Load(ctx context.Context, version int) (*recommend.Snapshot, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		if len(s.versions) == 0 {
			return nil, nil, recommend.ErrNoSnapshot
		}
		version = s.versions[len(s.versions)-1]
	}

	sf, err := s.readFile(version)
	if err != nil {
		return nil, nil, err
	}
	snap, err := decodeSnapshot(sf)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot v%d: %w", version, err)
	}
	return snap, &sf.Metadata, nil
}

func (s *FileStore) readFile(version int) (*storedFile, error) {
	f, err := os.Open(s.path(version))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot v%d: %w", version, recommend.ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	sf, err := readStoredFile(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return sf, nil
}

// List returns metadata for every readable snapshot, newest first.
// Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Metadata, 0, len(s.versions))
	for i := len(s.versions) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := s.readFile(s.versions[i])
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	return out, nil
}

// Delete removes one version.
func (s *FileStore) Delete(_ context.Context, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(version)
}

func (s *FileStore) deleteLocked(version int) error {
	if err := os.Remove(s.path(version)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot v%d: %w", version, recommend.ErrNoSnapshot)
		}
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if i, found := slices.BinarySearch(s.versions, version); found {
		s.versions = slices.Delete(s.versions, i, i+1)
	}
	return nil
}

// Prune removes all but the newest keep versions. keep below 1 counts as 1.
func (s *FileStore) Prune(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep = max(keep, 1)
	if len(s.versions) <= keep {
		return 0, nil
	}

	old := slices.Clone(s.versions[:len(s.versions)-keep])
	removed := 0
	for _, v := range old {
		if err := s.deleteLocked(v); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.baseDir
}

// Close is a no-op; files are closed after every operation.
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
