// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/codex/internal/recommend"
)

// ErrChecksumMismatch means stored bytes do not match their checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Metadata describes a stored snapshot.
type Metadata struct {
	// Version is the snapshot version (monotonically increasing).
	Version int `json:"version"`

	// RunID is the fit run that produced the snapshot.
	RunID string `json:"run_id"`

	// FittedAt is when the fit finished.
	FittedAt time.Time `json:"fitted_at"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	// Titles and Interactions count the fitted input.
	Titles       int `json:"titles"`
	Interactions int `json:"interactions"`

	// Checksum is the SHA-256 of the uncompressed gob bytes.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed size.
	SizeBytes int64 `json:"size_bytes"`

	// FitDurationMS is how long fitting took.
	FitDurationMS int64 `json:"fit_duration_ms"`
}

// Store persists snapshots by version.
type Store interface {
	// Save writes snap under snap.Version.
	Save(ctx context.Context, snap *recommend.Snapshot) (*Metadata, error)

	// Load reads a version; 0 means the latest. An empty store returns
	// recommend.ErrNoSnapshot.
	Load(ctx context.Context, version int) (*recommend.Snapshot, *Metadata, error)

	// List returns metadata for every stored version, newest first.
	List(ctx context.Context) ([]Metadata, error)

	// Delete removes one version.
	Delete(ctx context.Context, version int) error

	// Prune keeps the newest keep versions and reports how many it removed.
	Prune(ctx context.Context, keep int) (int, error)

	Close() error
}

// storedFile is the on-disk format shared by both backends.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

func encodeSnapshot(snap *recommend.Snapshot) (*storedFile, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	return &storedFile{
		Metadata: Metadata{
			Version:       snap.Version,
			RunID:         snap.RunID,
			FittedAt:      snap.FittedAt,
			SavedAt:       time.Now(),
			Titles:        snap.Len(),
			Interactions:  snap.Interactions,
			Checksum:      hex.EncodeToString(hash[:]),
			SizeBytes:     int64(compressed.Len()),
			FitDurationMS: snap.FitDuration.Milliseconds(),
		},
		CompressedData: compressed.Bytes(),
	}, nil
}

func decodeSnapshot(sf *storedFile) (*recommend.Snapshot, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sf.Metadata.Checksum, got)
	}

	var snap recommend.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func writeStoredFile(w io.Writer, sf *storedFile) error {
	return gob.NewEncoder(w).Encode(sf)
}

func readStoredFile(r io.Reader) (*storedFile, error) {
	var sf storedFile
	if err := gob.NewDecoder(r).Decode(&sf); err != nil {
		return nil, err
	}
	return &sf, nil
}
