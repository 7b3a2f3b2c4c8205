// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package database stores the processed catalog and interaction log in
// DuckDB.
//
// The importer reads the raw CSV files once, cleans them with SQL and
// persists the result in the titles and ratings tables. Later runs reuse
// those tables instead of reparsing multi-gigabyte CSVs. Provider serves
// the tables to the recommendation engine.
//
//	db, err := database.Open(&cfg.Data)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := database.NewImporter(db, &cfg.Data).EnsureImported(ctx); err != nil {
//	    return err
//	}
//	engine, err := hybrid.NewEngine(cfg.Recommend.Engine(), database.NewProvider(db), logger)
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/logging"
)

// InMemoryPath opens a database that lives only as long as the process.
const InMemoryPath = ":memory:"

// DB wraps the DuckDB connection pool.
type DB struct {
	conn *sql.DB
	cfg  *config.DataConfig
}

// Open opens (creating if needed) the database at cfg.DatabasePath and
// ensures the schema exists.
func Open(cfg *config.DataConfig) (*DB, error) {
	path := cfg.DatabasePath
	if path == InMemoryPath {
		path = ""
	}
	if path != "" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?threads=%d&preserve_insertion_order=true", path, runtime.NumCPU())
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Debug().Str("path", cfg.DatabasePath).Msg("Database opened")
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// queryContext bounds ctx by the configured query timeout.
func (db *DB) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := db.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the processed tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		// source_order keeps the file order; ties in ranking and
		// resolution fall back to it.
		`CREATE TABLE IF NOT EXISTS titles (
			id BIGINT PRIMARY KEY,
			source_order BIGINT NOT NULL,
			name TEXT NOT NULL,
			english_name TEXT NOT NULL DEFAULT '',
			genres TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			synopsis TEXT NOT NULL DEFAULT '',
			quality TEXT NOT NULL DEFAULT '',
			episodes TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			user_id BIGINT NOT NULL,
			title_id BIGINT NOT NULL,
			rating DOUBLE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			titles_file TEXT NOT NULL,
			ratings_file TEXT NOT NULL,
			titles BIGINT NOT NULL,
			ratings BIGINT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup in error paths where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // best-effort cleanup
	}
}
