// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/logging"
	"github.com/tomtom215/codex/internal/metrics"
)

var (
	// ErrNoTitlesFile means neither catalog file exists.
	ErrNoTitlesFile = errors.New("no titles file found")

	// ErrNoRatingsFile means neither the ratings file nor any file matching
	// the fallback pattern exists.
	ErrNoRatingsFile = errors.New("no ratings file found")

	// ErrImportLocked means another process holds the import lock.
	ErrImportLocked = errors.New("another import is running")
)

// ImportRun describes one completed import.
type ImportRun struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	TitlesFile  string    `json:"titles_file"`
	RatingsFile string    `json:"ratings_file"`
	Titles      int       `json:"titles"`
	Ratings     int       `json:"ratings"`
}

// catalogLayout maps a CSV layout to the titles columns.
type catalogLayout struct {
	id, name, englishName, genres, kind, quality, episodes, synopsis, imageURL string
}

// The 2023 dataset carries synopsis and artwork; the older one does not.
var (
	richLayout = catalogLayout{
		id: "anime_id", name: "Name", englishName: "English name", genres: "Genres",
		kind: "Type", quality: "Score", episodes: "Episodes", synopsis: "Synopsis", imageURL: "Image URL",
	}
	basicLayout = catalogLayout{
		id: "anime_id", name: "name", genres: "genre",
		kind: "type", quality: "rating", episodes: "episodes",
	}
)

// Importer turns raw CSV files into the processed tables.
type Importer struct {
	db  *DB
	cfg *config.DataConfig
}

// NewImporter creates an importer reading files under cfg.Dir.
func NewImporter(db *DB, cfg *config.DataConfig) *Importer {
	return &Importer{db: db, cfg: cfg}
}

// EnsureImported imports only when the processed tables are empty. It
// returns the run that produced the current tables.
func (im *Importer) EnsureImported(ctx context.Context) (*ImportRun, error) {
	last, err := im.db.LastImport(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		logging.Ctx(ctx).Info().
			Str("run_id", last.ID).
			Int("titles", last.Titles).
			Int("ratings", last.Ratings).
			Msg("Loading pre-processed catalog")
		return last, nil
	}
	logging.Ctx(ctx).Info().Msg("Processing raw data for the first time")
	return im.Import(ctx)
}

// Import replaces the processed tables with freshly cleaned data. Only one
// import runs at a time across processes sharing the database file.
func (im *Importer) Import(ctx context.Context) (*ImportRun, error) {
	unlock, err := im.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := &ImportRun{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := logging.Ctx(ctx).With().Str("run_id", run.ID).Logger()

	titlesPath, layout, err := im.locateTitles()
	if err != nil {
		return nil, err
	}
	ratingsPath, scoreColumn, err := im.locateRatings()
	if err != nil {
		return nil, err
	}
	run.TitlesFile, run.RatingsFile = titlesPath, ratingsPath
	if layout == basicLayout {
		logger.Warn().Str("file", titlesPath).Msg("Rich catalog not found, using basic catalog without synopsis or artwork")
	}

	tx, err := im.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if run.Titles, err = importTitles(ctx, tx, titlesPath, layout); err != nil {
		return nil, err
	}
	if run.Ratings, err = importRatings(ctx, tx, ratingsPath, scoreColumn, im.cfg.MaxRatings, im.cfg.MinUserRatings); err != nil {
		return nil, err
	}

	run.FinishedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_runs (id, started_at, finished_at, titles_file, ratings_file, titles, ratings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.TitlesFile, run.RatingsFile, run.Titles, run.Ratings,
	); err != nil {
		return nil, fmt.Errorf("record import run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	took := run.FinishedAt.Sub(run.StartedAt)
	metrics.RecordImport(took, run.Titles, run.Ratings)
	logger.Info().
		Int("titles", run.Titles).
		Int("ratings", run.Ratings).
		Dur("took", took).
		Msg("Catalog imported")
	return run, nil
}

// lock takes the cross-process import lock next to the database file.
func (im *Importer) lock() (func(), error) {
	if im.cfg.DatabasePath == "" || im.cfg.DatabasePath == InMemoryPath {
		return func() {}, nil
	}
	fl := flock.New(im.cfg.DatabasePath + ".import.lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !locked {
		return nil, ErrImportLocked
	}
	return func() { _ = fl.Unlock() }, nil //nolint:errcheck // lock file is released on exit anyway
}

func (im *Importer) locateTitles() (string, catalogLayout, error) {
	if path := im.cfg.TitlesPath(); im.cfg.TitlesFile != "" && fileExists(path) {
		return path, richLayout, nil
	}
	if path := im.cfg.FallbackTitlesPath(); im.cfg.FallbackTitlesFile != "" && fileExists(path) {
		return path, basicLayout, nil
	}
	return "", catalogLayout{}, fmt.Errorf("%w in %s", ErrNoTitlesFile, im.cfg.Dir)
}

// locateRatings returns the ratings file and the name of its score
// column. The preferred file uses my_score; fallbacks use rating.
func (im *Importer) locateRatings() (string, string, error) {
	if path := im.cfg.RatingsPath(); im.cfg.RatingsFile != "" && fileExists(path) {
		return path, "my_score", nil
	}
	if im.cfg.RatingsGlob != "" {
		matches, err := doublestar.Glob(os.DirFS(im.cfg.Dir), im.cfg.RatingsGlob, doublestar.WithFilesOnly())
		if err != nil {
			return "", "", fmt.Errorf("search ratings files: %w", err)
		}
		slices.Sort(matches)
		if len(matches) > 0 {
			return filepath.Join(im.cfg.Dir, filepath.FromSlash(matches[0])), "rating", nil
		}
	}
	return "", "", fmt.Errorf("%w in %s", ErrNoRatingsFile, im.cfg.Dir)
}

// importTitles replaces the titles table. Rows without a numeric id or
// with a blank name are dropped; the first row of a duplicated id wins.
// The CSV is scanned on one thread so row_number() follows file order.
func importTitles(ctx context.Context, tx *sql.Tx, path string, l catalogLayout) (int, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM titles`); err != nil {
		return 0, fmt.Errorf("clear titles: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO titles (id, source_order, name, english_name, genres, type, synopsis, quality, episodes, image_url)
		SELECT id, source_order, name, english_name, genres, type, synopsis, quality, episodes, image_url
		FROM (
			SELECT
				TRY_CAST(%s AS BIGINT) AS id,
				row_number() OVER () AS source_order,
				TRIM(COALESCE(%s, '')) AS name,
				COALESCE(%s, '') AS english_name,
				COALESCE(%s, '') AS genres,
				COALESCE(%s, '') AS type,
				COALESCE(%s, '') AS synopsis,
				COALESCE(%s, '') AS quality,
				COALESCE(%s, '') AS episodes,
				COALESCE(%s, '') AS image_url
			FROM read_csv(%s, header = true, all_varchar = true, parallel = false)
		)
		WHERE id IS NOT NULL AND name <> ''
		QUALIFY row_number() OVER (PARTITION BY id ORDER BY source_order) = 1
		ORDER BY source_order`,
		ident(l.id), ident(l.name), columnOrEmpty(l.englishName), ident(l.genres), ident(l.kind),
		columnOrEmpty(l.synopsis), ident(l.quality), ident(l.episodes), columnOrEmpty(l.imageURL),
		sqlString(path),
	)

	start := time.Now()
	res, err := tx.ExecContext(ctx, query)
	metrics.RecordDBQuery("INSERT", "titles", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("import titles from %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count titles: %w", err)
	}
	return int(n), nil
}

// importRatings replaces the ratings table. At most maxRatings positive
// ratings are read in file order; ratings of unknown titles are dropped,
// then users left with fewer than minUserRatings ratings.
func importRatings(ctx context.Context, tx *sql.Tx, path, scoreColumn string, maxRatings, minUserRatings int) (int, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings`); err != nil {
		return 0, fmt.Errorf("clear ratings: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO ratings (user_id, title_id, rating)
		SELECT user_id, title_id, rating
		FROM (
			SELECT known.*, count(*) OVER (PARTITION BY known.user_id) AS user_ratings
			FROM (
				SELECT capped.user_id, capped.title_id, capped.rating
				FROM (
					SELECT user_id, title_id, rating
					FROM (
						SELECT
							TRY_CAST(user_id AS BIGINT) AS user_id,
							TRY_CAST(anime_id AS BIGINT) AS title_id,
							TRY_CAST(%s AS DOUBLE) AS rating
						FROM read_csv(%s, header = true, all_varchar = true, parallel = false)
					)
					WHERE user_id IS NOT NULL AND title_id IS NOT NULL AND rating > 0
					LIMIT %d
				) AS capped
				JOIN titles t ON t.id = capped.title_id
			) AS known
		)
		WHERE user_ratings >= %d`,
		ident(scoreColumn), sqlString(path), maxRatings, minUserRatings,
	)

	start := time.Now()
	res, err := tx.ExecContext(ctx, query)
	metrics.RecordDBQuery("INSERT", "ratings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("import ratings from %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return int(n), nil
}

// LastImport returns the most recent import run, or nil when the
// processed tables have never been filled.
func (db *DB) LastImport(ctx context.Context) (*ImportRun, error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	var run ImportRun
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, titles_file, ratings_file, titles, ratings
		FROM import_runs
		ORDER BY finished_at DESC
		LIMIT 1`,
	).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.TitlesFile, &run.RatingsFile, &run.Titles, &run.Ratings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	return &run, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ident quotes a column name.
func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnOrEmpty quotes name, or yields a NULL literal for layouts that
// lack the column.
func columnOrEmpty(name string) string {
	if name == "" {
		return "NULL"
	}
	return ident(name)
}

// sqlString quotes s as a string literal. Table functions take the file
// path as a literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
