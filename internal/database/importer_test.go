// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/recommend"
)

const richCatalog = `anime_id,Name,English name,Genres,Type,Score,Episodes,Synopsis,Image URL
1,Cowboy Bebop,Cowboy Bebop,"Action, Award Winning, Sci-Fi",TV,8.75,26.0,"Crime is timeless. By the year 2071, humanity has expanded across the galaxy.",https://cdn.example/1.jpg
2,Trigun,Trigun,"Action, Adventure, Sci-Fi",TV,8.22,26.0,"Vash the Stampede is the man with a $60,000,000,000 bounty on his head.",https://cdn.example/2.jpg
1,Duplicate Bebop,,Action,TV,1.0,1.0,,
4,   ,,Drama,TV,7.0,12.0,,
abc,Broken Row,,Drama,TV,7.0,12.0,,
5,Planetes,Planetes,"Drama, Sci-Fi",TV,UNKNOWN,26.0,"Space debris collectors.",
`

const basicCatalog = `anime_id,name,genre,type,episodes,rating,members
10,Naruto,"Action, Comedy, Martial Arts",TV,220,7.81,683297
11,One Piece,"Action, Adventure, Comedy",TV,Unknown,8.58,504862
`

const preferredRatings = `user_id,username,anime_id,my_score
100,alice,1,9
100,alice,2,8
100,alice,5,0
100,alice,99,7
200,bob,1,10
300,carol,2,6
300,carol,5,7
`

const fallbackRatings = `user_id,anime_id,rating
1,10,8
1,11,-1
1,11,9
2,10,7
`

type fixture struct {
	cfg *config.DataConfig
	db  *DB
}

// newFixture writes files into a temp data dir and opens a fresh database.
func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := &config.DataConfig{
		Dir:                dir,
		DatabasePath:       filepath.Join(dir, "db", "codex.duckdb"),
		TitlesFile:         "anime-dataset-2023.csv",
		FallbackTitlesFile: "anime.csv",
		RatingsFile:        "final_animedataset.csv",
		RatingsGlob:        "*ratings*.csv",
		MaxRatings:         1000,
		MinUserRatings:     2,
		QueryTimeout:       30 * time.Second,
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &fixture{cfg: cfg, db: db}
}

func (f *fixture) load(t *testing.T) ([]recommend.Title, []recommend.Interaction) {
	t.Helper()
	p := NewProvider(f.db)
	titles, err := p.LoadTitles(context.Background())
	if err != nil {
		t.Fatalf("LoadTitles: %v", err)
	}
	ratings, err := p.LoadInteractions(context.Background())
	if err != nil {
		t.Fatalf("LoadInteractions: %v", err)
	}
	return titles, ratings
}

func TestImport_RichCatalog(t *testing.T) {
	f := newFixture(t, map[string]string{
		"anime-dataset-2023.csv": richCatalog,
		"final_animedataset.csv": preferredRatings,
	})

	run, err := NewImporter(f.db, f.cfg).Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if run.ID == "" {
		t.Error("run has no id")
	}
	if run.Titles != 3 {
		t.Errorf("Titles = %d, want 3", run.Titles)
	}
	if run.Ratings != 4 {
		t.Errorf("Ratings = %d, want 4", run.Ratings)
	}

	titles, ratings := f.load(t)
	wantNames := []string{"Cowboy Bebop", "Trigun", "Planetes"}
	if len(titles) != len(wantNames) {
		t.Fatalf("got %d titles, want %d", len(titles), len(wantNames))
	}
	for i, name := range wantNames {
		if titles[i].Name != name {
			t.Errorf("titles[%d].Name = %q, want %q", i, titles[i].Name, name)
		}
	}

	bebop := titles[0]
	if bebop.ID != 1 || bebop.Genres != "Action, Award Winning, Sci-Fi" || bebop.Quality != "8.75" {
		t.Errorf("unexpected first title: %+v", bebop)
	}
	if bebop.ImageURL != "https://cdn.example/1.jpg" {
		t.Errorf("ImageURL = %q", bebop.ImageURL)
	}
	if _, ok := titles[2].QualityScore(); ok {
		t.Error("UNKNOWN quality should not parse as a number")
	}

	users := map[int64]int{}
	for _, r := range ratings {
		if r.Rating <= 0 {
			t.Errorf("non-positive rating kept: %+v", r)
		}
		if r.TitleID == 99 {
			t.Errorf("rating of unknown title kept: %+v", r)
		}
		users[r.UserID]++
	}
	if users[200] != 0 {
		t.Error("user below the minimum rating count was kept")
	}
	if users[100] != 2 || users[300] != 2 {
		t.Errorf("per-user counts = %v, want 100:2 300:2", users)
	}
}

func TestImport_MaxRatingsCapsInFileOrder(t *testing.T) {
	f := newFixture(t, map[string]string{
		"anime-dataset-2023.csv": richCatalog,
		"final_animedataset.csv": preferredRatings,
	})
	f.cfg.MaxRatings = 2

	run, err := NewImporter(f.db, f.cfg).Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if run.Ratings != 2 {
		t.Fatalf("Ratings = %d, want 2", run.Ratings)
	}
	_, ratings := f.load(t)
	for _, r := range ratings {
		if r.UserID != 100 {
			t.Errorf("rating beyond the cap kept: %+v", r)
		}
	}
}

func TestImport_LargeCatalogKeepsFileOrder(t *testing.T) {
	const rows = 40000
	var b strings.Builder
	b.WriteString("anime_id,name,genre,type,episodes,rating,members\n")
	for i := rows; i >= 1; i-- {
		fmt.Fprintf(&b, "%d,Title %d,\"Action, Drama\",TV,12,7.5,%d\n", i, i, i*10)
	}
	b.WriteString("10,Late Duplicate,Comedy,TV,1,1.0,1\n")

	f := newFixture(t, map[string]string{
		"anime.csv":        b.String(),
		"user_ratings.csv": fallbackRatings,
	})
	if _, err := NewImporter(f.db, f.cfg).Import(context.Background()); err != nil {
		t.Fatalf("Import: %v", err)
	}

	titles, _ := f.load(t)
	if len(titles) != rows {
		t.Fatalf("got %d titles, want %d", len(titles), rows)
	}
	for i, title := range titles {
		if want := int64(rows - i); title.ID != want {
			t.Fatalf("titles[%d].ID = %d, want %d (file order)", i, title.ID, want)
		}
	}
	if got := titles[rows-10].Name; got != "Title 10" {
		t.Errorf("duplicate id 10 kept %q, want the first row", got)
	}
}

func TestImport_FallbackFiles(t *testing.T) {
	f := newFixture(t, map[string]string{
		"anime.csv":        basicCatalog,
		"user_ratings.csv": fallbackRatings,
	})
	f.cfg.MinUserRatings = 1

	run, err := NewImporter(f.db, f.cfg).Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if filepath.Base(run.TitlesFile) != "anime.csv" || filepath.Base(run.RatingsFile) != "user_ratings.csv" {
		t.Errorf("files = %s, %s", run.TitlesFile, run.RatingsFile)
	}
	if run.Titles != 2 || run.Ratings != 3 {
		t.Errorf("run = %d titles %d ratings, want 2 and 3", run.Titles, run.Ratings)
	}

	titles, _ := f.load(t)
	if titles[0].Name != "Naruto" || titles[0].Quality != "7.81" || titles[0].Synopsis != "" {
		t.Errorf("unexpected basic title: %+v", titles[0])
	}
	if titles[0].Artwork() != recommend.PlaceholderArtwork {
		t.Errorf("Artwork() = %q, want placeholder", titles[0].Artwork())
	}
}

func TestImport_MissingFiles(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{"no catalog", map[string]string{"final_animedataset.csv": preferredRatings}, ErrNoTitlesFile},
		{"no ratings", map[string]string{"anime-dataset-2023.csv": richCatalog}, ErrNoRatingsFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.files)
			_, err := NewImporter(f.db, f.cfg).Import(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Import() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEnsureImported_ReusesProcessedTables(t *testing.T) {
	f := newFixture(t, map[string]string{
		"anime-dataset-2023.csv": richCatalog,
		"final_animedataset.csv": preferredRatings,
	})
	im := NewImporter(f.db, f.cfg)

	first, err := im.EnsureImported(context.Background())
	if err != nil {
		t.Fatalf("first EnsureImported: %v", err)
	}

	// Raw files are no longer needed once processed.
	if err := os.Remove(f.cfg.RatingsPath()); err != nil {
		t.Fatal(err)
	}

	second, err := im.EnsureImported(context.Background())
	if err != nil {
		t.Fatalf("second EnsureImported: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second run %s, want reuse of %s", second.ID, first.ID)
	}

	counts, err := NewProvider(f.db).Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts != (Counts{Titles: 3, Ratings: 4, Users: 2}) {
		t.Errorf("Counts = %+v", counts)
	}
}

func TestImport_ReplacesPreviousTables(t *testing.T) {
	f := newFixture(t, map[string]string{
		"anime-dataset-2023.csv": richCatalog,
		"final_animedataset.csv": preferredRatings,
	})
	im := NewImporter(f.db, f.cfg)
	if _, err := im.Import(context.Background()); err != nil {
		t.Fatal(err)
	}
	run, err := im.Import(context.Background())
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	titles, ratings := f.load(t)
	if len(titles) != run.Titles || len(ratings) != run.Ratings {
		t.Errorf("tables hold %d/%d rows, run reported %d/%d", len(titles), len(ratings), run.Titles, run.Ratings)
	}
	last, err := f.db.LastImport(context.Background())
	if err != nil || last == nil || last.ID != run.ID {
		t.Errorf("LastImport = %+v, %v; want %s", last, err, run.ID)
	}
	if v, err := NewProvider(f.db).DataVersion(context.Background()); v != run.ID || err != nil {
		t.Errorf("DataVersion = %q, %v; want %s", v, err, run.ID)
	}
}

func TestImport_LockHeldElsewhere(t *testing.T) {
	f := newFixture(t, map[string]string{
		"anime-dataset-2023.csv": richCatalog,
		"final_animedataset.csv": preferredRatings,
	})

	other := flock.New(f.cfg.DatabasePath + ".import.lock")
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock = %v, %v", locked, err)
	}
	defer func() { _ = other.Unlock() }()

	if _, err := NewImporter(f.db, f.cfg).Import(context.Background()); !errors.Is(err, ErrImportLocked) {
		t.Errorf("Import() error = %v, want ErrImportLocked", err)
	}
}

func TestLastImport_Empty(t *testing.T) {
	f := newFixture(t, nil)
	run, err := f.db.LastImport(context.Background())
	if err != nil || run != nil {
		t.Errorf("LastImport = %+v, %v; want nil, nil", run, err)
	}
	if v, err := NewProvider(f.db).DataVersion(context.Background()); v != "" || err != nil {
		t.Errorf("DataVersion before import = %q, %v; want empty", v, err)
	}
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(&config.DataConfig{DatabasePath: InMemoryPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	titles, err := NewProvider(db).LoadTitles(context.Background())
	if err != nil || len(titles) != 0 {
		t.Errorf("LoadTitles = %d titles, %v", len(titles), err)
	}
}
