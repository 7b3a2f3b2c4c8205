// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/codex/internal/config"
	"github.com/tomtom215/codex/internal/database"
	"github.com/tomtom215/codex/internal/recommend"
)

const testCatalog = `anime_id,name,genre,type,episodes,rating,members
1,Cowboy Bebop,"Action, Adventure, Sci-Fi",TV,26,8.78,486824
6,Trigun,"Action, Comedy, Sci-Fi",TV,26,8.32,283069
1293,Outlaw Star,"Action, Adventure, Sci-Fi",TV,24,7.88,77815
205,Samurai Champloo,"Action, Adventure, Comedy",TV,Unknown,8.5,390075
`

const testRatings = `user_id,anime_id,rating
1,1,10
1,6,9
1,1293,8
2,1,9
2,6,8
2,205,7
3,6,6
3,1293,9
3,205,8
4,1,8
4,205,10
4,1293,-1
`

type cliTestEnv struct {
	dataDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	writeFile(t, filepath.Join(dataDir, "anime.csv"), testCatalog)
	writeFile(t, filepath.Join(dataDir, "user_ratings.csv"), testRatings)

	configPath := filepath.Join(base, "codex.yaml")
	writeFile(t, configPath, `data:
  dir: `+dataDir+`
  database_path: `+filepath.Join(base, "codex.duckdb")+`
  min_user_ratings: 1
recommend:
  content:
    min_df: 1
  collaborative:
    components: 2
snapshot:
  dir: `+filepath.Join(base, "snapshots")+`
  keep_versions: 2
logging:
  level: error
`)
	return &cliTestEnv{dataDir: dataDir, configPath: configPath}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIImportRecommendAndSnapshots(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"import"}, env.configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, want := range []string{"anime.csv", "user_ratings.csv", "Titles", "Users"} {
		if !strings.Contains(out, want) {
			t.Errorf("import output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"recommend", "Cowboy", "Bebop", "-k", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	for _, want := range []string{"Because you liked Cowboy Bebop (snapshot v1)", "Trigun", "Outlaw Star", "Samurai Champloo", "26 eps", "?"} {
		if !strings.Contains(out, want) {
			t.Errorf("recommend output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"snapshots", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("snapshots list: %v", err)
	}
	if !strings.Contains(out, "Interactions") || strings.Contains(out, "No snapshots stored.") {
		t.Errorf("snapshots list output:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"snapshots", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("snapshots list --json: %v", err)
	}
	var metas []struct {
		Version int `json:"version"`
		Titles  int `json:"titles"`
	}
	if err := json.Unmarshal([]byte(out), &metas); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(metas) != 1 || metas[0].Version != 1 || metas[0].Titles != 4 {
		t.Errorf("snapshots = %+v, want one v1 snapshot of 4 titles", metas)
	}

	// The second invocation restores the stored snapshot instead of fitting.
	out, _, err = runCLI(t, []string{"recommend", "cowboy bebop", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("recommend --json: %v", err)
	}
	var res struct {
		Target          struct{ ID int64 } `json:"target"`
		Items           []struct{ ID int64 } `json:"items"`
		SnapshotVersion int                  `json:"snapshot_version"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Target.ID != 1 || res.SnapshotVersion != 1 || len(res.Items) != 3 {
		t.Errorf("result = %+v, want target 1, version 1, 3 items", res)
	}
	for _, it := range res.Items {
		if it.ID == 1 {
			t.Error("target returned as its own recommendation")
		}
	}

	out, _, err = runCLI(t, []string{"snapshots", "prune", "--keep", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("snapshots prune: %v", err)
	}
	if !strings.Contains(out, "Removed 0 snapshot(s)") {
		t.Errorf("prune output: %s", out)
	}
}

func TestCLIReimportRefitsStaleSnapshot(t *testing.T) {
	env := setupCLITestEnv(t)

	type result struct {
		Target          struct{ ID int64 } `json:"target"`
		SnapshotVersion int                `json:"snapshot_version"`
	}
	recommendJSON := func(query string) result {
		t.Helper()
		out, _, err := runCLI(t, []string{"recommend", query, "--json"}, env.configPath)
		if err != nil {
			t.Fatalf("recommend %q: %v", query, err)
		}
		var res result
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		return res
	}

	if res := recommendJSON("cowboy bebop"); res.SnapshotVersion != 1 {
		t.Fatalf("first recommend used v%d, want v1", res.SnapshotVersion)
	}

	writeFile(t, filepath.Join(env.dataDir, "anime.csv"),
		testCatalog+"20057,Space Dandy,\"Comedy, Sci-Fi, Space\",TV,13,7.9,120000\n")
	if _, _, err := runCLI(t, []string{"import"}, env.configPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	res := recommendJSON("space dandy")
	if res.Target.ID != 20057 || res.SnapshotVersion != 2 {
		t.Errorf("after re-import got target %d from v%d, want 20057 from v2", res.Target.ID, res.SnapshotVersion)
	}
}

func TestCLIRecommendErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"recommend", "zzzzzz"}, env.configPath)
	if err == nil || err.Error() != recommend.NotFoundMessage {
		t.Errorf("unknown title err = %v, want %q", err, recommend.NotFoundMessage)
	}

	_, _, err = runCLI(t, []string{"recommend", "Trigun", "--content-weight", "0", "--collaborative-weight", "0"}, env.configPath)
	if !errors.Is(err, recommend.ErrInvalidRequest) {
		t.Errorf("zero weights err = %v, want ErrInvalidRequest", err)
	}

	_, _, err = runCLI(t, []string{"recommend"}, env.configPath)
	if err == nil {
		t.Error("recommend without a query should fail")
	}
}

func TestCLISuggest(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"suggest", "Tri"}, env.configPath)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !strings.Contains(out, "Trigun") || strings.Contains(out, "Outlaw Star") {
		t.Errorf("suggest output:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"suggest", "--limit", "2", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("suggest --json: %v", err)
	}
	var suggestions []struct{ Name string }
	if err := json.Unmarshal([]byte(out), &suggestions); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(suggestions) != 2 || suggestions[0].Name != "Cowboy Bebop" {
		t.Errorf("suggestions = %+v, want the first two catalog titles", suggestions)
	}

	if _, _, err := runCLI(t, []string{"suggest", "--limit", "0"}, env.configPath); err == nil {
		t.Error("suggest --limit 0 should fail")
	}
}

func TestCLIMissingConfig(t *testing.T) {
	_, _, err := runCLI(t, []string{"suggest"}, filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestCLISnapshotsDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("CODEX_SNAPSHOT_ENABLED", "false")

	_, _, err := runCLI(t, []string{"snapshots", "list"}, env.configPath)
	if !errors.Is(err, errSnapshotsDisabled) {
		t.Errorf("err = %v, want errSnapshotsDisabled", err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"#", "Title"},
		[][]string{{"1", "Trigun"}, {"2"}},
		[]columnAlignment{alignRight, alignLeft},
		false,
	)
	for _, want := range []string{"Title", "Trigun", "+---"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil, false) != "" {
		t.Error("no headers should render nothing")
	}
}

func TestRenderRecommendations(t *testing.T) {
	eps, quality := 26, 8.78
	out := renderRecommendations([]recommend.Recommendation{
		{ID: 6, Title: "Trigun", Type: "TV", Genres: []string{"Action", "Sci-Fi"}, Episodes: &eps, Quality: &quality, Score: 0.91234},
		{ID: 205, Title: "Samurai Champloo", Type: "TV", Genres: []string{}, Score: 0.5},
	}, false)

	for _, want := range []string{"Trigun", "Action, Sci-Fi", "26 eps", "8.78", "0.912", "Samurai Champloo", "?"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	q := 7.5
	if got := formatQuality(&q); got != "7.50" {
		t.Errorf("formatQuality = %q", got)
	}
	if got := formatQuality(nil); got != "?" {
		t.Errorf("formatQuality(nil) = %q", got)
	}

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestWatchPatterns(t *testing.T) {
	cfg := config.Default()
	got := watchPatterns(&cfg.Data)
	want := []string{"anime-dataset-2023.csv", "anime.csv", "final_animedataset.csv", "*ratings*.csv"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("watchPatterns = %v, want %v", got, want)
	}

	cfg.Data.FallbackTitlesFile = ""
	cfg.Data.RatingsGlob = ""
	if got := watchPatterns(&cfg.Data); len(got) != 2 {
		t.Errorf("watchPatterns without fallbacks = %v", got)
	}
}

func TestCanServeWithoutImport(t *testing.T) {
	cfg := config.Default()
	if !canServeWithoutImport(cfg, database.ErrNoRatingsFile) {
		t.Error("missing ratings with restore enabled should be tolerated")
	}
	if canServeWithoutImport(cfg, errors.New("disk full")) {
		t.Error("other import errors must not be tolerated")
	}
	cfg.Snapshot.RestoreOnStartup = false
	if canServeWithoutImport(cfg, database.ErrNoTitlesFile) {
		t.Error("missing titles without restore must not be tolerated")
	}
}
