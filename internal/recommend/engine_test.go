// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package recommend

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T, cfg *Config, provider DataProvider) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, provider, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	content := &staticSimilarity{name: "content", neighbors: map[int64]ScoreMap{
		1: {2: 0.9, 3: 0.6, 4: 0.5, 5: 0.4},
		3: {6: 0.95, 4: 0.7},
	}}
	collab := &staticSimilarity{name: "collaborative", neighbors: map[int64]ScoreMap{
		1: {4: 0.8, 5: 0.1},
	}}
	e.SetAlgorithms(
		&mockAlgorithm{name: "content", sim: content},
		&mockAlgorithm{name: "collaborative", sim: collab},
	)
	return e
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CandidatePool = 0
	if _, err := NewEngine(cfg, nil, zerolog.Nop()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestEngine_NotReady(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})

	if e.IsReady() {
		t.Fatal("engine should not be ready before fit")
	}
	if _, err := e.Recommend(context.Background(), RecommendRequest{Query: "naruto"}); !errors.Is(err, ErrNotReady) {
		t.Errorf("Recommend error = %v, want ErrNotReady", err)
	}
	if _, err := e.Resolve(context.Background(), "naruto"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Resolve error = %v, want ErrNotReady", err)
	}
	if st := e.Status(); st.Ready {
		t.Error("Status().Ready should be false")
	}
}

func TestEngine_FitOpensReadinessGate(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})

	snap, err := e.Fit(context.Background())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if snap.Version != 1 || snap.RunID == "" {
		t.Errorf("unexpected snapshot metadata: version %d run %q", snap.Version, snap.RunID)
	}

	select {
	case <-e.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready channel not closed after fit")
	}
	if !e.IsReady() || e.Snapshot() != snap {
		t.Error("fitted snapshot not installed")
	}
}

func TestEngine_FitErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider DataProvider
		wantConf bool
	}{
		{"empty catalog", &mockProvider{}, true},
		{"provider failure", &mockProvider{err: errors.New("disk gone")}, false},
		{"no provider", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, nil, tt.provider)
			_, err := e.Fit(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrConfiguration) != tt.wantConf {
				t.Errorf("errors.Is(ErrConfiguration) = %v, want %v (%v)", !tt.wantConf, tt.wantConf, err)
			}
			if e.IsReady() {
				t.Error("failed fit must not install a snapshot")
			}
			if e.Status().LastError == "" {
				t.Error("LastError should be recorded")
			}
		})
	}
}

func TestEngine_CollaborativeFailure(t *testing.T) {
	confErr := errors.New("too few titles")

	strict := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	strict.SetAlgorithms(
		&mockAlgorithm{name: "content", sim: &EmptySimilarity{Engine: "content"}},
		&mockAlgorithm{name: "collaborative", err: errors.Join(ErrConfiguration, confErr)},
	)
	if _, err := strict.Fit(context.Background()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.Collaborative.Optional = true
	lenient := newTestEngine(t, cfg, &mockProvider{titles: sampleTitles()})
	lenient.SetAlgorithms(
		&mockAlgorithm{name: "content", sim: &EmptySimilarity{Engine: "content"}},
		&mockAlgorithm{name: "collaborative", err: errors.Join(ErrConfiguration, confErr)},
	)
	snap, err := lenient.Fit(context.Background())
	if err != nil {
		t.Fatalf("optional collaborative fit error = %v", err)
	}
	if _, ok := snap.Collaborative.(*EmptySimilarity); !ok {
		t.Errorf("expected EmptySimilarity stand-in, got %T", snap.Collaborative)
	}
}

func TestEngine_FitInProgress(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	release := make(chan struct{})
	started := make(chan struct{})
	e.SetAlgorithms(
		&mockAlgorithm{name: "content", sim: &EmptySimilarity{}, block: release, started: started},
		&mockAlgorithm{name: "collaborative", sim: &EmptySimilarity{}},
	)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = e.Fit(context.Background())
	}()
	<-started

	if _, err := e.Fit(context.Background()); !errors.Is(err, ErrFitInProgress) {
		t.Errorf("second Fit error = %v, want ErrFitInProgress", err)
	}
	if !e.Status().Fitting {
		t.Error("Status().Fitting should be true during a fit")
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Fit error = %v", firstErr)
	}
}

func TestEngine_RefreshSwapsSnapshot(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	var swapped []int
	e.OnSwap(func(s *Snapshot) { swapped = append(swapped, s.Version) })

	first, err := e.Fit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Fit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second == first || e.Snapshot() != second || second.Version != 2 {
		t.Error("refresh should install a new snapshot")
	}
	if !reflect.DeepEqual(swapped, []int{1, 2}) {
		t.Errorf("swap listeners saw %v", swapped)
	}
}

func TestEngine_Recommend(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatal(err)
	}

	res, err := e.Recommend(context.Background(), RecommendRequest{Query: "fullmetal alchemist:", TopK: 2})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Target.ID != 2 {
		t.Errorf("target = %d, want 2", res.Target.ID)
	}
	if res.SnapshotVersion != 1 {
		t.Errorf("SnapshotVersion = %d", res.SnapshotVersion)
	}

	res, err = e.Recommend(context.Background(), RecommendRequest{Query: "Fullmetal", TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	// Target 2 has no neighbours in the static maps.
	if len(res.Items) != 0 {
		t.Errorf("expected no items, got %v", res.Items)
	}
}

func TestEngine_RecommendBlendsDefaultWeights(t *testing.T) {
	titles := sampleTitles()
	titles[1].Quality = "7.0" // make "Fullmetal Alchemist" (ID 1) resolve first
	e := newTestEngine(t, nil, &mockProvider{titles: titles})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatal(err)
	}

	res, err := e.Recommend(context.Background(), RecommendRequest{Query: "fullmetal", TopK: 4})
	if err != nil {
		t.Fatal(err)
	}
	if res.Target.ID != 1 {
		t.Fatalf("target = %d, want 1", res.Target.ID)
	}
	// 0.4/0.6 blend: 4 = 0.2+0.48, 2 = 0.36, 3 = 0.24, 5 = 0.16+0.06.
	want := []int64{4, 2, 3, 5}
	for i, id := range want {
		if res.Items[i].ID != id {
			t.Errorf("position %d = %d, want %d", i, res.Items[i].ID, id)
		}
	}
}

func TestEngine_RecommendErrors(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  RecommendRequest
		want error
	}{
		{"not found", RecommendRequest{Query: "one piece"}, ErrNotFound},
		{"top_k too large", RecommendRequest{Query: "naruto", TopK: 51}, ErrInvalidRequest},
		{"negative top_k", RecommendRequest{Query: "naruto", TopK: -1}, ErrInvalidRequest},
		{"zero weights", RecommendRequest{Query: "naruto", Weights: &Weights{}}, ErrInvalidRequest},
		{"negative weight", RecommendRequest{Query: "naruto", Weights: &Weights{Content: -1, Collaborative: 1}}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Recommend(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Recommend(ctx, RecommendRequest{Query: "naruto"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context error = %v", err)
	}
}

func TestEngine_RecommendIdempotent(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatal(err)
	}
	req := RecommendRequest{Query: "naruto", TopK: 5, Weights: &Weights{Content: 1}}
	a, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated queries differ:\n%+v\n%+v", a, b)
	}
}

func TestEngine_ConcurrentQueries(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := e.Recommend(context.Background(), RecommendRequest{Query: "naruto"}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := e.Fit(context.Background()); err != nil && !errors.Is(err, ErrFitInProgress) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEngine_SnapshotStore(t *testing.T) {
	store := &memoryStore{}
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	e.SetSnapshotStore(store)

	if ok, err := e.Restore(context.Background()); ok || err != nil {
		t.Fatalf("Restore() on empty store = %v, %v", ok, err)
	}
	snap, err := e.Fit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(store.snaps) != 1 || store.snaps[0] != snap {
		t.Fatal("fitted snapshot not saved")
	}

	restored := newTestEngine(t, nil, &mockProvider{})
	restored.SetSnapshotStore(store)
	ok, err := restored.Restore(context.Background())
	if !ok || err != nil {
		t.Fatalf("Restore() = %v, %v", ok, err)
	}
	if !restored.IsReady() || !restored.Status().Restored {
		t.Error("restored engine should be ready and flagged restored")
	}

	// The next fit continues the restored version sequence.
	restored.provider = &mockProvider{titles: sampleTitles()}
	next, err := restored.Fit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if next.Version != snap.Version+1 {
		t.Errorf("version after restore = %d, want %d", next.Version, snap.Version+1)
	}
}

func TestEngine_FitContinuesStoredVersions(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}

	first := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	first.SetSnapshotStore(store)
	for range 2 {
		if _, err := first.Fit(ctx); err != nil {
			t.Fatal(err)
		}
	}

	// A new process that skips restore must not reuse v1.
	second := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()[:5]})
	second.SetSnapshotStore(store)
	snap, err := second.Fit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 3 {
		t.Fatalf("fit in fresh engine got version %d, want 3", snap.Version)
	}

	third := newTestEngine(t, nil, &mockProvider{})
	third.SetSnapshotStore(store)
	if ok, err := third.Restore(ctx); !ok || err != nil {
		t.Fatalf("Restore() = %v, %v", ok, err)
	}
	if got := third.Snapshot(); got.Version != 3 || got.Len() != 5 {
		t.Errorf("restored v%d with %d titles, want v3 with 5", got.Version, got.Len())
	}
}

func TestEngine_RestoreChecksDataVersion(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}

	fitter := newTestEngine(t, nil, &versionedProvider{mockProvider: mockProvider{titles: sampleTitles()}, version: "import-a"})
	fitter.SetSnapshotStore(store)
	snap, err := fitter.Fit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.DataVersion != "import-a" {
		t.Fatalf("DataVersion = %q, want import-a", snap.DataVersion)
	}

	tests := []struct {
		name    string
		version string
		wantOK  bool
		wantErr error
	}{
		{name: "same import", version: "import-a", wantOK: true},
		{name: "newer import", version: "import-b", wantErr: ErrStaleSnapshot},
		{name: "nothing imported", version: "", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, nil, &versionedProvider{version: tt.version})
			e.SetSnapshotStore(store)

			ok, err := e.Restore(ctx)
			if ok != tt.wantOK || !errors.Is(err, tt.wantErr) {
				t.Fatalf("Restore() = %v, %v; want %v, %v", ok, err, tt.wantOK, tt.wantErr)
			}
			if e.IsReady() != tt.wantOK {
				t.Errorf("IsReady() = %v, want %v", e.IsReady(), tt.wantOK)
			}
		})
	}
}

func TestEngine_SaveFailureKeepsSnapshot(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles()})
	e.SetSnapshotStore(&memoryStore{err: errors.New("read-only")})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatalf("save failure should not fail the fit: %v", err)
	}
	if !e.IsReady() {
		t.Error("snapshot should be installed even if saving fails")
	}
}

func TestEngine_Status(t *testing.T) {
	e := newTestEngine(t, nil, &mockProvider{titles: sampleTitles(), interactions: []Interaction{{UserID: 1, TitleID: 1, Rating: 9}}})
	if _, err := e.Fit(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := e.Status()
	if !st.Ready || st.Version != 1 || st.Titles != 6 || st.Interactions != 1 {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.ContentRows != 2 || st.CollaborativeRows != 1 {
		t.Errorf("row counts = %d/%d", st.ContentRows, st.CollaborativeRows)
	}
}
