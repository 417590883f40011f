package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/gitgraph/pkg/config"
	"github.com/vanderheijden86/gitgraph/pkg/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := testState()
	s.KnownRepos = []string{"/repo", "/other"}
	s.LoadRepoInfo([]string{"main", "dev"}, "main", []string{"origin"}, nil, true)
	s.LoadCommits([]model.Commit{commit("c1", "c2"), commit("c2")}, "c1", []string{"v1"}, true, true)
	s.OpenCommitDetails("c1")
	s.ApplyCommitDetails("c1", &model.CommitDetails{Hash: "c1", Changes: changesFromPaths([]string{"f.go"})})
	s.ScrollTop = 3
	s.Find = FindState{Open: true, Text: "change", CaseAware: true}
	s.Refresh.RepoInfoSeq = 7
	s.Refresh.CommitsSeq = 9
	s.Repos.Get("/repo").SetLeftDivider(0.3)

	p := NewPersister(t.TempDir())
	if err := p.Save(s.Snapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sn := p.Load()
	if sn == nil {
		t.Fatal("expected snapshot loaded")
	}

	restored := NewViewState(config.DefaultConfig())
	restored.Restore(sn)

	if restored.CurrentRepo != "/repo" {
		t.Errorf("expected current repo restored, got %q", restored.CurrentRepo)
	}
	if len(restored.Commits) != 2 || restored.CommitHead != "c1" {
		t.Error("expected commit window restored")
	}
	if restored.CommitIndex("c2") != 1 {
		t.Error("expected commit index re-derived")
	}
	if restored.Expanded == nil || restored.Expanded.Hash != "c1" {
		t.Error("expected expanded panel restored")
	}
	if restored.ScrollTop != 3 {
		t.Errorf("expected scroll restored, got %d", restored.ScrollTop)
	}
	if !restored.Find.Open || restored.Find.Text != "change" || !restored.Find.CaseAware {
		t.Errorf("expected find state restored, got %+v", restored.Find)
	}
	// Matches are derived, never trusted from disk.
	if len(restored.Find.Matches) != 2 {
		t.Errorf("expected find matches re-derived, got %v", restored.Find.Matches)
	}
	if restored.Refresh.RepoInfoSeq != 7 || restored.Refresh.CommitsSeq != 9 {
		t.Error("expected sequence counters to stay monotonic across reloads")
	}
	left, _ := restored.Repos.Get("/repo").Dividers()
	if left != 0.3 {
		t.Errorf("expected divider restored, got %v", left)
	}
	if !restored.MoreCommitsAvailable {
		t.Error("expected more-available flag restored")
	}
}

func TestRestore_ReclampsPreferencePayload(t *testing.T) {
	s := testState()
	sn := s.Snapshot()
	// A hand-edited snapshot can carry divider values the setters would
	// never produce; restore must not let them through.
	sn.Repos = RepoSet{"/repo": {
		LeftDivider:  0.01,
		RightDivider: 0.99,
		FileViewType: model.FileViewList,
	}}

	restored := NewViewState(config.DefaultConfig())
	restored.Restore(sn)

	p := restored.Repos.Get("/repo")
	left, right := p.Dividers()
	if left != DividerMinLeft || right != DividerMaxRight {
		t.Errorf("expected dividers re-clamped, got (%v, %v)", left, right)
	}
	if p.FileViewType != model.FileViewList {
		t.Error("expected view type carried through the merge")
	}
}

func TestRestore_NilOrVersionMismatch(t *testing.T) {
	s := testState()
	if needsConfig := s.Restore(nil); !needsConfig {
		t.Error("expected cold start to need config")
	}
	if needsConfig := s.Restore(&Snapshot{Version: SnapshotVersion + 1}); !needsConfig {
		t.Error("expected version mismatch to start cold")
	}
	if s.CurrentRepo != "/repo" {
		t.Error("expected state untouched by rejected snapshot")
	}
}

func TestPersister_LoadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(dir)

	if p.Load() != nil {
		t.Error("expected nil for missing file")
	}

	if err := os.WriteFile(p.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if p.Load() != nil {
		t.Error("expected nil for corrupt file")
	}

	if err := os.WriteFile(p.Path(), []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if p.Load() != nil {
		t.Error("expected nil for version mismatch")
	}
}

func TestPersister_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(dir)

	s := testState()
	if err := p.Save(s.Snapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "view-state.json.tmp")); !os.IsNotExist(err) {
		t.Error("expected temp file renamed away")
	}
	if p.Load() == nil {
		t.Error("expected saved snapshot readable")
	}
}

func TestSaveScrollDebounced(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(dir)
	s := testState()

	s.ScrollTop = 1
	p.SaveScrollDebounced(s.Snapshot())
	s.ScrollTop = 2
	p.SaveScrollDebounced(s.Snapshot())

	if p.Load() != nil {
		t.Error("expected no write before the debounce delay")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if sn := p.Load(); sn != nil {
			if sn.ScrollTop != 2 {
				t.Errorf("expected last scheduled snapshot written, got scroll %d", sn.ScrollTop)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced save never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
