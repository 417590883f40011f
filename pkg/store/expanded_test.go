package store

import (
	"testing"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

func stateWithCommits(hashes ...string) *ViewState {
	s := testState()
	commits := make([]model.Commit, len(hashes))
	for i, h := range hashes {
		commits[i] = commit(h)
	}
	s.LoadCommits(commits, hashes[0], nil, false, true)
	return s
}

func TestOpenCommitDetails(t *testing.T) {
	s := stateWithCommits("a", "b")

	req := s.OpenCommitDetails("a")
	if req == nil {
		t.Fatal("expected a detail request")
	}
	if s.Expanded == nil || s.Expanded.Hash != "a" || !s.Expanded.Loading {
		t.Fatalf("expected loading panel for a, got %+v", s.Expanded)
	}

	// Re-opening the same commit is a no-op.
	if s.OpenCommitDetails("a") != nil {
		t.Error("expected nil request for already-open commit")
	}

	// Opening another commit tears the first panel down.
	if s.OpenCommitDetails("b") == nil {
		t.Fatal("expected request for new target")
	}
	if s.Expanded.Hash != "b" {
		t.Errorf("expected panel moved to b, got %q", s.Expanded.Hash)
	}
}

func TestNormalizeComparison_Ordering(t *testing.T) {
	// Index order: a (newest), b, c (oldest).
	s := stateWithCommits("a", "b", "c")

	from, to := s.NormalizeComparison("a", "c")
	if from != "c" || to != "a" {
		t.Errorf("expected from=c to=a, got from=%s to=%s", from, to)
	}
	from, to = s.NormalizeComparison("c", "a")
	if from != "c" || to != "a" {
		t.Errorf("expected order-insensitive normalization, got from=%s to=%s", from, to)
	}

	// The uncommitted sentinel is always the "to" side.
	from, to = s.NormalizeComparison(model.UncommittedHash, "b")
	if from != "b" || to != model.UncommittedHash {
		t.Errorf("expected sentinel as to-side, got from=%s to=%s", from, to)
	}
	from, to = s.NormalizeComparison("b", model.UncommittedHash)
	if from != "b" || to != model.UncommittedHash {
		t.Errorf("expected sentinel as to-side, got from=%s to=%s", from, to)
	}
}

func TestOpenCommitComparison_KeepsDetailHalfForSameAnchor(t *testing.T) {
	s := stateWithCommits("a", "b", "c")

	s.OpenCommitDetails("c")
	details := &model.CommitDetails{Hash: "c", Changes: changesFromPaths([]string{"f.go"})}
	if !s.ApplyCommitDetails("c", details) {
		t.Fatal("expected details applied")
	}

	req := s.OpenCommitComparison("c", "a")
	if req == nil {
		t.Fatal("expected comparison request")
	}
	cmp, ok := req.(protocol.CompareCommitsRequest)
	if !ok || cmp.FromHash != "c" || cmp.ToHash != "a" {
		t.Fatalf("unexpected comparison request %+v", req)
	}
	if s.Expanded.Details == nil {
		t.Error("expected detail half kept for the same anchor")
	}
	if !s.Expanded.Loading {
		t.Error("expected comparison half loading")
	}

	// Same pair again: no-op.
	if s.OpenCommitComparison("a", "c") != nil {
		t.Error("expected nil request for identical pair")
	}
}

func TestApplyCommitDetails_Targeting(t *testing.T) {
	s := stateWithCommits("a", "b")
	s.OpenCommitDetails("a")

	if s.ApplyCommitDetails("b", &model.CommitDetails{Hash: "b"}) {
		t.Error("expected payload for another hash to be dropped")
	}
	if s.ApplyCommitDetails("a", nil) {
		t.Error("expected nil payload dropped")
	}
	if !s.ApplyCommitDetails("a", &model.CommitDetails{Hash: "a"}) {
		t.Error("expected matching payload applied")
	}
	if s.Expanded.Loading {
		t.Error("expected loading cleared")
	}

	s.CloseExpanded(true)
	if s.ApplyCommitDetails("a", &model.CommitDetails{Hash: "a"}) {
		t.Error("expected payload for closed panel dropped")
	}
}

func TestApplyComparison_Targeting(t *testing.T) {
	s := stateWithCommits("a", "b")
	s.OpenCommitComparison("a", "b")

	if s.ApplyComparison("a", "b", nil) {
		t.Error("expected mismatched pair dropped (normalized order is b->a)")
	}
	if !s.ApplyComparison("b", "a", changesFromPaths([]string{"f.go"})) {
		t.Error("expected normalized pair applied")
	}
	if len(s.Expanded.Changes) != 1 {
		t.Error("expected changes installed")
	}
}

func TestApplyChanges_PreservesTreeForSameFileSet(t *testing.T) {
	s := stateWithCommits("a")
	s.OpenCommitDetails("a")
	changes := changesFromPaths([]string{"dir/f.go", "dir/g.go"})
	s.ApplyCommitDetails("a", &model.CommitDetails{Hash: "a", Changes: changes})

	s.Expanded.Tree = ToggleFolderOpen(s.Expanded.Tree, "dir")
	s.Expanded.ScrollFiles = 1
	before := s.Expanded.Tree

	// Same file set, different stats: tree and scroll kept.
	refreshed := changesFromPaths([]string{"dir/f.go", "dir/g.go"})
	refreshed[0].Additions = 42
	s.ApplyCommitDetails("a", &model.CommitDetails{Hash: "a", Changes: refreshed})
	if s.Expanded.Tree != before {
		t.Error("expected tree preserved for structurally identical changes")
	}
	if s.Expanded.ScrollFiles != 1 {
		t.Error("expected scroll preserved")
	}

	// Different file set: tree rebuilt, scroll reset.
	s.ApplyCommitDetails("a", &model.CommitDetails{Hash: "a", Changes: changesFromPaths([]string{"other.go"})})
	if s.Expanded.Tree == before {
		t.Error("expected tree rebuilt for changed file set")
	}
	if s.Expanded.ScrollFiles != 0 {
		t.Error("expected scroll reset")
	}
}

func TestCloseComparisonHalf(t *testing.T) {
	s := stateWithCommits("a", "b")

	// Detail half already loaded: reverting needs no round trip.
	s.OpenCommitDetails("b")
	s.ApplyCommitDetails("b", &model.CommitDetails{Hash: "b", Changes: changesFromPaths([]string{"f.go"})})
	s.OpenCommitComparison("b", "a")
	if req := s.CloseComparisonHalf(); req != nil {
		t.Errorf("expected no request when detail half is cached, got %+v", req)
	}
	if s.Expanded.IsComparison() || len(s.Expanded.Changes) != 1 {
		t.Error("expected panel reverted to cached detail view")
	}

	// Detail half never loaded: reverting re-requests it.
	s.CloseExpanded(false)
	s.OpenCommitComparison("b", "a")
	req := s.CloseComparisonHalf()
	dr, ok := req.(protocol.CommitDetailsRequest)
	if !ok || dr.Hash != "b" {
		t.Fatalf("expected detail request for anchor, got %+v", req)
	}
	if !s.Expanded.Loading {
		t.Error("expected panel loading while detail refetches")
	}
}

func TestCommitVanishes_PanelCloses(t *testing.T) {
	s := stateWithCommits("a", "b")
	s.OpenCommitDetails("b")

	s.LoadCommits([]model.Commit{commit("a")}, "a", nil, false, true)
	if s.Expanded != nil {
		t.Error("expected panel closed when its commit left the window")
	}
}

func TestRequestAIAnalysis_AndUpdates(t *testing.T) {
	s := stateWithCommits("a", "b")

	if s.RequestAIAnalysis() != nil {
		t.Fatal("expected nil without an open panel")
	}

	s.OpenCommitDetails("a")
	req := s.RequestAIAnalysis()
	ar, ok := req.(protocol.AIAnalysisRequest)
	if !ok || ar.Hash != "a" || ar.CompareHash != "" {
		t.Fatalf("unexpected analysis request %+v", req)
	}
	if s.Expanded.AI.Status != AILoading {
		t.Error("expected sub-state loading")
	}

	// Progress pushes for the open pair apply.
	if !s.ApplyAIUpdate(protocol.AIAnalysisUpdate{
		Hash: "a", Status: protocol.AIProgress,
		Progress: model.AIProgress{Current: 2, Total: 5, Phase: "inspecting f.go"},
	}) {
		t.Error("expected progress applied")
	}
	if s.Expanded.AI.Progress.Current != 2 {
		t.Error("expected progress recorded")
	}

	// Pushes for a pair the user navigated away from are dropped.
	if s.ApplyAIUpdate(protocol.AIAnalysisUpdate{Hash: "b", Status: protocol.AICompleted, Summary: "x"}) {
		t.Error("expected mistargeted push dropped")
	}

	if !s.ApplyAIUpdate(protocol.AIAnalysisUpdate{Hash: "a", Status: protocol.AICompleted, Summary: "## done"}) {
		t.Error("expected completion applied")
	}
	if s.Expanded.AI.Status != AICompleted || s.Expanded.AI.Summary != "## done" {
		t.Errorf("unexpected AI state %+v", s.Expanded.AI)
	}

	if !s.ApplyAIUpdate(protocol.AIAnalysisUpdate{Hash: "a", Status: protocol.AIErrored, ErrorKind: model.AIErrTimeout}) {
		t.Error("expected error applied")
	}
	if s.Expanded.AI.Status != AIErrored || s.Expanded.AI.ErrorKind != model.AIErrTimeout {
		t.Errorf("unexpected AI state %+v", s.Expanded.AI)
	}

	// Unknown status values are rejected, not mis-applied.
	if s.ApplyAIUpdate(protocol.AIAnalysisUpdate{Hash: "a", Status: "future-status"}) {
		t.Error("expected unknown status dropped")
	}
}
