package store

import (
	"testing"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

func stateWithOpenPanel(t *testing.T, paths ...string) *ViewState {
	t.Helper()
	s := stateWithCommits("a", "b")
	s.OpenCommitDetails("a")
	if !s.ApplyCommitDetails("a", &model.CommitDetails{Hash: "a", Changes: changesFromPaths(paths)}) {
		t.Fatal("expected details applied")
	}
	return s
}

func TestStartCodeReview(t *testing.T) {
	s := stateWithOpenPanel(t, "one.go", "dir/two.go")

	req := s.StartCodeReview()
	start, ok := req.(protocol.StartCodeReviewRequest)
	if !ok {
		t.Fatalf("expected start request, got %+v", req)
	}
	if start.ID != "a" {
		t.Errorf("expected review ID 'a', got %q", start.ID)
	}
	if len(start.RemainingFiles) != 2 {
		t.Errorf("expected every file remaining, got %v", start.RemainingFiles)
	}
	if s.Expanded.Review == nil {
		t.Fatal("expected review attached")
	}
	if s.Expanded.Tree.Children["one.go"].Reviewed {
		t.Error("expected files reset to unreviewed")
	}

	// Starting twice is a no-op.
	if s.StartCodeReview() != nil {
		t.Error("expected nil when a review is already active")
	}
}

func TestStartCodeReview_RequiresOpenPanelWithChanges(t *testing.T) {
	s := testState()
	if s.StartCodeReview() != nil {
		t.Error("expected nil without an open panel")
	}

	s2 := stateWithOpenPanel(t) // no changes
	if s2.StartCodeReview() != nil {
		t.Error("expected nil for an empty change list")
	}
}

func TestSetFileReviewedState_AutoEnds(t *testing.T) {
	s := stateWithOpenPanel(t, "one.go", "two.go")
	s.StartCodeReview()

	req := s.SetFileReviewedState("one.go", true)
	upd, ok := req.(protocol.UpdateCodeReviewRequest)
	if !ok {
		t.Fatalf("expected update request, got %+v", req)
	}
	if len(upd.RemainingFiles) != 1 || upd.RemainingFiles[0] != "two.go" {
		t.Errorf("expected [two.go] remaining, got %v", upd.RemainingFiles)
	}

	// Reviewing the last file ends the review.
	req = s.SetFileReviewedState("two.go", true)
	end, ok := req.(protocol.EndCodeReviewRequest)
	if !ok {
		t.Fatalf("expected end request, got %+v", req)
	}
	if end.ID != "a" {
		t.Errorf("expected end for review 'a', got %q", end.ID)
	}
	if s.Expanded.Review != nil {
		t.Error("expected review destroyed on completion")
	}
}

func TestSetFileReviewedState_Unreview(t *testing.T) {
	s := stateWithOpenPanel(t, "one.go", "two.go")
	s.StartCodeReview()

	s.SetFileReviewedState("one.go", true)
	req := s.SetFileReviewedState("one.go", false)
	upd, ok := req.(protocol.UpdateCodeReviewRequest)
	if !ok {
		t.Fatalf("expected update request, got %+v", req)
	}
	if len(upd.RemainingFiles) != 2 {
		t.Errorf("expected file back in remaining set, got %v", upd.RemainingFiles)
	}
	if s.Expanded.Tree.Children["one.go"].Reviewed {
		t.Error("expected tree mark cleared")
	}
}

func TestRecordFileViewed(t *testing.T) {
	s := stateWithOpenPanel(t, "one.go")
	s.StartCodeReview()

	req := s.RecordFileViewed("one.go")
	upd, ok := req.(protocol.UpdateCodeReviewRequest)
	if !ok || upd.LastViewedFile != "one.go" {
		t.Fatalf("expected last-viewed update, got %+v", req)
	}
	if s.Expanded.Review.LastViewedFile != "one.go" {
		t.Error("expected last viewed file recorded")
	}

	// Without a review it is a no-op.
	s.EndCodeReview()
	if s.RecordFileViewed("one.go") != nil {
		t.Error("expected nil without an active review")
	}
}

func TestEndCodeReview_Explicit(t *testing.T) {
	s := stateWithOpenPanel(t, "one.go", "two.go")
	s.StartCodeReview()

	req := s.EndCodeReview()
	end, ok := req.(protocol.EndCodeReviewRequest)
	if !ok || end.ID != "a" {
		t.Fatalf("expected end request, got %+v", req)
	}
	if s.Expanded.Review != nil {
		t.Error("expected review destroyed")
	}
	if !s.Expanded.Tree.Children["one.go"].Reviewed {
		t.Error("expected marks cleared back to reviewed")
	}
}

func TestRestoreCodeReview(t *testing.T) {
	s := stateWithOpenPanel(t, "one.go", "two.go")

	// Mismatched ID: ignored.
	s.RestoreCodeReview(&model.CodeReview{ID: "other", RemainingFiles: []string{"one.go"}})
	if s.Expanded.Review != nil {
		t.Error("expected mismatched review ignored")
	}

	s.RestoreCodeReview(&model.CodeReview{ID: "a", RemainingFiles: []string{"one.go"}})
	if s.Expanded.Review == nil {
		t.Fatal("expected review restored")
	}
	if s.Expanded.Tree.Children["one.go"].Reviewed {
		t.Error("expected remaining file marked unreviewed")
	}
	if !s.Expanded.Tree.Children["two.go"].Reviewed {
		t.Error("expected already-reviewed file marked reviewed")
	}
}

func TestReviewID_Comparison(t *testing.T) {
	if model.ReviewID("a", "") != "a" {
		t.Error("single review keyed by hash")
	}
	if model.ReviewID("a", "b") != "a-b" {
		t.Error("comparison review keyed by pair")
	}
}
