package store

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

func TestDividers_Defaults(t *testing.T) {
	p := &RepoPrefs{}
	left, right := p.Dividers()
	if left != DefaultLeftDivider || right != DefaultRightDivider {
		t.Errorf("expected defaults (%v, %v), got (%v, %v)",
			DefaultLeftDivider, DefaultRightDivider, left, right)
	}
}

// Any sequence of divider moves keeps the layout invariant:
// DividerMinLeft <= left <= right-DividerMinGap and right <= DividerMaxRight.
func TestDividerClamping(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := NewRepoPrefs()
		moves := rapid.SliceOfN(rapid.Float64Range(-1, 2), 1, 50).Draw(t, "moves")
		leftMove := rapid.SliceOfN(rapid.Bool(), len(moves), len(moves)).Draw(t, "leftMove")

		for i, v := range moves {
			if leftMove[i] {
				p.SetLeftDivider(v)
			} else {
				p.SetRightDivider(v)
			}

			left, right := p.Dividers()
			if left < DividerMinLeft {
				t.Fatalf("left %v below minimum", left)
			}
			if right > DividerMaxRight {
				t.Fatalf("right %v above maximum", right)
			}
			if right-left < DividerMinGap-1e-9 {
				t.Fatalf("gap %v below minimum (left %v, right %v)", right-left, left, right)
			}
		}
	})
}

func TestSetLeftDivider_ClampsAgainstRight(t *testing.T) {
	p := NewRepoPrefs()
	p.SetRightDivider(0.5)
	p.SetLeftDivider(0.9)
	left, right := p.Dividers()
	if left != 0.4 || right != 0.5 {
		t.Errorf("expected left clamped to 0.4, got (%v, %v)", left, right)
	}
}

func TestSetRightDivider_ClampsAgainstLeft(t *testing.T) {
	p := NewRepoPrefs()
	p.SetLeftDivider(0.6)
	p.SetRightDivider(0.1)
	left, right := p.Dividers()
	if left != 0.6 || right != 0.7 {
		t.Errorf("expected right clamped to 0.7, got (%v, %v)", left, right)
	}
}

func TestRepoSet_GetCreatesDefaults(t *testing.T) {
	rs := make(RepoSet)
	p := rs.Get("/repo")
	if p == nil {
		t.Fatal("expected prefs created")
	}
	if p.LeftDivider != DefaultLeftDivider {
		t.Errorf("expected divider defaults, got %v", p.LeftDivider)
	}
	if rs.Get("/repo") != p {
		t.Error("expected same record on second get")
	}
}

func TestRepoSet_MergePatchesOnlyCarriedFields(t *testing.T) {
	rs := make(RepoSet)
	p := rs.Get("/repo")
	on := true
	p.ShowTags = &on
	p.DetailPaneHeight = 20

	off := false
	rs.Merge("/repo", &RepoPrefs{
		ShowStashes: &off,
		Ordering:    model.OrderTopo,
	})

	if p.ShowTags == nil || !*p.ShowTags {
		t.Error("expected untouched field preserved")
	}
	if p.ShowStashes == nil || *p.ShowStashes {
		t.Error("expected patched field applied")
	}
	if p.Ordering != model.OrderTopo {
		t.Error("expected ordering applied")
	}
	if p.DetailPaneHeight != 20 {
		t.Error("expected pane height preserved")
	}

	rs.Merge("/repo", nil) // no-op
	if p.Ordering != model.OrderTopo {
		t.Error("expected nil patch ignored")
	}
}

func TestRepoSet_MergePreservesFileViewType(t *testing.T) {
	rs := make(RepoSet)
	p := rs.Get("/repo")
	p.FileViewType = model.FileViewList

	rs.Merge("/repo", &RepoPrefs{DetailPaneHeight: 12})
	if p.FileViewType != model.FileViewList {
		t.Error("expected partial patch to leave the view type alone")
	}

	rs.Merge("/repo2", &RepoPrefs{FileViewType: model.FileViewList})
	if rs.Get("/repo2").FileViewType != model.FileViewList {
		t.Error("expected list view applied from patch")
	}
}

func TestRepoSet_MergeClampsDividers(t *testing.T) {
	rs := make(RepoSet)

	// An out-of-range payload is clamped on the way in.
	rs.Merge("/repo", &RepoPrefs{LeftDivider: 0.05, RightDivider: 0.95})
	left, right := rs.Get("/repo").Dividers()
	if left != DividerMinLeft || right != DividerMaxRight {
		t.Errorf("expected clamped dividers, got (%v, %v)", left, right)
	}

	// A valid pair applies exactly, even when both move past the old gap.
	rs.Merge("/repo", &RepoPrefs{LeftDivider: 0.65, RightDivider: 0.8})
	left, right = rs.Get("/repo").Dividers()
	if left != 0.65 || right != 0.8 {
		t.Errorf("expected (0.65, 0.8), got (%v, %v)", left, right)
	}
	rs.Merge("/repo", &RepoPrefs{LeftDivider: 0.25, RightDivider: 0.45})
	left, right = rs.Get("/repo").Dividers()
	if left != 0.25 || right != 0.45 {
		t.Errorf("expected (0.25, 0.45), got (%v, %v)", left, right)
	}
}

func TestToggleHiddenRemote(t *testing.T) {
	p := NewRepoPrefs()
	p.ToggleHiddenRemote("origin")
	if !p.HidesRemote("origin") {
		t.Error("expected origin hidden")
	}
	p.ToggleHiddenRemote("origin")
	if p.HidesRemote("origin") {
		t.Error("expected origin unhidden")
	}
}
