package graph

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

func load(g *Graph, linear bool, commits ...model.Commit) {
	index := make(map[string]int, len(commits))
	for i := range commits {
		index[commits[i].Hash] = i
	}
	head := ""
	if len(commits) > 0 {
		head = commits[0].Hash
	}
	g.LoadCommits(commits, head, index, linear)
}

func c(hash string, parents ...string) model.Commit {
	return model.Commit{Hash: hash, Parents: parents}
}

func TestLinearChain_SingleLane(t *testing.T) {
	g := New(nil)
	load(g, false, c("a", "b"), c("b", "c"), c("c"))

	if g.LaneCount() != 1 {
		t.Errorf("expected one lane, got %d", g.LaneCount())
	}
	for i, v := range g.Vertices() {
		if v.Lane != 0 {
			t.Errorf("row %d on lane %d, want 0", i, v.Lane)
		}
	}
	if !g.Vertices()[0].IsHead {
		t.Error("expected head marked on row 0")
	}
}

func TestMergeCommit_OpensSecondLane(t *testing.T) {
	// a merges b (mainline) and f (feature); f's parent is b.
	g := New(nil)
	load(g, false,
		c("a", "b", "f"),
		c("f", "b"),
		c("b"),
	)

	if g.LaneCount() != 2 {
		t.Errorf("expected two lanes, got %d", g.LaneCount())
	}
	vs := g.Vertices()
	if !vs[0].Merge {
		t.Error("expected merge vertex")
	}
	if vs[0].Lane != 0 || vs[2].Lane != 0 {
		t.Error("expected mainline on lane 0")
	}
	if vs[1].Lane != 1 {
		t.Errorf("expected feature commit on lane 1, got %d", vs[1].Lane)
	}
}

func TestBranchesRejoin_LanesNarrow(t *testing.T) {
	// Two independent heads converging on a shared root.
	g := New(nil)
	load(g, false,
		c("a", "root"),
		c("b", "root"),
		c("root"),
	)

	if g.LaneCount() != 2 {
		t.Errorf("expected two lanes while diverged, got %d", g.LaneCount())
	}
	if g.Vertices()[2].Lane != 0 {
		t.Errorf("expected shared root joined onto lane 0, got %d", g.Vertices()[2].Lane)
	}
}

func TestParentOutsideWindow_ClosesLane(t *testing.T) {
	g := New(nil)
	load(g, false, c("a", "missing"))

	if g.LaneCount() != 1 {
		t.Errorf("expected single lane, got %d", g.LaneCount())
	}
	rows := g.Render()
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func TestLinearMode_CollapsesEverything(t *testing.T) {
	g := New(nil)
	load(g, true,
		c("a", "b", "x"),
		c("b", "c"),
		c("c"),
	)
	if g.LaneCount() != 1 {
		t.Errorf("expected first-parent history on one lane, got %d", g.LaneCount())
	}
	for i := range g.Vertices() {
		if g.LaneOf(i) != 0 {
			t.Errorf("row %d not on lane 0", i)
		}
	}
}

func TestRender_OneRowPerCommit(t *testing.T) {
	g := New(nil)
	load(g, false,
		c("a", "f", "b"),
		c("f", "b"),
		c("b"),
	)

	rows := g.Render()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !strings.Contains(rows[0], "◉") {
		t.Error("expected head glyph on row 0")
	}
	for i := 1; i < len(rows); i++ {
		if !strings.Contains(rows[i], "●") {
			t.Errorf("expected commit glyph on row %d: %q", i, rows[i])
		}
	}
}

func TestStashVertexGlyph(t *testing.T) {
	g := New(nil)
	stash := model.Commit{Hash: "s", Parents: []string{"b"}, Stash: &model.StashRef{Selector: "stash@{0}"}}
	commits := []model.Commit{stash, c("b")}
	g.LoadCommits(commits, "b", map[string]int{"s": 0, "b": 1}, false)

	if !g.Vertices()[0].Stash {
		t.Error("expected stash vertex flagged")
	}
	rows := g.Render()
	if !strings.Contains(rows[0], "◌") {
		t.Errorf("expected stash glyph, got %q", rows[0])
	}
}

func TestEmptyGraph(t *testing.T) {
	g := New(nil)
	load(g, false)
	if g.LaneCount() != 0 || len(g.Render()) != 0 {
		t.Error("expected empty layout")
	}
	if g.LaneOf(5) != 0 {
		t.Error("expected out-of-range lane to be 0")
	}
}
