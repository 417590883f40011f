// Package graph turns an ordered commit list into lane geometry and renders
// it, one row per commit, for the terminal and for SVG export. It is a
// self-contained collaborator of the view: callers hand it the current
// commit list, head hash, index, and a linear-history flag via LoadCommits,
// then ask for rendered rows; it owns vertex and edge geometry itself.
package graph

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

// Vertex is one commit's position in the laid-out graph.
type Vertex struct {
	Hash   string
	Lane   int // column index
	IsHead bool
	Merge  bool // more than one parent
	Stash  bool
}

// edge is a continuation segment between adjacent rows.
type edge struct {
	fromLane int
	toLane   int
	color    int
}

// Graph lays out and renders the commit graph.
type Graph struct {
	vertices []Vertex
	// rowEdges[i] holds the segments drawn between row i and row i+1.
	rowEdges  [][]edge
	laneCount int
	linear    bool

	palette []lipgloss.Style
}

// New creates an empty graph with the given lane color palette. A nil
// palette renders without color (used by tests and SVG sizing).
func New(palette []lipgloss.Style) *Graph {
	return &Graph{palette: palette}
}

// LaneCount returns the widest lane index in use plus one.
func (g *Graph) LaneCount() int { return g.laneCount }

// Vertices returns the laid-out vertices in row order.
func (g *Graph) Vertices() []Vertex { return g.vertices }

// LoadCommits lays out the graph for a new commit window. index must
// satisfy index[commits[i].Hash] == i. With linear set (first-parent-only
// history) every commit collapses onto lane 0.
func (g *Graph) LoadCommits(commits []model.Commit, head string, index map[string]int, linear bool) {
	g.vertices = make([]Vertex, len(commits))
	g.rowEdges = make([][]edge, len(commits))
	g.laneCount = 0
	g.linear = linear

	if linear {
		for i := range commits {
			g.vertices[i] = Vertex{
				Hash:   commits[i].Hash,
				Lane:   0,
				IsHead: commits[i].Hash == head,
				Merge:  len(commits[i].Parents) > 1,
				Stash:  commits[i].Stash != nil,
			}
			if i < len(commits)-1 {
				g.rowEdges[i] = []edge{{fromLane: 0, toLane: 0}}
			}
		}
		if len(commits) > 0 {
			g.laneCount = 1
		}
		return
	}

	// active[l] is the hash each open lane is waiting for. A commit claims
	// the leftmost lane waiting for it (or opens a new lane), closes any
	// other lanes waiting for it (merge joins), continues on its first
	// parent, and opens lanes to the right for its remaining parents.
	var active []string
	laneColor := make([]int, 0)
	nextColor := 0

	claimLane := func(hash string) int {
		for l, h := range active {
			if h == hash {
				return l
			}
		}
		for l, h := range active {
			if h == "" {
				active[l] = hash
				laneColor[l] = nextColor
				nextColor++
				return l
			}
		}
		active = append(active, hash)
		laneColor = append(laneColor, nextColor)
		nextColor++
		return len(active) - 1
	}

	for i := range commits {
		c := &commits[i]
		lane := claimLane(c.Hash)

		g.vertices[i] = Vertex{
			Hash:   c.Hash,
			Lane:   lane,
			IsHead: c.Hash == head,
			Merge:  len(c.Parents) > 1,
			Stash:  c.Stash != nil,
		}
		if lane+1 > g.laneCount {
			g.laneCount = lane + 1
		}

		var edges []edge

		// Join every other lane waiting for this commit into its vertex.
		for l, h := range active {
			if l != lane && h == c.Hash {
				edges = append(edges, edge{fromLane: l, toLane: lane, color: laneColor[l]})
				active[l] = ""
			}
		}

		// Continue on the first parent; open lanes for the rest. Parents
		// outside the loaded window close the lane.
		if len(c.Parents) == 0 {
			active[lane] = ""
		} else {
			first := c.Parents[0]
			if _, known := index[first]; known {
				active[lane] = first
				edges = append(edges, edge{fromLane: lane, toLane: lane, color: laneColor[lane]})
			} else {
				active[lane] = ""
			}
			for _, p := range c.Parents[1:] {
				if _, known := index[p]; !known {
					continue
				}
				pl := claimLane(p)
				if pl+1 > g.laneCount {
					g.laneCount = pl + 1
				}
				edges = append(edges, edge{fromLane: lane, toLane: pl, color: laneColor[pl]})
			}
		}

		// Pass through lanes that are merely continuing.
		for l, h := range active {
			if l == lane || h == "" {
				continue
			}
			already := false
			for _, e := range edges {
				if e.toLane == l && e.fromLane != lane {
					already = true
				}
				if e.fromLane == l {
					already = true
				}
			}
			if !already {
				edges = append(edges, edge{fromLane: l, toLane: l, color: laneColor[l]})
			}
		}

		if i < len(commits)-1 {
			g.rowEdges[i] = edges
		}

		// Trim trailing closed lanes so the graph narrows again.
		for len(active) > 0 && active[len(active)-1] == "" {
			active = active[:len(active)-1]
			laneColor = laneColor[:len(laneColor)-1]
		}
	}
}

// Render produces one string per commit row, each laneCount*2 cells wide.
func (g *Graph) Render() []string {
	rows := make([]string, len(g.vertices))
	width := g.laneCount * 2
	for i, v := range g.vertices {
		cells := make([]string, width)
		for c := range cells {
			cells[c] = " "
		}

		// Continuation and branch/merge segments below this row are drawn
		// into the same row for a compact single-line-per-commit layout.
		for _, e := range g.edges(i) {
			lo, hi := e.fromLane, e.toLane
			if lo > hi {
				lo, hi = hi, lo
			}
			if e.fromLane == e.toLane {
				g.put(cells, e.fromLane*2, "│", e.color)
				continue
			}
			for x := lo*2 + 1; x < hi*2; x++ {
				g.put(cells, x, "─", e.color)
			}
			g.put(cells, lo*2, "├", e.color)
			g.put(cells, hi*2, "╮", e.color)
		}

		glyph := "●"
		switch {
		case v.IsHead:
			glyph = "◉"
		case v.Stash:
			glyph = "◌"
		}
		g.put(cells, v.Lane*2, glyph, v.Lane)

		rows[i] = strings.Join(cells, "")
	}
	return rows
}

func (g *Graph) edges(row int) []edge {
	if row < 0 || row >= len(g.rowEdges) {
		return nil
	}
	return g.rowEdges[row]
}

func (g *Graph) put(cells []string, x int, glyph string, color int) {
	if x < 0 || x >= len(cells) {
		return
	}
	if len(g.palette) > 0 {
		cells[x] = g.palette[color%len(g.palette)].Render(glyph)
	} else {
		cells[x] = glyph
	}
}

// LaneOf returns the lane of the commit at row, or 0 when out of range.
func (g *Graph) LaneOf(row int) int {
	if row < 0 || row >= len(g.vertices) {
		return 0
	}
	return g.vertices[row].Lane
}
