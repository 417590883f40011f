package graph

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
)

// SVG geometry constants, in pixels.
const (
	svgLaneWidth  = 24
	svgRowHeight  = 28
	svgNodeRadius = 5
	svgPadding    = 16
)

// svgPalette matches the terminal lane palette by hue.
var svgPalette = []string{
	"#e06c75", "#98c379", "#e5c07b", "#61afef",
	"#c678dd", "#56b6c2", "#d19a66", "#abb2bf",
}

// WriteSVG exports the laid-out graph as an SVG document: one circle per
// commit vertex, straight lane segments, and bezier curves for branch and
// merge joins.
func (g *Graph) WriteSVG(w io.Writer) error {
	width := svgPadding*2 + g.laneCount*svgLaneWidth
	height := svgPadding*2 + len(g.vertices)*svgRowHeight

	canvas := svg.New(w)
	canvas.Start(width, height)

	cx := func(lane int) int { return svgPadding + lane*svgLaneWidth + svgLaneWidth/2 }
	cy := func(row int) int { return svgPadding + row*svgRowHeight + svgRowHeight/2 }

	for row := range g.vertices {
		for _, e := range g.edges(row) {
			color := svgPalette[e.color%len(svgPalette)]
			style := fmt.Sprintf("stroke:%s;stroke-width:2;fill:none", color)
			x1, y1 := cx(e.fromLane), cy(row)
			x2, y2 := cx(e.toLane), cy(row+1)
			if e.fromLane == e.toLane {
				canvas.Line(x1, y1, x2, y2, style)
			} else {
				canvas.Bezier(x1, y1, x1, (y1+y2)/2, x2, (y1+y2)/2, x2, y2, style)
			}
		}
	}

	for row, v := range g.vertices {
		color := svgPalette[v.Lane%len(svgPalette)]
		r := svgNodeRadius
		if v.IsHead {
			r += 2
		}
		canvas.Circle(cx(v.Lane), cy(row), r, fmt.Sprintf("fill:%s;stroke:#282c34;stroke-width:1", color))
	}

	canvas.End()
	return nil
}
