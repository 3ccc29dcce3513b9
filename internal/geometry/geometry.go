// Package geometry routes dependency connectors between task bars.
//
// Connect is a pure function of two bar rectangles and an already-resolved
// constraint type. It knows nothing about tasks, dates or ids.
package geometry

import (
	"strconv"
	"strings"

	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

const (
	// CurveOffset is the horizontal reach of curve control points and of
	// the loop around a bar end.
	CurveOffset = 40.0
	// Buffer is extra clearance added to side loops so they do not graze
	// the bar edge.
	Buffer = 10.0
	// Marker names the arrowhead drawn at the successor anchor.
	Marker = "arrowhead"
)

// Point is a screen coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a bar reduced to what routing needs: its left and right edge and
// the vertical center of its row.
type Rect struct {
	StartX  float64 `json:"start_x"`
	EndX    float64 `json:"end_x"`
	CenterY float64 `json:"center_y"`
}

// Anchor returns the point at the given bar end.
func (r Rect) Anchor(e dependency.Endpoint) Point {
	if e == dependency.Start {
		return Point{r.StartX, r.CenterY}
	}
	return Point{r.EndX, r.CenterY}
}

// Op is an SVG path command.
type Op string

const (
	MoveTo  Op = "M"
	LineTo  Op = "L"
	CurveTo Op = "C"
)

// Segment is one path command with its points: one for M and L, three for
// C (two control points and the end point).
type Segment struct {
	Op     Op      `json:"op"`
	Points []Point `json:"points"`
}

// Path describes a connector from predecessor to successor.
type Path struct {
	Type     model.ConstraintType `json:"type"`
	Start    Point                `json:"start"`
	End      Point                `json:"end"`
	Segments []Segment            `json:"segments"`
	Marker   string               `json:"marker"`
}

// D renders the path as SVG path data.
func (p Path) D() string {
	var b strings.Builder
	for i, s := range p.Segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(s.Op))
		for j, pt := range s.Points {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte(' ')
			b.WriteString(num(pt.X))
			b.WriteByte(' ')
			b.WriteString(num(pt.Y))
		}
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Connect routes a connector of type t from the predecessor bar to the
// successor bar. Unknown types route as FS.
func Connect(from, to Rect, t model.ConstraintType) Path {
	pa, sa := dependency.Anchors(t)
	start, end := from.Anchor(pa), to.Anchor(sa)

	var segs []Segment
	switch t {
	case model.StartToStart:
		segs = sideLoop(start, end, min(from.StartX, to.StartX)-CurveOffset-Buffer)
	case model.FinishToFinish:
		segs = sideLoop(start, end, max(from.EndX, to.EndX)+CurveOffset+Buffer)
	case model.StartToFinish:
		segs = crossover(start, end)
	default:
		t = model.FinishToStart
		segs = sCurve(start, end)
	}

	return Path{
		Type:     t,
		Start:    start,
		End:      end,
		Segments: segs,
		Marker:   Marker,
	}
}

// sCurve is a cubic from a right edge to a left edge with control points
// pushed outward horizontally, so a successor left of the predecessor gets
// an S shape.
func sCurve(start, end Point) []Segment {
	return []Segment{
		{MoveTo, []Point{start}},
		{CurveTo, []Point{
			{start.X + CurveOffset, start.Y},
			{end.X - CurveOffset, end.Y},
			end,
		}},
	}
}

// sideLoop leaves start horizontally to x, runs vertically to the target
// row, and enters end horizontally. Used for SS (x left of both bars) and
// FF (x right of both bars).
func sideLoop(start, end Point, x float64) []Segment {
	return []Segment{
		{MoveTo, []Point{start}},
		{LineTo, []Point{{x, start.Y}}},
		{LineTo, []Point{{x, end.Y}}},
		{LineTo, []Point{end}},
	}
}

// crossover leaves the predecessor's left edge to the left, drops to the
// gap between the two rows, crosses to the right of the successor and
// enters its right edge from the right.
func crossover(start, end Point) []Segment {
	lx := start.X - CurveOffset
	rx := end.X + CurveOffset
	midY := (start.Y + end.Y) / 2
	if start.Y == end.Y {
		midY = start.Y + 2*Buffer
	}
	return []Segment{
		{MoveTo, []Point{start}},
		{LineTo, []Point{{lx, start.Y}}},
		{LineTo, []Point{{lx, midY}}},
		{LineTo, []Point{{rx, midY}}},
		{LineTo, []Point{{rx, end.Y}}},
		{LineTo, []Point{end}},
	}
}
