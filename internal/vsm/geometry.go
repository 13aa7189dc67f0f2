package vsm

import "math"

const (
	// GridSize is the snapping step for moved and resized elements.
	GridSize = 10.0

	MinWidth  = 140.0
	MinHeight = 100.0

	maxCurveOffset  = 50.0
	curveOffsetRate = 0.2
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Snap rounds v to the nearest multiple of grid.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// ClampSize applies the resize floor.
func ClampSize(width, height float64) (float64, float64) {
	return math.Max(width, MinWidth), math.Max(height, MinHeight)
}

// AnchorPoint returns the midpoint of the requested side of the element.
func AnchorPoint(e Element, a Anchor) Point {
	switch a {
	case AnchorTop:
		return Point{X: e.X + e.Width/2, Y: e.Y}
	case AnchorBottom:
		return Point{X: e.X + e.Width/2, Y: e.Y + e.Height}
	case AnchorLeft:
		return Point{X: e.X, Y: e.Y + e.Height/2}
	case AnchorRight:
		return Point{X: e.X + e.Width, Y: e.Y + e.Height/2}
	}
	return e.Bounds().Center()
}

// AnchorAt returns the anchor of e lying within tolerance of p.
func AnchorAt(e Element, p Point, tolerance float64) (Anchor, bool) {
	best := Anchor("")
	bestDist := math.Inf(1)
	for _, a := range Anchors {
		if d := AnchorPoint(e, a).Dist(p); d <= tolerance && d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, best != ""
}

// NearestAnchor returns the side of e closest to p.
func NearestAnchor(e Element, p Point) Anchor {
	best := AnchorTop
	bestDist := math.Inf(1)
	for _, a := range Anchors {
		if d := AnchorPoint(e, a).Dist(p); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// Path is the drawn shape of a connection: a straight segment, or a
// quadratic curve through Control when Curved is set.
type Path struct {
	Start   Point
	End     Point
	Control Point
	Curved  bool
}

// ConnectionPath builds the path for a connection between two anchor points.
// Material flow is straight; information flow bends perpendicular to the
// segment by 20% of its length, capped at 50 units.
func ConnectionPath(start, end Point, flow FlowType) Path {
	p := Path{Start: start, End: end}
	if flow != FlowInformation {
		return p
	}
	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p
	}
	offset := math.Min(length*curveOffsetRate, maxCurveOffset)
	mid := Point{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}
	p.Control = Point{X: mid.X - dy/length*offset, Y: mid.Y + dx/length*offset}
	p.Curved = true
	return p
}

// At evaluates the path at t in [0, 1].
func (p Path) At(t float64) Point {
	if !p.Curved {
		return Point{
			X: p.Start.X + (p.End.X-p.Start.X)*t,
			Y: p.Start.Y + (p.End.Y-p.Start.Y)*t,
		}
	}
	u := 1 - t
	return Point{
		X: u*u*p.Start.X + 2*u*t*p.Control.X + t*t*p.End.X,
		Y: u*u*p.Start.Y + 2*u*t*p.Control.Y + t*t*p.End.Y,
	}
}

// Sample returns n+1 evenly spaced points along the path, endpoints included.
func (p Path) Sample(n int) []Point {
	if n < 1 {
		n = 1
	}
	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		points = append(points, p.At(float64(i)/float64(n)))
	}
	return points
}

// EndDirection is the unit tangent at the end of the path, used to orient
// arrow heads.
func (p Path) EndDirection() Point {
	from := p.Start
	if p.Curved {
		from = p.Control
	}
	dx := p.End.X - from.X
	dy := p.End.Y - from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return Point{}
	}
	return Point{X: dx / length, Y: dy / length}
}

// PathFor resolves the path of c inside d. ok is false when an endpoint is
// missing.
func PathFor(d Diagram, c Connection) (Path, bool) {
	from, ok := d.Element(c.From.ElementID)
	if !ok {
		return Path{}, false
	}
	to, ok := d.Element(c.To.ElementID)
	if !ok {
		return Path{}, false
	}
	return ConnectionPath(AnchorPoint(from, c.From.Anchor), AnchorPoint(to, c.To.Anchor), c.Flow), true
}
