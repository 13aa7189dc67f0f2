// Package interact turns pointer and keyboard input into diagram mutations.
// It owns the viewport transform, the interaction mode, the pointer gesture
// in progress and the single-slot clipboard; the diagram itself lives in a
// vsm.State.
package interact

import (
	"math"

	"kaizen/internal/vsm"
)

const (
	MinZoom  = 0.2
	MaxZoom  = 3.0
	ZoomStep = 1.1
)

// Viewport maps diagram coordinates to screen pixels:
// screen = diagram*Zoom + Pan.
type Viewport struct {
	Zoom   float64
	Pan    vsm.Point
	Width  float64 // visible area in screen pixels
	Height float64
}

func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) ToScreen(p vsm.Point) vsm.Point {
	return vsm.Point{X: p.X*v.Zoom + v.Pan.X, Y: p.Y*v.Zoom + v.Pan.Y}
}

func (v Viewport) ToDiagram(p vsm.Point) vsm.Point {
	return vsm.Point{X: (p.X - v.Pan.X) / v.Zoom, Y: (p.Y - v.Pan.Y) / v.Zoom}
}

// Center is the diagram point shown in the middle of the visible area.
func (v Viewport) Center() vsm.Point {
	return v.ToDiagram(vsm.Point{X: v.Width / 2, Y: v.Height / 2})
}

func (v *Viewport) Resize(width, height float64) {
	v.Width, v.Height = width, height
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.Pan.X += dx
	v.Pan.Y += dy
}

// ZoomBy multiplies the zoom factor, clamped to [MinZoom, MaxZoom].
func (v *Viewport) ZoomBy(factor float64) {
	v.Zoom = clampZoom(v.Zoom * factor)
}

func (v *Viewport) ZoomIn() { v.ZoomBy(ZoomStep) }
func (v *Viewport) ZoomOut() { v.ZoomBy(1 / ZoomStep) }

// Reset returns to 100%; the pan offset is kept.
func (v *Viewport) Reset() {
	v.Zoom = 1
}

func clampZoom(z float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}
