package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"kaizen/internal/vsm"
)

const (
	materialStyle   = "fill:none;stroke:#000;stroke-width:3"
	manualStyle     = "fill:none;stroke:#000;stroke-width:1.5"
	electronicStyle = "fill:none;stroke:#000;stroke-width:1.5;stroke-dasharray:6,4"
	textStyle       = "font-family:monospace;font-size:12px;fill:#000"
)

// SVG writes d as a standalone SVG document with the metrics line as a
// footer. Coordinates are rounded to whole diagram units.
func SVG(w io.Writer, d vsm.Diagram) error {
	bounds, err := exportBounds(d)
	if err != nil {
		return err
	}

	canvas := svg.New(w)
	canvas.Start(iround(bounds.Width), iround(bounds.Height))
	canvas.Rect(0, 0, iround(bounds.Width), iround(bounds.Height), "fill:#fff")
	canvas.Translate(iround(-bounds.X), iround(-bounds.Y))

	for _, c := range d.Connections {
		drawConnectionSVG(canvas, d, c)
	}
	for _, e := range d.Elements {
		drawElementSVG(canvas, e)
	}
	canvas.Text(iround(bounds.X+exportPadding/2), iround(bounds.Y+bounds.Height-footerHeight/2),
		MetricsSummary(vsm.ComputeMetrics(d)), "font-family:monospace;font-size:12px;fill:#333")

	canvas.Gend()
	canvas.End()
	return nil
}

func drawElementSVG(canvas *svg.SVG, e vsm.Element) {
	x, y, w, h := iround(e.X), iround(e.Y), iround(e.Width), iround(e.Height)
	style := fmt.Sprintf("fill:%s;stroke:#000;stroke-width:1.5", fills[e.Type])
	switch e.Type {
	case vsm.TypeText:
	case vsm.TypeImprovementIdea, vsm.TypeInventory:
		canvas.Roundrect(x, y, w, h, 10, 10, style)
	default:
		canvas.Rect(x, y, w, h, style)
	}

	maxChars := int((e.Width - 12) / 7.2)
	for i, line := range Lines(e) {
		ly := e.Y + lineHeight*float64(i+1) + 4
		if ly > e.Y+e.Height-4 {
			break
		}
		if r := []rune(line); len(r) > maxChars && maxChars > 0 {
			line = string(r[:maxChars])
		}
		canvas.Text(x+6, iround(ly), line, textStyle)
	}
}

func drawConnectionSVG(canvas *svg.SVG, d vsm.Diagram, c vsm.Connection) {
	path, ok := vsm.PathFor(d, c)
	if !ok {
		return
	}

	style := manualStyle
	switch {
	case c.Flow == vsm.FlowMaterial:
		style = materialStyle
	case c.Transmission == vsm.TransmissionElectronic:
		style = electronicStyle
	}
	sx, sy := iround(path.Start.X), iround(path.Start.Y)
	ex, ey := iround(path.End.X), iround(path.End.Y)
	if path.Curved {
		canvas.Qbez(sx, sy, iround(path.Control.X), iround(path.Control.Y), ex, ey, style)
	} else {
		canvas.Line(sx, sy, ex, ey, style)
	}

	if dir := path.EndDirection(); dir != (vsm.Point{}) {
		baseX := path.End.X - arrowSize*dir.X
		baseY := path.End.Y - arrowSize*dir.Y
		spread := arrowSize * 0.5
		xs := []int{ex, iround(baseX + spread*dir.Y), iround(baseX - spread*dir.Y)}
		ys := []int{ey, iround(baseY - spread*dir.X), iround(baseY + spread*dir.X)}
		fill := "fill:#000"
		if c.Flow == vsm.FlowMaterial && c.Arrow == vsm.ArrowPull {
			fill = "fill:#fff;stroke:#000;stroke-width:1.5"
		}
		canvas.Polygon(xs, ys, fill)
	}

	if label := ConnectionLabel(c); label != "" {
		mid := path.At(0.5)
		canvas.Text(iround(mid.X), iround(mid.Y-6), label, textStyle+";text-anchor:middle")
	}
}

func iround(v float64) int {
	return int(math.Round(v))
}
