package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"kaizen/internal/vsm"
)

// ErrEmpty is returned when exporting a diagram with no elements.
var ErrEmpty = errors.New("nothing to export")

const (
	// exportPadding surrounds the drawing and leaves room for curves that
	// bow outside the element bounds.
	exportPadding = 60.0
	footerHeight  = 28.0
	lineHeight    = 16.0
	fontSize      = 12.0
	arrowSize     = 9.0
)

// Fill colours per element type, shared by the PNG and SVG exporters.
var fills = map[vsm.ElementType]string{
	vsm.TypeClient:            "#e0ecff",
	vsm.TypeSupplier:          "#e0ecff",
	vsm.TypeProcess:           "#ffffff",
	vsm.TypeInventory:         "#fff4d6",
	vsm.TypeProductionControl: "#eef7ee",
	vsm.TypeShipping:          "#f2f2f2",
	vsm.TypeText:              "#ffffff",
	vsm.TypeImprovementIdea:   "#fff0f0",
}

// exportBounds is the padded area covered by the diagram.
func exportBounds(d vsm.Diagram) (vsm.Rect, error) {
	if len(d.Elements) == 0 {
		return vsm.Rect{}, ErrEmpty
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, e := range d.Elements {
		minX = math.Min(minX, e.X)
		minY = math.Min(minY, e.Y)
		maxX = math.Max(maxX, e.X+e.Width)
		maxY = math.Max(maxY, e.Y+e.Height)
	}
	return vsm.Rect{
		X:      minX - exportPadding,
		Y:      minY - exportPadding,
		Width:  maxX - minX + 2*exportPadding,
		Height: maxY - minY + 2*exportPadding + footerHeight,
	}, nil
}

// PNG rasterises d at one pixel per diagram unit, with the metrics line as a
// footer.
func PNG(w io.Writer, d vsm.Diagram) error {
	bounds, err := exportBounds(d)
	if err != nil {
		return err
	}

	dc := gg.NewContext(int(math.Ceil(bounds.Width)), int(math.Ceil(bounds.Height)))
	dc.SetColor(color.White)
	dc.Clear()

	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}))
	dc.Translate(-bounds.X, -bounds.Y)

	for _, c := range d.Connections {
		drawConnectionPNG(dc, d, c)
	}
	for _, e := range d.Elements {
		drawElementPNG(dc, e)
	}

	dc.SetHexColor("#333333")
	dc.DrawString(MetricsSummary(vsm.ComputeMetrics(d)),
		bounds.X+exportPadding/2, bounds.Y+bounds.Height-footerHeight/2)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func drawElementPNG(dc *gg.Context, e vsm.Element) {
	if e.Type != vsm.TypeText {
		dc.SetHexColor(fills[e.Type])
		if e.Type == vsm.TypeImprovementIdea || e.Type == vsm.TypeInventory {
			dc.DrawRoundedRectangle(e.X, e.Y, e.Width, e.Height, 10)
		} else {
			dc.DrawRectangle(e.X, e.Y, e.Width, e.Height)
		}
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	dc.SetColor(color.Black)
	maxWidth := e.Width - 12
	for i, line := range Lines(e) {
		y := e.Y + lineHeight*float64(i+1) + 4
		if y > e.Y+e.Height-4 {
			break
		}
		dc.DrawString(fitWidth(dc, line, maxWidth), e.X+6, y)
	}
}

// fitWidth trims s until it fits in width pixels.
func fitWidth(dc *gg.Context, s string, width float64) string {
	runes := []rune(s)
	for len(runes) > 0 {
		if w, _ := dc.MeasureString(string(runes)); w <= width {
			break
		}
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func drawConnectionPNG(dc *gg.Context, d vsm.Diagram, c vsm.Connection) {
	path, ok := vsm.PathFor(d, c)
	if !ok {
		return
	}

	dc.SetColor(color.Black)
	switch {
	case c.Flow == vsm.FlowMaterial:
		dc.SetLineWidth(3)
		dc.SetDash()
	case c.Transmission == vsm.TransmissionElectronic:
		dc.SetLineWidth(1.5)
		dc.SetDash(6, 4)
	default:
		dc.SetLineWidth(1.5)
		dc.SetDash()
	}
	dc.MoveTo(path.Start.X, path.Start.Y)
	if path.Curved {
		dc.QuadraticTo(path.Control.X, path.Control.Y, path.End.X, path.End.Y)
	} else {
		dc.LineTo(path.End.X, path.End.Y)
	}
	dc.Stroke()
	dc.SetDash()

	drawArrowPNG(dc, path.End, path.EndDirection(), c.Flow == vsm.FlowMaterial && c.Arrow == vsm.ArrowPull)

	if label := ConnectionLabel(c); label != "" {
		mid := path.At(0.5)
		dc.DrawStringAnchored(label, mid.X, mid.Y-6, 0.5, 0)
	}
}

func drawArrowPNG(dc *gg.Context, tip, dir vsm.Point, hollow bool) {
	if dir == (vsm.Point{}) {
		return
	}
	baseX := tip.X - arrowSize*dir.X
	baseY := tip.Y - arrowSize*dir.Y
	spread := arrowSize * 0.5
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(baseX+spread*dir.Y, baseY-spread*dir.X)
	dc.LineTo(baseX-spread*dir.Y, baseY+spread*dir.X)
	dc.ClosePath()
	if hollow {
		dc.SetColor(color.White)
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(1.5)
		dc.Stroke()
		return
	}
	dc.Fill()
}
