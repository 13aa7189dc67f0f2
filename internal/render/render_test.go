package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/vsm"
)

type identity struct{}

func (identity) ToScreen(p vsm.Point) vsm.Point { return p }

func rowRunes(lines []string, row int) []rune {
	return []rune(lines[row])
}

func twoProcesses() vsm.Diagram {
	d := vsm.NewEmpty()
	d.Elements = []vsm.Element{
		{ID: "a", Type: vsm.TypeProcess, X: 0, Y: 0, Width: 160, Height: 120, Attrs: vsm.DefaultAttributes(vsm.TypeProcess)},
		{ID: "b", Type: vsm.TypeProcess, X: 320, Y: 0, Width: 160, Height: 120, Attrs: vsm.DefaultAttributes(vsm.TypeProcess)},
	}
	d.Connections = []vsm.Connection{{
		ID:    "m",
		From:  vsm.Endpoint{ElementID: "a", Anchor: vsm.AnchorRight},
		To:    vsm.Endpoint{ElementID: "b", Anchor: vsm.AnchorLeft},
		Flow:  vsm.FlowMaterial,
		Arrow: vsm.ArrowPush,
	}}
	return d
}

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		e    vsm.Element
		want []string
	}{
		{
			name: "process",
			e:    vsm.Element{Type: vsm.TypeProcess, Attrs: vsm.Attributes{Name: "Weld", CycleTime: 39, Availability: 85.5, Operators: 2}},
			want: []string{"Weld", "C/T 39s", "C/O 0s", "Uptime 85.5%", "Ops 2"},
		},
		{
			name: "inventory",
			e:    vsm.Element{Type: vsm.TypeInventory, Attrs: vsm.Attributes{Name: "WIP", Days: 1.0 / 3}},
			want: []string{"△ WIP", "0.33 days"},
		},
		{
			name: "shipping without frequency",
			e:    vsm.Element{Type: vsm.TypeShipping},
			want: []string{"Shipping"},
		},
		{
			name: "text",
			e:    vsm.Element{Type: vsm.TypeText, Attrs: vsm.Attributes{Content: "one\ntwo"}},
			want: []string{"one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lines(tt.e))
		})
	}
}

func TestMetricsSummary(t *testing.T) {
	got := MetricsSummary(vsm.Metrics{LeadTime: 2.5, ValueAddedTime: 100, ProcessEfficiency: 0.046, TaktTime: 180, Uptime: 100, FirstPassYield: 98})
	assert.Equal(t, "Lead 2.5 d | VA 100s | PCE 0.05% | Takt 180s | Uptime 100% | FPY 98%", got)
}

func TestTerminalDrawsElementBox(t *testing.T) {
	d := twoProcesses()
	lines := Terminal(d, Frame{Cols: 80, Rows: 12, View: identity{}})

	require.Len(t, lines, 12)
	top := rowRunes(lines, 0)
	assert.Equal(t, '┌', top[0])
	assert.Equal(t, '┐', top[20])
	assert.Equal(t, '└', rowRunes(lines, 7)[0])
	assert.Contains(t, lines[1], "Process")
	assert.Contains(t, lines[2], "C/T 60s")
}

func TestTerminalSelectedElementShowsHandles(t *testing.T) {
	d := twoProcesses()
	lines := Terminal(d, Frame{Cols: 80, Rows: 12, View: identity{}, Selected: "a"})

	assert.Equal(t, '■', rowRunes(lines, 0)[0])
	assert.Equal(t, '■', rowRunes(lines, 7)[20])
	assert.Equal(t, '━', rowRunes(lines, 0)[5])
}

func TestTerminalDrawsMaterialFlowWithArrow(t *testing.T) {
	d := twoProcesses()
	lines := Terminal(d, Frame{Cols: 80, Rows: 12, View: identity{}})

	row := rowRunes(lines, 3)
	assert.Equal(t, '═', row[30])
	assert.Equal(t, '▶', row[39])
	assert.Equal(t, '│', row[40], "the target border stays intact")
}

func TestTerminalMarksPendingAnchor(t *testing.T) {
	d := twoProcesses()
	d.Connections = nil
	pending := vsm.Endpoint{ElementID: "a", Anchor: vsm.AnchorBottom}
	lines := Terminal(d, Frame{Cols: 80, Rows: 12, View: identity{}, Pending: &pending})

	assert.Equal(t, '●', rowRunes(lines, 7)[10])
}

func TestTerminalClipsOffscreenContent(t *testing.T) {
	d := vsm.NewExample()
	lines := Terminal(d, Frame{Cols: 10, Rows: 3, View: shifted{dx: -5000, dy: -5000}})
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, strings.Repeat(" ", 10), l)
	}
}

type shifted struct{ dx, dy float64 }

func (s shifted) ToScreen(p vsm.Point) vsm.Point {
	return vsm.Point{X: p.X + s.dx, Y: p.Y + s.dy}
}

func TestPNGExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, twoProcesses()))

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 480+2*60, cfg.Width)
	assert.Equal(t, 120+2*60+28, cfg.Height)
}

func TestExportEmptyDiagram(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, PNG(&buf, vsm.NewEmpty()), ErrEmpty)
	assert.ErrorIs(t, SVG(&buf, vsm.NewEmpty()), ErrEmpty)
	assert.Zero(t, buf.Len())
}

func TestSVGExport(t *testing.T) {
	d := twoProcesses()
	d.Connections = append(d.Connections, vsm.Connection{
		ID:           "i",
		From:         vsm.Endpoint{ElementID: "b", Anchor: vsm.AnchorTop},
		To:           vsm.Endpoint{ElementID: "a", Anchor: vsm.AnchorTop},
		Flow:         vsm.FlowInformation,
		Transmission: vsm.TransmissionElectronic,
		Label:        "orders",
	})

	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, d))
	out := buf.String()

	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "</svg>")
	assert.Contains(t, out, "C/T 60s")
	assert.Contains(t, out, "stroke-dasharray:6,4")
	assert.Contains(t, out, "orders")
	assert.Equal(t, 2, strings.Count(out, "<polygon"))
}
