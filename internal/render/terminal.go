package render

import (
	"math"
	"strings"

	"kaizen/internal/vsm"
)

// One terminal cell covers CellWidth×CellHeight screen pixels.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Transform maps diagram coordinates to screen pixels.
type Transform interface {
	ToScreen(p vsm.Point) vsm.Point
}

// Frame describes what the editor canvas should show.
type Frame struct {
	Cols, Rows int
	View       Transform
	Selected   string
	Pending    *vsm.Endpoint // half-made connection, marked on its anchor
}

type border struct {
	tl, tr, bl, br, h, v rune
}

var (
	plainBorder    = border{'┌', '┐', '└', '┘', '─', '│'}
	doubleBorder   = border{'╔', '╗', '╚', '╝', '═', '║'}
	roundBorder    = border{'╭', '╮', '╰', '╯', '─', '│'}
	selectedBorder = border{'┏', '┓', '┗', '┛', '━', '┃'}
)

func borderFor(t vsm.ElementType) border {
	switch t {
	case vsm.TypeClient, vsm.TypeSupplier:
		return doubleBorder
	case vsm.TypeImprovementIdea, vsm.TypeInventory:
		return roundBorder
	}
	return plainBorder
}

// Grid is a rows×cols rune buffer.
type Grid [][]rune

func NewGrid(cols, rows int) Grid {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	g := make(Grid, rows)
	for i := range g {
		g[i] = []rune(strings.Repeat(" ", cols))
	}
	return g
}

func (g Grid) Set(col, row int, r rune) {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return
	}
	g[row][col] = r
}

func (g Grid) Get(col, row int) rune {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return 0
	}
	return g[row][col]
}

// Text writes s from (col, row), stopping before maxCol.
func (g Grid) Text(col, row, maxCol int, s string) {
	for _, r := range s {
		if col >= maxCol {
			return
		}
		g.Set(col, row, r)
		col++
	}
}

func (g Grid) Lines() []string {
	out := make([]string, len(g))
	for i, row := range g {
		out[i] = string(row)
	}
	return out
}

// Terminal draws d onto a rune grid: connections first, elements on top.
func Terminal(d vsm.Diagram, f Frame) []string {
	g := NewGrid(f.Cols, f.Rows)
	for _, c := range d.Connections {
		drawConnection(g, d, c, f)
	}
	for _, e := range d.Elements {
		drawElement(g, e, f, e.ID == f.Selected)
	}
	for _, c := range d.Connections {
		drawArrowHead(g, d, c, f)
	}
	if f.Pending != nil {
		if e, ok := d.Element(f.Pending.ElementID); ok {
			col, row := cellOf(f.View, vsm.AnchorPoint(e, f.Pending.Anchor))
			g.Set(col, row, '●')
		}
	}
	return g.Lines()
}

// cellOf returns the terminal cell holding diagram point p.
func cellOf(view Transform, p vsm.Point) (int, int) {
	s := view.ToScreen(p)
	return int(math.Floor(s.X / CellWidth)), int(math.Floor(s.Y / CellHeight))
}

func drawElement(g Grid, e vsm.Element, f Frame, selected bool) {
	r := e.Bounds()
	left, top := cellOf(f.View, vsm.Point{X: r.X, Y: r.Y})
	right, bottom := cellOf(f.View, vsm.Point{X: r.X + r.Width, Y: r.Y + r.Height})
	if right-left < 2 {
		right = left + 2
	}
	if bottom-top < 2 {
		bottom = top + 2
	}

	lines := Lines(e)
	if e.Type == vsm.TypeText && !selected {
		for i, line := range lines {
			if top+i >= bottom {
				break
			}
			g.Text(left, top+i, right, line)
		}
		return
	}

	b := borderFor(e.Type)
	if selected {
		b = selectedBorder
	}
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			switch {
			case row == top && col == left:
				g.Set(col, row, b.tl)
			case row == top && col == right:
				g.Set(col, row, b.tr)
			case row == bottom && col == left:
				g.Set(col, row, b.bl)
			case row == bottom && col == right:
				g.Set(col, row, b.br)
			case row == top || row == bottom:
				g.Set(col, row, b.h)
			case col == left || col == right:
				g.Set(col, row, b.v)
			default:
				g.Set(col, row, ' ')
			}
		}
	}
	if selected {
		for _, p := range []struct{ col, row int }{{left, top}, {right, top}, {left, bottom}, {right, bottom}} {
			g.Set(p.col, p.row, '■')
		}
	}
	for i, line := range lines {
		row := top + 1 + i
		if row >= bottom {
			break
		}
		g.Text(left+1, row, right, line)
	}
}

func drawConnection(g Grid, d vsm.Diagram, c vsm.Connection, f Frame) {
	path, ok := vsm.PathFor(d, c)
	if !ok {
		return
	}
	startCol, startRow := cellOf(f.View, path.Start)
	endCol, endRow := cellOf(f.View, path.End)
	steps := 2 * (abs(endCol-startCol) + abs(endRow-startRow))
	if path.Curved {
		steps *= 2
	}
	points := path.Sample(max(steps, 4))

	horiz, vert := lineRunes(c)
	if c.ID == f.Selected {
		horiz, vert = '━', '┃'
	}
	for i := 1; i < len(points); i++ {
		prevCol, prevRow := cellOf(f.View, points[i-1])
		col, row := cellOf(f.View, points[i])
		r := horiz
		switch {
		case col == prevCol && row != prevRow:
			r = vert
		case col != prevCol && row != prevRow:
			if (col > prevCol) == (row > prevRow) {
				r = '╲'
			} else {
				r = '╱'
			}
		}
		if g.Get(col, row) == ' ' {
			g.Set(col, row, r)
		}
	}

	if label := ConnectionLabel(c); label != "" {
		mid := path.At(0.5)
		col, row := cellOf(f.View, mid)
		n := len([]rune(label))
		g.Text(col-n/2, row, col-n/2+n, label)
	}
}

// drawArrowHead puts the head in the cell just outside the target anchor, on
// top of anything drawn before it.
func drawArrowHead(g Grid, d vsm.Diagram, c vsm.Connection, f Frame) {
	path, ok := vsm.PathFor(d, c)
	if !ok {
		return
	}
	dir := path.EndDirection()
	s := f.View.ToScreen(path.End)
	col := int(math.Floor((s.X - dir.X*CellWidth) / CellWidth))
	row := int(math.Floor((s.Y - dir.Y*CellHeight) / CellHeight))
	g.Set(col, row, arrowHead(dir, c))
}

func lineRunes(c vsm.Connection) (rune, rune) {
	switch {
	case c.Flow == vsm.FlowMaterial:
		return '═', '║'
	case c.Transmission == vsm.TransmissionElectronic:
		return '┄', '┆'
	}
	return '─', '│'
}

// arrowHead picks the glyph pointing along dir. Pull arrows are hollow.
func arrowHead(dir vsm.Point, c vsm.Connection) rune {
	hollow := c.Flow == vsm.FlowMaterial && c.Arrow == vsm.ArrowPull
	if math.Abs(dir.X) >= math.Abs(dir.Y) {
		if dir.X >= 0 {
			return pick(hollow, '▷', '▶')
		}
		return pick(hollow, '◁', '◀')
	}
	if dir.Y > 0 {
		return pick(hollow, '▽', '▼')
	}
	return pick(hollow, '△', '▲')
}

func pick(cond bool, a, b rune) rune {
	if cond {
		return a
	}
	return b
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
