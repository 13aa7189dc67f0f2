package interact

import (
	"time"

	"kaizen/internal/vsm"
)

const (
	// FrameInterval is the minimum spacing of applied drag/resize updates.
	FrameInterval = 16 * time.Millisecond

	// handleRadius is the hit radius, in screen pixels, of corner handles
	// and anchors.
	handleRadius = 12.0

	// connectionHitRadius is the hit radius, in screen pixels, of
	// connection paths.
	connectionHitRadius = 8.0

	wheelPanStep = 48.0
)

type gesture struct {
	kind      GestureKind
	elementID string
	corner    Corner
	origin    vsm.Point // pointer at pointer-down, screen pixels
	last      vsm.Point // last pointer sample, screen pixels
	start     vsm.Rect  // element bounds at pointer-down
	applied   time.Time
	dirty     bool // a throttled sample has not been applied yet
}

// Controller routes pointer and keyboard input to a vsm.State.
type Controller struct {
	state     *vsm.State
	view      Viewport
	mode      Mode
	g         gesture
	pending   *vsm.Endpoint
	clipboard *vsm.Element
	textFocus bool
	now       func() time.Time
	grid      float64
	interval  time.Duration
}

type Option func(*Controller)

// WithClock replaces time.Now, for throttle tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithGrid(size float64) Option {
	return func(c *Controller) { c.grid = size }
}

func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

func NewController(state *vsm.State, opts ...Option) *Controller {
	c := &Controller{
		state:    state,
		view:     NewViewport(),
		mode:     ModeSelect,
		now:      time.Now,
		grid:     vsm.GridSize,
		interval: FrameInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() *vsm.State { return c.state }
func (c *Controller) Viewport() Viewport { return c.view }
func (c *Controller) Mode() Mode { return c.mode }
func (c *Controller) Gesture() GestureKind { return c.g.kind }

// PendingConnection is the first anchor picked in connect mode, if any.
func (c *Controller) PendingConnection() (vsm.Endpoint, bool) {
	if c.pending == nil {
		return vsm.Endpoint{}, false
	}
	return *c.pending, true
}

// Clipboard returns the copied element, if any.
func (c *Controller) Clipboard() (vsm.Element, bool) {
	if c.clipboard == nil {
		return vsm.Element{}, false
	}
	return *c.clipboard, true
}

func (c *Controller) Resize(width, height float64) {
	c.view.Resize(width, height)
}

// SetTextFocus tells the controller a text field has focus, which
// suppresses keyboard shortcuts.
func (c *Controller) SetTextFocus(focused bool) {
	c.textFocus = focused
}

// SetMode switches the interaction mode. Leaving connect mode drops a
// half-made connection.
func (c *Controller) SetMode(m Mode) {
	if m != ModeConnect {
		c.pending = nil
	}
	c.mode = m
}

// AddElement inserts an element of type t in the middle of the viewport.
func (c *Controller) AddElement(t vsm.ElementType) vsm.Element {
	return c.state.AddElement(t, c.view.Center())
}

// Duplicate clones the selected element.
func (c *Controller) Duplicate() (vsm.Element, bool) {
	return c.state.DuplicateElement(c.state.Selected())
}

// Copy stores the selected element in the clipboard, replacing what was there.
func (c *Controller) Copy() bool {
	e, ok := c.state.Element(c.state.Selected())
	if !ok {
		return false
	}
	c.clipboard = &e
	return true
}

// Paste inserts the clipboard element offset by (+20, +20).
func (c *Controller) Paste() (vsm.Element, bool) {
	if c.clipboard == nil {
		return vsm.Element{}, false
	}
	return c.state.Paste(*c.clipboard), true
}

// PointerDown starts a gesture or handles a connect-mode click.
func (c *Controller) PointerDown(ev PointerEvent) {
	if c.g.kind != GestureIdle {
		c.finish()
	}
	screen := ev.Point()
	if c.mode == ModePan || ev.Alt || ev.Button == ButtonMiddle {
		c.g = gesture{kind: GesturePanning, origin: screen, last: screen}
		return
	}
	if ev.Button != ButtonLeft && ev.Button != ButtonNone {
		return
	}

	at := c.view.ToDiagram(screen)
	if c.mode == ModeConnect {
		c.connectClick(at)
		return
	}

	if sel, ok := c.state.Element(c.state.Selected()); ok {
		if corner, ok := c.cornerAt(sel, screen); ok {
			c.g = gesture{kind: GestureResizing, elementID: sel.ID, corner: corner,
				origin: screen, last: screen, start: sel.Bounds()}
			return
		}
	}
	if e, ok := c.state.ElementAt(at); ok {
		c.state.Select(e.ID)
		c.g = gesture{kind: GestureDragging, elementID: e.ID,
			origin: screen, last: screen, start: e.Bounds()}
		return
	}
	if conn, ok := c.state.ConnectionAt(at, connectionHitRadius/c.view.Zoom); ok {
		c.state.Select(conn.ID)
		return
	}
	c.state.Select("")
}

// PointerMove advances the current gesture. Drag and resize updates closer
// than the frame interval to the previous one are held back.
func (c *Controller) PointerMove(ev PointerEvent) {
	screen := ev.Point()
	switch c.g.kind {
	case GestureIdle:
		return
	case GesturePanning:
		c.view.PanBy(screen.X-c.g.last.X, screen.Y-c.g.last.Y)
		c.g.last = screen
		return
	}

	c.g.last = screen
	now := c.now()
	if !c.g.applied.IsZero() && now.Sub(c.g.applied) < c.interval {
		c.g.dirty = true
		return
	}
	c.g.applied = now
	c.apply()
}

// PointerUp ends the gesture, applying a held-back sample first.
func (c *Controller) PointerUp(ev PointerEvent) {
	if c.g.kind == GestureIdle {
		return
	}
	if c.g.kind == GesturePanning {
		c.view.PanBy(ev.X-c.g.last.X, ev.Y-c.g.last.Y)
	} else {
		c.g.last = ev.Point()
		c.g.dirty = true
	}
	c.finish()
}

// Tick applies a held-back drag or resize sample once the frame interval has
// passed since the last applied one. It reports whether anything changed.
func (c *Controller) Tick() bool {
	if !c.g.dirty || c.now().Sub(c.g.applied) < c.interval {
		return false
	}
	c.g.applied = c.now()
	c.apply()
	return true
}

// PanBy scrolls the view by a screen-pixel delta.
func (c *Controller) PanBy(dx, dy float64) { c.view.PanBy(dx, dy) }

// Dragging reports whether a pointer gesture is in progress.
func (c *Controller) Dragging() bool { return c.g.kind != GestureIdle }

// Cancel abandons the gesture without applying held-back samples, as on
// teardown.
func (c *Controller) Cancel() {
	c.g = gesture{}
}

// Wheel zooms with the zoom modifier held and pans vertically otherwise.
// ticks is positive for wheel-up.
func (c *Controller) Wheel(ticks int, ctrl bool) {
	if ticks == 0 {
		return
	}
	if !ctrl {
		c.view.PanBy(0, float64(ticks)*wheelPanStep)
		return
	}
	for ; ticks > 0; ticks-- {
		c.view.ZoomIn()
	}
	for ; ticks < 0; ticks++ {
		c.view.ZoomOut()
	}
}

// Key handles a keyboard shortcut and reports whether it was consumed.
// Nothing is consumed while a text field has focus.
func (c *Controller) Key(ev KeyEvent) bool {
	if c.textFocus {
		return false
	}
	if ev.Ctrl {
		switch ev.Key {
		case "=", "+":
			c.view.ZoomIn()
		case "-":
			c.view.ZoomOut()
		case "0":
			c.view.Reset()
		case "c":
			return c.Copy()
		case "v":
			_, ok := c.Paste()
			return ok
		case "d":
			_, ok := c.Duplicate()
			return ok
		default:
			return false
		}
		return true
	}
	switch ev.Key {
	case "v":
		c.SetMode(ModeSelect)
	case "c":
		c.SetMode(ModeConnect)
	case "h":
		c.SetMode(ModePan)
	case "delete", "backspace":
		return c.state.DeleteSelected()
	case "esc":
		if c.pending != nil {
			c.pending = nil
			return true
		}
		c.state.Select("")
	default:
		return false
	}
	return true
}

func (c *Controller) connectClick(at vsm.Point) {
	e, ok := c.state.ElementAt(at)
	if !ok {
		if owner, a, ok := c.anchorNear(at); ok {
			c.pick(owner, a)
			return
		}
		c.pending = nil
		return
	}
	a, ok := vsm.AnchorAt(e, at, handleRadius/c.view.Zoom)
	if !ok {
		a = vsm.NearestAnchor(e, at)
	}
	c.pick(e, a)
}

// pick records the source anchor or completes the connection. Completing,
// including a rejected self connection, returns to select mode.
func (c *Controller) pick(e vsm.Element, a vsm.Anchor) {
	if c.pending == nil {
		c.pending = &vsm.Endpoint{ElementID: e.ID, Anchor: a}
		return
	}
	from := *c.pending
	c.pending = nil
	if conn, ok := c.state.AddConnection(from.ElementID, from.Anchor, e.ID, a); ok {
		c.state.Select(conn.ID)
	}
	c.mode = ModeSelect
}

// anchorNear finds an anchor just outside an element's box.
func (c *Controller) anchorNear(at vsm.Point) (vsm.Element, vsm.Anchor, bool) {
	tol := handleRadius / c.view.Zoom
	d := c.state.Diagram()
	for i := len(d.Elements) - 1; i >= 0; i-- {
		if a, ok := vsm.AnchorAt(d.Elements[i], at, tol); ok {
			return d.Elements[i], a, true
		}
	}
	return vsm.Element{}, "", false
}

func (c *Controller) cornerAt(e vsm.Element, screen vsm.Point) (Corner, bool) {
	for _, corner := range corners {
		if c.view.ToScreen(cornerPoint(e.Bounds(), corner)).Dist(screen) <= handleRadius {
			return corner, true
		}
	}
	return 0, false
}

func cornerPoint(r vsm.Rect, corner Corner) vsm.Point {
	switch corner {
	case CornerTopLeft:
		return vsm.Point{X: r.X, Y: r.Y}
	case CornerTopRight:
		return vsm.Point{X: r.X + r.Width, Y: r.Y}
	case CornerBottomLeft:
		return vsm.Point{X: r.X, Y: r.Y + r.Height}
	default:
		return vsm.Point{X: r.X + r.Width, Y: r.Y + r.Height}
	}
}

func (c *Controller) finish() {
	if c.g.dirty && (c.g.kind == GestureDragging || c.g.kind == GestureResizing) {
		c.apply()
	}
	c.g = gesture{}
}

func (c *Controller) apply() {
	c.g.dirty = false
	dx := (c.g.last.X - c.g.origin.X) / c.view.Zoom
	dy := (c.g.last.Y - c.g.origin.Y) / c.view.Zoom
	switch c.g.kind {
	case GestureDragging:
		x := vsm.Snap(c.g.start.X+dx, c.grid)
		y := vsm.Snap(c.g.start.Y+dy, c.grid)
		c.state.UpdateElement(c.g.elementID, vsm.ElementPatch{X: &x, Y: &y})
	case GestureResizing:
		c.state.SetBounds(c.g.elementID, resizeRect(c.g.start, c.g.corner, dx, dy, c.grid))
	}
}

// resizeRect moves the dragged corner by (dx, dy) and keeps the opposite
// corner fixed. Edges snap to the grid and the size floor is applied.
func resizeRect(r vsm.Rect, corner Corner, dx, dy, grid float64) vsm.Rect {
	left, top := r.X, r.Y
	right, bottom := r.X+r.Width, r.Y+r.Height
	switch corner {
	case CornerTopLeft:
		left, top = left+dx, top+dy
	case CornerTopRight:
		right, top = right+dx, top+dy
	case CornerBottomLeft:
		left, bottom = left+dx, bottom+dy
	case CornerBottomRight:
		right, bottom = right+dx, bottom+dy
	}
	left, top = vsm.Snap(left, grid), vsm.Snap(top, grid)
	right, bottom = vsm.Snap(right, grid), vsm.Snap(bottom, grid)

	w, h := vsm.ClampSize(right-left, bottom-top)
	if corner == CornerTopLeft || corner == CornerBottomLeft {
		left = right - w
	}
	if corner == CornerTopLeft || corner == CornerTopRight {
		top = bottom - h
	}
	return vsm.Rect{X: left, Y: top, Width: w, Height: h}
}
