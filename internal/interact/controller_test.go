package interact

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/vsm"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController(t *testing.T) (*Controller, *fakeClock) {
	t.Helper()
	n := 0
	state := vsm.NewState(vsm.NewEmpty(), vsm.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewController(state, WithClock(clock.now)), clock
}

func left(x, y float64) PointerEvent {
	return PointerEvent{X: x, Y: y, Button: ButtonLeft}
}

// addProcess places a 160x120 process with its top-left corner at
// (cx-80, cy-60).
func addProcess(c *Controller, cx, cy float64) vsm.Element {
	return c.State().AddElement(vsm.TypeProcess, vsm.Point{X: cx, Y: cy})
}

func TestDragSnapsToGrid(t *testing.T) {
	c, _ := newTestController(t)
	e := addProcess(c, 400, 300) // 320,240

	c.PointerDown(left(400, 300))
	require.Equal(t, GestureDragging, c.Gesture())

	c.PointerMove(left(433, 300))
	got, _ := c.State().Element(e.ID)
	assert.Equal(t, 350.0, got.X)
	assert.Equal(t, 240.0, got.Y)

	c.PointerUp(left(433, 300))
	assert.Equal(t, GestureIdle, c.Gesture())
}

func TestDragIsThrottledAndFinalSampleApplied(t *testing.T) {
	c, clock := newTestController(t)
	e := addProcess(c, 400, 300)

	c.PointerDown(left(400, 300))
	c.PointerMove(left(433, 300))

	clock.advance(5 * time.Millisecond)
	c.PointerMove(left(457, 300))
	got, _ := c.State().Element(e.ID)
	assert.Equal(t, 350.0, got.X, "a sample inside the frame interval is held back")

	clock.advance(5 * time.Millisecond)
	c.PointerUp(left(457, 341))
	got, _ = c.State().Element(e.ID)
	assert.Equal(t, 380.0, got.X)
	assert.Equal(t, 280.0, got.Y)
}

func TestTickAppliesHeldSample(t *testing.T) {
	c, clock := newTestController(t)
	e := addProcess(c, 400, 300)

	assert.False(t, c.Tick(), "nothing to apply while idle")

	c.PointerDown(left(400, 300))
	assert.True(t, c.Dragging())
	c.PointerMove(left(433, 300))
	clock.advance(5 * time.Millisecond)
	c.PointerMove(left(457, 300))

	assert.False(t, c.Tick(), "frame interval has not elapsed")
	clock.advance(12 * time.Millisecond)
	assert.True(t, c.Tick())
	got, _ := c.State().Element(e.ID)
	assert.Equal(t, 380.0, got.X)
	assert.False(t, c.Tick(), "sample already applied")

	c.PointerUp(left(457, 300))
	assert.False(t, c.Dragging())
}

func TestDragHonoursZoom(t *testing.T) {
	c, _ := newTestController(t)
	e := addProcess(c, 400, 300)
	c.view.Zoom = 2

	// element spans screen 640..960 x 480..720 at zoom 2
	c.PointerDown(left(800, 600))
	c.PointerMove(left(900, 600))

	got, _ := c.State().Element(e.ID)
	assert.Equal(t, 370.0, got.X, "screen delta is divided by zoom")
}

func TestResizeFromCorners(t *testing.T) {
	tests := []struct {
		name     string
		down, up vsm.Point
		want     vsm.Rect
	}{
		{
			name: "bottom right grows",
			down: vsm.Point{X: 480, Y: 360},
			up:   vsm.Point{X: 521, Y: 399},
			want: vsm.Rect{X: 320, Y: 240, Width: 200, Height: 160},
		},
		{
			name: "bottom right floors at minimum",
			down: vsm.Point{X: 480, Y: 360},
			up:   vsm.Point{X: 380, Y: 300},
			want: vsm.Rect{X: 320, Y: 240, Width: vsm.MinWidth, Height: vsm.MinHeight},
		},
		{
			name: "top left keeps the opposite corner",
			down: vsm.Point{X: 320, Y: 240},
			up:   vsm.Point{X: 500, Y: 400},
			want: vsm.Rect{X: 340, Y: 260, Width: vsm.MinWidth, Height: vsm.MinHeight},
		},
		{
			name: "top right",
			down: vsm.Point{X: 480, Y: 240},
			up:   vsm.Point{X: 520, Y: 200},
			want: vsm.Rect{X: 320, Y: 200, Width: 200, Height: 160},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(t)
			e := addProcess(c, 400, 300)

			c.PointerDown(left(tt.down.X, tt.down.Y))
			require.Equal(t, GestureResizing, c.Gesture())
			c.PointerUp(left(tt.up.X, tt.up.Y))

			got, _ := c.State().Element(e.ID)
			assert.Equal(t, tt.want, got.Bounds())
		})
	}
}

func TestClickEmptyCanvasClearsSelection(t *testing.T) {
	c, _ := newTestController(t)
	addProcess(c, 400, 300)

	c.PointerDown(left(50, 50))
	c.PointerUp(left(50, 50))

	assert.Empty(t, c.State().Selected())
	assert.Equal(t, GestureIdle, c.Gesture())
}

func TestPanGestures(t *testing.T) {
	t.Run("pan mode", func(t *testing.T) {
		c, _ := newTestController(t)
		c.SetMode(ModePan)
		c.PointerDown(left(10, 10))
		c.PointerMove(left(30, 15))
		c.PointerUp(left(40, 20))
		assert.Equal(t, vsm.Point{X: 30, Y: 10}, c.Viewport().Pan)
	})

	t.Run("alt drag over an element pans", func(t *testing.T) {
		c, _ := newTestController(t)
		e := addProcess(c, 400, 300)
		ev := left(400, 300)
		ev.Alt = true
		c.PointerDown(ev)
		require.Equal(t, GesturePanning, c.Gesture())
		c.PointerUp(left(410, 300))

		got, _ := c.State().Element(e.ID)
		assert.Equal(t, 320.0, got.X)
		assert.Equal(t, vsm.Point{X: 10, Y: 0}, c.Viewport().Pan)
	})

	t.Run("middle button pans", func(t *testing.T) {
		c, _ := newTestController(t)
		c.PointerDown(PointerEvent{X: 0, Y: 0, Button: ButtonMiddle})
		c.PointerUp(PointerEvent{X: -5, Y: 8, Button: ButtonMiddle})
		assert.Equal(t, vsm.Point{X: -5, Y: 8}, c.Viewport().Pan)
	})
}

func TestConnectTwoElements(t *testing.T) {
	c, _ := newTestController(t)
	a := addProcess(c, 200, 200) // 120..280 x 140..260
	b := addProcess(c, 600, 200) // 520..680 x 140..260

	c.SetMode(ModeConnect)
	c.PointerDown(left(275, 200))
	pending, ok := c.PendingConnection()
	require.True(t, ok)
	assert.Equal(t, vsm.Endpoint{ElementID: a.ID, Anchor: vsm.AnchorRight}, pending)

	c.PointerDown(left(525, 200))

	conns := c.State().Diagram().Connections
	require.Len(t, conns, 1)
	assert.Equal(t, vsm.Endpoint{ElementID: a.ID, Anchor: vsm.AnchorRight}, conns[0].From)
	assert.Equal(t, vsm.Endpoint{ElementID: b.ID, Anchor: vsm.AnchorLeft}, conns[0].To)
	assert.Equal(t, ModeSelect, c.Mode())
	assert.Equal(t, conns[0].ID, c.State().Selected())
}

func TestConnectSameElementCancels(t *testing.T) {
	c, _ := newTestController(t)
	addProcess(c, 200, 200)

	c.SetMode(ModeConnect)
	c.PointerDown(left(275, 200))
	c.PointerDown(left(200, 255))

	assert.Empty(t, c.State().Diagram().Connections)
	assert.Equal(t, ModeSelect, c.Mode())
	_, ok := c.PendingConnection()
	assert.False(t, ok)
}

func TestConnectEmptyClickDropsPending(t *testing.T) {
	c, _ := newTestController(t)
	addProcess(c, 200, 200)

	c.SetMode(ModeConnect)
	c.PointerDown(left(275, 200))
	c.PointerDown(left(600, 600))

	_, ok := c.PendingConnection()
	assert.False(t, ok)
	assert.Equal(t, ModeConnect, c.Mode())
}

func TestWheel(t *testing.T) {
	c, _ := newTestController(t)

	c.Wheel(1, true)
	assert.InDelta(t, 1.1, c.Viewport().Zoom, 1e-9)
	c.Wheel(-2, true)
	assert.InDelta(t, 1/1.1, c.Viewport().Zoom, 1e-9)

	c.Wheel(-1, false)
	assert.Equal(t, vsm.Point{X: 0, Y: -wheelPanStep}, c.Viewport().Pan)

	for i := 0; i < 50; i++ {
		c.Wheel(-1, true)
	}
	assert.Equal(t, MinZoom, c.Viewport().Zoom)
}

func TestKeyShortcuts(t *testing.T) {
	c, _ := newTestController(t)
	e := addProcess(c, 400, 300)

	assert.True(t, c.Key(KeyEvent{Key: "c"}))
	assert.Equal(t, ModeConnect, c.Mode())
	assert.True(t, c.Key(KeyEvent{Key: "h"}))
	assert.Equal(t, ModePan, c.Mode())
	assert.True(t, c.Key(KeyEvent{Key: "v"}))
	assert.Equal(t, ModeSelect, c.Mode())

	assert.True(t, c.Key(KeyEvent{Key: "=", Ctrl: true}))
	assert.InDelta(t, 1.1, c.Viewport().Zoom, 1e-9)
	assert.True(t, c.Key(KeyEvent{Key: "0", Ctrl: true}))
	assert.Equal(t, 1.0, c.Viewport().Zoom)

	require.True(t, c.Key(KeyEvent{Key: "c", Ctrl: true}))
	require.True(t, c.Key(KeyEvent{Key: "v", Ctrl: true}))
	doc := c.State().Diagram()
	require.Len(t, doc.Elements, 2)
	assert.Equal(t, e.X+20, doc.Elements[1].X)
	assert.Equal(t, "Process (copy)", doc.Elements[1].Attrs.Name)

	assert.True(t, c.Key(KeyEvent{Key: "delete"}))
	assert.Len(t, c.State().Diagram().Elements, 1)
	assert.False(t, c.Key(KeyEvent{Key: "delete"}), "nothing selected")

	assert.False(t, c.Key(KeyEvent{Key: "q"}))
}

func TestPasteSurvivesDeletion(t *testing.T) {
	c, _ := newTestController(t)
	e := addProcess(c, 400, 300)

	require.True(t, c.Copy())
	require.True(t, c.Key(KeyEvent{Key: "backspace"}))
	require.Empty(t, c.State().Diagram().Elements)

	pasted, ok := c.Paste()
	require.True(t, ok)
	assert.NotEqual(t, e.ID, pasted.ID)
	assert.Equal(t, e.Y+20, pasted.Y)
}

func TestTextFocusSuppressesShortcuts(t *testing.T) {
	c, _ := newTestController(t)
	addProcess(c, 400, 300)
	c.SetTextFocus(true)

	assert.False(t, c.Key(KeyEvent{Key: "delete"}))
	assert.False(t, c.Key(KeyEvent{Key: "c"}))
	assert.Len(t, c.State().Diagram().Elements, 1)
	assert.Equal(t, ModeSelect, c.Mode())

	c.SetTextFocus(false)
	assert.True(t, c.Key(KeyEvent{Key: "delete"}))
}

func TestEscapeDropsPendingThenSelection(t *testing.T) {
	c, _ := newTestController(t)
	addProcess(c, 200, 200)
	c.SetMode(ModeConnect)
	c.PointerDown(left(275, 200))

	require.True(t, c.Key(KeyEvent{Key: "esc"}))
	_, ok := c.PendingConnection()
	assert.False(t, ok)
	assert.NotEmpty(t, c.State().Selected())

	require.True(t, c.Key(KeyEvent{Key: "esc"}))
	assert.Empty(t, c.State().Selected())
}

func TestAddElementAtViewportCenter(t *testing.T) {
	c, _ := newTestController(t)
	c.Resize(800, 600)

	e := c.AddElement(vsm.TypeInventory)
	assert.Equal(t, vsm.Point{X: 400, Y: 300}, e.Bounds().Center())
}
