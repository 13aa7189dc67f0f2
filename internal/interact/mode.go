package interact

import "kaizen/internal/vsm"

type Mode int

const (
	ModeSelect Mode = iota
	ModeConnect
	ModePan
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "SELECT"
	case ModeConnect:
		return "CONNECT"
	case ModePan:
		return "PAN"
	}
	return "UNKNOWN"
}

// GestureKind is the pointer gesture in progress. Every gesture starts on
// pointer-down and returns to GestureIdle on pointer-up.
type GestureKind int

const (
	GestureIdle GestureKind = iota
	GestureDragging
	GestureResizing
	GesturePanning
)

func (g GestureKind) String() string {
	switch g {
	case GestureIdle:
		return "idle"
	case GestureDragging:
		return "dragging"
	case GestureResizing:
		return "resizing"
	case GesturePanning:
		return "panning"
	}
	return "unknown"
}

type Corner int

const (
	CornerTopLeft Corner = iota
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

var corners = []Corner{CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight}

type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// PointerEvent is a pointer sample in screen pixels.
type PointerEvent struct {
	X, Y   float64
	Button Button
	Alt    bool
	Ctrl   bool
	Shift  bool
}

func (e PointerEvent) Point() vsm.Point {
	return vsm.Point{X: e.X, Y: e.Y}
}

// KeyEvent is a normalised key press. Key is the unmodified key name, such
// as "v", "=", "delete" or "esc".
type KeyEvent struct {
	Key  string
	Ctrl bool
	Alt  bool
}
