package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/autosave"
	"kaizen/internal/interact"
	"kaizen/internal/vsm"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// idleScheduler never fires, so only explicit flushes write.
type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) autosave.Timer { return idleTimer{} }

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) ReadAll() (string, error) { return c.text, c.err }

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type recorder struct {
	mu    sync.Mutex
	saved []vsm.Diagram
}

func (r *recorder) write(_ context.Context, d vsm.Diagram) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, d)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func newTestModel(t *testing.T, opts ...Option) (Model, *recorder, *fakeClipboard) {
	t.Helper()
	rec := &recorder{}
	clip := &fakeClipboard{}
	n := 0
	opts = append([]Option{
		WithClipboard(clip),
		WithAutosave(autosave.WithScheduler(idleScheduler{})),
		WithStateOptions(vsm.WithIDGenerator(func() string {
			n++
			return "id" + string(rune('0'+n))
		})),
	}, opts...)
	m := New(vsm.NewEmpty(), rec.write, opts...)
	return update(m, tea.WindowSizeMsg{Width: 120, Height: 40}), rec, clip
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAddElementFromKeyboard(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(m, runes("3"))
	d := m.Diagram()
	require.Len(t, d.Elements, 1)
	e := d.Elements[0]
	assert.Equal(t, vsm.TypeProcess, e.Type)
	assert.Equal(t, e.ID, m.ctrl.State().Selected())
	assert.Equal(t, "Added Process", m.status.text)

	// canvas is 86x37 cells, so the view centre is (344, 296)
	assert.Equal(t, 260.0, e.X)
	assert.Equal(t, 240.0, e.Y)
}

func TestToolbarClickAddsElement(t *testing.T) {
	m, _, _ := newTestModel(t)
	items := m.toolbar()
	require.Len(t, items, len(vsm.ElementTypes))

	m = update(m, tea.MouseMsg{X: items[0].start, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.Len(t, m.Diagram().Elements, 1)
	assert.Equal(t, vsm.TypeSupplier, m.Diagram().Elements[0].Type)

	m = update(m, tea.MouseMsg{X: items[0].start - 1, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Len(t, m.Diagram().Elements, 1, "gap between buttons")
}

func TestMouseDragMovesElement(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(m, runes("3")) // 260..420 x 240..360

	next, cmd := m.Update(tea.MouseMsg{X: 40, Y: 16, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = next.(Model)
	assert.NotNil(t, cmd, "a gesture starts the frame ticker")
	assert.Equal(t, interact.GestureDragging, m.ctrl.Gesture())

	m = update(m, tea.MouseMsg{X: 45, Y: 16, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	assert.Equal(t, 300.0, m.Diagram().Elements[0].X)

	m = update(m, tea.MouseMsg{X: 50, Y: 16, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	assert.Equal(t, 340.0, m.Diagram().Elements[0].X)
	assert.Equal(t, interact.GestureIdle, m.ctrl.Gesture())

	m = update(m, frameMsg{})
	assert.False(t, m.ticking)
}

func TestDetailsPanelEditsFields(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(m, runes("3"))

	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.editing)
	assert.Equal(t, "Process", m.input.Value())

	m = update(m, runes("c"))
	assert.Equal(t, interact.ModeSelect, m.ctrl.Mode(), "shortcuts are suppressed while editing")

	m.input.SetValue("Press")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.editing)
	assert.Equal(t, "Press", m.Diagram().Elements[0].Attrs.Name)

	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.editing)
	m.input.SetValue("fast")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.editing, "invalid input keeps the field open")
	assert.True(t, m.status.err)
	assert.Contains(t, m.status.text, "C/T")

	m.input.SetValue("45")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.editing)
	assert.Equal(t, 45.0, m.Diagram().Elements[0].Attrs.CycleTime)

	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.editing)
	assert.Equal(t, 45.0, m.Diagram().Elements[0].Attrs.CycleTime, "esc discards the edit")
}

func TestSettingsOptionFieldCycles(t *testing.T) {
	m, _, _ := newTestModel(t)

	title, fields := m.currentFields()
	assert.Equal(t, "Map settings", title)
	assert.Equal(t, "Time unit", fields[3].label)

	for i := 0; i < 3; i++ {
		m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.editing)
	assert.Equal(t, "min", m.Diagram().Settings.TimeUnit)

	m = update(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 2, m.field)
}

func TestSelectionChangeResetsField(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(m, runes("3"))
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 2, m.field)

	m = update(m, runes("4"))
	_, fields := m.currentFields()
	assert.Equal(t, 0, m.field)
	assert.Equal(t, "Name", fields[0].label)
}

func TestHelpDialog(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(m, runes("?"))
	require.True(t, m.showHelp)
	assert.Contains(t, m.View(), "connect mode")

	m = update(m, runes("3"))
	assert.Empty(t, m.Diagram().Elements, "keys go to the dialog")

	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)
}

func TestClipboardJSON(t *testing.T) {
	m, _, clip := newTestModel(t)
	m = update(m, runes("3"))

	m = update(m, runes("y"))
	require.NotEmpty(t, clip.text)
	d, err := vsm.Decode([]byte(clip.text))
	require.NoError(t, err)
	assert.Len(t, d.Elements, 1)

	example, err := vsm.Encode(vsm.NewExample())
	require.NoError(t, err)
	clip.text = string(example)
	m = update(m, runes("p"))
	assert.Len(t, m.Diagram().Elements, len(vsm.NewExample().Elements))
	assert.False(t, m.status.err)

	clip.text = "{nope"
	m = update(m, runes("p"))
	assert.True(t, m.status.err)
	assert.Len(t, m.Diagram().Elements, len(vsm.NewExample().Elements), "bad input leaves the map alone")

	clip.err = errors.New("no display")
	m = update(m, runes("y"))
	assert.True(t, m.status.err)
}

func TestExportPNG(t *testing.T) {
	dir := t.TempDir()
	m, _, _ := newTestModel(t, WithExportDir(dir), WithTitle("Line 2 / Current"))
	m = update(m, runes("3"))

	m = update(m, runes("x"))
	require.False(t, m.status.err, m.status.text)
	_, err := os.Stat(filepath.Join(dir, "line-2---current.png"))
	assert.NoError(t, err)
}

func TestQuitFlushesPendingChanges(t *testing.T) {
	m, rec, _ := newTestModel(t)
	m = update(m, runes("3"))
	assert.True(t, m.sink.Pending())
	assert.Equal(t, 0, rec.count())

	next, cmd := m.Update(runes("q"))
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, closedMsg{}, msg)
	assert.NoError(t, msg.(closedMsg).err)
	require.Equal(t, 1, rec.count())
	assert.Len(t, rec.saved[0].Elements, 1)

	_, cmd = m.Update(msg)
	assert.NotNil(t, cmd)
}

func TestViewLayout(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(m, runes("3"))

	view := m.View()
	lines := strings.Split(view, "\n")
	assert.Len(t, lines, 40)
	assert.Contains(t, lines[0], "SELECT")
	assert.Contains(t, view, "Lead")
	assert.Contains(t, view, "C/T (s)")

	narrow := update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	cols, rows := narrow.canvasSize()
	assert.Equal(t, 60, cols)
	assert.Equal(t, 17, rows)
	assert.NotContains(t, narrow.View(), "C/T (s)")
}

func TestToKeyEvent(t *testing.T) {
	tests := []struct {
		msg  tea.KeyMsg
		want interact.KeyEvent
	}{
		{runes("v"), interact.KeyEvent{Key: "v"}},
		{tea.KeyMsg{Type: tea.KeyCtrlD}, interact.KeyEvent{Key: "d", Ctrl: true}},
		{tea.KeyMsg{Type: tea.KeyDelete}, interact.KeyEvent{Key: "delete"}},
		{tea.KeyMsg{Type: tea.KeyEsc}, interact.KeyEvent{Key: "esc"}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true}, interact.KeyEvent{Key: "x", Alt: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toKeyEvent(tt.msg), tt.msg.String())
	}
}
