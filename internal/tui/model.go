// Package tui is the terminal value stream map editor.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"kaizen/internal/autosave"
	"kaizen/internal/interact"
	"kaizen/internal/render"
	"kaizen/internal/vsm"
)

const (
	panelWidth   = 34
	minPanelCols = 80 // narrower terminals hide the details panel
	keyPanStep   = 64.0
	closeTimeout = 10 * time.Second
)

// Clipboard is the OS clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

type saveMsg struct{ err error }
type frameMsg struct{}
type closedMsg struct{ err error }

type banner struct {
	text string
	err  bool
}

type toolItem struct {
	label      string
	start, end int
	elem       vsm.ElementType
}

// Model is the bubbletea model of the editor. The diagram lives in the
// controller's vsm.State; every change is pushed to the autosave sink.
type Model struct {
	ctrl   *interact.Controller
	sink   *autosave.Sink[vsm.Diagram]
	saves  chan error
	help   help.Model
	input  textinput.Model
	clip   Clipboard
	logger *zap.Logger

	title     string
	exportDir string
	interval  time.Duration

	width, height int
	showHelp      bool
	editing       bool
	field         int
	fieldOwner    string
	ticking       bool
	quitting      bool
	status        banner
	lastSave      time.Time
}

type config struct {
	logger    *zap.Logger
	clip      Clipboard
	title     string
	exportDir string
	grid      float64
	frame     time.Duration
	sinkOpts  []autosave.Option
	ctrlOpts  []interact.Option
	stateOpts []vsm.StateOption
}

type Option func(*config)

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

func WithClipboard(cb Clipboard) Option {
	return func(c *config) { c.clip = cb }
}

func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithExportDir sets where the export key writes PNG files.
func WithExportDir(dir string) Option {
	return func(c *config) { c.exportDir = dir }
}

func WithGrid(size float64) Option {
	return func(c *config) { c.grid = size }
}

func WithFrameInterval(d time.Duration) Option {
	return func(c *config) { c.frame = d }
}

func WithAutosave(opts ...autosave.Option) Option {
	return func(c *config) { c.sinkOpts = append(c.sinkOpts, opts...) }
}

func WithControllerOptions(opts ...interact.Option) Option {
	return func(c *config) { c.ctrlOpts = append(c.ctrlOpts, opts...) }
}

func WithStateOptions(opts ...vsm.StateOption) Option {
	return func(c *config) { c.stateOpts = append(c.stateOpts, opts...) }
}

// New opens doc for editing. save persists the whole document and is only
// ever called from the autosave sink.
func New(doc vsm.Diagram, save autosave.WriteFunc[vsm.Diagram], opts ...Option) Model {
	cfg := config{
		logger:    zap.NewNop(),
		clip:      systemClipboard{},
		exportDir: ".",
		grid:      vsm.GridSize,
		frame:     interact.FrameInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	saves := make(chan error, 8)
	notify := func(err error) {
		select {
		case saves <- err:
		default:
		}
	}
	sinkOpts := append([]autosave.Option{
		autosave.WithLogger(cfg.logger),
		autosave.WithErrorHandler(notify),
		autosave.WithWriteHandler(func() { notify(nil) }),
	}, cfg.sinkOpts...)
	sink := autosave.New(save, sinkOpts...)

	state := vsm.NewState(doc, append(cfg.stateOpts, vsm.WithChangeHook(sink.Push))...)
	ctrlOpts := append([]interact.Option{
		interact.WithGrid(cfg.grid),
		interact.WithFrameInterval(cfg.frame),
	}, cfg.ctrlOpts...)

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 200

	return Model{
		ctrl:      interact.NewController(state, ctrlOpts...),
		interval:  cfg.frame,
		sink:      sink,
		saves:     saves,
		help:      help.New(),
		input:     input,
		clip:      cfg.clip,
		logger:    cfg.logger,
		title:     cfg.title,
		exportDir: cfg.exportDir,
	}
}

// Run starts the editor full screen with mouse support and flushes pending
// changes when it exits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if cerr := m.sink.Close(ctx); cerr != nil && err == nil {
		err = fmt.Errorf("failed to save diagram: %w", cerr)
	}
	return err
}

func (m Model) Diagram() vsm.Diagram { return m.ctrl.State().Diagram() }

func waitForSave(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return saveMsg{err: <-ch}
	}
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m Model) Init() tea.Cmd {
	return waitForSave(m.saves)
}

func (m Model) canvasSize() (cols, rows int) {
	cols = m.width
	if m.width >= minPanelCols {
		cols = m.width - panelWidth
	}
	rows = m.height - 3
	return max(cols, 1), max(rows, 1)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		cols, rows := m.canvasSize()
		m.ctrl.Resize(float64(cols)*render.CellWidth, float64(rows)*render.CellHeight)
		return m, nil

	case saveMsg:
		if msg.err != nil {
			m.status = banner{text: "Save failed: " + msg.err.Error(), err: true}
		} else {
			m.lastSave = time.Now()
		}
		return m, waitForSave(m.saves)

	case frameMsg:
		m.ctrl.Tick()
		if m.ctrl.Dragging() {
			return m, m.frame()
		}
		m.ticking = false
		return m, nil

	case closedMsg:
		if msg.err != nil {
			m.logger.Error("final save failed", zap.Error(msg.err))
		}
		return m, tea.Quit

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		if m.editing {
			return m.handleEditKey(msg)
		}
		if m.showHelp {
			switch msg.String() {
			case "esc", "?", "q":
				m.showHelp = false
			}
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = banner{}
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.ctrl.Cancel()
		sink := m.sink
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			return closedMsg{err: sink.Close(ctx)}
		}

	case key.Matches(msg, keys.Help):
		m.showHelp = true

	case key.Matches(msg, keys.Add):
		i := int(msg.Runes[0] - '1')
		if i >= 0 && i < len(vsm.ElementTypes) {
			e := m.ctrl.AddElement(vsm.ElementTypes[i])
			m.status = banner{text: "Added " + e.Type.Label()}
		}

	case key.Matches(msg, keys.NextField):
		m.moveField(1)
	case key.Matches(msg, keys.PrevField):
		m.moveField(-1)
	case key.Matches(msg, keys.Edit):
		return m.beginEdit()

	case key.Matches(msg, keys.ZoomIn):
		m.ctrl.Key(interact.KeyEvent{Key: "=", Ctrl: true})
	case key.Matches(msg, keys.ZoomOut):
		m.ctrl.Key(interact.KeyEvent{Key: "-", Ctrl: true})
	case key.Matches(msg, keys.ZoomReset):
		m.ctrl.Key(interact.KeyEvent{Key: "0", Ctrl: true})
	case key.Matches(msg, keys.PanUp):
		m.ctrl.PanBy(0, keyPanStep)
	case key.Matches(msg, keys.PanDown):
		m.ctrl.PanBy(0, -keyPanStep)
	case key.Matches(msg, keys.PanLeft):
		m.ctrl.PanBy(keyPanStep, 0)
	case key.Matches(msg, keys.PanRight):
		m.ctrl.PanBy(-keyPanStep, 0)

	case key.Matches(msg, keys.Save):
		sink := m.sink
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := sink.Flush(ctx); err != nil {
				return saveMsg{err: err}
			}
			return nil
		}

	case key.Matches(msg, keys.CopyJSON):
		m.copyJSON()
	case key.Matches(msg, keys.PasteJSON):
		m.pasteJSON()
	case key.Matches(msg, keys.ExportPNG):
		m.exportPNG()

	default:
		m.ctrl.Key(toKeyEvent(msg))
	}
	return m, nil
}

// toKeyEvent strips bubbletea's modifier prefixes.
func toKeyEvent(msg tea.KeyMsg) interact.KeyEvent {
	s := msg.String()
	ev := interact.KeyEvent{}
	if rest, ok := strings.CutPrefix(s, "alt+"); ok {
		ev.Alt, s = true, rest
	}
	if rest, ok := strings.CutPrefix(s, "ctrl+"); ok {
		ev.Ctrl, s = true, rest
	}
	ev.Key = s
	return ev
}

func (m *Model) currentFields() (string, []field) {
	title, fields := fieldsFor(m.ctrl.State())
	if owner := m.ctrl.State().Selected(); owner != m.fieldOwner {
		m.fieldOwner = owner
		m.field = 0
	}
	if m.field >= len(fields) {
		m.field = 0
	}
	return title, fields
}

func (m *Model) moveField(delta int) {
	_, fields := m.currentFields()
	if len(fields) == 0 {
		return
	}
	m.field = (m.field + delta + len(fields)) % len(fields)
}

func (m Model) beginEdit() (tea.Model, tea.Cmd) {
	_, fields := m.currentFields()
	if len(fields) == 0 {
		return m, nil
	}
	f := fields[m.field]
	if len(f.options) > 0 {
		if err := f.next(); err != nil {
			m.status = banner{text: err.Error(), err: true}
		}
		return m, nil
	}
	m.editing = true
	m.ctrl.SetTextFocus(true)
	m.input.SetValue(f.get())
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) endEdit() Model {
	m.editing = false
	m.input.Blur()
	m.ctrl.SetTextFocus(false)
	return m
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.endEdit(), nil
	case tea.KeyEnter:
		_, fields := m.currentFields()
		if m.field < len(fields) {
			if err := fields[m.field].set(m.input.Value()); err != nil {
				m.status = banner{text: fields[m.field].label + ": " + err.Error(), err: true}
				return m, nil
			}
		}
		return m.endEdit(), nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) copyJSON() {
	data, err := vsm.Encode(m.ctrl.State().Diagram())
	if err == nil {
		err = m.clip.WriteAll(string(data))
	}
	if err != nil {
		m.logger.Warn("clipboard export failed", zap.Error(err))
		m.status = banner{text: "Copy failed: " + err.Error(), err: true}
		return
	}
	m.status = banner{text: "Map copied to clipboard as JSON"}
}

func (m *Model) pasteJSON() {
	text, err := m.clip.ReadAll()
	if err != nil {
		m.status = banner{text: "Clipboard unavailable: " + err.Error(), err: true}
		return
	}
	doc, err := vsm.Decode([]byte(strings.TrimSpace(text)))
	if err != nil {
		m.status = banner{text: "Import failed: " + err.Error(), err: true}
		return
	}
	m.ctrl.State().Replace(doc)
	m.status = banner{text: fmt.Sprintf("Imported %d elements", len(m.ctrl.State().Diagram().Elements))}
}

func (m *Model) exportPNG() {
	name := m.title
	if name == "" {
		name = "value-stream"
	}
	path := filepath.Join(m.exportDir, exportName(name)+".png")
	f, err := os.Create(path)
	if err != nil {
		m.status = banner{text: "Export failed: " + err.Error(), err: true}
		return
	}
	err = render.PNG(f, m.ctrl.State().Diagram())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		m.status = banner{text: "Export failed: " + err.Error(), err: true}
		return
	}
	m.status = banner{text: "Exported " + path}
}

func exportName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.editing || m.showHelp || m.quitting {
		return m, nil
	}
	cols, rows := m.canvasSize()
	col, row := msg.X, msg.Y-1

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.ctrl.Wheel(1, msg.Ctrl)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.ctrl.Wheel(-1, msg.Ctrl)
		return m, nil
	}

	ev := interact.PointerEvent{
		X:     float64(col)*render.CellWidth + render.CellWidth/2,
		Y:     float64(row)*render.CellHeight + render.CellHeight/2,
		Alt:   msg.Alt,
		Ctrl:  msg.Ctrl,
		Shift: msg.Shift,
	}

	switch msg.Action {
	case tea.MouseActionPress:
		m.status = banner{}
		if msg.Y == 0 {
			m.clickToolbar(msg.X)
			return m, nil
		}
		if col >= cols || row >= rows {
			m.clickPanel(row)
			return m, nil
		}
		switch msg.Button {
		case tea.MouseButtonLeft:
			ev.Button = interact.ButtonLeft
		case tea.MouseButtonMiddle:
			ev.Button = interact.ButtonMiddle
		case tea.MouseButtonRight:
			ev.Button = interact.ButtonRight
		}
		m.ctrl.PointerDown(ev)
		if m.ctrl.Dragging() && !m.ticking {
			m.ticking = true
			return m, m.frame()
		}
	case tea.MouseActionMotion:
		m.ctrl.PointerMove(ev)
	case tea.MouseActionRelease:
		m.ctrl.PointerUp(ev)
	}
	return m, nil
}

func (m Model) toolbar() []toolItem {
	items := make([]toolItem, 0, len(vsm.ElementTypes))
	pos := len(m.modeLabel()) + 1
	for i, t := range vsm.ElementTypes {
		label := fmt.Sprintf(" %d %s ", i+1, t.Label())
		items = append(items, toolItem{label: label, start: pos, end: pos + len([]rune(label)), elem: t})
		pos += len([]rune(label)) + 1
	}
	return items
}

func (m *Model) clickToolbar(x int) {
	for _, it := range m.toolbar() {
		if x >= it.start && x < it.end {
			e := m.ctrl.AddElement(it.elem)
			m.status = banner{text: "Added " + e.Type.Label()}
			return
		}
	}
}

// clickPanel focuses the field on the clicked panel row. Fields start on the
// third panel row, below the title and a blank line.
func (m *Model) clickPanel(row int) {
	_, fields := m.currentFields()
	if i := row - 2; i >= 0 && i < len(fields) {
		m.field = i
	}
}

func (m Model) modeLabel() string {
	return " " + m.ctrl.Mode().String() + " "
}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.showHelp {
		m.help.ShowAll = true
		box := dialogStyle.Render(panelTitleStyle.Render("Value stream map editor") + "\n\n" + m.help.View(keys))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	cols, rows := m.canvasSize()
	doc := m.ctrl.State().Diagram()

	var b strings.Builder
	b.WriteString(m.toolbarView())
	b.WriteString("\n")

	frame := render.Frame{Cols: cols, Rows: rows, View: m.ctrl.Viewport(), Selected: m.ctrl.State().Selected()}
	if p, ok := m.ctrl.PendingConnection(); ok {
		frame.Pending = &p
	}
	canvas := strings.Join(render.Terminal(doc, frame), "\n")
	if m.width >= minPanelCols {
		panel := panelStyle.Width(panelWidth - 2).Height(rows).MaxHeight(rows).Render(m.panelView())
		canvas = lipgloss.JoinHorizontal(lipgloss.Top, canvas, panel)
	}
	b.WriteString(canvas)
	b.WriteString("\n")

	b.WriteString(footerStyle.Render(truncate(render.MetricsSummary(vsm.ComputeMetrics(doc)), m.width)))
	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m Model) toolbarView() string {
	var b strings.Builder
	b.WriteString(modeStyle.Render(m.modeLabel()))
	for _, it := range m.toolbar() {
		b.WriteString(" ")
		b.WriteString(toolActiveStyle.Render(it.label))
	}
	if m.title != "" {
		b.WriteString("  ")
		b.WriteString(toolbarStyle.Render(" " + m.title + " "))
	}
	return b.String()
}

func (m Model) panelView() string {
	title, fields := m.currentFields()
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render(title))
	b.WriteString("\n\n")
	for i, f := range fields {
		label := fmt.Sprintf("%-13s", f.label)
		value := f.get()
		if len(f.options) > 0 {
			value = "‹" + value + "›"
		}
		if i == m.field {
			if m.editing {
				b.WriteString(fieldFocusStyle.Render(label) + "\n" + m.input.View() + "\n")
				continue
			}
			b.WriteString(fieldFocusStyle.Render(label+" "+value) + "\n")
			continue
		}
		b.WriteString(fieldLabelStyle.Render(label) + " " + value + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab: field  enter: edit"))
	return b.String()
}

func (m Model) statusView() string {
	var left string
	switch {
	case m.status.text != "" && m.status.err:
		left = errorStyle.Render(m.status.text)
	case m.status.text != "":
		left = infoStyle.Render(m.status.text)
	default:
		left = m.help.View(keys)
	}

	right := dimStyle.Render("saved")
	if m.sink.Pending() {
		right = errorStyle.Render("● unsaved")
	} else if m.lastSave.IsZero() {
		right = ""
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[:width])
}
