package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Add       key.Binding
	NextField key.Binding
	PrevField key.Binding
	Edit      key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ZoomReset key.Binding
	PanUp     key.Binding
	PanDown   key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding
	Save      key.Binding
	CopyJSON  key.Binding
	PasteJSON key.Binding
	ExportPNG key.Binding

	// handled by the controller, listed for help only
	Select    key.Binding
	Connect   key.Binding
	Pan       key.Binding
	Delete    key.Binding
	Duplicate key.Binding
	Copy      key.Binding
	Paste     key.Binding
	Escape    key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+q"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Add:       key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"), key.WithHelp("1-8", "add element")),
	NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
	Edit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit field")),
	ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
	ZoomReset: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset zoom")),
	PanUp:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "scroll up")),
	PanDown:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "scroll down")),
	PanLeft:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "scroll left")),
	PanRight:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "scroll right")),
	Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save now")),
	CopyJSON:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy map as JSON")),
	PasteJSON: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "load map from clipboard")),
	ExportPNG: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export PNG")),

	Select:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "select mode")),
	Connect:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect mode")),
	Pan:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "pan mode")),
	Delete:    key.NewBinding(key.WithKeys("delete", "backspace"), key.WithHelp("del", "delete")),
	Duplicate: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "duplicate")),
	Copy:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "copy element")),
	Paste:     key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "paste element")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel / deselect")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Connect, k.Edit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Add, k.Select, k.Connect, k.Pan, k.Delete, k.Duplicate, k.Copy, k.Paste, k.Escape},
		{k.NextField, k.PrevField, k.Edit, k.ZoomIn, k.ZoomOut, k.ZoomReset, k.PanUp, k.PanDown, k.PanLeft, k.PanRight},
		{k.Save, k.CopyJSON, k.PasteJSON, k.ExportPNG, k.Help, k.Quit},
	}
}
