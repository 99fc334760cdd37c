package dashboard

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit   key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Refresh  key.Binding
	Quit     key.Binding

	NextField key.Binding
	PrevField key.Binding
	Left      key.Binding
	Right     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextField, k.Up, k.Down, k.PageUp, k.PageDown, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Refresh, k.Quit},
		{k.NextField, k.PrevField, k.Left, k.Right},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
	}
}

var keys = keyMap{
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run command")),
	Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "scroll up")),
	Down:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "scroll down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	Top:      key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "top")),
	Bottom:   key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "bottom")),
	Refresh:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("^r", "refresh session")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("^c", "quit")),

	NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-tab", "previous field")),
	Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous group")),
	Right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next group")),
}
