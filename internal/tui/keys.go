package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
)

// keyMap holds the browser's own bindings. Row movement is left to the
// table.
type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Toggle       key.Binding
	SelectPage   key.Binding
	DeselectPage key.Binding
	ClearAll     key.Binding
	NextPage     key.Binding
	PrevPage     key.Binding
	FirstPage    key.Binding
	LastPage     key.Binding
	Rows         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle row"),
		),
		SelectPage: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select page"),
		),
		DeselectPage: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "deselect page"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear all"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n/→", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/←", "prev page"),
		),
		FirstPage: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first page"),
		),
		LastPage: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "last page"),
		),
		Rows: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rows per page"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.NextPage, k.PrevPage, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.SelectPage, k.DeselectPage, k.ClearAll},
		{k.NextPage, k.PrevPage, k.FirstPage, k.LastPage},
		{k.Rows, k.Help, k.Quit},
	}
}

// tableKeyMap keeps only movement keys that do not clash with keyMap.
func tableKeyMap() table.KeyMap {
	km := table.DefaultKeyMap()
	km.PageUp.SetKeys("pgup")
	km.PageDown.SetKeys("pgdown")
	km.HalfPageUp.SetKeys("ctrl+u")
	km.HalfPageDown.SetKeys("ctrl+d")
	km.GotoTop.SetKeys("g")
	km.GotoBottom.SetKeys("G")
	return km
}
