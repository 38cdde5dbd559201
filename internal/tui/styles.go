package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the browser
type Styles struct {
	Title       lipgloss.Style
	Counter     lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
	Spinner     lipgloss.Style
	Pager       lipgloss.Style
	Table       table.Styles
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("241")).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Counter:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		Spinner:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		Pager:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Table:       ts,
	}
}
