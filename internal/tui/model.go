// Package tui is the interactive artwork browser: a paginated table with a
// checkbox column whose marks persist across pages.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/controller"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// pageLoadedMsg carries a finished fetch back to the event loop.
type pageLoadedMsg struct {
	req  controller.Request
	resp *catalog.PageResponse
	err  error
}

// Model represents the browser state
type Model struct {
	ctx  context.Context
	ctrl *controller.Controller

	table   table.Model
	pager   paginator.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  *Styles

	width    int
	height   int
	shownFor int
	quitting bool

	logger zerolog.Logger
}

// New creates a browser over ctrl. Fetches run with ctx.
func New(ctx context.Context, ctrl *controller.Controller) Model {
	styles := NewStyles()

	t := table.New(
		table.WithColumns(columns(ctrl.HeaderState().String(), 0)),
		table.WithFocused(true),
		table.WithHeight(ctrl.Window().Rows+2),
		table.WithKeyMap(tableKeyMap()),
		table.WithStyles(styles.Table),
	)

	p := paginator.New()
	p.Type = paginator.Arabic

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		table:   t,
		pager:   p,
		spinner: s,
		help:    help.New(),
		keys:    defaultKeyMap(),
		styles:  styles,
		logger:  log.With().Str("component", "tui").Str("session", ctrl.SessionID()).Logger(),
	}
}

// Init starts the spinner and loads the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(m.ctrl.Begin()))
}

// load runs req off the event loop.
func (m Model) load(req controller.Request) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		resp, err := ctrl.Fetch(ctx, req)
		return pageLoadedMsg{req: req, resp: resp, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case pageLoadedMsg:
		if m.ctrl.Apply(msg.req, msg.resp, msg.err) {
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := m.ctrl.Window()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.cursorID(); ok {
			m.ctrl.ToggleRow(id, !m.ctrl.IsSelected(id))
			m.logger.Debug().Int("id", id).Msg("Row toggled")
		}

	case key.Matches(msg, m.keys.SelectPage):
		m.ctrl.SelectPage(true)

	case key.Matches(msg, m.keys.DeselectPage):
		m.ctrl.SelectPage(false)

	case key.Matches(msg, m.keys.ClearAll):
		m.ctrl.ClearSelections()

	case key.Matches(msg, m.keys.NextPage):
		if w.HasNext() {
			return m.navigate(m.ctrl.GoToPage(w.Page() + 1))
		}

	case key.Matches(msg, m.keys.PrevPage):
		if w.HasPrev() {
			return m.navigate(m.ctrl.GoToPage(w.Page() - 1))
		}

	case key.Matches(msg, m.keys.FirstPage):
		if w.Page() != 1 {
			return m.navigate(m.ctrl.GoToPage(1))
		}

	case key.Matches(msg, m.keys.LastPage):
		if w.Page() != w.TotalPages() {
			return m.navigate(m.ctrl.GoToPage(w.TotalPages()))
		}

	case key.Matches(msg, m.keys.Rows):
		return m.navigate(m.ctrl.SetRows(pagination.NextRowsOption(w.Rows)))

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	m.refresh()
	return m, nil
}

func (m Model) navigate(req controller.Request) (tea.Model, tea.Cmd) {
	m.refresh()
	return m, m.load(req)
}

// cursorID returns the id of the row under the cursor.
func (m Model) cursorID() (int, bool) {
	rows := m.ctrl.Rows()
	i := m.table.Cursor()
	if i < 0 || i >= len(rows) {
		return 0, false
	}
	return rows[i].ID, true
}

// refresh rebuilds the table and paginator from the controller.
func (m *Model) refresh() {
	rows := m.ctrl.Rows()
	w := m.ctrl.Window()
	page := m.ctrl.DisplayedPage()

	tableRows := make([]table.Row, len(rows))
	for i, a := range rows {
		mark := "[ ]"
		if m.ctrl.IsSelected(a.ID) {
			mark = "[x]"
		}
		tableRows[i] = table.Row{
			mark,
			strconv.Itoa(a.ID),
			a.DisplayTitle(),
			a.DisplayOrigin(),
			a.DisplayArtist(),
			a.DisplayInscriptions(),
			a.DisplayDate(),
		}
	}

	m.table.SetColumns(columns(m.ctrl.HeaderState().String(), m.width))
	m.table.SetRows(tableRows)
	m.table.SetHeight(w.Rows + 2)
	if page != m.shownFor {
		m.table.SetCursor(0)
		m.shownFor = page
	}

	m.pager.PerPage = w.Rows
	m.pager.TotalPages = w.TotalPages()
	m.pager.Page = w.Page() - 1
}

// columns lays out the table for a terminal width; narrow terminals get
// the default widths.
func columns(header string, width int) []table.Column {
	title, artist, inscriptions := 30, 26, 18
	if extra := width - 130; extra > 0 {
		title += extra / 2
		artist += extra / 4
		inscriptions += extra / 4
	}
	return []table.Column{
		{Title: header, Width: 3},
		{Title: "ID", Width: 7},
		{Title: "Title", Width: title},
		{Title: "Origin", Width: 16},
		{Title: "Artist", Width: artist},
		{Title: "Inscriptions", Width: inscriptions},
		{Title: "Date", Width: 12},
	}
}

// View renders the browser
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.ctrl.Window()
	var b strings.Builder

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Title.Render("Art Institute of Chicago"),
		"   ",
		m.styles.Counter.Render(fmt.Sprintf("Selected: %d", m.ctrl.SelectedCount())),
		"   ",
		m.styles.Status.Render("Page "+m.ctrl.HeaderState().String()),
	)
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	status := w.Report()
	if m.ctrl.Loading() {
		status = m.spinner.View() + " Loading page " + strconv.Itoa(w.Page()) + "..."
	}
	b.WriteString(m.styles.Status.Render(status))
	b.WriteString("   ")
	b.WriteString(m.styles.Pager.Render(m.pager.View()))
	b.WriteString(m.styles.Status.Render(fmt.Sprintf("   %d rows/page", w.Rows)))
	b.WriteString("\n")

	if err := m.ctrl.Err(); err != nil {
		b.WriteString(m.styles.StatusError.Render("Load failed: " + err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}
