package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/controller"
	"github.com/Sternrassler/artic-catalog-client/pkg/selection"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu    sync.Mutex
	total int
	err   error
}

func (f *fakeCatalog) FetchPage(ctx context.Context, page, limit int) (*catalog.PageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	resp := &catalog.PageResponse{Pagination: catalog.Pagination{
		Total:       f.total,
		Limit:       limit,
		CurrentPage: page,
		TotalPages:  (f.total + limit - 1) / limit,
	}}
	for i := (page - 1) * limit; i < min(page*limit, f.total); i++ {
		resp.Data = append(resp.Data, catalog.Artwork{ID: 1000 + i, Title: "Artwork"})
	}
	return resp, nil
}

// exec runs cmd synchronously and feeds a resulting page load back in.
func exec(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	if msg, ok := cmd().(pageLoadedMsg); ok {
		next, _ := m.Update(msg)
		return next.(Model)
	}
	return m
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "home":
			msg = tea.KeyMsg{Type: tea.KeyHome}
		case "end":
			msg = tea.KeyMsg{Type: tea.KeyEnd}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, cmd := m.Update(msg)
		m = exec(t, next.(Model), cmd)
	}
	return m
}

func newTestModel(t *testing.T, total int) (Model, *controller.Controller, *fakeCatalog) {
	t.Helper()
	fetcher := &fakeCatalog{total: total}
	ctrl := controller.New(fetcher, selection.NewStore(), 12)
	m := New(context.Background(), ctrl)

	req := ctrl.Begin()
	m = exec(t, m, m.load(req))
	require.False(t, ctrl.Loading())
	return m, ctrl, fetcher
}

func TestModel_InitialLoad(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 30)

	assert.Len(t, ctrl.Rows(), 12)
	assert.Len(t, m.table.Rows(), 12)
	assert.Equal(t, "1000", m.table.Rows()[0][1])
	assert.Equal(t, 3, m.pager.TotalPages)
	assert.Contains(t, m.View(), "Showing 1 to 12 of 30 artworks")
	assert.Contains(t, m.View(), "Selected: 0")
}

func TestModel_ToggleRow(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 30)

	m = press(t, m, " ")
	assert.True(t, ctrl.IsSelected(1000))
	assert.Equal(t, "[x]", m.table.Rows()[0][0])
	assert.Equal(t, "[-]", m.table.Columns()[0].Title)

	m = press(t, m, "down", " ")
	assert.True(t, ctrl.IsSelected(1001))
	assert.Equal(t, 2, ctrl.SelectedCount())

	m = press(t, m, " ")
	assert.False(t, ctrl.IsSelected(1001))
	assert.Contains(t, m.View(), "Selected: 1")
}

func TestModel_SelectionSurvivesNavigation(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 30)

	m = press(t, m, " ", "n")
	assert.Equal(t, 2, ctrl.DisplayedPage())
	assert.Equal(t, "[ ]", m.table.Rows()[0][0])
	assert.Equal(t, 1, ctrl.SelectedCount())

	m = press(t, m, "a")
	assert.Equal(t, 13, ctrl.SelectedCount())
	assert.Equal(t, "[x]", m.table.Columns()[0].Title)

	m = press(t, m, "p")
	assert.Equal(t, 1, ctrl.DisplayedPage())
	assert.Equal(t, "[x]", m.table.Rows()[0][0])
	assert.Equal(t, "[-]", m.table.Columns()[0].Title)
}

func TestModel_PageKeys(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 30)

	m = press(t, m, "end")
	assert.Equal(t, 3, ctrl.DisplayedPage())
	assert.Len(t, m.table.Rows(), 6)

	// No page past the last.
	m = press(t, m, "right")
	assert.Equal(t, 3, ctrl.DisplayedPage())

	m = press(t, m, "left")
	assert.Equal(t, 2, ctrl.DisplayedPage())

	m = press(t, m, "home")
	assert.Equal(t, 1, ctrl.DisplayedPage())
	assert.Equal(t, 0, m.pager.Page)
}

func TestModel_DeselectAndClear(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 30)

	m = press(t, m, "a")
	assert.Equal(t, 12, ctrl.SelectedCount())

	m = press(t, m, "A")
	assert.Equal(t, 0, ctrl.SelectedCount())

	m = press(t, m, "a", "n", "a", "c")
	assert.Equal(t, 0, ctrl.SelectedCount())
	assert.Equal(t, "[ ]", m.table.Columns()[0].Title)
}

func TestModel_CycleRows(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 100)

	m = press(t, m, "r")
	assert.Equal(t, 24, ctrl.Window().Rows)
	assert.Len(t, m.table.Rows(), 24)

	m = press(t, m, "r", "r")
	assert.Equal(t, 12, ctrl.Window().Rows)
}

func TestModel_LoadFailureKeepsRows(t *testing.T) {
	m, ctrl, fetcher := newTestModel(t, 30)

	fetcher.mu.Lock()
	fetcher.err = errors.New("catalog unavailable")
	fetcher.mu.Unlock()

	m = press(t, m, "n")
	assert.Equal(t, 1, ctrl.DisplayedPage())
	assert.Equal(t, 1, ctrl.Window().Page())
	assert.Len(t, m.table.Rows(), 12)
	assert.Contains(t, m.View(), "Load failed: catalog unavailable")
}

func TestModel_StaleLoadIgnored(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 100)

	slow := ctrl.GoToPage(2)
	fast := ctrl.GoToPage(3)

	m = exec(t, m, m.load(fast))
	m = exec(t, m, m.load(slow))

	assert.Equal(t, 3, ctrl.DisplayedPage())
	assert.Equal(t, "1024", m.table.Rows()[0][1])
}

func TestModel_HelpAndQuit(t *testing.T) {
	m, _, _ := newTestModel(t, 12)

	short := m.View()
	m = press(t, m, "?")
	assert.True(t, m.help.ShowAll)
	assert.NotEqual(t, short, m.View())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

func TestModel_LoadingView(t *testing.T) {
	m, ctrl, _ := newTestModel(t, 30)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	require.NotNil(t, cmd)
	assert.True(t, ctrl.Loading())
	assert.Contains(t, next.(Model).View(), "Loading page 2")
}
