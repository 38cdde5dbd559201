package controller

import (
	"errors"

	"github.com/Sternrassler/artic-catalog-client/pkg/selection"
)

var errEmptyResponse = errors.New("empty page response")

// ToggleRow records selected for id on the displayed page.
func (c *Controller) ToggleRow(id int, selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetSelection(c.displayedPage, id, selected)
}

// SelectPage selects or deselects every row on screen.
func (c *Controller) SelectPage(selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetPageSelection(c.displayedPage, c.rowIDsLocked(), selected)
}

// ClearSelections drops the selection on every page.
func (c *Controller) ClearSelections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.ClearSelections()
	c.logger.Debug().Msg("Selections cleared")
}

// IsSelected reports whether id is selected on the displayed page.
func (c *Controller) IsSelected(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.GetSelection(c.displayedPage, id)
}

// SelectedCount returns the number of selections across all pages.
func (c *Controller) SelectedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.GetSelectedCount()
}

// HeaderState returns the select-all tristate for the rows on screen.
func (c *Controller) HeaderState() selection.HeaderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.PageState(c.displayedPage, c.rowIDsLocked())
}

// SelectedIDs returns every selected id across pages, unordered. An id
// selected on two pages appears twice.
func (c *Controller) SelectedIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.GetAllSelectedIDs()
}

func (c *Controller) rowIDsLocked() []int {
	ids := make([]int, len(c.rows))
	for i, a := range c.rows {
		ids[i] = a.ID
	}
	return ids
}
