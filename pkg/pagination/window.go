package pagination

import (
	"fmt"
	"slices"
)

// DefaultRows is the initial page size.
const DefaultRows = 12

// RowsOptions are the page sizes offered by the paginator.
var RowsOptions = []int{12, 24, 48}

// Window is the paginator's view of the listing: the offset of the first
// visible row, the page size and the total record count.
type Window struct {
	First int
	Rows  int
	Total int
}

// NewWindow returns the window for page with rows per page.
func NewWindow(page, rows, total int) Window {
	if rows < 1 {
		rows = DefaultRows
	}
	if page < 1 {
		page = 1
	}
	return Window{First: (page - 1) * rows, Rows: rows, Total: total}
}

// Page is the 1-based page number, floor(first/rows) + 1.
func (w Window) Page() int {
	if w.Rows < 1 {
		return 1
	}
	return w.First/w.Rows + 1
}

// TotalPages is the number of pages needed for Total, at least 1.
func (w Window) TotalPages() int {
	if w.Rows < 1 || w.Total <= 0 {
		return 1
	}
	return (w.Total + w.Rows - 1) / w.Rows
}

// Last is the 1-based index of the last visible row.
func (w Window) Last() int {
	return min(w.First+w.Rows, w.Total)
}

// Report renders the "Showing x to y of z artworks" line.
func (w Window) Report() string {
	if w.Total <= 0 {
		return "Showing 0 to 0 of 0 artworks"
	}
	return fmt.Sprintf("Showing %d to %d of %d artworks", w.First+1, w.Last(), w.Total)
}

// HasNext reports whether a later page exists.
func (w Window) HasNext() bool {
	return w.Page() < w.TotalPages()
}

// HasPrev reports whether an earlier page exists.
func (w Window) HasPrev() bool {
	return w.Page() > 1
}

// GoTo returns the window moved to page, clamped to [1, TotalPages].
func (w Window) GoTo(page int) Window {
	page = max(1, min(page, w.TotalPages()))
	w.First = (page - 1) * w.Rows
	return w
}

// Next returns the window one page on, or w on the last page.
func (w Window) Next() Window { return w.GoTo(w.Page() + 1) }

// Prev returns the window one page back, or w on the first page.
func (w Window) Prev() Window { return w.GoTo(w.Page() - 1) }

// FirstPage returns the window on page 1.
func (w Window) FirstPage() Window { return w.GoTo(1) }

// LastPage returns the window on the final page.
func (w Window) LastPage() Window { return w.GoTo(w.TotalPages()) }

// WithRows changes the page size and returns to page 1.
func (w Window) WithRows(rows int) Window {
	if rows < 1 {
		rows = DefaultRows
	}
	return Window{First: 0, Rows: rows, Total: w.Total}
}

// NextRowsOption returns the page size after rows in RowsOptions, wrapping
// around. Sizes outside the list map to the first option.
func NextRowsOption(rows int) int {
	i := slices.Index(RowsOptions, rows)
	return RowsOptions[(i+1)%len(RowsOptions)]
}
