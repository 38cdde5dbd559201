// Package selection tracks which catalog rows a user has marked, keyed by the
// page they were marked on so the marks survive page navigation.
package selection

// Store holds per-row selection flags keyed by page number and row id.
//
// The zero value is not usable; create one with NewStore. A Store is owned by
// a single table session and is not safe for concurrent use.
type Store struct {
	pages map[int]map[int]bool
	count int
}

// NewStore creates an empty selection store.
func NewStore() *Store {
	return &Store{pages: make(map[int]map[int]bool)}
}

// SetSelection records selected for the (page, id) pair, creating the page
// bucket if needed. Repeating the same value leaves the count unchanged.
func (s *Store) SetSelection(page, id int, selected bool) {
	bucket, ok := s.pages[page]
	if !ok {
		bucket = make(map[int]bool)
		s.pages[page] = bucket
	}

	prev := bucket[id]
	bucket[id] = selected

	switch {
	case selected && !prev:
		s.count++
	case !selected && prev:
		s.count--
	}
}

// GetSelection returns the stored value for the pair, or false if it was
// never set.
func (s *Store) GetSelection(page, id int) bool {
	return s.pages[page][id]
}

// GetSelectedCount returns the number of pairs whose latest value is true.
func (s *Store) GetSelectedCount() int {
	return s.count
}

// GetAllSelectedIDs returns every selected row id across all pages in no
// particular order. An id selected on two pages appears twice.
func (s *Store) GetAllSelectedIDs() []int {
	ids := make([]int, 0, s.count)
	for _, bucket := range s.pages {
		for id, selected := range bucket {
			if selected {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// ClearSelections drops every recorded pair.
func (s *Store) ClearSelections() {
	s.pages = make(map[int]map[int]bool)
	s.count = 0
}

// SetPageSelection applies selected to every id on one page. Only that page's
// bucket is touched.
func (s *Store) SetPageSelection(page int, ids []int, selected bool) {
	for _, id := range ids {
		s.SetSelection(page, id, selected)
	}
}

// PageSelectedCount returns the number of selected rows recorded for page.
func (s *Store) PageSelectedCount(page int) int {
	n := 0
	for _, selected := range s.pages[page] {
		if selected {
			n++
		}
	}
	return n
}
