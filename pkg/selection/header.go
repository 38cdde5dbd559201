package selection

// HeaderState is the tristate shown by a page-level "select all" checkbox.
type HeaderState int

const (
	// HeaderNone means no visible row is selected.
	HeaderNone HeaderState = iota

	// HeaderSome means at least one, but not every, visible row is selected.
	HeaderSome

	// HeaderAll means every visible row is selected. Never reported for an
	// empty page.
	HeaderAll
)

// String returns the checkbox glyph for the state.
func (h HeaderState) String() string {
	switch h {
	case HeaderAll:
		return "[x]"
	case HeaderSome:
		return "[-]"
	default:
		return "[ ]"
	}
}

// PageState derives the header tristate for the rows visible on page.
// It holds no state of its own.
func (s *Store) PageState(page int, ids []int) HeaderState {
	if len(ids) == 0 {
		return HeaderNone
	}

	selected := 0
	for _, id := range ids {
		if s.GetSelection(page, id) {
			selected++
		}
	}

	switch selected {
	case 0:
		return HeaderNone
	case len(ids):
		return HeaderAll
	default:
		return HeaderSome
	}
}
