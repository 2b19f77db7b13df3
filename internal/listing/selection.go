package listing

import (
	"sort"

	"cleantech-console/internal/domain"
)

// CheckboxState is the tri-state of the "select all on this page" checkbox.
type CheckboxState int

const (
	Unchecked CheckboxState = iota
	Indeterminate
	Checked
)

func (s CheckboxState) String() string {
	switch s {
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

func (s CheckboxState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Selection holds one page of entities plus the selection and collapsed sets.
// The selection set is independent of the page: ids chosen on page 1 stay
// selected while page 2 is displayed.
type Selection[T domain.Entity] struct {
	page      []T
	onPage    map[int]struct{}
	selected  map[int]struct{}
	collapsed map[int]struct{}
}

func NewSelection[T domain.Entity]() *Selection[T] {
	return &Selection[T]{
		onPage:    map[int]struct{}{},
		selected:  map[int]struct{}{},
		collapsed: map[int]struct{}{},
	}
}

// SetPage replaces the displayed page. Every row starts collapsed.
func (s *Selection[T]) SetPage(items []T) {
	s.page = append(make([]T, 0, len(items)), items...)
	s.onPage = make(map[int]struct{}, len(items))
	s.collapsed = make(map[int]struct{}, len(items))
	for _, it := range items {
		id := it.EntityID()
		s.onPage[id] = struct{}{}
		s.collapsed[id] = struct{}{}
	}
}

// Page returns a copy of the displayed rows.
func (s *Selection[T]) Page() []T {
	return append(make([]T, 0, len(s.page)), s.page...)
}

// PageIDs returns the ids of the displayed rows in display order.
func (s *Selection[T]) PageIDs() []int {
	return domain.IDs(s.page)
}

// ToggleSelect adds or removes id. Selecting an id that is not on the
// current page is a no-op; deselecting always succeeds.
func (s *Selection[T]) ToggleSelect(id int, selected bool) {
	if selected {
		if _, ok := s.onPage[id]; ok {
			s.selected[id] = struct{}{}
		}
		return
	}
	delete(s.selected, id)
}

// SelectAll adds every visible id, or removes exactly the visible ids.
// Ids from other pages are never touched.
func (s *Selection[T]) SelectAll(selected bool) {
	for id := range s.onPage {
		if selected {
			s.selected[id] = struct{}{}
		} else {
			delete(s.selected, id)
		}
	}
}

func (s *Selection[T]) IsSelected(id int) bool {
	_, ok := s.selected[id]
	return ok
}

func (s *Selection[T]) IsCollapsed(id int) bool {
	_, ok := s.collapsed[id]
	return ok
}

// ToggleCollapse flips the expanded state of a row on the current page.
func (s *Selection[T]) ToggleCollapse(id int) {
	if _, ok := s.onPage[id]; !ok {
		return
	}
	if _, ok := s.collapsed[id]; ok {
		delete(s.collapsed, id)
		return
	}
	s.collapsed[id] = struct{}{}
}

// Checkbox derives the tri-state "select all" value for the current page.
func (s *Selection[T]) Checkbox() CheckboxState {
	if len(s.onPage) == 0 {
		return Unchecked
	}
	n := 0
	for id := range s.onPage {
		if _, ok := s.selected[id]; ok {
			n++
		}
	}
	switch {
	case n == 0:
		return Unchecked
	case n == len(s.onPage):
		return Checked
	default:
		return Indeterminate
	}
}

// Remove forgets id everywhere so no set references a row that is gone.
func (s *Selection[T]) Remove(id int) {
	delete(s.selected, id)
	delete(s.collapsed, id)
	if _, ok := s.onPage[id]; !ok {
		return
	}
	delete(s.onPage, id)
	kept := s.page[:0]
	for _, it := range s.page {
		if it.EntityID() != id {
			kept = append(kept, it)
		}
	}
	s.page = kept
}

func (s *Selection[T]) ClearSelection() {
	s.selected = map[int]struct{}{}
}

// SelectedIDs returns the selection set sorted ascending.
func (s *Selection[T]) SelectedIDs() []int {
	return sortedKeys(s.selected)
}

// CollapsedIDs returns the collapsed set sorted ascending.
func (s *Selection[T]) CollapsedIDs() []int {
	return sortedKeys(s.collapsed)
}

// RestoreSelected replaces the selection set, e.g. from a persisted snapshot.
func (s *Selection[T]) RestoreSelected(ids []int) {
	s.selected = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s.selected[id] = struct{}{}
	}
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
