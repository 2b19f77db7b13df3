package listing

import (
	"context"
	"net/url"
	"sync"

	"cleantech-console/internal/domain"

	"go.uber.org/zap"
)

// FetchFunc lists one page. deleted selects the soft-deleted (trash) listing.
type FetchFunc[T domain.Entity] func(ctx context.Context, params url.Values, deleted bool) (domain.Page[T], error)

// Lister is the type-erased view of a Screen used by the service layer.
type Lister interface {
	Name() string
	Loaded() bool
	Load(ctx context.Context) error
	Search(ctx context.Context, term string) error
	GoToPage(ctx context.Context, page int) error
	ResizePage(ctx context.Context, size int) error
	ApplyFilters(ctx context.Context, f Filters) error
	SetTrash(ctx context.Context, on bool) error
	Trash() bool
	ToggleSelect(id int, selected bool)
	SelectAll(selected bool)
	ToggleCollapse(id int)
	Forget(ids ...int)
	SelectedIDs() []int
	Query() url.Values
	Snapshot() State
	RestoreState(st State)
	Render() any
}

// State is the persisted part of a screen. The page contents are not kept;
// they are refetched.
type State struct {
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	Search   string  `json:"search,omitempty"`
	Filters  Filters `json:"filters,omitempty"`
	Trash    bool    `json:"trash,omitempty"`
	Selected []int   `json:"selected,omitempty"`
}

// Row is one rendered entity with its UI flags.
type Row[T any] struct {
	Item      T    `json:"item"`
	Selected  bool `json:"selected"`
	Collapsed bool `json:"collapsed"`
}

// View is the whole screen as the browser renders it.
type View[T any] struct {
	Screen      string        `json:"screen"`
	Items       []Row[T]      `json:"items"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalCount  int           `json:"totalCount"`
	PageSize    int           `json:"pageSize"`
	Search      string        `json:"search"`
	Filters     Filters       `json:"filters"`
	Trash       bool          `json:"trash"`
	SelectedIDs []int         `json:"selectedIds"`
	SelectAll   CheckboxState `json:"selectAll"`
	Loading     bool          `json:"loading"`
	Error       string        `json:"error,omitempty"`
}

// Screen composes a Pager and a Selection around a fetch function. Loads are
// stamped with a generation; a response that arrives after a newer load was
// started is dropped so a slow early fetch cannot overwrite a later one.
type Screen[T domain.Entity] struct {
	name   string
	fetch  FetchFunc[T]
	logger *zap.Logger

	mu      sync.Mutex
	pager   *Pager
	sel     *Selection[T]
	trash   bool
	gen     uint64
	loading bool
	loaded  bool
	lastErr string
}

func NewScreen[T domain.Entity](name string, fetch FetchFunc[T], pageSize int, logger *zap.Logger) *Screen[T] {
	return &Screen[T]{
		name:   name,
		fetch:  fetch,
		logger: logger,
		pager:  NewPager(pageSize),
		sel:    NewSelection[T](),
	}
}

func (s *Screen[T]) Name() string { return s.name }

func (s *Screen[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Load fetches the current page. On failure the screen falls back to the
// explicit empty state and the error is returned.
func (s *Screen[T]) Load(ctx context.Context) error {
	// A second pass happens only when the backend reports fewer pages than
	// the one requested, e.g. after the last row of the last page was deleted.
	for attempt := 0; attempt < 2; attempt++ {
		s.mu.Lock()
		s.gen++
		gen := s.gen
		params := s.pager.Params()
		trash := s.trash
		s.loading = true
		s.mu.Unlock()

		page, err := s.fetch(ctx, params, trash)

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			s.logger.Debug("discarding superseded page",
				zap.String("screen", s.name),
				zap.Uint64("generation", gen),
			)
			return nil
		}
		s.loading = false
		s.loaded = true
		if err != nil {
			s.sel.SetPage(nil)
			s.pager.Reset()
			s.lastErr = err.Error()
			s.mu.Unlock()
			s.logger.Warn("list fetch failed",
				zap.String("screen", s.name),
				zap.String("params", params.Encode()),
				zap.Error(err),
			)
			return err
		}
		s.lastErr = ""
		clamped := s.pager.Observe(page.TotalPages, page.TotalCount)
		if attempt == 0 && clamped && len(page.Data) == 0 && page.TotalCount > 0 {
			s.mu.Unlock()
			continue
		}
		s.sel.SetPage(page.Data)
		s.mu.Unlock()
		return nil
	}
	return nil
}

func (s *Screen[T]) Search(ctx context.Context, term string) error {
	s.mu.Lock()
	s.pager.SetSearch(term)
	s.sel.ClearSelection()
	s.mu.Unlock()
	return s.Load(ctx)
}

func (s *Screen[T]) GoToPage(ctx context.Context, page int) error {
	s.mu.Lock()
	err := s.pager.SetPage(page)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Load(ctx)
}

func (s *Screen[T]) ResizePage(ctx context.Context, size int) error {
	s.mu.Lock()
	err := s.pager.SetPageSize(size)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Load(ctx)
}

func (s *Screen[T]) ApplyFilters(ctx context.Context, f Filters) error {
	s.mu.Lock()
	s.pager.ApplyFilters(f)
	s.sel.ClearSelection()
	s.mu.Unlock()
	return s.Load(ctx)
}

// SetTrash switches between the active and the soft-deleted listing.
func (s *Screen[T]) SetTrash(ctx context.Context, on bool) error {
	s.mu.Lock()
	if s.trash == on && s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.trash = on
	s.pager.Reset()
	s.sel.ClearSelection()
	s.mu.Unlock()
	return s.Load(ctx)
}

func (s *Screen[T]) Trash() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trash
}

func (s *Screen[T]) ToggleSelect(id int, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.ToggleSelect(id, selected)
}

func (s *Screen[T]) SelectAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SelectAll(selected)
}

func (s *Screen[T]) ToggleCollapse(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.ToggleCollapse(id)
}

// Forget removes ids from the page, the selection and the collapsed set.
func (s *Screen[T]) Forget(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.sel.Remove(id)
	}
}

func (s *Screen[T]) SelectedIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.SelectedIDs()
}

func (s *Screen[T]) Query() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pager.Query()
}

// Items returns the rows of the current page.
func (s *Screen[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Page()
}

func (s *Screen[T]) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Page:     s.pager.Page(),
		PageSize: s.pager.PageSize(),
		Search:   s.pager.Search(),
		Filters:  s.pager.Filters(),
		Trash:    s.trash,
		Selected: s.sel.SelectedIDs(),
	}
}

// RestoreState reinstates persisted state. The screen must be loaded afterwards.
func (s *Screen[T]) RestoreState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Restore(st.Page, st.PageSize, st.Search, st.Filters)
	s.trash = st.Trash
	s.sel.RestoreSelected(st.Selected)
	s.loaded = false
}

func (s *Screen[T]) View() View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.sel.Page()
	rows := make([]Row[T], 0, len(items))
	for _, it := range items {
		id := it.EntityID()
		rows = append(rows, Row[T]{Item: it, Selected: s.sel.IsSelected(id), Collapsed: s.sel.IsCollapsed(id)})
	}
	return View[T]{
		Screen:      s.name,
		Items:       rows,
		CurrentPage: s.pager.Page(),
		TotalPages:  s.pager.TotalPages(),
		TotalCount:  s.pager.TotalCount(),
		PageSize:    s.pager.PageSize(),
		Search:      s.pager.Search(),
		Filters:     s.pager.Filters(),
		Trash:       s.trash,
		SelectedIDs: s.sel.SelectedIDs(),
		SelectAll:   s.sel.Checkbox(),
		Loading:     s.loading,
		Error:       s.lastErr,
	}
}

func (s *Screen[T]) Render() any { return s.View() }
