package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cleantech-console/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeBackend pages an in-memory table the way the list endpoints do.
type fakeBackend struct {
	mu      sync.Mutex
	rows    []row
	deleted []row
	err     error
	gate    chan struct{}
	calls   []url.Values
}

func newFakeBackend(n int) *fakeBackend {
	b := &fakeBackend{}
	for i := 1; i <= n; i++ {
		b.rows = append(b.rows, row{ID: i, Name: fmt.Sprintf("room %d", i)})
	}
	return b
}

func (b *fakeBackend) fetch(ctx context.Context, params url.Values, deleted bool) (domain.Page[row], error) {
	b.mu.Lock()
	b.calls = append(b.calls, params)
	gate := b.gate
	b.gate = nil
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return domain.Page[row]{}, b.err
	}
	src := b.rows
	if deleted {
		src = b.deleted
	}
	var matched []row
	for _, r := range src {
		if strings.Contains(r.Name, params.Get("Search")) {
			matched = append(matched, r)
		}
	}
	number, _ := strconv.Atoi(params.Get("PageNumber"))
	size, _ := strconv.Atoi(params.Get("PageSize"))
	pages := (len(matched) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	start := (number - 1) * size
	end := start + size
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return domain.Page[row]{
		CurrentPage:     number,
		TotalPages:      pages,
		TotalCount:      len(matched),
		PageSize:        size,
		HasPreviousPage: number > 1,
		HasNextPage:     number < pages,
		Data:            append([]row{}, matched[start:end]...),
	}, nil
}

func (b *fakeBackend) remove(ids ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	drop := map[int]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := b.rows[:0]
	for _, r := range b.rows {
		if drop[r.ID] {
			b.deleted = append(b.deleted, r)
			continue
		}
		kept = append(kept, r)
	}
	b.rows = kept
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func newTestScreen(b *fakeBackend, size int) *Screen[row] {
	return NewScreen[row]("rooms", b.fetch, size, zap.NewNop())
}

func TestScreen_SelectionAcrossPagesThenSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestScreen(newFakeBackend(20), 8)
	require.NoError(t, s.Load(ctx))

	v := s.View()
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 20, v.TotalCount)
	require.Len(t, v.Items, 8)

	s.SelectAll(true)
	assert.Len(t, s.SelectedIDs(), 8)
	assert.Equal(t, Checked, s.View().SelectAll)

	require.NoError(t, s.GoToPage(ctx, 2))
	assert.Equal(t, Unchecked, s.View().SelectAll)
	s.ToggleSelect(9, true)
	s.ToggleSelect(10, true)
	assert.Len(t, s.SelectedIDs(), 10)
	assert.Equal(t, Indeterminate, s.View().SelectAll)

	require.NoError(t, s.Search(ctx, "room 1"))
	v = s.View()
	assert.Empty(t, v.SelectedIDs)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, "room 1", v.Search)
	assert.Equal(t, 11, v.TotalCount)
}

func TestScreen_PageSizeKeepsSelection(t *testing.T) {
	ctx := context.Background()
	s := newTestScreen(newFakeBackend(20), 8)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.GoToPage(ctx, 2))
	s.ToggleSelect(9, true)

	require.NoError(t, s.ResizePage(ctx, 5))
	v := s.View()
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 4, v.TotalPages)
	assert.Equal(t, []int{9}, v.SelectedIDs)
}

func TestScreen_FiltersClearSelection(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))
	s.ToggleSelect(3, true)

	require.NoError(t, s.ApplyFilters(ctx, Filters{"AreaId": 5, "CityId": 0}))
	assert.Empty(t, s.SelectedIDs())

	last := b.calls[len(b.calls)-1]
	assert.Equal(t, "5", last.Get("AreaId"))
	assert.False(t, last.Has("CityId"))
	assert.Equal(t, "1", last.Get("PageNumber"))
}

func TestScreen_GoToPageOutOfRange(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))

	err := s.GoToPage(ctx, 4)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Equal(t, 1, b.callCount())
	assert.ErrorIs(t, s.ResizePage(ctx, 0), ErrInvalidPageSize)
}

func TestScreen_DeleteSelectedRow(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))
	s.ToggleSelect(4, true)
	s.ToggleSelect(5, true)

	b.remove(4)
	s.Forget(4)
	assert.Equal(t, []int{5}, s.SelectedIDs())

	require.NoError(t, s.Load(ctx))
	v := s.View()
	assert.Equal(t, 19, v.TotalCount)
	for _, r := range v.Items {
		assert.NotEqual(t, 4, r.Item.ID)
	}
	assert.Equal(t, []int{5}, v.SelectedIDs)
}

func TestScreen_EmptiedLastPageMovesBack(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.GoToPage(ctx, 3))
	require.Len(t, s.Items(), 4)

	b.remove(17, 18, 19, 20)
	s.Forget(17, 18, 19, 20)
	require.NoError(t, s.Load(ctx))

	v := s.View()
	assert.Equal(t, 2, v.CurrentPage)
	assert.Equal(t, 2, v.TotalPages)
	require.Len(t, v.Items, 8)
	assert.Equal(t, 9, v.Items[0].Item.ID)
}

func TestScreen_FailureResetsToEmptyState(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.GoToPage(ctx, 2))

	b.err = errors.New("connection refused")
	err := s.Load(ctx)
	require.Error(t, err)

	v := s.View()
	assert.Empty(t, v.Items)
	assert.Equal(t, 0, v.TotalCount)
	assert.Equal(t, 1, v.TotalPages)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, "connection refused", v.Error)
	assert.False(t, v.Loading)

	b.err = nil
	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.View().Error)
}

func TestScreen_SupersededLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))

	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Search(ctx, "room 2") }()
	require.Eventually(t, func() bool { return b.callCount() == 2 }, timeout, tick)

	require.NoError(t, s.Search(ctx, "room 1"))
	close(gate)
	require.NoError(t, <-done)

	v := s.View()
	assert.Equal(t, 11, v.TotalCount, "the earlier search must not overwrite the later one")
	assert.Equal(t, 1, v.Items[0].Item.ID)
}

func TestScreen_TrashMode(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))
	s.ToggleSelect(2, true)
	b.remove(1, 2)

	require.NoError(t, s.SetTrash(ctx, true))
	v := s.View()
	assert.True(t, v.Trash)
	assert.Empty(t, v.SelectedIDs)
	assert.Equal(t, 2, v.TotalCount)

	calls := b.callCount()
	require.NoError(t, s.SetTrash(ctx, true))
	assert.Equal(t, calls, b.callCount(), "switching to the current mode does nothing")

	require.NoError(t, s.SetTrash(ctx, false))
	assert.Equal(t, 18, s.View().TotalCount)
}

func TestScreen_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(20)
	s := newTestScreen(b, 8)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Search(ctx, "room"))
	require.NoError(t, s.GoToPage(ctx, 2))
	s.ToggleSelect(10, true)

	st := s.Snapshot()
	assert.Equal(t, State{Page: 2, PageSize: 8, Search: "room", Filters: Filters{}, Selected: []int{10}}, st)

	restored := newTestScreen(b, 8)
	restored.RestoreState(st)
	assert.False(t, restored.Loaded())
	require.NoError(t, restored.Load(ctx))

	v := restored.View()
	assert.Equal(t, 2, v.CurrentPage)
	assert.Equal(t, []int{10}, v.SelectedIDs)
	assert.True(t, v.Items[1].Selected)
	assert.True(t, v.Items[1].Collapsed)
}
