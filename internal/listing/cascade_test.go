package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"cleantech-console/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type loadCall struct {
	Level    Level
	ParentID int
}

type fakeLoader struct {
	mu    sync.Mutex
	calls []loadCall
	gates map[int]chan struct{}
	fail  map[Level]error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{gates: map[int]chan struct{}{}, fail: map[Level]error{}}
}

func (f *fakeLoader) LoadOptions(ctx context.Context, level Level, parentID int) ([]domain.LocationOption, error) {
	f.mu.Lock()
	f.calls = append(f.calls, loadCall{Level: level, ParentID: parentID})
	gate := f.gates[parentID]
	err := f.fail[level]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []domain.LocationOption{
		{ID: parentID*10 + 1, Name: fmt.Sprintf("%s of %d", level, parentID)},
		{ID: parentID*10 + 2, Name: fmt.Sprintf("%s of %d", level, parentID)},
	}, nil
}

func (f *fakeLoader) Calls() []loadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]loadCall(nil), f.calls...)
}

func TestLevel(t *testing.T) {
	next, ok := LevelArea.Next()
	assert.True(t, ok)
	assert.Equal(t, LevelCity, next)

	_, ok = LevelFloor.Next()
	assert.False(t, ok)

	l, err := ParseLevel("Organization")
	require.NoError(t, err)
	assert.Equal(t, LevelOrganization, l)
	assert.Equal(t, "OrganizationId", l.FilterKey())

	_, err = ParseLevel("section")
	assert.Error(t, err)
}

func TestCascade_SelectLoadsNextLevelAndClearsBelow(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	c := NewCascade(loader, zap.NewNop())

	require.NoError(t, c.LoadRoots(ctx))
	assert.Len(t, c.Options(LevelArea), 2)

	require.NoError(t, c.Select(ctx, LevelArea, 5))
	require.NoError(t, c.Select(ctx, LevelCity, 12))
	assert.Equal(t, 12, c.Options(LevelOrganization)[0].ID/10)
	require.NoError(t, c.Select(ctx, LevelOrganization, 121))
	assert.NotEmpty(t, c.Options(LevelBuilding))

	require.NoError(t, c.Select(ctx, LevelArea, 7))
	assert.Equal(t, 7, c.Selected(LevelArea))
	assert.Zero(t, c.Selected(LevelCity))
	assert.Zero(t, c.Selected(LevelOrganization))
	assert.Empty(t, c.Options(LevelOrganization))
	assert.Empty(t, c.Options(LevelBuilding))
	assert.Equal(t, 71, c.Options(LevelCity)[0].ID)

	assert.Equal(t, []loadCall{
		{LevelArea, 0},
		{LevelCity, 5},
		{LevelOrganization, 12},
		{LevelBuilding, 121},
		{LevelCity, 7},
	}, loader.Calls())

	assert.Equal(t, Filters{"AreaId": 7}, c.Filter())
}

func TestCascade_FloorLoadsNothing(t *testing.T) {
	loader := newFakeLoader()
	c := NewCascade(loader, zap.NewNop())

	require.NoError(t, c.Select(context.Background(), LevelFloor, 3))
	assert.Empty(t, loader.Calls())
	assert.Equal(t, Filters{"FloorId": 3}, c.Filter())
}

func TestCascade_ClearDropsLevelAndBelow(t *testing.T) {
	ctx := context.Background()
	c := NewCascade(newFakeLoader(), zap.NewNop())
	require.NoError(t, c.Select(ctx, LevelArea, 1))
	require.NoError(t, c.Select(ctx, LevelCity, 11))
	require.NoError(t, c.Select(ctx, LevelOrganization, 111))

	c.Clear(LevelCity)
	assert.Equal(t, Filters{"AreaId": 1}, c.Filter())
	assert.NotEmpty(t, c.Options(LevelCity), "options of the cleared level stay pickable")
	assert.Empty(t, c.Options(LevelOrganization))

	require.NoError(t, c.Select(ctx, LevelArea, 0))
	assert.Empty(t, c.Filter())
}

func TestCascade_LoadErrorFlag(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	loader.fail[LevelCity] = errors.New("boom")
	c := NewCascade(loader, zap.NewNop())

	err := c.Select(ctx, LevelArea, 5)
	require.Error(t, err)
	assert.True(t, c.LoadError())
	assert.False(t, c.Loading(LevelCity))
	assert.Empty(t, c.Options(LevelCity))

	delete(loader.fail, LevelCity)
	require.NoError(t, c.Select(ctx, LevelArea, 5))
	assert.False(t, c.LoadError())
	assert.Len(t, c.Options(LevelCity), 2)
}

func TestCascade_SupersededLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	gate := make(chan struct{})
	loader.gates[5] = gate
	c := NewCascade(loader, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- c.Select(ctx, LevelArea, 5) }()

	require.Eventually(t, func() bool { return len(loader.Calls()) == 1 }, timeout, tick)
	require.NoError(t, c.Select(ctx, LevelArea, 7))

	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, 7, c.Selected(LevelArea))
	opts := c.Options(LevelCity)
	require.Len(t, opts, 2)
	assert.Equal(t, 71, opts[0].ID)
	assert.False(t, c.Loading(LevelCity))
}

func TestCascade_ResetAndView(t *testing.T) {
	ctx := context.Background()
	c := NewCascade(newFakeLoader(), zap.NewNop())
	require.NoError(t, c.LoadRoots(ctx))
	require.NoError(t, c.Select(ctx, LevelArea, 2))

	v := c.View()
	require.Len(t, v.Levels, len(Levels))
	assert.Equal(t, LevelArea, v.Levels[0].Level)
	assert.Equal(t, 2, v.Levels[0].Selected)
	assert.Len(t, v.Levels[1].Options, 2)

	c.Reset()
	assert.Empty(t, c.Filter())
	assert.Empty(t, c.Options(LevelArea))
}
