package store

import (
	"context"
	"testing"
	"time"

	"cleantech-console/internal/listing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, NewRedisKV(c)
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	mr, kv := newRedisKV(t)

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "console:state:s1:devices", "a", time.Minute))
	require.NoError(t, kv.Set(ctx, "console:state:s1:areas", "b", 0))
	require.NoError(t, kv.Set(ctx, "console:state:s2:areas", "c", 0))

	v, err := kv.Get(ctx, "console:state:s1:devices")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	keys, err := kv.ScanKeys(ctx, "console:state:s1:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"console:state:s1:devices", "console:state:s1:areas"}, keys)

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "console:state:s1:devices")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Del(ctx, "console:state:s1:areas", "console:state:s2:areas"))
	require.NoError(t, kv.Del(ctx))
	assert.False(t, mr.Exists("console:state:s2:areas"))
}

func TestMemoryKV_TTL(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, kv.Set(ctx, "b", "2", 0))

	keys, err := kv.ScanKeys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	now = now.Add(2 * time.Minute)
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	v, err := kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, kv.Del(ctx, "b"))
	_, err = kv.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	_, kv := newRedisKV(t)
	st := NewStateStore(kv, time.Hour)

	_, err := st.Load(ctx, "s1", "devices")
	assert.True(t, IsMiss(err))

	want := listing.State{
		Page:     2,
		PageSize: 20,
		Search:   "lobby",
		Filters:  listing.Filters{"AreaId": float64(5)},
		Trash:    true,
		Selected: []int{3, 9},
	}
	require.NoError(t, st.Save(ctx, "s1", "devices", want))
	require.NoError(t, st.Save(ctx, "s1", "areas", listing.State{Page: 1, PageSize: 10}))
	require.NoError(t, st.Save(ctx, "s2", "areas", listing.State{Page: 1, PageSize: 10}))

	got, err := st.Load(ctx, "s1", "devices")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	screens, err := st.Screens(ctx, "s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"devices", "areas"}, screens)

	require.NoError(t, st.Drop(ctx, "s1"))
	screens, err = st.Screens(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, screens)

	screens, err = st.Screens(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"areas"}, screens)
}
