package session

import (
	"context"
	"testing"
	"time"

	"cleantech-console/internal/domain"
	"cleantech-console/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	st := NewStore(store.NewMemoryKV(), time.Hour)

	sess, err := st.Create(ctx, 7, "sara", domain.RoleAdmin, "jwt")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.IsAdmin())

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, "jwt", got.Token)

	require.NoError(t, st.Delete(ctx, sess.ID))
	_, err = st.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_GetUnknown(t *testing.T) {
	st := NewStore(store.NewMemoryKV(), time.Hour)
	_, err := st.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = st.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{ID: "s1", Role: domain.RoleCleaner})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
	assert.False(t, s.IsAdmin())
}
