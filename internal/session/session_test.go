package session

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brokenweave/internal/model"
)

func newManager(t *testing.T) (*Manager, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Now().Truncate(time.Second)
	clock := func() time.Time { return now }

	store := NewStore(rdb)
	store.now = clock
	m := NewManager(store, "test-secret", time.Hour, 10*time.Minute)
	m.now = clock
	return m, mr, &now
}

func TestManager_StartAndResolve(t *testing.T) {
	m, mr, _ := newManager(t)
	ctx := context.Background()

	sess, token, err := m.Start(ctx, &model.User{ID: 7, Username: "asha", Email: "asha@example.org", IsAdmin: true})
	require.NoError(t, err)
	assert.False(t, sess.Guest)
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.ID))

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, int64(7), *got.UserID)
	assert.True(t, got.IsAdmin)
}

func TestManager_Guest(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	sess, token, err := m.StartGuest(ctx)
	require.NoError(t, err)
	assert.True(t, sess.Guest)
	assert.Nil(t, sess.UserID)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, got.Guest)
	assert.False(t, got.IsAdmin)
}

func TestManager_Expiry(t *testing.T) {
	m, _, now := newManager(t)
	ctx := context.Background()

	_, token, err := m.StartGuest(ctx)
	require.NoError(t, err)

	*now = now.Add(11 * time.Minute)
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestManager_End(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	sess, token, err := m.Start(ctx, &model.User{ID: 1, Username: "u"})
	require.NoError(t, err)
	require.NoError(t, m.End(ctx, sess.ID))

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RejectsForeignToken(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	_, token, err := m.StartGuest(ctx)
	require.NoError(t, err)

	other := NewManager(m.store, "another-secret", time.Hour, time.Hour)
	other.now = m.now
	_, err = other.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_SessionIDOfExpiredToken(t *testing.T) {
	m, _, now := newManager(t)
	ctx := context.Background()
	sess, token, err := m.StartGuest(ctx)
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	_, err = m.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, sess.ID, m.SessionID(token))

	other := NewManager(m.store, "another-secret", time.Hour, time.Hour)
	assert.Equal(t, "", other.SessionID(token))
	assert.Equal(t, "", m.SessionID("not-a-token"))
}

func TestTracker_SweepEndsExpiredSessions(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	now := time.Now()
	tr.now = func() time.Time { return now }

	var ended []string
	tr.OnEnd(func(id string) { ended = append(ended, id) })

	tr.Touch(&Session{ID: "old", ExpiresAt: now.Add(time.Minute)})
	tr.Touch(&Session{ID: "new", ExpiresAt: now.Add(time.Hour)})
	assert.Equal(t, 0, tr.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, tr.Sweep())
	assert.Equal(t, []string{"old"}, ended)
	assert.Equal(t, 1, tr.Len())

	tr.End("new")
	assert.Equal(t, []string{"old", "new"}, ended)
	assert.Equal(t, 0, tr.Len())
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", ExtractToken(r))

	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", ExtractToken(r))
}
