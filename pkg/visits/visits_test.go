package visits

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := m.Hit(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := m.Hit(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = m.Hit(ctx, "")
	assert.Error(t, err)
}

func TestMemoryCounterExpires(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = m.Hit(ctx, "a")
	_, _ = m.Hit(ctx, "a")
	now = now.Add(2 * time.Minute)

	n, err := m.Hit(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounterDropsExpiredSessions(t *testing.T) {
	m := NewMemory(time.Hour)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		_, err := m.Hit(ctx, fmt.Sprintf("session-%d", i))
		require.NoError(t, err)
	}
	require.Len(t, m.entries, 500)

	now = now.Add(30 * time.Minute)
	_, err := m.Hit(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, m.entries, 501, "live sessions survive a sweep")

	now = now.Add(24 * time.Hour)
	n, err := m.Hit(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, m.entries, 1)
}

func TestRedisCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := NewRedis(client, "", SessionTTL)
	ctx := context.Background()

	n, err := c.Hit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Hit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.True(t, mr.Exists("catalog:visits:s1"))
	assert.Equal(t, SessionTTL, mr.TTL("catalog:visits:s1"))

	mr.FastForward(SessionTTL + time.Second)
	n, err = c.Hit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisCounterFailsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedis(client, "test", SessionTTL)
	mr.Close()

	_, err := c.Hit(context.Background(), "s1")
	assert.Error(t, err)
}

type failingCounter struct{ calls int }

func (f *failingCounter) Hit(context.Context, string) (int64, error) {
	f.calls++
	return 0, errors.New("connection refused")
}

func TestBreakerOpensAfterTooManyFailures(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(2, 10*time.Second, time.Minute)
	b.now = func() time.Time { return now }
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(0, 10*time.Second, time.Minute)
	b.now = func() time.Time { return now }
	boom := errors.New("boom")

	_ = b.Do(func() error { return boom })
	require.Equal(t, StateOpen, b.State())

	now = now.Add(10 * time.Second)
	_ = b.Do(func() error { return boom })
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrBreakerOpen)
}

func TestBreakerForgetsOldFailures(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(1, 10*time.Second, time.Minute)
	b.now = func() time.Time { return now }
	boom := errors.New("boom")

	_ = b.Do(func() error { return boom })
	now = now.Add(2 * time.Minute)
	_ = b.Do(func() error { return boom })
	assert.Equal(t, StateClosed, b.State())
}

func TestGuardedFallsBack(t *testing.T) {
	primary := &failingCounter{}
	fallback := NewMemory(time.Hour)
	g := NewGuarded(primary, fallback, NewBreaker(1, time.Minute, time.Minute))
	ctx := context.Background()

	for want := int64(1); want <= 4; want++ {
		n, err := g.Hit(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	// two failures trip the breaker; later hits skip the primary
	assert.Equal(t, 2, primary.calls)
}

func TestGuardedUsesPrimary(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	fallback := NewMemory(time.Hour)
	g := NewGuarded(NewRedis(client, "", SessionTTL), fallback, NewBreaker(3, time.Minute, time.Minute))

	n, err := g.Hit(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, fallback.entries)
}
