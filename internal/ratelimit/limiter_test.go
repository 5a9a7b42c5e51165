package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengahacks/backend/config"
)

type fakeStore struct {
	counts map[string]int
	starts map[string]time.Time
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int{}, starts: map[string]time.Time{}}
}

func (f *fakeStore) Increment(_ context.Context, scope, key string, _ time.Duration) (int, time.Time, error) {
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	k := scope + ":" + key
	f.counts[k]++
	start, ok := f.starts[k]
	if !ok {
		start = time.Now()
		f.starts[k] = start
	}
	return f.counts[k], start, nil
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{EmailMaxAttempts: 3, IPMaxAttempts: 10, WindowMinutes: 60}
}

func TestLimiterAllowsUnderCeiling(t *testing.T) {
	store := newFakeStore()
	l := NewLimiter(store, testConfig(), nil)

	for i := 0; i < 3; i++ {
		d, err := l.Check(context.Background(), "jane@example.com", "203.0.113.9")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.Equal(t, 3, store.counts["email:jane@example.com"])
	assert.Equal(t, 3, store.counts["ip:203.0.113.9"])
}

func TestLimiterBlocksEmailOverCeiling(t *testing.T) {
	store := newFakeStore()
	l := NewLimiter(store, testConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := l.Check(context.Background(), "jane@example.com", "203.0.113.9")
		require.NoError(t, err)
	}
	d, err := l.Check(context.Background(), "jane@example.com", "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ScopeEmail, d.Scope)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	// the blocked attempt must not consume IP budget
	assert.Equal(t, 3, store.counts["ip:203.0.113.9"])
}

func TestLimiterBlocksIPOverCeiling(t *testing.T) {
	store := newFakeStore()
	l := NewLimiter(store, testConfig(), nil)

	// distinct emails, one IP
	for i := 0; i < 10; i++ {
		d, err := l.Check(context.Background(), string(rune('a'+i))+"@example.com", "203.0.113.9")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := l.Check(context.Background(), "k@example.com", "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ScopeIP, d.Scope)
}

func TestLimiterPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	l := NewLimiter(store, testConfig(), nil)

	_, err := l.Check(context.Background(), "jane@example.com", "203.0.113.9")
	assert.Error(t, err)
}

func TestRetryMessageRoundsUp(t *testing.T) {
	assert.Equal(t, "too many attempts, try again in 60 minutes", RetryMessage(59*time.Minute+30*time.Second))
	assert.Equal(t, "too many attempts, try again in 1 minutes", RetryMessage(10*time.Second))
	assert.Equal(t, "too many attempts, try again in 1 minutes", RetryMessage(0))
}
