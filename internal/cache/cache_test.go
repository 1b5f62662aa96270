package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_ExpiresOnRead(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	clock := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set(statsKey, []byte(`{"notes":1}`), time.Minute)
	got, ok := c.Get(statsKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"notes":1}`, string(got))

	clock = clock.Add(time.Minute)
	_, ok = c.Get(statsKey)
	assert.False(t, ok, "an entry is gone once its ttl has elapsed")
	assert.Equal(t, 0, c.Stats()["items"], "reading an expired entry drops it")
}

func TestMemoryCache_SweepAndPattern(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	clock := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set(statsKey, []byte(`{}`), time.Second)
	c.Set("stats:by-category", []byte(`{}`), time.Hour)
	c.Set("session", []byte(`"x"`), time.Hour)

	clock = clock.Add(2 * time.Second)
	c.evictExpired()
	assert.Equal(t, 2, c.Stats()["items"])

	c.DeletePattern("stats:*")
	_, ok := c.Get("stats:by-category")
	assert.False(t, ok)
	_, ok = c.Get("session")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Stats()["bytes"])

	c.Close()
	c.Close()
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		key, pattern string
		want         bool
	}{
		{statsKey, "*", true},
		{statsKey, "stats:*", true},
		{"stats", "stats:*", false},
		{statsKey, statsKey, true},
		{statsKey + "2", statsKey, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchPattern(tt.key, tt.pattern), "%s ~ %s", tt.key, tt.pattern)
	}
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 2, ResetTime: 50 * time.Millisecond})
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Execute(func() error { return ErrCacheMiss }), ErrCacheMiss)
	assert.Equal(t, StateClosed, cb.State(), "a miss is not a failure")

	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, int64(1), cb.GetStats()["trips"])
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, ResetTime: 20 * time.Millisecond})
	boom := errors.New("boom")

	_ = cb.Execute(func() error { return boom })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())
}
