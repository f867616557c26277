package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWithinLimit(t *testing.T) {
	_, client := newTestCache(t)
	rl := NewRateLimiter(client, "test:", nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4:/auth/login", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := rl.Allow(ctx, "1.2.3.4:/auth/login", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "sixth request must be rejected")
}

func TestRateLimiterIdentifiersIsolated(t *testing.T) {
	_, client := newTestCache(t)
	rl := NewRateLimiter(client, "test:", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := rl.Allow(ctx, "1.2.3.4:/auth/login", 3, time.Minute)
		require.NoError(t, err)
	}
	ok, err := rl.Allow(ctx, "1.2.3.4:/auth/login", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a different caller and a different route both get fresh windows
	ok, err = rl.Allow(ctx, "5.6.7.8:/auth/login", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rl.Allow(ctx, "1.2.3.4:/auth/refresh", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterWindowRollover(t *testing.T) {
	mr, client := newTestCache(t)
	rl := NewRateLimiter(client, "test:", nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := rl.Allow(ctx, "1.2.3.4:/auth/login", 2, time.Minute)
		require.NoError(t, err)
	}
	ok, err := rl.Allow(ctx, "1.2.3.4:/auth/login", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = rl.Allow(ctx, "1.2.3.4:/auth/login", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "new window starts once the old one expires")
}

func TestRateLimiterFailsOpenWhenCacheDown(t *testing.T) {
	mr, client := newTestCache(t)
	rl := NewRateLimiter(client, "test:", nil)

	mr.Close()

	ok, err := rl.Allow(context.Background(), "1.2.3.4:/auth/login", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "cache outage must not block traffic")
}

func TestRateLimiterCorruptEntryRestartsWindow(t *testing.T) {
	mr, client := newTestCache(t)
	rl := NewRateLimiter(client, "test:", nil)

	require.NoError(t, mr.Set("test:ratelimit:1.2.3.4:/auth/login", "{garbage"))

	ok, err := rl.Allow(context.Background(), "1.2.3.4:/auth/login", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
