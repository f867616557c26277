package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistAddAndContains(t *testing.T) {
	_, client := newTestCache(t)
	bl := NewBlacklist(client, "test:")
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "token-1", time.Now().Add(15*time.Minute), "user logout"))

	ok, err := bl.Contains(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bl.Contains(ctx, "token-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklistExpiredTokenIsNoop(t *testing.T) {
	_, client := newTestCache(t)
	bl := NewBlacklist(client, "test:")
	ctx := context.Background()

	// already past its expiry, nothing to record
	require.NoError(t, bl.Add(ctx, "stale-token", time.Now().Add(-time.Minute), "user logout"))

	ok, err := bl.Contains(ctx, "stale-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklistEntrySelfEvicts(t *testing.T) {
	mr, client := newTestCache(t)
	bl := NewBlacklist(client, "test:")
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "token-1", time.Now().Add(time.Minute), "password change"))

	mr.FastForward(2 * time.Minute)

	ok, err := bl.Contains(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, ok, "entry must evict once the token would have expired anyway")
}
