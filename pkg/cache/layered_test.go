package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayeredCacheServesFromMemoryWithinTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, 30*time.Second, WithMemoryClock(clock.Now))
	defer lc.Close()

	key := Key("model", "AAPL")
	require.NoError(t, lc.Set(ctx, key, record{Name: "v1", Score: 0.4}, 0))

	var got record
	require.NoError(t, remote.Get(ctx, key, &got), "write-through reaches L2")
	assert.Equal(t, "v1", got.Name)

	// Another process replaces the record in L2 only.
	require.NoError(t, remote.Set(ctx, key, record{Name: "v2", Score: 0.6}, 0))
	require.NoError(t, lc.Get(ctx, key, &got))
	assert.Equal(t, "v1", got.Name, "L1 still holds the old copy")

	clock.Advance(31 * time.Second)
	require.NoError(t, lc.Get(ctx, key, &got))
	assert.Equal(t, "v2", got.Name)
}

func TestLayeredCacheFillsFromRemoteAndDeletesBoth(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, time.Minute)
	defer lc.Close()

	key := Key("model", "MSFT")
	var got record
	assert.ErrorIs(t, lc.Get(ctx, key, &got), ErrCacheMiss)

	require.NoError(t, remote.Set(ctx, key, record{Name: "a"}, 0))
	require.NoError(t, lc.Get(ctx, key, &got))
	assert.Equal(t, "a", got.Name)

	require.NoError(t, lc.Delete(ctx, key))
	assert.ErrorIs(t, lc.Get(ctx, key, &got), ErrCacheMiss)
}

func TestLayeredCacheLocksOnRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, time.Minute)
	defer lc.Close()

	ok, err := lc.TryLock(ctx, "lock:AAPL", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = remote.TryLock(ctx, "lock:AAPL", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "the lock lives in L2")

	assert.ErrorIs(t, lc.Unlock(ctx, "lock:AAPL", "b"), ErrNotOwner)
	require.NoError(t, lc.Unlock(ctx, "lock:AAPL", "a"))
}
