package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	cmds := newMemoryCommands()
	client := &Client{cmd: cmds}

	first, err := NewLock(client, "pf:lock:test", time.Minute)
	require.NoError(t, err)
	second, err := NewLock(client, "pf:lock:test", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release must leave the holder's key alone.
	require.NoError(t, second.Release(ctx))
	_, err = client.Get(ctx, "pf:lock:test")
	require.NoError(t, err, "lock should still be held")

	require.NoError(t, first.Release(ctx))
	_, held := cmds.data["pf:lock:test"]
	assert.False(t, held)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockReleaseAfterExpiryKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	cmds := newMemoryCommands()
	client := &Client{cmd: cmds}

	lock, err := NewLock(client, "pf:lock:entry", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The TTL ran out and another worker took the key.
	cmds.data["pf:lock:entry"] = "other-owner"

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "other-owner", cmds.data["pf:lock:entry"])
}

func TestLockReleaseOfMissingKey(t *testing.T) {
	ctx := context.Background()
	cmds := newMemoryCommands()
	lock, err := NewLock(&Client{cmd: cmds}, "pf:lock:gone", time.Minute)
	require.NoError(t, err)

	require.NoError(t, lock.Release(ctx), "release before acquire is a no-op")

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	delete(cmds.data, "pf:lock:gone")
	assert.NoError(t, lock.Release(ctx))
}

func TestLockSurfacesStoreErrors(t *testing.T) {
	lock, err := NewLock(&Client{}, "pf:lock:x", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNewLockValidates(t *testing.T) {
	client := &Client{cmd: newMemoryCommands()}
	_, err := NewLock(nil, "k", time.Second)
	assert.Error(t, err)
	_, err = NewLock(client, "", time.Second)
	assert.Error(t, err)
	_, err = NewLock(client, "k", 0)
	assert.Error(t, err)

	lock, err := NewLock(client, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "k", lock.Key())
}
