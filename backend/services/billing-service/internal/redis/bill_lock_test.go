package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T, ttl time.Duration) (*BillLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBillLock(client, ttl), mr
}

func TestBillLockAcquireAndRelease(t *testing.T) {
	lock, mr := newTestLock(t, 10*time.Second)
	ctx := context.Background()

	release, ok, err := lock.Acquire(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("billing:generate:42"))
	assert.Equal(t, 10*time.Second, mr.TTL("billing:generate:42"))

	_, ok, err = lock.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	_, ok, err = lock.Acquire(ctx, 43)
	require.NoError(t, err)
	assert.True(t, ok, "other sessions are independent")

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("billing:generate:42"))

	_, ok, err = lock.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBillLockExpiredReleaseKeepsNewHolder(t *testing.T) {
	lock, mr := newTestLock(t, 5*time.Second)
	ctx := context.Background()
	key := "billing:generate:42"

	staleRelease, ok, err := lock.Acquire(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)
	require.False(t, mr.Exists(key))

	release, ok, err := lock.Acquire(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	holder, err := mr.Get(key)
	require.NoError(t, err)

	require.NoError(t, staleRelease(ctx))
	current, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, holder, current)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(key))
}

func TestBillLockDefaultTTL(t *testing.T) {
	lock, mr := newTestLock(t, 0)

	_, ok, err := lock.Acquire(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL("billing:generate:7"))
}

func TestBillLockClosedServer(t *testing.T) {
	lock, mr := newTestLock(t, time.Second)
	mr.Close()

	release, ok, err := lock.Acquire(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}
