package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, client := newClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 10*time.Millisecond, 3, nil)

	release, err := locker.Acquire(context.Background(), "tfms:lock:LC1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("tfms:lock:LC1"))

	release()
	assert.False(t, mr.Exists("tfms:lock:LC1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 20*time.Millisecond, 1000, nil)
	ctx := context.Background()

	release1, err := locker.Acquire(ctx, "tfms:lock:BG1")
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = locker.Acquire(ctxTimeout, "tfms:lock:BG1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, start.Add(300*time.Millisecond), time.Now(), 150*time.Millisecond)

	release1()

	release2, err := locker.Acquire(ctx, "tfms:lock:BG1")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_RetriesExhausted(t *testing.T) {
	_, client := newClient(t)
	locker := NewRedisLocker(client, 5*time.Second, time.Millisecond, 2, nil)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockFailed)
}

func TestDistributedLock_UnlockKeepsForeignLock(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()

	first := NewDistributedLock(client, "k", time.Second)
	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// 锁过期后被第二个持有者拿到
	mr.FastForward(2 * time.Second)
	second := NewDistributedLock(client, "k", time.Minute)
	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := first.Unlock(ctx)
	require.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists("k"))

	released, err = second.Unlock(ctx)
	require.NoError(t, err)
	assert.True(t, released)
}
