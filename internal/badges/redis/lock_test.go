package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory Redis and a client connected to it
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestLock_AcquireAndRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewBadgeLock(client, time.Second, 100*time.Millisecond, nil)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "AIS2025-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("badge_lock:AIS2025-1"))

	unlock()
	unlock()
	assert.False(t, mr.Exists("badge_lock:AIS2025-1"))
}

func TestLock_WaitExpires(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewBadgeLock(client, time.Minute, 60*time.Millisecond, nil)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "AIS2025-2")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(ctx, "AIS2025-2")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// other badges are unaffected
	other, err := l.Lock(ctx, "AIS2025-3")
	require.NoError(t, err)
	other()
}

func TestLock_ContextCancelled(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewBadgeLock(client, time.Minute, time.Minute, nil)

	unlock, err := l.Lock(context.Background(), "AIS2025-4")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "AIS2025-4")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnlock_LeavesForeignTokenAlone(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewBadgeLock(client, time.Minute, 50*time.Millisecond, nil)

	require.NoError(t, mr.Set("badge_lock:AIS2025-5", "someone-else"))
	require.NoError(t, l.Unlock("AIS2025-5", "my-token"))

	val, err := mr.Get("badge_lock:AIS2025-5")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewBadgeLock(client, time.Second, 50*time.Millisecond, nil)
	ctx := context.Background()

	_, err := l.Lock(ctx, "AIS2025-6")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock, err := l.Lock(ctx, "AIS2025-6")
	require.NoError(t, err)
	unlock()
}

func TestLock_MutualExclusion(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewBadgeLock(client, 5*time.Second, 5*time.Second, nil)

	const workers = 20
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "AIS2025-HOT")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := Connect(mr.Addr(), "", 0, nil)
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = Connect(mr.Addr(), "", 0, nil)
	assert.Error(t, err)
}
