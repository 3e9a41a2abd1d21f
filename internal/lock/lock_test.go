package lock

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

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "machine-1")
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
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, "a")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		unlockB, err := km.Lock(ctx, "b")
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on key b blocked behind key a")
	}
	unlockA()
	unlockA() // second call is a no-op
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKeyedMutex().Lock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyedMutex_WaiterStopsOnCancel(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "machine-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "machine-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, km.Len())

	unlock()
	assert.Equal(t, 0, km.Len())

	// The abandoned wait must not leave the key held.
	unlock, err = km.Lock(context.Background(), "machine-1")
	require.NoError(t, err)
	unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "farmtrack:lock:", 5*time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "machine-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("farmtrack:lock:machine-1"))

	unlock()
	assert.False(t, mr.Exists("farmtrack:lock:machine-1"))
}

func TestRedisLocker_TimesOutWhileHeld(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, "farmtrack:lock:", 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "machine-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "machine-1")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "farmtrack:lock:", 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "machine-1")
	require.NoError(t, err)

	// Simulate TTL expiry and another holder taking over.
	require.NoError(t, mr.Set("farmtrack:lock:machine-1", "someone-else"))
	unlock()

	got, err := mr.Get("farmtrack:lock:machine-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
