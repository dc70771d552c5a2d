package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Second, slog.Default())
	store.pollInterval = time.Millisecond
	return store, mr
}

func TestRedisStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	t.Run("missing key returns nil", func(t *testing.T) {
		got, err := store.Get(ctx, "conversation:nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set with ttl then get", func(t *testing.T) {
		require.NoError(t, store.SetWithTTL(ctx, "conversation:s1", []byte(`{"a":1}`), time.Minute))
		got, err := store.Get(ctx, "conversation:s1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), got)
		assert.Equal(t, time.Minute, mr.TTL("conversation:s1"))
	})

	t.Run("upsert overwrites and refreshes ttl", func(t *testing.T) {
		require.NoError(t, store.SetWithTTL(ctx, "conversation:s2", []byte("v1"), time.Minute))
		mr.FastForward(30 * time.Second)
		require.NoError(t, store.SetWithTTL(ctx, "conversation:s2", []byte("v2"), time.Minute))
		got, err := store.Get(ctx, "conversation:s2")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
		assert.Equal(t, time.Minute, mr.TTL("conversation:s2"))
	})

	t.Run("expired key is absent", func(t *testing.T) {
		require.NoError(t, store.SetWithTTL(ctx, "conversation:s3", []byte("v"), time.Second))
		mr.FastForward(2 * time.Second)
		got, err := store.Get(ctx, "conversation:s3")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("server down surfaces error", func(t *testing.T) {
		m := miniredis.NewMiniRedis()
		require.NoError(t, m.Start())
		addr := m.Addr()
		m.Close()
		client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
		defer client.Close()

		broken := NewRedisStore(client, time.Second, slog.Default())
		_, err := broken.Get(ctx, "conversation:x")
		assert.Error(t, err)
	})
}

func TestRedisStore_Lock(t *testing.T) {
	ctx := context.Background()

	t.Run("lock is exclusive until released", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		unlock, err := store.Lock(ctx, "conversation:s1")
		require.NoError(t, err)
		assert.True(t, mr.Exists("conversation:s1:lock"))

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = store.Lock(waitCtx, "conversation:s1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLockNotAcquired)

		unlock()
		unlock()
		assert.False(t, mr.Exists("conversation:s1:lock"))

		unlock2, err := store.Lock(ctx, "conversation:s1")
		require.NoError(t, err)
		unlock2()
	})

	t.Run("release does not delete a lock held by someone else", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		unlock, err := store.Lock(ctx, "conversation:s2")
		require.NoError(t, err)
		require.NoError(t, mr.Set("conversation:s2:lock", "other-token"))

		unlock()
		got, err := mr.Get("conversation:s2:lock")
		require.NoError(t, err)
		assert.Equal(t, "other-token", got)
	})

	t.Run("concurrent holders never overlap", func(t *testing.T) {
		store, _ := setupRedisStore(t)

		var inside, maxInside int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := store.Lock(ctx, "conversation:hot")
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
	})
}
