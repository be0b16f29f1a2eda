package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/lock"
)

func newRedisLocker(t *testing.T) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewRedisLocker(client, "test:", 5*time.Second), mr
}

func lockers(t *testing.T) map[string]inventory.Locker {
	rl, _ := newRedisLocker(t)
	return map[string]inventory.Locker{
		"memory": lock.NewMemoryLocker(),
		"redis":  rl,
	}
}

func TestLocker_TimeoutSiLaClaveEstaTomada(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Acquire(context.Background(), "variant:v1", time.Second)
			require.NoError(t, err)

			_, err = l.Acquire(context.Background(), "variant:v1", 60*time.Millisecond)
			assert.ErrorIs(t, err, domain.ErrLockTimeout)

			// otra clave no espera
			other, err := l.Acquire(context.Background(), "variant:v2", 60*time.Millisecond)
			require.NoError(t, err)
			other()

			release()
			again, err := l.Acquire(context.Background(), "variant:v1", 60*time.Millisecond)
			require.NoError(t, err)
			again()
		})
	}
}

func TestLocker_ContextoCancelado(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Acquire(context.Background(), "order:o1", time.Second)
			require.NoError(t, err)
			defer release()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = l.Acquire(ctx, "order:o1", time.Second)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestLocker_ExclusionMutua(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					release, err := l.Acquire(context.Background(), "variant:v1", 5*time.Second)
					if err != nil {
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
					release()
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
		})
	}
}

func TestRedisLocker_NoLiberaLaClaveDeOtro(t *testing.T) {
	l, mr := newRedisLocker(t)

	release, err := l.Acquire(context.Background(), "variant:v1", time.Second)
	require.NoError(t, err)

	// el TTL vence y otro proceso toma la clave
	mr.FastForward(6 * time.Second)
	second, err := l.Acquire(context.Background(), "variant:v1", time.Second)
	require.NoError(t, err)

	release() // no debe borrar la clave del segundo dueño
	assert.True(t, mr.Exists("test:variant:v1"))

	second()
	assert.False(t, mr.Exists("test:variant:v1"))
}
