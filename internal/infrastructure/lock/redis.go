package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

var _ inventory.Locker = (*RedisLocker)(nil)

// releaseScript borra la clave solo si sigue siendo nuestra (el token coincide).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker bloqueo distribuido por clave (SET NX PX + borrado condicionado al token).
// TTL limita cuánto sobrevive el bloqueo si el proceso que lo tiene muere.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker construye el locker. prefix separa las claves de otras aplicaciones.
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, poll: 25 * time.Millisecond}
}

// Acquire intenta tomar la clave hasta que vence timeout.
func (l *RedisLocker) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	full := l.prefix + key
	token := uuid.New().String()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// contexto propio: el del request puede estar cancelado al liberar
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.client, []string{full}, token).Err()
			}, nil
		}

		wait := l.poll
		if remaining := time.Until(deadline); remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
		} else if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}
