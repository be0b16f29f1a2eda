package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

var _ inventory.Locker = (*MemoryLocker)(nil)

// MemoryLocker bloqueo por clave dentro de un solo proceso (semáforo de un cupo por clave).
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker crea el locker en memoria.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: map[string]*slot{}}
}

// Acquire espera hasta timeout por la clave. Devuelve domain.ErrLockTimeout al vencer
// y el error del contexto si este se cancela antes.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	s := l.ref(key)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key)
			})
		}, nil
	case <-timer.C:
		l.unref(key)
		return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	}
}

func (l *MemoryLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		s.refs--
		if s.refs == 0 {
			delete(l.slots, key)
		}
	}
}
