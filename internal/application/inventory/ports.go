package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Variants   repository.VariantRepository
	Batches    repository.BatchRepository
	Orders     repository.OrderRepository
	Movements  repository.MovementRepository
	Warehouses repository.WarehouseRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error (o el contexto se cancela antes del commit) no queda nada aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// Locker bloqueo exclusivo por clave con espera máxima.
// Devuelve domain.ErrLockTimeout si no se obtiene dentro de timeout.
type Locker interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (release func(), err error)
}

// Metrics instrumentación opcional del motor (nil = sin métricas).
type Metrics interface {
	MovementRecorded(movementType string)
	MutationRejected(reason string)
	LockWaited(wait time.Duration, acquired bool)
	DriftFound(kind string, n int)
}

// VariantLockKey clave de bloqueo de una variante.
func VariantLockKey(id string) string { return "variant:" + id }

// OrderLockKey clave de bloqueo de una orden.
func OrderLockKey(id string) string { return "order:" + id }

type noopMetrics struct{}

func (noopMetrics) MovementRecorded(string) {}
func (noopMetrics) MutationRejected(string) {}
func (noopMetrics) LockWaited(time.Duration, bool) {}
func (noopMetrics) DriftFound(string, int) {}
