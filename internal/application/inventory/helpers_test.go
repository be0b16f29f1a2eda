package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

type fixture struct {
	store     *memory.Store
	locker    *lock.MemoryLocker
	engine    *inventory.Engine
	stock     *inventory.StockUseCase
	receipts  *inventory.ReceiptUseCase
	reconcile *inventory.ReconcileUseCase
	repair    *inventory.RepairUseCase
}

func newFixture(t *testing.T, cfg inventory.Config) *fixture {
	t.Helper()
	return newFixtureWithRunner(t, cfg, nil)
}

// newFixtureWithRunner permite envolver el TxRunner (inyección de fallas).
func newFixtureWithRunner(t *testing.T, cfg inventory.Config, wrap func(inventory.TxRunner) inventory.TxRunner, opts ...inventory.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	var runner inventory.TxRunner = store
	if wrap != nil {
		runner = wrap(store)
	}
	locker := lock.NewMemoryLocker()
	e := inventory.NewEngine(runner, locker, cfg, opts...)
	return &fixture{
		store:     store,
		locker:    locker,
		engine:    e,
		stock:     inventory.NewStockUseCase(e),
		receipts:  inventory.NewReceiptUseCase(e),
		reconcile: inventory.NewReconcileUseCase(e),
		repair:    inventory.NewRepairUseCase(e),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) variant(t *testing.T, id string) {
	t.Helper()
	f.exec(t, func(ctx context.Context, r inventory.Repos) error {
		return r.Variants.Create(ctx, &entity.Variant{ID: id, SKU: "SKU-" + id, Name: id, CreatedAt: time.Now()})
	})
}

func (f *fixture) warehouse(t *testing.T, id string) {
	t.Helper()
	f.exec(t, func(ctx context.Context, r inventory.Repos) error {
		return r.Warehouses.Create(ctx, &entity.Warehouse{ID: id, Code: id, Name: id})
	})
}

func (f *fixture) exec(t *testing.T, fn func(ctx context.Context, r inventory.Repos) error) {
	t.Helper()
	require.NoError(t, f.store.Run(context.Background(), fn))
}

func (f *fixture) receive(t *testing.T, variantID, qty, cost string) *entity.Movement {
	t.Helper()
	m, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{
		VariantID: variantID, Quantity: d(qty), UnitCost: d(cost), Actor: "tester",
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) onHand(t *testing.T, variantID string) decimal.Decimal {
	t.Helper()
	view, err := f.stock.GetStock(context.Background(), variantID)
	require.NoError(t, err)
	return view.OnHand
}

func (f *fixture) assertConsistent(t *testing.T, variantID string) {
	t.Helper()
	rep, err := f.repair.VerifyVariant(context.Background(), variantID)
	require.NoError(t, err)
	require.True(t, rep.Consistent, "libro inconsistente: %+v", rep)
}

// failingMovements hace fallar el asiento del libro después de que los lotes ya se guardaron.
type failingMovements struct {
	repository.MovementRepository
}

var errLedgerDown = errors.New("libro no disponible")

func (failingMovements) Append(context.Context, *entity.Movement) error { return errLedgerDown }

type failingLedgerRunner struct {
	inner inventory.TxRunner
	fail  bool
}

func (r *failingLedgerRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		if r.fail {
			repos.Movements = failingMovements{MovementRepository: repos.Movements}
		}
		return fn(ctx, repos)
	})
}
