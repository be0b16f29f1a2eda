package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/interfaces/cli"
)

type harness struct {
	store  *memory.Store
	stock  *inventory.StockUseCase
	cli    *cli.RepairCLI
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	engine := inventory.NewEngine(store, lock.NewMemoryLocker(), inventory.Config{})
	c := cli.NewRepairCLI(inventory.NewReconcileUseCase(engine), inventory.NewRepairUseCase(engine))
	h := &harness{store: store, stock: inventory.NewStockUseCase(engine), cli: c, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	c.Stdout, c.Stderr = h.stdout, h.stderr
	return h
}

func (h *harness) variantWithStock(t *testing.T, id string, qty int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Run(ctx, func(ctx context.Context, r inventory.Repos) error {
		return r.Variants.Create(ctx, &entity.Variant{ID: id, SKU: "SKU-" + id, Name: id, CreatedAt: time.Now()})
	}))
	_, err := h.stock.ReceiveStock(ctx, inventory.ReceiveInput{
		VariantID: id,
		Quantity:  decimal.NewFromInt(qty),
		UnitCost:  decimal.NewFromInt(1),
	})
	require.NoError(t, err)
}

// corrupt altera la cantidad del lote sin pasar por el libro.
func (h *harness) corrupt(t *testing.T, variantID string, qty int64) {
	t.Helper()
	require.NoError(t, h.store.Run(context.Background(), func(ctx context.Context, r inventory.Repos) error {
		batches, err := r.Batches.ListByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		b := batches[0]
		b.Quantity = decimal.NewFromInt(qty)
		return r.Batches.Update(ctx, &b)
	}))
}

func TestRepairCLI_SinComando(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, cli.ExitUsage, h.cli.Run(context.Background(), nil))
	assert.Contains(t, h.stderr.String(), "uso: repair")

	assert.Equal(t, cli.ExitUsage, h.cli.Run(context.Background(), []string{"borrar-todo"}))
	assert.Equal(t, cli.ExitUsage, h.cli.Run(context.Background(), []string{"verify"}))
}

func TestRepairCLI_VerifyConsistente(t *testing.T) {
	h := newHarness(t)
	h.variantWithStock(t, "v1", 5)

	code := h.cli.Run(context.Background(), []string{"verify", "-variant", "v1"})
	require.Equal(t, cli.ExitOK, code, h.stderr.String())

	var report inventory.VerifyReport
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &report))
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Entries)
	assert.True(t, report.LedgerStock.Equal(decimal.NewFromInt(5)))
}

func TestRepairCLI_DetectaDesvioSinCorregir(t *testing.T) {
	h := newHarness(t)
	h.variantWithStock(t, "v1", 5)
	h.corrupt(t, "v1", 3)

	code := h.cli.Run(context.Background(), []string{"verify", "-variant", "v1"})
	assert.Equal(t, cli.ExitFindings, code)

	h.stdout.Reset()
	code = h.cli.Run(context.Background(), []string{"drift", "-strict"})
	assert.Equal(t, cli.ExitFindings, code)
	var out struct {
		Count    int                   `json:"count"`
		Findings []entity.DriftFinding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.Positive(t, out.Count)

	view, err := h.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(decimal.NewFromInt(3)), "drift solo reporta")
}

func TestRepairCLI_ReconcileOrdenInexistente(t *testing.T) {
	h := newHarness(t)
	code := h.cli.Run(context.Background(), []string{"reconcile", "-order", "no-existe"})
	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stderr.String(), "reconcile:")
}

func TestRepairCLI_IncomingYReconcileAllSinOrdenes(t *testing.T) {
	h := newHarness(t)
	h.variantWithStock(t, "v1", 2)

	require.Equal(t, cli.ExitOK, h.cli.Run(context.Background(), []string{"incoming"}), h.stderr.String())
	assert.Contains(t, h.stdout.String(), `"batches_updated": 0`)

	h.stdout.Reset()
	require.Equal(t, cli.ExitOK, h.cli.Run(context.Background(), []string{"reconcile-all"}), h.stderr.String())
	assert.JSONEq(t, `[]`, h.stdout.String())
}
