package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func TestReceiveAndIssue_FIFOYLibro(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")

	in := f.receive(t, "v1", "5", "10")
	assert.Equal(t, entity.MovementTypeIN, in.Type)
	assert.Equal(t, int64(1), in.Sequence)
	assert.True(t, in.PreviousStock.IsZero())
	assert.True(t, in.NewStock.Equal(d("5")))
	f.receive(t, "v1", "5", "12")

	out, err := f.stock.IssueStock(context.Background(), inventory.IssueInput{
		VariantID: "v1", Quantity: d("7"), Reason: "venta mostrador", Actor: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeOUT, out.Type)
	assert.True(t, out.Quantity.Equal(d("-7")))
	assert.True(t, out.PreviousStock.Equal(d("10")))
	assert.True(t, out.NewStock.Equal(d("3")))
	// 5*10 + 2*12
	assert.True(t, out.TotalCost.Equal(d("-74")), out.TotalCost.String())
	assert.Equal(t, "u1", out.Actor)

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(d("3")))
	assert.True(t, view.Valuation.Equal(d("36")))
	require.Len(t, view.Batches, 2)
	assert.True(t, view.Batches[0].Quantity.IsZero())
	assert.True(t, view.Batches[1].Quantity.Equal(d("3")))
	assert.Equal(t, int64(3), view.Variant.Version)

	f.assertConsistent(t, "v1")
}

func TestIssueStock_Insuficiente(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.receive(t, "v1", "3", "1")

	_, err := f.stock.IssueStock(context.Background(), inventory.IssueInput{VariantID: "v1", Quantity: d("5")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.True(t, v.CurrentStock.Equal(d("3")))
	assert.NotEmpty(t, v.Invariant)

	assert.True(t, f.onHand(t, "v1").Equal(d("3")))
	page, err := f.stock.GetMovementHistory(context.Background(), "v1", 10, 0)
	require.NoError(t, err)
	movs := page.Items
	assert.Len(t, movs, 1)
}

func TestIssueStock_ConcurrenteNoSobrevende(t *testing.T) {
	f := newFixture(t, inventory.Config{LockTimeout: 2 * time.Second})
	f.variant(t, "v1")
	f.receive(t, "v1", "10", "1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.stock.IssueStock(context.Background(), inventory.IssueInput{VariantID: "v1", Quantity: d("6")})
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.True(t, f.onHand(t, "v1").Equal(d("4")))
	f.assertConsistent(t, "v1")
}

func TestIssueStock_VariantesDistintasNoSeBloquean(t *testing.T) {
	f := newFixture(t, inventory.Config{LockTimeout: 50 * time.Millisecond})
	f.variant(t, "v1")
	f.variant(t, "v2")
	f.receive(t, "v2", "1", "1")

	release, err := f.locker.Acquire(context.Background(), inventory.VariantLockKey("v1"), time.Second)
	require.NoError(t, err)
	defer release()

	_, err = f.stock.IssueStock(context.Background(), inventory.IssueInput{VariantID: "v2", Quantity: d("1")})
	assert.NoError(t, err)
}

func TestIssueStock_LockTimeout(t *testing.T) {
	f := newFixture(t, inventory.Config{LockTimeout: 50 * time.Millisecond})
	f.variant(t, "v1")
	f.receive(t, "v1", "4", "1")

	release, err := f.locker.Acquire(context.Background(), inventory.VariantLockKey("v1"), time.Second)
	require.NoError(t, err)
	defer release()

	_, err = f.stock.IssueStock(context.Background(), inventory.IssueInput{VariantID: "v1", Quantity: d("1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.True(t, v.CurrentStock.Equal(d("4")))
}

func TestReceiveStock_FallaDelLibroRevierteTodo(t *testing.T) {
	runner := &failingLedgerRunner{}
	f := newFixtureWithRunner(t, inventory.Config{}, func(inner inventory.TxRunner) inventory.TxRunner {
		runner.inner = inner
		return runner
	})
	f.variant(t, "v1")
	f.receive(t, "v1", "2", "1")

	runner.fail = true
	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("5"), UnitCost: d("1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errLedgerDown)
	runner.fail = false

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(d("2")))
	assert.Len(t, view.Batches, 1)
	assert.Equal(t, int64(1), view.Variant.Version)
	f.assertConsistent(t, "v1")
}

func TestReceiveStock_Validaciones(t *testing.T) {
	f := newFixture(t, inventory.Config{QuantityScale: inventory.Scale(2)})
	f.variant(t, "v1")

	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("0"), UnitCost: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("1.005"), UnitCost: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "nope", Quantity: d("1"), UnitCost: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{
		VariantID: "v1", Quantity: d("1"), UnitCost: d("1"), Meta: entity.BatchMeta{WarehouseID: "no-existe"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiveStock_EscalaCeroExigeEnteros(t *testing.T) {
	f := newFixture(t, inventory.Config{QuantityScale: inventory.Scale(0)})
	f.variant(t, "v1")

	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("1.5"), UnitCost: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("2"), UnitCost: d("1")})
	require.NoError(t, err)
	assert.True(t, f.onHand(t, "v1").Equal(d("2")))
}

func TestReceiveStock_EscalaPorDefectoEsLaPersistida(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")

	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("1.0001"), UnitCost: d("1")})
	require.NoError(t, err)
	_, err = f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("1.00001"), UnitCost: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestReceiveStock_RechazoInformaStockVigente(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.receive(t, "v1", "10", "1")

	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{VariantID: "v1", Quantity: d("0"), UnitCost: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "v1", v.VariantID)
	assert.True(t, v.CurrentStock.Equal(d("10")), v.CurrentStock.String())
	assert.True(t, f.onHand(t, "v1").Equal(d("10")))
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.receive(t, "v1", "4", "10")
	f.receive(t, "v1", "4", "20")

	// positivo sin lote: nuevo lote al costo promedio (15)
	m, err := f.stock.AdjustStock(context.Background(), inventory.AdjustInput{VariantID: "v1", Delta: d("2"), Reason: "conteo"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeADJUSTMENT, m.Type)
	assert.True(t, m.UnitCost.Equal(d("15")))

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(d("10")))
	first := view.Batches[0].ID

	// sobre un lote concreto no puede quedar negativo
	_, err = f.stock.AdjustStock(context.Background(), inventory.AdjustInput{VariantID: "v1", Delta: d("-5"), BatchID: first})
	assert.ErrorIs(t, err, domain.ErrNegativeResult)

	_, err = f.stock.AdjustStock(context.Background(), inventory.AdjustInput{VariantID: "v1", Delta: d("-1"), BatchID: first})
	require.NoError(t, err)

	// negativo sin lote: FIFO
	_, err = f.stock.AdjustStock(context.Background(), inventory.AdjustInput{VariantID: "v1", Delta: d("-4")})
	require.NoError(t, err)
	assert.True(t, f.onHand(t, "v1").Equal(d("5")))

	_, err = f.stock.AdjustStock(context.Background(), inventory.AdjustInput{VariantID: "v1", Delta: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	f.assertConsistent(t, "v1")
}

func TestTransferStock_ConservaCostoYFecha(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.warehouse(t, "w1")
	f.warehouse(t, "w2")

	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{
		VariantID: "v1", Quantity: d("5"), UnitCost: d("8"), Meta: entity.BatchMeta{WarehouseID: "w1", LotCode: "L-9"},
	})
	require.NoError(t, err)

	movs, err := f.stock.TransferStock(context.Background(), inventory.TransferInput{
		VariantID: "v1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: d("3"), Reason: "reubicación",
	})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementTypeTransferOut, movs[0].Type)
	assert.Equal(t, entity.MovementTypeTransferIn, movs[1].Type)
	assert.True(t, movs[0].Quantity.Equal(d("-3")))
	assert.True(t, movs[1].Quantity.Equal(d("3")))
	assert.True(t, movs[1].NewStock.Equal(d("5")))

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(d("5")))
	assert.True(t, view.Valuation.Equal(d("40")))
	var inW2 decimal.Decimal
	for _, b := range view.Batches {
		if b.WarehouseID == "w2" {
			inW2 = inW2.Add(b.Quantity)
			assert.Equal(t, "L-9", b.LotCode)
			assert.Equal(t, view.Batches[0].ReceivedAt, b.ReceivedAt)
		}
	}
	assert.True(t, inW2.Equal(d("3")))

	_, err = f.stock.TransferStock(context.Background(), inventory.TransferInput{
		VariantID: "v1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: d("3"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = f.stock.TransferStock(context.Background(), inventory.TransferInput{
		VariantID: "v1", FromWarehouseID: "w1", ToWarehouseID: "w1", Quantity: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.assertConsistent(t, "v1")
}

func TestWeightedAverage_CostoDeSalida(t *testing.T) {
	f := newFixture(t, inventory.Config{CostingMethod: invdomain.CostingWeightedAverage})
	f.variant(t, "v1")
	f.receive(t, "v1", "10", "100")
	f.receive(t, "v1", "10", "200")

	out, err := f.stock.IssueStock(context.Background(), inventory.IssueInput{VariantID: "v1", Quantity: d("4")})
	require.NoError(t, err)
	assert.True(t, out.UnitCost.Equal(d("150")))
	assert.True(t, out.TotalCost.Equal(d("-600")))

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.AverageCost.Equal(d("150")))
	assert.True(t, view.Valuation.Equal(d("2400")))
}

func TestGetMovementHistory_OrdenYLimite(t *testing.T) {
	f := newFixture(t, inventory.Config{HistoryMaxLimit: 2})
	f.variant(t, "v1")
	for i := 0; i < 4; i++ {
		f.receive(t, "v1", "1", "1")
	}

	page, err := f.stock.GetMovementHistory(context.Background(), "v1", 50, 0)
	require.NoError(t, err)
	movs := page.Items
	require.Len(t, movs, 2)
	assert.Equal(t, int64(4), movs[0].Sequence)
	assert.Equal(t, int64(3), movs[1].Sequence)
	assert.Equal(t, 2, page.Limit, "el límite informado es el aplicado")

	page, err = f.stock.GetMovementHistory(context.Background(), "v1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].Sequence)
	assert.Equal(t, 2, page.Offset)

	page, err = f.stock.GetMovementHistory(context.Background(), "v1", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 0, page.Offset)

	_, err = f.stock.GetMovementHistory(context.Background(), "nope", 2, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetStock_MetodoDeCosteoYEstadoDeLotes(t *testing.T) {
	f := newFixture(t, inventory.Config{CostingMethod: invdomain.CostingWeightedAverage})
	f.variant(t, "v1")
	vencido := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	recibido := vencido.AddDate(-1, 0, 0)
	_, err := f.stock.ReceiveStock(context.Background(), inventory.ReceiveInput{
		VariantID: "v1", Quantity: d("2"), UnitCost: d("1"),
		Meta: entity.BatchMeta{LotCode: "VIEJO", ExpiryDate: &vencido, ReceivedAt: &recibido},
	})
	require.NoError(t, err)
	f.receive(t, "v1", "3", "1")
	_, err = f.stock.IssueStock(context.Background(), inventory.IssueInput{VariantID: "v1", Quantity: d("2")})
	require.NoError(t, err)

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, invdomain.CostingWeightedAverage, view.CostingMethod)
	assert.False(t, view.AsOf.IsZero())
	require.Len(t, view.Batches, 2)
	viejo := view.Batches[0]
	assert.Equal(t, "VIEJO", viejo.LotCode)
	assert.True(t, viejo.IsDepleted())
	assert.True(t, viejo.IsExpired(view.AsOf))
	assert.False(t, view.Batches[1].IsDepleted())
	assert.False(t, view.Batches[1].IsExpired(view.AsOf))
}
