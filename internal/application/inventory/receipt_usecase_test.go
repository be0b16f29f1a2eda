package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

func (f *fixture) purchase(t *testing.T, items ...inventory.OrderItemInput) *entity.InventoryOrder {
	t.Helper()
	o, err := f.receipts.CreateOrder(context.Background(), inventory.OrderInput{
		Type: entity.OrderTypePurchase, Items: items, Actor: "compras",
	})
	require.NoError(t, err)
	return o
}

func TestRecordReceipt_CompraCreaLoteYCompletaOrden(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	o := f.purchase(t, inventory.OrderItemInput{VariantID: "v1", Quantity: d("10"), UnitCost: d("3"), BatchRef: "L-1"})
	assert.Equal(t, entity.OrderStatusPending, o.Status)
	assert.NotEmpty(t, o.Code)

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.Incoming.Equal(d("10")))

	rc, err := f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("4"), Actor: "bodega"})
	require.NoError(t, err)
	assert.Equal(t, entity.ReceiptStatusCompleted, rc.Status)
	assert.NotEmpty(t, rc.BatchRef)
	assert.NotEmpty(t, rc.MovementID)

	view, err = f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(d("4")))
	assert.True(t, view.Incoming.Equal(d("6")))
	require.Len(t, view.Batches, 1)
	b := view.Batches[0]
	assert.Equal(t, rc.BatchRef, b.ID)
	assert.Equal(t, "L-1", b.LotCode)
	assert.Equal(t, o.ID, b.OrderID)
	require.NotNil(t, b.ItemIndex)
	assert.Equal(t, 0, *b.ItemIndex)
	assert.True(t, b.Incoming.Equal(d("6")))

	_, err = f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("6")})
	require.NoError(t, err)

	got, err := f.receipts.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.True(t, got.Items[0].ReceivedQuantity.Equal(d("10")))
	assert.Len(t, got.Receipts, 2)

	page, err := f.stock.GetMovementHistory(context.Background(), "v1", 10, 0)
	require.NoError(t, err)
	movs := page.Items
	require.Len(t, movs, 2)
	assert.Equal(t, o.ID, movs[0].OrderID)
	assert.NotEmpty(t, movs[0].ReceiptID)
	f.assertConsistent(t, "v1")
}

func TestRecordReceipt_SobreRecepcionNoCambiaNada(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.variant(t, "v2")
	o := f.purchase(t,
		inventory.OrderItemInput{VariantID: "v1", Quantity: d("10"), UnitCost: d("1")},
		inventory.OrderItemInput{VariantID: "v2", Quantity: d("1"), UnitCost: d("1")},
	)
	_, err := f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("10")})
	require.NoError(t, err)

	_, err = f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOverReceipt)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.True(t, v.CurrentStock.Equal(d("10")))

	got, err := f.receipts.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].ReceivedQuantity.Equal(d("10")))
	assert.Len(t, got.Receipts, 1)
	assert.Equal(t, entity.OrderStatusPending, got.Status)
	assert.True(t, f.onHand(t, "v1").Equal(d("10")))
}

func TestRecordReceipt_OrdenCompletaRechazaConSobreRecepcion(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	o := f.purchase(t, inventory.OrderItemInput{VariantID: "v1", Quantity: d("10"), UnitCost: d("1")})
	_, err := f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("10")})
	require.NoError(t, err)

	_, err = f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrOverReceipt)
}

func TestRecordReceipt_VentaDescuentaFIFO(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.receive(t, "v1", "5", "2")

	o, err := f.receipts.CreateOrder(context.Background(), inventory.OrderInput{
		Type: entity.OrderTypeSale, Items: []inventory.OrderItemInput{{VariantID: "v1", Quantity: d("4")}},
	})
	require.NoError(t, err)

	rc, err := f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("4")})
	require.NoError(t, err)
	assert.Empty(t, rc.BatchRef)
	assert.True(t, f.onHand(t, "v1").Equal(d("1")))

	page, err := f.stock.GetMovementHistory(context.Background(), "v1", 1, 0)
	require.NoError(t, err)
	movs := page.Items
	assert.Equal(t, entity.MovementTypeOUT, movs[0].Type)
	assert.Equal(t, rc.MovementID, movs[0].ID)

	// sin stock suficiente la recepción no queda registrada
	o2, err := f.receipts.CreateOrder(context.Background(), inventory.OrderInput{
		Type: entity.OrderTypeSale, Items: []inventory.OrderItemInput{{VariantID: "v1", Quantity: d("4")}},
	})
	require.NoError(t, err)
	_, err = f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o2.ID, ItemIndex: 0, Quantity: d("2")})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	got, err := f.receipts.GetOrder(context.Background(), o2.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Receipts)
	assert.True(t, got.Items[0].ReceivedQuantity.IsZero())
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	o := f.purchase(t, inventory.OrderItemInput{VariantID: "v1", Quantity: d("10"), UnitCost: d("1")})
	_, err := f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("3")})
	require.NoError(t, err)

	got, err := f.receipts.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, got.Status)

	view, err := f.stock.GetStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, view.OnHand.Equal(d("3")))
	assert.True(t, view.Incoming.IsZero())

	_, err = f.receipts.CancelOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderClosed)
	_, err = f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrOrderClosed)
}

func TestCreateOrder_Validaciones(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	ctx := context.Background()

	_, err := f.receipts.CreateOrder(ctx, inventory.OrderInput{Type: "trueque", Items: []inventory.OrderItemInput{{VariantID: "v1", Quantity: d("1")}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.receipts.CreateOrder(ctx, inventory.OrderInput{Type: entity.OrderTypePurchase})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.receipts.CreateOrder(ctx, inventory.OrderInput{Type: entity.OrderTypePurchase, Items: []inventory.OrderItemInput{{VariantID: "v1", Quantity: d("0")}}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.receipts.CreateOrder(ctx, inventory.OrderInput{Type: entity.OrderTypePurchase, Items: []inventory.OrderItemInput{{VariantID: "zz", Quantity: d("1")}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.receipts.RecordReceipt(ctx, inventory.ReceiptInput{OrderID: "nope", Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordReceipt_CantidadInvalidaInformaVarianteYStock(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.receive(t, "v1", "10", "1")
	o := f.purchase(t, inventory.OrderItemInput{VariantID: "v1", Quantity: d("5"), UnitCost: d("2")})

	_, err := f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("0")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "v1", v.VariantID)
	assert.True(t, v.CurrentStock.Equal(d("10")), v.CurrentStock.String())

	got, err := f.receipts.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Receipts)
}

func TestRecordReceipt_VarianteBloqueadaEsViolacion(t *testing.T) {
	f := newFixture(t, inventory.Config{LockTimeout: 50 * time.Millisecond})
	f.variant(t, "v1")
	f.receive(t, "v1", "7", "1")
	o := f.purchase(t, inventory.OrderItemInput{VariantID: "v1", Quantity: d("5"), UnitCost: d("2")})

	release, err := f.locker.Acquire(context.Background(), inventory.VariantLockKey("v1"), time.Second)
	require.NoError(t, err)
	defer release()

	_, err = f.receipts.RecordReceipt(context.Background(), inventory.ReceiptInput{OrderID: o.ID, ItemIndex: 0, Quantity: d("2")})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "v1", v.VariantID)
	assert.True(t, v.CurrentStock.Equal(d("7")), v.CurrentStock.String())
	assert.True(t, v.Requested.Equal(d("2")))
}

func TestCreateOrder_CantidadInvalidaInformaStock(t *testing.T) {
	f := newFixture(t, inventory.Config{})
	f.variant(t, "v1")
	f.receive(t, "v1", "3", "1")

	_, err := f.receipts.CreateOrder(context.Background(), inventory.OrderInput{
		Type: entity.OrderTypeSale, Items: []inventory.OrderItemInput{{VariantID: "v1", Quantity: d("-1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "v1", v.VariantID)
	assert.True(t, v.CurrentStock.Equal(d("3")))

	orders, err := f.receipts.ListOrders(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
