package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func TestIncoming_SoloComprasPendientes(t *testing.T) {
	orders := []*entity.InventoryOrder{
		{Type: entity.OrderTypePurchase, Status: entity.OrderStatusPending, Items: []entity.OrderItem{
			{VariantID: "v1", Quantity: d("10"), ReceivedQuantity: d("4"), BatchRef: "L1"},
			{VariantID: "v2", Quantity: d("3")},
		}},
		{Type: entity.OrderTypePurchase, Status: entity.OrderStatusCancelled, Items: []entity.OrderItem{
			{VariantID: "v1", Quantity: d("100")},
		}},
		{Type: entity.OrderTypeSale, Status: entity.OrderStatusPending, Items: []entity.OrderItem{
			{VariantID: "v1", Quantity: d("50")},
		}},
	}

	assert.True(t, inventory.Incoming(orders, "v1").Equal(d("6")))
	assert.True(t, inventory.Incoming(orders, "v2").Equal(d("3")))

	b := lot("b", "4", "1", date(2024, 1, 1))
	b.LotCode = "L1"
	refreshed := inventory.RefreshIncoming([]entity.Batch{b, lot("c", "1", "1", date(2024, 1, 2))}, orders)
	assert.True(t, refreshed[0].Incoming.Equal(d("6")))
	assert.True(t, refreshed[1].Incoming.IsZero())
}
