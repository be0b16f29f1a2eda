package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Incoming Σ pendiente de recibir de las órdenes de compra pendientes para la variante.
func Incoming(orders []*entity.InventoryOrder, variantID string) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Type != entity.OrderTypePurchase || !o.IsPending() {
			continue
		}
		for _, it := range o.Items {
			if it.VariantID == variantID {
				total = total.Add(it.Remaining())
			}
		}
	}
	return total
}

// BatchIncoming pendiente de compras pendientes cuyo lote esperado coincide con el código del lote.
func BatchIncoming(orders []*entity.InventoryOrder, b entity.Batch) decimal.Decimal {
	if b.LotCode == "" {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, o := range orders {
		if o.Type != entity.OrderTypePurchase || !o.IsPending() {
			continue
		}
		for _, it := range o.Items {
			if it.VariantID == b.VariantID && it.BatchRef == b.LotCode {
				total = total.Add(it.Remaining())
			}
		}
	}
	return total
}

// RefreshIncoming devuelve copias de los lotes con su contador Incoming recalculado.
func RefreshIncoming(batches []entity.Batch, orders []*entity.InventoryOrder) []entity.Batch {
	out := make([]entity.Batch, len(batches))
	for i, b := range batches {
		b.Incoming = BatchIncoming(orders, b)
		out[i] = b
	}
	return out
}
