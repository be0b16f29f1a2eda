package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de orden de inventario.
const (
	OrderTypePurchase   = "purchase"
	OrderTypeSale       = "sale"
	OrderTypeAdjustment = "adjustment"
)

// Estados de la orden: pending → completed | cancelled.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// InventoryOrder es una transacción de compra, venta o ajuste con sus ítems y recepciones.
type InventoryOrder struct {
	ID          string
	Code        string
	Type        string
	Status      string
	Items       []OrderItem
	Receipts    []Receipt
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// OrderItem línea de la orden. ReceivedQuantity es el acumulado de recepciones completadas.
type OrderItem struct {
	VariantID        string
	Quantity         decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitCost         decimal.Decimal
	BatchRef         string // código de lote esperado (compras)
}

// Remaining cantidad aún no recibida (nunca negativa).
func (i OrderItem) Remaining() decimal.Decimal {
	r := i.Quantity.Sub(i.ReceivedQuantity)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// IsFullyReceived indica si la línea ya recibió todo lo ordenado.
func (i OrderItem) IsFullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.Quantity)
}

// IsPending indica si la orden acepta recepciones.
func (o *InventoryOrder) IsPending() bool {
	return o.Status == OrderStatusPending
}

// AllReceived indica si todas las líneas están completas.
func (o *InventoryOrder) AllReceived() bool {
	for _, it := range o.Items {
		if !it.IsFullyReceived() {
			return false
		}
	}
	return len(o.Items) > 0
}

// ReceivedByItem suma las recepciones completadas por índice de ítem.
func (o *InventoryOrder) ReceivedByItem() map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(o.Items))
	for _, r := range o.Receipts {
		if r.Status != ReceiptStatusCompleted {
			continue
		}
		out[r.ItemIndex] = out[r.ItemIndex].Add(r.Quantity)
	}
	return out
}

// IsValidOrderType valida el tipo de orden.
func IsValidOrderType(t string) bool {
	switch t {
	case OrderTypePurchase, OrderTypeSale, OrderTypeAdjustment:
		return true
	}
	return false
}
