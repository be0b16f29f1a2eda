package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest línea de una orden nueva.
type OrderItemRequest struct {
	VariantID string          `json:"variant_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	BatchRef  string          `json:"batch_ref,omitempty" validate:"max=100"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	Type  string             `json:"type" validate:"required,oneof=purchase sale adjustment"`
	Code  string             `json:"code,omitempty" validate:"max=50"`
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// RecordReceiptRequest body para POST /api/orders/:id/receipts.
type RecordReceiptRequest struct {
	ItemIndex   int             `json:"item_index" validate:"min=0"`
	Quantity    decimal.Decimal `json:"quantity"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
	LotCode     string          `json:"lot_code,omitempty" validate:"max=100"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	ReceivedAt  *time.Time      `json:"received_at,omitempty"`
}

// OrderItemResponse línea con su acumulado recibido.
type OrderItemResponse struct {
	VariantID        string          `json:"variant_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	Remaining        decimal.Decimal `json:"remaining"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	BatchRef         string          `json:"batch_ref,omitempty"`
}

// ReceiptResponse recepción registrada.
type ReceiptResponse struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	ItemIndex  int             `json:"item_index"`
	Quantity   decimal.Decimal `json:"quantity"`
	BatchRef   string          `json:"batch_ref,omitempty"`
	MovementID string          `json:"movement_id,omitempty"`
	Status     string          `json:"status"`
	ReceivedAt time.Time       `json:"received_at"`
	CreatedBy  string          `json:"created_by,omitempty"`
}

// OrderResponse orden con ítems y recepciones.
type OrderResponse struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	Type        string              `json:"type"`
	Status      string              `json:"status"`
	Items       []OrderItemResponse `json:"items"`
	Receipts    []ReceiptResponse   `json:"receipts"`
	CreatedBy   string              `json:"created_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// OrderListResponse lista paginada de órdenes.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
