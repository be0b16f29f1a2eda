package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveStockRequest body para POST /api/variants/:id/receive.
type ReceiveStockRequest struct {
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	OrderID     string          `json:"order_id,omitempty"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
	LotCode     string          `json:"lot_code,omitempty" validate:"max=100"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	ReceivedAt  *time.Time      `json:"received_at,omitempty"`
	Reason      string          `json:"reason,omitempty" validate:"max=500"`
}

// IssueStockRequest body para POST /api/variants/:id/issue.
type IssueStockRequest struct {
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason" validate:"max=500"`
	OrderID     string          `json:"order_id,omitempty"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
}

// AdjustStockRequest body para POST /api/variants/:id/adjust. Delta con signo.
type AdjustStockRequest struct {
	Delta       decimal.Decimal  `json:"delta"`
	Reason      string           `json:"reason" validate:"required,max=500"`
	BatchID     string           `json:"batch_id,omitempty"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	WarehouseID string           `json:"warehouse_id,omitempty"`
}

// TransferStockRequest body para POST /api/variants/:id/transfer.
type TransferStockRequest struct {
	FromWarehouseID string          `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string          `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Quantity        decimal.Decimal `json:"quantity"`
	Reason          string          `json:"reason" validate:"max=500"`
}

// MovementResponse asiento del libro.
type MovementResponse struct {
	ID            string          `json:"id"`
	VariantID     string          `json:"variant_id"`
	Sequence      int64           `json:"sequence"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	Reason        string          `json:"reason,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	ReceiptID     string          `json:"receipt_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MovementListResponse historial paginado (más recientes primero).
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// BatchResponse lote de una variante.
type BatchResponse struct {
	ID               string          `json:"id"`
	WarehouseID      string          `json:"warehouse_id,omitempty"`
	LotCode          string          `json:"lot_code,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Incoming         decimal.Decimal `json:"incoming"`
	ReceivedAt       time.Time       `json:"received_at"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
	OrderID          string          `json:"order_id,omitempty"`
	ItemIndex        *int            `json:"item_index,omitempty"`
	Depleted         bool            `json:"depleted"`
	Expired          bool            `json:"expired"`
}

// StockResponse stock derivado de los lotes y órdenes pendientes.
type StockResponse struct {
	VariantID     string          `json:"variant_id"`
	SKU           string          `json:"sku"`
	Version       int64           `json:"version"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Incoming      decimal.Decimal `json:"incoming"`
	Valuation     decimal.Decimal `json:"valuation"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	CostingMethod string          `json:"costing_method"`
	Batches       []BatchResponse `json:"batches"`
}

// TransferResponse los dos asientos de un traslado.
type TransferResponse struct {
	Out MovementResponse `json:"out"`
	In  MovementResponse `json:"in"`
}
