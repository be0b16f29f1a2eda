package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una recepción.
const (
	ReceiptStatusPending   = "pending"
	ReceiptStatusCompleted = "completed"
)

// Receipt registra una cantidad cumplida contra una línea de la orden.
// BatchRef apunta al lote creado (compras); MovementID al asiento del libro que la respalda.
type Receipt struct {
	ID         string
	OrderID    string
	ItemIndex  int
	Quantity   decimal.Decimal
	BatchRef   string
	MovementID string
	Status     string
	ReceivedAt time.Time
	CreatedBy  string
}
