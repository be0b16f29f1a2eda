package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch es un lote de stock recibido en un momento dado, con su propio costo y vencimiento opcional.
// Quantity es el remanente (>= 0); ReceivedQuantity la cantidad original recibida.
type Batch struct {
	ID               string
	VariantID        string
	WarehouseID      string // vacío = sin bodega asignada
	LotCode          string
	Quantity         decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitCost         decimal.Decimal
	Incoming         decimal.Decimal // pendiente de órdenes de compra que apuntan a este lote
	ReceivedAt       time.Time
	ExpiryDate       *time.Time
	OrderID          string
	ItemIndex        *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Value devuelve el valor en libros del remanente (cantidad × costo unitario).
func (b Batch) Value() decimal.Decimal {
	return b.Quantity.Mul(b.UnitCost)
}

// IsDepleted indica si el lote fue consumido por completo.
func (b Batch) IsDepleted() bool {
	return b.Quantity.Sign() == 0
}

// IsExpired indica si el lote venció respecto a la fecha dada.
func (b Batch) IsExpired(at time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(at)
}

// BatchMeta datos opcionales de un lote al recibirlo.
type BatchMeta struct {
	WarehouseID string
	LotCode     string
	ExpiryDate  *time.Time
	ReceivedAt  *time.Time
}
