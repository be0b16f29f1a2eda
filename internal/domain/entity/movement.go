package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de inventario.
const (
	MovementTypeIN          = "IN"           // entrada (recepción)
	MovementTypeOUT         = "OUT"          // salida (consumo FIFO)
	MovementTypeADJUSTMENT  = "ADJUSTMENT"   // ajuste manual / toma física
	MovementTypeTransferOut = "TRANSFER_OUT" // traslado: salida de la bodega origen
	MovementTypeTransferIn  = "TRANSFER_IN"  // traslado: entrada en la bodega destino
	MovementTypeREPAIR      = "REPAIR"       // corrección emitida por la conciliación
)

// Movement es un asiento inmutable del libro: NewStock == PreviousStock + Quantity.
// Nunca se actualiza ni se borra; las correcciones se registran como un movimiento compensatorio.
type Movement struct {
	ID            string
	VariantID     string
	Sequence      int64 // 1..n por variante, sin huecos
	Type          string
	Quantity      decimal.Decimal // delta con signo
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	UnitCost      decimal.Decimal
	TotalCost     decimal.Decimal
	Reason        string
	Actor         string
	OrderID       string
	ReceiptID     string
	CreatedAt     time.Time
}

// Balanced indica si el asiento cuadra aritméticamente.
func (m Movement) Balanced() bool {
	return m.PreviousStock.Add(m.Quantity).Equal(m.NewStock)
}
