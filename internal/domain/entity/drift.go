package entity

import "github.com/shopspring/decimal"

// Tipos de hallazgo de las rutinas de consistencia.
const (
	DriftNegativeBatch   = "negative_batch"
	DriftLedgerMismatch  = "ledger_projection_mismatch"
	DriftLedgerBroken    = "ledger_arithmetic"
	DriftReceivedCounter = "received_quantity_mismatch"
	DriftOverReceived    = "over_received"
	DriftMissingMovement = "receipt_without_movement"
)

// DriftFinding es un hallazgo reportado (nunca corregido en silencio).
type DriftFinding struct {
	Kind      string          `json:"kind"`
	VariantID string          `json:"variant_id,omitempty"`
	OrderID   string          `json:"order_id,omitempty"`
	BatchID   string          `json:"batch_id,omitempty"`
	ItemIndex *int            `json:"item_index,omitempty"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
	Details   string          `json:"details"`
}
