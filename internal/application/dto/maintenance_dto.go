package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ItemCorrectionResponse acumulado de un ítem recalculado.
type ItemCorrectionResponse struct {
	ItemIndex int             `json:"item_index"`
	VariantID string          `json:"variant_id"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
}

// ReconcileResponse resultado de conciliar una orden.
type ReconcileResponse struct {
	OrderID          string                   `json:"order_id"`
	Changed          bool                     `json:"changed"`
	StatusBefore     string                   `json:"status_before"`
	StatusAfter      string                   `json:"status_after"`
	Items            []ItemCorrectionResponse `json:"items"`
	BatchesCreated   []string                 `json:"batches_created"`
	BatchesCorrected []string                 `json:"batches_corrected"`
	Movements        []MovementResponse       `json:"movements"`
	Findings         []entity.DriftFinding    `json:"findings"`
}

// LedgerBreakResponse ruptura encontrada al reproducir el libro.
type LedgerBreakResponse struct {
	Kind       string          `json:"kind"`
	Sequence   int64           `json:"sequence"`
	MovementID string          `json:"movement_id"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
}

// VerifyResponse resultado de reproducir el libro de una variante.
type VerifyResponse struct {
	VariantID      string                `json:"variant_id"`
	Entries        int                   `json:"entries"`
	LedgerStock    decimal.Decimal       `json:"ledger_stock"`
	ProjectedStock decimal.Decimal       `json:"projected_stock"`
	Consistent     bool                  `json:"consistent"`
	Breaks         []LedgerBreakResponse `json:"breaks"`
}

// DriftResponse hallazgos de la detección de desvíos (nunca corregidos).
type DriftResponse struct {
	Count    int                   `json:"count"`
	Findings []entity.DriftFinding `json:"findings"`
}

// RecomputeIncomingResponse lotes cuyo entrante cambió.
type RecomputeIncomingResponse struct {
	BatchesUpdated int `json:"batches_updated"`
}

// BackfillResponse recepciones reconstruidas por orden.
type BackfillResponse struct {
	ReceiptsCreated map[string][]string   `json:"receipts_created"`
	Findings        []entity.DriftFinding `json:"findings"`
}
