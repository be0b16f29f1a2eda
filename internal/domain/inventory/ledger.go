package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Tipos de ruptura del libro detectados por VerifyMovements.
const (
	BreakArithmetic = "arithmetic" // previous + quantity != new
	BreakChain      = "chain"      // previous != new del asiento anterior
	BreakSequence   = "sequence"   // hueco o duplicado en la secuencia
)

// LedgerBreak una inconsistencia encontrada al reproducir el libro.
type LedgerBreak struct {
	Kind       string
	Sequence   int64
	MovementID string
	Expected   decimal.Decimal
	Actual     decimal.Decimal
}

func (b LedgerBreak) String() string {
	return fmt.Sprintf("%s en secuencia %d (esperado %s, encontrado %s)", b.Kind, b.Sequence, b.Expected, b.Actual)
}

// VerifyMovements reproduce el libro (orden ascendente de secuencia) desde baseline
// y devuelve las rupturas encontradas junto con el saldo final reconstruido.
func VerifyMovements(movements []entity.Movement, baseline decimal.Decimal) ([]LedgerBreak, decimal.Decimal) {
	var breaks []LedgerBreak
	running := baseline
	var expectedSeq int64 = 1
	for _, m := range movements {
		if m.Sequence != expectedSeq {
			breaks = append(breaks, LedgerBreak{
				Kind: BreakSequence, Sequence: m.Sequence, MovementID: m.ID,
				Expected: decimal.NewFromInt(expectedSeq), Actual: decimal.NewFromInt(m.Sequence),
			})
		}
		expectedSeq = m.Sequence + 1
		if !m.PreviousStock.Equal(running) {
			breaks = append(breaks, LedgerBreak{
				Kind: BreakChain, Sequence: m.Sequence, MovementID: m.ID,
				Expected: running, Actual: m.PreviousStock,
			})
		}
		if !m.Balanced() {
			breaks = append(breaks, LedgerBreak{
				Kind: BreakArithmetic, Sequence: m.Sequence, MovementID: m.ID,
				Expected: m.PreviousStock.Add(m.Quantity), Actual: m.NewStock,
			})
		}
		running = m.NewStock
	}
	return breaks, running
}

// MovementDraft datos de un asiento antes de conocer su secuencia y saldos.
type MovementDraft struct {
	Type      string
	UnitCost  decimal.Decimal
	TotalCost decimal.Decimal
	Reason    string
	Actor     string
	OrderID   string
	ReceiptID string
}

// NewMovement arma el asiento siguiente a last (nil = primer asiento de la variante).
// previous y next son las proyecciones antes y después de la mutación.
func NewMovement(variantID string, last *entity.Movement, previous, next decimal.Decimal, d MovementDraft, now time.Time) entity.Movement {
	var seq int64 = 1
	if last != nil {
		seq = last.Sequence + 1
	}
	return entity.Movement{
		ID:            uuid.New().String(),
		VariantID:     variantID,
		Sequence:      seq,
		Type:          d.Type,
		Quantity:      next.Sub(previous),
		PreviousStock: previous,
		NewStock:      next,
		UnitCost:      d.UnitCost,
		TotalCost:     d.TotalCost,
		Reason:        d.Reason,
		Actor:         d.Actor,
		OrderID:       d.OrderID,
		ReceiptID:     d.ReceiptID,
		CreatedAt:     now,
	}
}
