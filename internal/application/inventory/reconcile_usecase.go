package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// ReconcileUseCase repara una orden a partir de su historial de recepciones.
// Es idempotente: una segunda corrida sobre el mismo estado no cambia nada.
type ReconcileUseCase struct {
	*Engine
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(e *Engine) *ReconcileUseCase {
	return &ReconcileUseCase{Engine: e}
}

// ItemCorrection acumulado de un ítem recalculado desde sus recepciones.
type ItemCorrection struct {
	ItemIndex int             `json:"item_index"`
	VariantID string          `json:"variant_id"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
}

// ReconcileReport lo que hizo (o encontró) la conciliación de una orden.
type ReconcileReport struct {
	OrderID          string                `json:"order_id"`
	StatusBefore     string                `json:"status_before"`
	StatusAfter      string                `json:"status_after"`
	Items            []ItemCorrection      `json:"items"`
	BatchesCreated   []string              `json:"batches_created"`
	BatchesCorrected []string              `json:"batches_corrected"`
	Movements        []entity.Movement     `json:"movements"`
	Findings         []entity.DriftFinding `json:"findings"`
}

// Changed indica si la conciliación modificó algo.
func (r *ReconcileReport) Changed() bool {
	return len(r.Items) > 0 || r.StatusBefore != r.StatusAfter ||
		len(r.BatchesCreated) > 0 || len(r.BatchesCorrected) > 0
}

// ReconcileOrder recalcula los acumulados de la orden desde las recepciones completadas,
// recalcula su estado y, en compras, reconstruye o corrige los lotes de cada recepción
// mediante asientos REPAIR. Lo que no puede corregir lo reporta como hallazgo.
func (uc *ReconcileUseCase) ReconcileOrder(ctx context.Context, orderID, actor string) (*ReconcileReport, error) {
	var current *entity.InventoryOrder
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		var err error
		current, err = r.Orders.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	var report *ReconcileReport
	err = uc.withOrder(ctx, orderID, orderVariants(current), decimal.Zero, func(ctx context.Context, r Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		report = &ReconcileReport{OrderID: o.ID, StatusBefore: o.Status}

		items, findings := recount(o)
		report.Items = items
		report.Findings = append(report.Findings, findings...)
		recomputeStatus(o, uc.now())
		report.StatusAfter = o.Status

		if o.Type == entity.OrderTypePurchase {
			if err := uc.repairPurchaseBatches(ctx, r, o, actor, report); err != nil {
				return err
			}
		} else {
			for _, rc := range o.Receipts {
				if rc.Status == entity.ReceiptStatusCompleted && rc.MovementID == "" {
					report.Findings = append(report.Findings, missingMovement(o, rc))
				}
			}
		}

		if len(report.Items) > 0 || report.StatusBefore != report.StatusAfter {
			o.UpdatedAt = uc.now()
			if err := r.Orders.Update(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.reportFindings(report.Findings)
	if report.Changed() {
		uc.log.Info().Str("order_id", orderID).
			Int("items", len(report.Items)).
			Int("batches_created", len(report.BatchesCreated)).
			Int("batches_corrected", len(report.BatchesCorrected)).
			Msg("orden conciliada")
	}
	return report, nil
}

// repairPurchaseBatches garantiza que cada recepción completada tenga su lote con la cantidad recibida.
func (uc *ReconcileUseCase) repairPurchaseBatches(ctx context.Context, r Repos, o *entity.InventoryOrder, actor string, report *ReconcileReport) error {
	batches, err := r.Batches.ListByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	byID := make(map[string]entity.Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}

	for i, rc := range o.Receipts {
		if rc.Status != entity.ReceiptStatusCompleted || rc.ItemIndex < 0 || rc.ItemIndex >= len(o.Items) {
			continue
		}
		item := o.Items[rc.ItemIndex]
		b, ok := byID[rc.BatchRef]
		switch {
		case !ok:
			rc := rc
			var created entity.Batch
			mov, err := uc.record(ctx, r, item.VariantID, func(current []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
				at := rc.ReceivedAt
				nb, err := uc.store.Receive(item.VariantID, current, rc.Quantity, item.UnitCost, entity.BatchMeta{LotCode: item.BatchRef, ReceivedAt: &at})
				if err != nil {
					return nil, invdomain.MovementDraft{}, err
				}
				idx := rc.ItemIndex
				nb.OrderID = o.ID
				nb.ItemIndex = &idx
				created = nb
				return uc.costing.ApplyReceipt(current, nb), invdomain.MovementDraft{
					Type:      entity.MovementTypeREPAIR,
					UnitCost:  item.UnitCost,
					TotalCost: rc.Quantity.Mul(item.UnitCost),
					Reason:    "conciliación: lote faltante de la recepción " + rc.ID,
					Actor:     actor,
					OrderID:   o.ID,
					ReceiptID: rc.ID,
				}, nil
			})
			if err != nil {
				return err
			}
			rc.BatchRef = created.ID
			if rc.MovementID == "" {
				rc.MovementID = mov.ID
			}
			if err := r.Orders.UpdateReceipt(ctx, &rc); err != nil {
				return err
			}
			o.Receipts[i] = rc
			report.BatchesCreated = append(report.BatchesCreated, created.ID)
			report.Movements = append(report.Movements, *mov)

		case !b.ReceivedQuantity.Equal(rc.Quantity):
			delta := rc.Quantity.Sub(b.ReceivedQuantity)
			if b.Quantity.Add(delta).IsNegative() {
				idx := rc.ItemIndex
				report.Findings = append(report.Findings, entity.DriftFinding{
					Kind: entity.DriftReceivedCounter, VariantID: item.VariantID, OrderID: o.ID, BatchID: b.ID,
					ItemIndex: &idx, Expected: rc.Quantity, Actual: b.ReceivedQuantity,
					Details: "el lote ya se consumió; la corrección lo dejaría negativo",
				})
				continue
			}
			mov, err := uc.record(ctx, r, item.VariantID, func(current []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
				out := invdomain.SortFIFO(current)
				for j := range out {
					if out[j].ID == b.ID {
						out[j].Quantity = out[j].Quantity.Add(delta)
						out[j].ReceivedQuantity = rc.Quantity
						out[j].UpdatedAt = uc.now()
					}
				}
				return out, invdomain.MovementDraft{
					Type:      entity.MovementTypeREPAIR,
					UnitCost:  b.UnitCost,
					TotalCost: delta.Mul(b.UnitCost),
					Reason:    "conciliación: lote " + b.ID + " ajustado a la recepción " + rc.ID,
					Actor:     actor,
					OrderID:   o.ID,
					ReceiptID: rc.ID,
				}, nil
			})
			if err != nil {
				return err
			}
			report.BatchesCorrected = append(report.BatchesCorrected, b.ID)
			report.Movements = append(report.Movements, *mov)
		}
	}
	return nil
}

// recount recalcula receivedQuantity de cada ítem como Σ recepciones completadas.
// Si la suma supera lo ordenado se deja la suma real y se reporta, nunca se trunca.
func recount(o *entity.InventoryOrder) ([]ItemCorrection, []entity.DriftFinding) {
	sums := o.ReceivedByItem()
	var items []ItemCorrection
	var findings []entity.DriftFinding
	for i := range o.Items {
		it := &o.Items[i]
		want := sums[i]
		if !it.ReceivedQuantity.Equal(want) {
			items = append(items, ItemCorrection{ItemIndex: i, VariantID: it.VariantID, Before: it.ReceivedQuantity, After: want})
			it.ReceivedQuantity = want
		}
		if want.GreaterThan(it.Quantity) {
			idx := i
			findings = append(findings, entity.DriftFinding{
				Kind: entity.DriftOverReceived, VariantID: it.VariantID, OrderID: o.ID, ItemIndex: &idx,
				Expected: it.Quantity, Actual: want,
				Details: fmt.Sprintf("las recepciones suman más de lo ordenado (%s)", domain.ErrOverReceipt),
			})
		}
	}
	return items, findings
}

// recomputeStatus pending ↔ completed según lo recibido; cancelled es terminal.
func recomputeStatus(o *entity.InventoryOrder, now time.Time) {
	if o.Status == entity.OrderStatusCancelled {
		return
	}
	if o.AllReceived() {
		if o.Status != entity.OrderStatusCompleted {
			o.Status = entity.OrderStatusCompleted
			o.CompletedAt = &now
		}
		return
	}
	o.Status = entity.OrderStatusPending
	o.CompletedAt = nil
}

func missingMovement(o *entity.InventoryOrder, rc entity.Receipt) entity.DriftFinding {
	idx := rc.ItemIndex
	variantID := ""
	if idx >= 0 && idx < len(o.Items) {
		variantID = o.Items[idx].VariantID
	}
	return entity.DriftFinding{
		Kind: entity.DriftMissingMovement, VariantID: variantID, OrderID: o.ID, ItemIndex: &idx,
		Expected: rc.Quantity, Actual: decimal.Zero,
		Details: "recepción " + rc.ID + " sin asiento en el libro",
	}
}

func orderVariants(o *entity.InventoryOrder) []string {
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.VariantID)
	}
	return ids
}

func (e *Engine) reportFindings(findings []entity.DriftFinding) {
	counts := map[string]int{}
	for _, f := range findings {
		counts[f.Kind]++
		e.log.Warn().
			Str("kind", f.Kind).
			Str("variant_id", f.VariantID).
			Str("order_id", f.OrderID).
			Str("batch_id", f.BatchID).
			Str("expected", f.Expected.String()).
			Str("actual", f.Actual.String()).
			Msg(f.Details)
	}
	for kind, n := range counts {
		e.metrics.DriftFound(kind, n)
	}
}
