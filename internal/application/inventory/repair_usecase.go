package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

const (
	scanPageSize    = 200
	scanConcurrency = 4
)

// RepairUseCase herramientas de mantenimiento fuera de línea: verificación del libro,
// detección de desvíos, recálculo de entrante y reconstrucción de recepciones.
type RepairUseCase struct {
	*Engine
	reconcile *ReconcileUseCase
}

// NewRepairUseCase construye el caso de uso.
func NewRepairUseCase(e *Engine) *RepairUseCase {
	return &RepairUseCase{Engine: e, reconcile: NewReconcileUseCase(e)}
}

// VerifyReport resultado de reproducir el libro de una variante.
type VerifyReport struct {
	VariantID      string                  `json:"variant_id"`
	Entries        int                     `json:"entries"`
	LedgerStock    decimal.Decimal         `json:"ledger_stock"`
	ProjectedStock decimal.Decimal         `json:"projected_stock"`
	Breaks         []invdomain.LedgerBreak `json:"breaks"`
	Consistent     bool                    `json:"consistent"`
}

// BackfillReport recepciones reconstruidas por orden.
type BackfillReport struct {
	ReceiptsCreated map[string][]string   `json:"receipts_created"`
	Findings        []entity.DriftFinding `json:"findings"`
}

// VerifyVariant reproduce el libro desde cero y compara el saldo final con la proyección de lotes.
func (uc *RepairUseCase) VerifyVariant(ctx context.Context, variantID string) (*VerifyReport, error) {
	var rep *VerifyReport
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		v, err := r.Variants.GetByID(ctx, variantID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.ErrNotFound
		}
		movs, err := r.Movements.ListForReplay(ctx, variantID)
		if err != nil {
			return err
		}
		batches, err := r.Batches.ListByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		breaks, final := invdomain.VerifyMovements(movs, decimal.Zero)
		projected := invdomain.ProjectedStock(batches)
		rep = &VerifyReport{
			VariantID:      variantID,
			Entries:        len(movs),
			LedgerStock:    final,
			ProjectedStock: projected,
			Breaks:         breaks,
			Consistent:     len(breaks) == 0 && final.Equal(projected),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rep.Consistent {
		uc.log.Warn().Str("variant_id", variantID).
			Int("breaks", len(rep.Breaks)).
			Str("ledger_stock", rep.LedgerStock.String()).
			Str("projected_stock", rep.ProjectedStock.String()).
			Msg("el libro no cuadra con los lotes")
	}
	return rep, nil
}

// DetectDrift revisa todas las variantes y órdenes y reporta desvíos sin corregirlos.
// Con strict=true devuelve además ErrDriftDetected si hubo hallazgos.
func (uc *RepairUseCase) DetectDrift(ctx context.Context, strict bool) ([]entity.DriftFinding, error) {
	variants, err := uc.allVariants(ctx)
	if err != nil {
		return nil, err
	}
	var (
		mu       sync.Mutex
		findings []entity.DriftFinding
	)
	add := func(f ...entity.DriftFinding) {
		mu.Lock()
		findings = append(findings, f...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, id := range variants {
		id := id
		g.Go(func() error {
			f, err := uc.variantDrift(gctx, id)
			if err != nil {
				return fmt.Errorf("variante %s: %w", id, err)
			}
			add(f...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	orders, err := uc.allOrders(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		add(orderDrift(o)...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Kind != findings[j].Kind {
			return findings[i].Kind < findings[j].Kind
		}
		if findings[i].VariantID != findings[j].VariantID {
			return findings[i].VariantID < findings[j].VariantID
		}
		return findings[i].OrderID < findings[j].OrderID
	})
	uc.reportFindings(findings)
	if strict && len(findings) > 0 {
		return findings, fmt.Errorf("%w: %d hallazgos", domain.ErrDriftDetected, len(findings))
	}
	return findings, nil
}

func (uc *RepairUseCase) variantDrift(ctx context.Context, variantID string) ([]entity.DriftFinding, error) {
	var out []entity.DriftFinding
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		batches, err := r.Batches.ListByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		movs, err := r.Movements.ListForReplay(ctx, variantID)
		if err != nil {
			return err
		}
		for _, b := range batches {
			if b.Quantity.IsNegative() {
				out = append(out, entity.DriftFinding{
					Kind: entity.DriftNegativeBatch, VariantID: variantID, BatchID: b.ID,
					Expected: decimal.Zero, Actual: b.Quantity, Details: "lote con cantidad negativa",
				})
			}
		}
		breaks, final := invdomain.VerifyMovements(movs, decimal.Zero)
		for _, br := range breaks {
			out = append(out, entity.DriftFinding{
				Kind: entity.DriftLedgerBroken, VariantID: variantID,
				Expected: br.Expected, Actual: br.Actual, Details: br.String(),
			})
		}
		projected := invdomain.ProjectedStock(batches)
		if !final.Equal(projected) {
			out = append(out, entity.DriftFinding{
				Kind: entity.DriftLedgerMismatch, VariantID: variantID,
				Expected: final, Actual: projected,
				Details: "el saldo del libro no coincide con Σ lotes",
			})
		}
		return nil
	})
	return out, err
}

func orderDrift(o *entity.InventoryOrder) []entity.DriftFinding {
	var out []entity.DriftFinding
	sums := o.ReceivedByItem()
	for i, it := range o.Items {
		idx := i
		if !it.ReceivedQuantity.Equal(sums[i]) {
			out = append(out, entity.DriftFinding{
				Kind: entity.DriftReceivedCounter, VariantID: it.VariantID, OrderID: o.ID, ItemIndex: &idx,
				Expected: sums[i], Actual: it.ReceivedQuantity,
				Details: "receivedQuantity no coincide con Σ recepciones completadas",
			})
		}
		if sums[i].GreaterThan(it.Quantity) {
			out = append(out, entity.DriftFinding{
				Kind: entity.DriftOverReceived, VariantID: it.VariantID, OrderID: o.ID, ItemIndex: &idx,
				Expected: it.Quantity, Actual: sums[i], Details: "recepciones por encima de lo ordenado",
			})
		}
	}
	if o.Type != entity.OrderTypePurchase {
		for _, rc := range o.Receipts {
			if rc.Status == entity.ReceiptStatusCompleted && rc.MovementID == "" {
				out = append(out, missingMovement(o, rc))
			}
		}
	}
	return out
}

// RecomputeIncoming reescribe el contador Incoming de cada lote. Devuelve cuántos lotes cambiaron.
func (uc *RepairUseCase) RecomputeIncoming(ctx context.Context) (int, error) {
	variants, err := uc.allVariants(ctx)
	if err != nil {
		return 0, err
	}
	var (
		mu      sync.Mutex
		updated int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, id := range variants {
		id := id
		g.Go(func() error {
			n, err := uc.recomputeVariantIncoming(gctx, id)
			if err != nil {
				return fmt.Errorf("variante %s: %w", id, err)
			}
			mu.Lock()
			updated += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return updated, err
	}
	uc.log.Info().Int("variants", len(variants)).Int("batches_updated", updated).Msg("entrante recalculado")
	return updated, nil
}

func (uc *RepairUseCase) recomputeVariantIncoming(ctx context.Context, variantID string) (int, error) {
	n := 0
	err := uc.withVariant(ctx, variantID, decimal.Zero, func(ctx context.Context, r Repos) error {
		batches, err := r.Batches.ListByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		orders, err := r.Orders.ListPendingPurchasesByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		for _, b := range invdomain.Changed(batches, invdomain.RefreshIncoming(batches, orders)) {
			b := b
			if err := r.Batches.Update(ctx, &b); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// BackfillReceipts crea las recepciones faltantes de órdenes históricas: cada lote con orden e ítem
// que ninguna recepción referencia recibe una recepción completada por su cantidad original.
// Luego recalcula acumulados y estado de la orden. Es idempotente.
func (uc *RepairUseCase) BackfillReceipts(ctx context.Context, actor string) (*BackfillReport, error) {
	orders, err := uc.allOrders(ctx)
	if err != nil {
		return nil, err
	}
	rep := &BackfillReport{ReceiptsCreated: map[string][]string{}}
	for _, o := range orders {
		var orphans []entity.Batch
		err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
			batches, err := r.Batches.ListByOrder(ctx, o.ID)
			if err != nil {
				return err
			}
			orphans = unreferencedBatches(o, batches)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(orphans) == 0 {
			continue
		}

		err = uc.withOrder(ctx, o.ID, orderVariants(o), decimal.Zero, func(ctx context.Context, r Repos) error {
			locked, err := r.Orders.GetForUpdate(ctx, o.ID)
			if err != nil {
				return err
			}
			if locked == nil {
				return domain.ErrNotFound
			}
			batches, err := r.Batches.ListByOrder(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, b := range unreferencedBatches(locked, batches) {
				rc := entity.Receipt{
					ID:         uuid.New().String(),
					OrderID:    locked.ID,
					ItemIndex:  *b.ItemIndex,
					Quantity:   b.ReceivedQuantity,
					BatchRef:   b.ID,
					Status:     entity.ReceiptStatusCompleted,
					ReceivedAt: b.ReceivedAt,
					CreatedBy:  actor,
				}
				if err := r.Orders.AddReceipt(ctx, &rc); err != nil {
					return err
				}
				locked.Receipts = append(locked.Receipts, rc)
				rep.ReceiptsCreated[locked.ID] = append(rep.ReceiptsCreated[locked.ID], rc.ID)
			}
			_, findings := recount(locked)
			rep.Findings = append(rep.Findings, findings...)
			recomputeStatus(locked, uc.now())
			locked.UpdatedAt = uc.now()
			return r.Orders.Update(ctx, locked)
		})
		if err != nil {
			return nil, err
		}
	}
	uc.reportFindings(rep.Findings)
	uc.log.Info().Int("orders", len(rep.ReceiptsCreated)).Msg("recepciones reconstruidas")
	return rep, nil
}

// ReconcileAll concilia todas las órdenes (uso operativo; cada orden en su propia transacción).
func (uc *RepairUseCase) ReconcileAll(ctx context.Context, actor string) ([]*ReconcileReport, error) {
	orders, err := uc.allOrders(ctx)
	if err != nil {
		return nil, err
	}
	var out []*ReconcileReport
	for _, o := range orders {
		rep, err := uc.reconcile.ReconcileOrder(ctx, o.ID, actor)
		if err != nil {
			return out, fmt.Errorf("orden %s: %w", o.ID, err)
		}
		if rep.Changed() || len(rep.Findings) > 0 {
			out = append(out, rep)
		}
	}
	return out, nil
}

func unreferencedBatches(o *entity.InventoryOrder, batches []entity.Batch) []entity.Batch {
	referenced := make(map[string]bool, len(o.Receipts))
	for _, rc := range o.Receipts {
		referenced[rc.BatchRef] = true
	}
	var out []entity.Batch
	for _, b := range batches {
		if b.OrderID != o.ID || b.ItemIndex == nil || referenced[b.ID] {
			continue
		}
		if *b.ItemIndex < 0 || *b.ItemIndex >= len(o.Items) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (uc *RepairUseCase) allVariants(ctx context.Context) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += scanPageSize {
		var page []*entity.Variant
		err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
			var err error
			page, err = r.Variants.List(ctx, scanPageSize, offset)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, v := range page {
			ids = append(ids, v.ID)
		}
		if len(page) < scanPageSize {
			return ids, nil
		}
	}
}

// allOrders recorre por cursor (created_at, id): una orden creada durante el recorrido no desplaza a las demás.
func (uc *RepairUseCase) allOrders(ctx context.Context) ([]*entity.InventoryOrder, error) {
	var out []*entity.InventoryOrder
	var after repository.OrderCursor
	for {
		var page []*entity.InventoryOrder
		err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
			var err error
			page, err = r.Orders.ListAfter(ctx, after, scanPageSize)
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < scanPageSize {
			return out, nil
		}
		after = repository.CursorOf(page[len(page)-1])
	}
}
