package http

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

func toMovementResponse(m entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID,
		VariantID:     m.VariantID,
		Sequence:      m.Sequence,
		Type:          m.Type,
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		UnitCost:      m.UnitCost,
		TotalCost:     m.TotalCost,
		Reason:        m.Reason,
		Actor:         m.Actor,
		OrderID:       m.OrderID,
		ReceiptID:     m.ReceiptID,
		CreatedAt:     m.CreatedAt,
	}
}

// toBatchResponse marca vencido respecto a asOf, el instante de la lectura.
func toBatchResponse(b entity.Batch, asOf time.Time) dto.BatchResponse {
	return dto.BatchResponse{
		ID:               b.ID,
		WarehouseID:      b.WarehouseID,
		LotCode:          b.LotCode,
		Quantity:         b.Quantity,
		ReceivedQuantity: b.ReceivedQuantity,
		UnitCost:         b.UnitCost,
		Incoming:         b.Incoming,
		ReceivedAt:       b.ReceivedAt,
		ExpiryDate:       b.ExpiryDate,
		OrderID:          b.OrderID,
		ItemIndex:        b.ItemIndex,
		Depleted:         b.IsDepleted(),
		Expired:          b.IsExpired(asOf),
	}
}

func toStockResponse(v *inventory.StockView) dto.StockResponse {
	out := dto.StockResponse{
		VariantID:     v.Variant.ID,
		SKU:           v.Variant.SKU,
		Version:       v.Variant.Version,
		OnHand:        v.OnHand,
		Incoming:      v.Incoming,
		Valuation:     v.Valuation,
		AverageCost:   v.AverageCost,
		CostingMethod: string(v.CostingMethod),
		Batches:       make([]dto.BatchResponse, 0, len(v.Batches)),
	}
	for _, b := range v.Batches {
		out.Batches = append(out.Batches, toBatchResponse(b, v.AsOf))
	}
	return out
}

func toReceiptResponse(r entity.Receipt) dto.ReceiptResponse {
	return dto.ReceiptResponse{
		ID:         r.ID,
		OrderID:    r.OrderID,
		ItemIndex:  r.ItemIndex,
		Quantity:   r.Quantity,
		BatchRef:   r.BatchRef,
		MovementID: r.MovementID,
		Status:     r.Status,
		ReceivedAt: r.ReceivedAt,
		CreatedBy:  r.CreatedBy,
	}
}

func toOrderResponse(o *entity.InventoryOrder) dto.OrderResponse {
	out := dto.OrderResponse{
		ID:          o.ID,
		Code:        o.Code,
		Type:        o.Type,
		Status:      o.Status,
		Items:       make([]dto.OrderItemResponse, 0, len(o.Items)),
		Receipts:    make([]dto.ReceiptResponse, 0, len(o.Receipts)),
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		CompletedAt: o.CompletedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, dto.OrderItemResponse{
			VariantID:        it.VariantID,
			Quantity:         it.Quantity,
			ReceivedQuantity: it.ReceivedQuantity,
			Remaining:        it.Remaining(),
			UnitCost:         it.UnitCost,
			BatchRef:         it.BatchRef,
		})
	}
	for _, r := range o.Receipts {
		out.Receipts = append(out.Receipts, toReceiptResponse(r))
	}
	return out
}

func toReconcileResponse(r *inventory.ReconcileReport) dto.ReconcileResponse {
	out := dto.ReconcileResponse{
		OrderID:          r.OrderID,
		Changed:          r.Changed(),
		StatusBefore:     r.StatusBefore,
		StatusAfter:      r.StatusAfter,
		Items:            make([]dto.ItemCorrectionResponse, 0, len(r.Items)),
		BatchesCreated:   r.BatchesCreated,
		BatchesCorrected: r.BatchesCorrected,
		Movements:        make([]dto.MovementResponse, 0, len(r.Movements)),
		Findings:         r.Findings,
	}
	for _, it := range r.Items {
		out.Items = append(out.Items, dto.ItemCorrectionResponse{
			ItemIndex: it.ItemIndex,
			VariantID: it.VariantID,
			Before:    it.Before,
			After:     it.After,
		})
	}
	for _, m := range r.Movements {
		out.Movements = append(out.Movements, toMovementResponse(m))
	}
	return out
}

func toVerifyResponse(r *inventory.VerifyReport) dto.VerifyResponse {
	out := dto.VerifyResponse{
		VariantID:      r.VariantID,
		Entries:        r.Entries,
		LedgerStock:    r.LedgerStock,
		ProjectedStock: r.ProjectedStock,
		Consistent:     r.Consistent,
		Breaks:         make([]dto.LedgerBreakResponse, 0, len(r.Breaks)),
	}
	for _, b := range r.Breaks {
		out.Breaks = append(out.Breaks, dto.LedgerBreakResponse{
			Kind:       b.Kind,
			Sequence:   b.Sequence,
			MovementID: b.MovementID,
			Expected:   b.Expected,
			Actual:     b.Actual,
		})
	}
	return out
}

func driftResponse(findings []entity.DriftFinding) dto.DriftResponse {
	if findings == nil {
		findings = []entity.DriftFinding{}
	}
	return dto.DriftResponse{Count: len(findings), Findings: findings}
}
