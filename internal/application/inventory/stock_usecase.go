package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// StockUseCase operaciones de stock: entradas, salidas, ajustes, traslados y consultas.
// Cada mutación bloquea la variante, corre en una transacción y deja exactamente un asiento
// (dos en traslados) en el libro.
type StockUseCase struct {
	*Engine
}

// NewStockUseCase construye el caso de uso sobre el motor compartido.
func NewStockUseCase(e *Engine) *StockUseCase {
	return &StockUseCase{Engine: e}
}

// ReceiveInput entrada de stock (nuevo lote).
type ReceiveInput struct {
	VariantID     string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	SourceOrderID string
	Meta          entity.BatchMeta
	Reason        string
	Actor         string
}

// IssueInput salida de stock por FIFO. WarehouseID vacío = cualquier bodega.
type IssueInput struct {
	VariantID     string
	Quantity      decimal.Decimal
	Reason        string
	SourceOrderID string
	WarehouseID   string
	Actor         string
}

// AdjustInput ajuste manual. Con BatchID corrige ese lote; sin BatchID un delta positivo crea
// un lote nuevo (UnitCost o el costo promedio vigente) y uno negativo descuenta por FIFO.
type AdjustInput struct {
	VariantID   string
	Delta       decimal.Decimal
	Reason      string
	BatchID     string
	UnitCost    *decimal.Decimal
	WarehouseID string
	Actor       string
}

// TransferInput traslado de stock de una variante entre bodegas.
type TransferInput struct {
	VariantID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        decimal.Decimal
	Reason          string
	Actor           string
}

// StockView stock derivado de una variante. Nada de esto se persiste.
// AsOf es el instante de la lectura; contra él se evalúa el vencimiento de los lotes.
type StockView struct {
	Variant       entity.Variant
	OnHand        decimal.Decimal
	Incoming      decimal.Decimal
	Valuation     decimal.Decimal
	AverageCost   decimal.Decimal
	CostingMethod invdomain.CostingMethod
	Batches       []entity.Batch
	AsOf          time.Time
}

// ReceiveStock agrega un lote y registra un asiento IN.
func (uc *StockUseCase) ReceiveStock(ctx context.Context, in ReceiveInput) (*entity.Movement, error) {
	if strings.TrimSpace(in.VariantID) == "" {
		return nil, domain.ErrInvalidInput
	}
	var mov *entity.Movement
	err := uc.withVariant(ctx, in.VariantID, in.Quantity, func(ctx context.Context, r Repos) error {
		if err := uc.checkWarehouse(ctx, r, in.Meta.WarehouseID); err != nil {
			return err
		}
		m, err := uc.record(ctx, r, in.VariantID, func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
			b, err := uc.store.Receive(in.VariantID, batches, in.Quantity, in.UnitCost, in.Meta)
			if err != nil {
				return nil, invdomain.MovementDraft{}, err
			}
			b.OrderID = in.SourceOrderID
			return uc.costing.ApplyReceipt(batches, b), invdomain.MovementDraft{
				Type:      entity.MovementTypeIN,
				UnitCost:  in.UnitCost,
				TotalCost: in.Quantity.Mul(in.UnitCost),
				Reason:    in.Reason,
				Actor:     in.Actor,
				OrderID:   in.SourceOrderID,
			}, nil
		})
		mov = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// IssueStock descuenta por FIFO y registra un asiento OUT con el costo de lo entregado.
// Falla con ErrInsufficientStock (sin tocar nada) si el disponible no alcanza.
func (uc *StockUseCase) IssueStock(ctx context.Context, in IssueInput) (*entity.Movement, error) {
	if strings.TrimSpace(in.VariantID) == "" {
		return nil, domain.ErrInvalidInput
	}
	var mov *entity.Movement
	err := uc.withVariant(ctx, in.VariantID, in.Quantity, func(ctx context.Context, r Repos) error {
		if err := uc.checkWarehouse(ctx, r, in.WarehouseID); err != nil {
			return err
		}
		m, err := uc.record(ctx, r, in.VariantID, issueMutation(uc.Engine, in.VariantID, in.Quantity, in.WarehouseID, invdomain.MovementDraft{
			Type:    entity.MovementTypeOUT,
			Reason:  in.Reason,
			Actor:   in.Actor,
			OrderID: in.SourceOrderID,
		}))
		mov = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// issueMutation descuento FIFO común a salidas, ajustes negativos y recepciones de venta.
func issueMutation(e *Engine, variantID string, qty decimal.Decimal, warehouseID string, draft invdomain.MovementDraft) mutation {
	return func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
		after, portions, err := e.store.Consume(variantID, batches, qty, warehouseID)
		if err != nil {
			return nil, draft, err
		}
		unit, total := e.costing.IssueCost(batches, portions)
		draft.UnitCost = unit
		draft.TotalCost = total.Neg()
		return after, draft, nil
	}
}

// AdjustStock corrige stock (toma física). delta con signo; nunca cero.
func (uc *StockUseCase) AdjustStock(ctx context.Context, in AdjustInput) (*entity.Movement, error) {
	if strings.TrimSpace(in.VariantID) == "" {
		return nil, domain.ErrInvalidInput
	}
	var mov *entity.Movement
	err := uc.withVariant(ctx, in.VariantID, in.Delta, func(ctx context.Context, r Repos) error {
		if err := uc.checkWarehouse(ctx, r, in.WarehouseID); err != nil {
			return err
		}
		m, err := uc.record(ctx, r, in.VariantID, uc.adjust(in))
		mov = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

func (uc *StockUseCase) adjust(in AdjustInput) mutation {
	draft := invdomain.MovementDraft{Type: entity.MovementTypeADJUSTMENT, Reason: in.Reason, Actor: in.Actor}
	return func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
		if in.Delta.IsZero() {
			return nil, draft, domain.NewViolation(domain.ErrInvalidQuantity, "el ajuste no puede ser cero",
				in.VariantID, invdomain.ProjectedStock(batches), in.Delta)
		}
		if in.BatchID != "" {
			after, err := uc.store.Adjust(in.VariantID, batches, in.BatchID, in.Delta)
			if err != nil {
				return nil, draft, err
			}
			for _, b := range after {
				if b.ID == in.BatchID {
					draft.UnitCost = b.UnitCost
					draft.TotalCost = in.Delta.Mul(b.UnitCost)
				}
			}
			return after, draft, nil
		}
		if in.Delta.IsNegative() {
			return issueMutation(uc.Engine, in.VariantID, in.Delta.Neg(), in.WarehouseID, draft)(batches)
		}
		cost := invdomain.AverageCost(batches)
		if in.UnitCost != nil {
			cost = *in.UnitCost
		}
		b, err := uc.store.Receive(in.VariantID, batches, in.Delta, cost, entity.BatchMeta{WarehouseID: in.WarehouseID})
		if err != nil {
			return nil, draft, err
		}
		draft.UnitCost = cost
		draft.TotalCost = in.Delta.Mul(cost)
		return uc.costing.ApplyReceipt(batches, b), draft, nil
	}
}

// TransferStock mueve stock entre bodegas de la misma variante: TRANSFER_OUT y TRANSFER_IN en una
// sola transacción. Las porciones conservan costo y fecha de recepción (misma posición FIFO).
func (uc *StockUseCase) TransferStock(ctx context.Context, in TransferInput) ([]entity.Movement, error) {
	if strings.TrimSpace(in.VariantID) == "" || in.FromWarehouseID == "" || in.ToWarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.ErrInvalidInput
	}
	var movs []entity.Movement
	err := uc.withVariant(ctx, in.VariantID, in.Quantity, func(ctx context.Context, r Repos) error {
		if err := uc.checkWarehouse(ctx, r, in.FromWarehouseID); err != nil {
			return err
		}
		if err := uc.checkWarehouse(ctx, r, in.ToWarehouseID); err != nil {
			return err
		}
		var portions []invdomain.Portion
		out, err := uc.record(ctx, r, in.VariantID, func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
			draft := invdomain.MovementDraft{Type: entity.MovementTypeTransferOut, Reason: in.Reason, Actor: in.Actor}
			after, p, err := uc.store.Consume(in.VariantID, batches, in.Quantity, in.FromWarehouseID)
			if err != nil {
				return nil, draft, err
			}
			portions = p
			total := invdomain.CostOfGoodsIssued(p)
			draft.UnitCost = total.Div(in.Quantity)
			draft.TotalCost = total.Neg()
			return after, draft, nil
		})
		if err != nil {
			return err
		}
		inMov, err := uc.record(ctx, r, in.VariantID, func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
			draft := invdomain.MovementDraft{Type: entity.MovementTypeTransferIn, Reason: in.Reason, Actor: in.Actor}
			after := invdomain.SortFIFO(batches)
			for _, p := range portions {
				at := p.ReceivedAt
				b, err := uc.store.Receive(in.VariantID, batches, p.Quantity, p.UnitCost, entity.BatchMeta{
					WarehouseID: in.ToWarehouseID,
					LotCode:     lotCodeOf(batches, p.BatchID),
					ReceivedAt:  &at,
				})
				if err != nil {
					return nil, draft, err
				}
				after = append(after, b)
			}
			draft.UnitCost = out.UnitCost
			draft.TotalCost = out.TotalCost.Neg()
			return after, draft, nil
		})
		if err != nil {
			return err
		}
		movs = []entity.Movement{*out, *inMov}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movs, nil
}

// GetStock devuelve el stock derivado: disponible, entrante, valuación y lotes.
func (uc *StockUseCase) GetStock(ctx context.Context, variantID string) (*StockView, error) {
	var view *StockView
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		v, err := r.Variants.GetByID(ctx, variantID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.ErrNotFound
		}
		batches, err := r.Batches.ListByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		orders, err := r.Orders.ListPendingPurchasesByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		batches = invdomain.SortFIFO(batches)
		view = &StockView{
			Variant:       *v,
			OnHand:        invdomain.ProjectedStock(batches),
			Incoming:      invdomain.Incoming(orders, variantID),
			Valuation:     invdomain.Valuation(batches),
			AverageCost:   invdomain.AverageCost(batches),
			CostingMethod: uc.costing.Method(),
			Batches:       batches,
			AsOf:          uc.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// MovementPage página del historial con el límite y offset efectivamente aplicados.
type MovementPage struct {
	Items  []*entity.Movement
	Limit  int
	Offset int
}

// GetMovementHistory movimientos de la variante, más recientes primero. limit se acota al máximo configurado.
func (uc *StockUseCase) GetMovementHistory(ctx context.Context, variantID string, limit, offset int) (*MovementPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > uc.cfg.HistoryMaxLimit {
		limit = uc.cfg.HistoryMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	var out []*entity.Movement
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		v, err := r.Variants.GetByID(ctx, variantID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.ErrNotFound
		}
		out, err = r.Movements.ListByVariant(ctx, variantID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &MovementPage{Items: out, Limit: limit, Offset: offset}, nil
}

func lotCodeOf(batches []entity.Batch, id string) string {
	for _, b := range batches {
		if b.ID == id {
			return b.LotCode
		}
	}
	return ""
}
