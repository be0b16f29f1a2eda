package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// ReceiptUseCase órdenes de inventario y sus recepciones.
// Cada recepción actualiza en una sola transacción: la recepción, el acumulado del ítem,
// los lotes de la variante, el asiento del libro y el estado de la orden.
type ReceiptUseCase struct {
	*Engine
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(e *Engine) *ReceiptUseCase {
	return &ReceiptUseCase{Engine: e}
}

// OrderItemInput línea de una orden nueva.
type OrderItemInput struct {
	VariantID string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	BatchRef  string
}

// OrderInput entrada para crear una orden.
type OrderInput struct {
	Type  string
	Code  string
	Items []OrderItemInput
	Actor string
}

// ReceiptInput recepción contra un ítem de la orden.
type ReceiptInput struct {
	OrderID   string
	ItemIndex int
	Quantity  decimal.Decimal
	Meta      entity.BatchMeta
	Actor     string
}

// CreateOrder crea una orden pendiente. Las variantes de los ítems deben existir.
func (uc *ReceiptUseCase) CreateOrder(ctx context.Context, in OrderInput) (*entity.InventoryOrder, error) {
	if !entity.IsValidOrderType(in.Type) || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	o := &entity.InventoryOrder{
		ID:        uuid.New().String(),
		Code:      strings.TrimSpace(in.Code),
		Type:      in.Type,
		Status:    entity.OrderStatusPending,
		CreatedBy: in.Actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if o.Code == "" {
		o.Code = strings.ToUpper(in.Type[:3]) + "-" + o.ID[:8]
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.VariantID) == "" {
			return nil, domain.ErrInvalidInput
		}
		o.Items = append(o.Items, entity.OrderItem{
			VariantID:        it.VariantID,
			Quantity:         it.Quantity,
			ReceivedQuantity: decimal.Zero,
			UnitCost:         it.UnitCost,
			BatchRef:         strings.TrimSpace(it.BatchRef),
		})
	}
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		for _, it := range o.Items {
			v, err := r.Variants.GetByID(ctx, it.VariantID)
			if err != nil {
				return err
			}
			if v == nil {
				return fmt.Errorf("variante %s: %w", it.VariantID, domain.ErrNotFound)
			}
			if err := uc.validateItem(ctx, r, it); err != nil {
				return err
			}
		}
		return r.Orders.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// validateItem exige cantidad positiva y costo no negativo; el rechazo informa el stock de la variante.
func (uc *ReceiptUseCase) validateItem(ctx context.Context, r Repos, it entity.OrderItem) error {
	qtyErr := uc.store.ValidateQuantity(it.Quantity)
	if qtyErr == nil && !it.UnitCost.IsNegative() {
		return nil
	}
	batches, err := r.Batches.ListByVariant(ctx, it.VariantID)
	if err != nil {
		return err
	}
	current := invdomain.ProjectedStock(batches)
	var v *domain.ViolationError
	if qtyErr != nil {
		v = domain.NewViolation(qtyErr, "la cantidad ordenada debe ser positiva", it.VariantID, current, it.Quantity)
	} else {
		v = domain.NewViolation(domain.ErrInvalidQuantity, "el costo unitario no puede ser negativo", it.VariantID, current, it.Quantity)
	}
	uc.rejected(it.VariantID, v)
	return v
}

// GetOrder devuelve la orden con ítems y recepciones.
func (uc *ReceiptUseCase) GetOrder(ctx context.Context, id string) (*entity.InventoryOrder, error) {
	var o *entity.InventoryOrder
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		var err error
		o, err = r.Orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ListOrders lista órdenes, opcionalmente filtradas por estado.
func (uc *ReceiptUseCase) ListOrders(ctx context.Context, status string, limit, offset int) ([]*entity.InventoryOrder, error) {
	var out []*entity.InventoryOrder
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		var err error
		out, err = r.Orders.List(ctx, status, limit, offset)
		return err
	})
	return out, err
}

// CancelOrder pasa una orden pendiente a cancelada. Lo ya recibido se conserva;
// lo pendiente deja de contar como entrante.
func (uc *ReceiptUseCase) CancelOrder(ctx context.Context, id string) (*entity.InventoryOrder, error) {
	var o *entity.InventoryOrder
	err := uc.withOrder(ctx, id, nil, decimal.Zero, func(ctx context.Context, r Repos) error {
		var err error
		o, err = r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		if !o.IsPending() {
			return fmt.Errorf("%w: estado %s", domain.ErrOrderClosed, o.Status)
		}
		o.Status = entity.OrderStatusCancelled
		o.UpdatedAt = uc.now()
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// RecordReceipt registra una recepción contra un ítem. Compras crean un lote; ventas y ajustes
// descuentan por FIFO. Falla con ErrOverReceipt si el acumulado superaría lo ordenado
// (aunque la orden ya esté completa) y con ErrOrderClosed si la orden no está pendiente.
func (uc *ReceiptUseCase) RecordReceipt(ctx context.Context, in ReceiptInput) (*entity.Receipt, error) {
	current, err := uc.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if in.ItemIndex < 0 || in.ItemIndex >= len(current.Items) {
		return nil, fmt.Errorf("%w: ítem %d fuera de rango", domain.ErrInvalidInput, in.ItemIndex)
	}
	variantID := current.Items[in.ItemIndex].VariantID

	var receipt *entity.Receipt
	err = uc.withOrder(ctx, in.OrderID, []string{variantID}, in.Quantity, func(ctx context.Context, r Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		batches, err := r.Batches.ListByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if err := uc.store.ValidateQuantity(in.Quantity); err != nil {
			v := domain.NewViolation(err, "la cantidad recibida debe ser positiva", variantID, invdomain.ProjectedStock(batches), in.Quantity)
			uc.rejected(variantID, v)
			return v
		}
		if err := uc.checkWarehouse(ctx, r, in.Meta.WarehouseID); err != nil {
			return err
		}
		item := o.Items[in.ItemIndex]
		if item.ReceivedQuantity.Add(in.Quantity).GreaterThan(item.Quantity) {
			v := domain.NewViolation(domain.ErrOverReceipt,
				fmt.Sprintf("lo recibido (%s) más la recepción no puede superar lo ordenado (%s)", item.ReceivedQuantity, item.Quantity),
				variantID, invdomain.ProjectedStock(batches), in.Quantity)
			uc.rejected(variantID, v)
			return v
		}
		if !o.IsPending() {
			return fmt.Errorf("%w: estado %s", domain.ErrOrderClosed, o.Status)
		}

		now := uc.now()
		rc := &entity.Receipt{
			ID:         uuid.New().String(),
			OrderID:    o.ID,
			ItemIndex:  in.ItemIndex,
			Quantity:   in.Quantity,
			Status:     entity.ReceiptStatusCompleted,
			ReceivedAt: now,
			CreatedBy:  in.Actor,
		}
		if in.Meta.ReceivedAt != nil {
			rc.ReceivedAt = *in.Meta.ReceivedAt
		}

		item.ReceivedQuantity = item.ReceivedQuantity.Add(in.Quantity)
		o.Items[in.ItemIndex] = item
		o.Receipts = append(o.Receipts, *rc)
		o.UpdatedAt = now
		if o.AllReceived() {
			o.Status = entity.OrderStatusCompleted
			o.CompletedAt = &now
		}

		var mutate mutation
		switch o.Type {
		case entity.OrderTypePurchase:
			pending, err := r.Orders.ListPendingPurchasesByVariant(ctx, variantID)
			if err != nil {
				return err
			}
			pending = replaceOrder(pending, o)
			mutate = uc.purchaseReceipt(o, in, item, rc, pending)
		case entity.OrderTypeSale:
			mutate = issueMutation(uc.Engine, variantID, in.Quantity, in.Meta.WarehouseID, invdomain.MovementDraft{
				Type: entity.MovementTypeOUT, Reason: "venta " + o.Code, Actor: in.Actor, OrderID: o.ID, ReceiptID: rc.ID,
			})
		default:
			mutate = issueMutation(uc.Engine, variantID, in.Quantity, in.Meta.WarehouseID, invdomain.MovementDraft{
				Type: entity.MovementTypeADJUSTMENT, Reason: "ajuste " + o.Code, Actor: in.Actor, OrderID: o.ID, ReceiptID: rc.ID,
			})
		}

		mov, err := uc.record(ctx, r, variantID, mutate)
		if err != nil {
			return err
		}
		rc.MovementID = mov.ID
		o.Receipts[len(o.Receipts)-1] = *rc
		if err := r.Orders.AddReceipt(ctx, rc); err != nil {
			return err
		}
		if err := r.Orders.Update(ctx, o); err != nil {
			return err
		}
		receipt = rc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// purchaseReceipt crea el lote de la recepción y refresca los contadores de entrante de la variante.
func (uc *ReceiptUseCase) purchaseReceipt(o *entity.InventoryOrder, in ReceiptInput, item entity.OrderItem, rc *entity.Receipt, pending []*entity.InventoryOrder) mutation {
	return func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error) {
		draft := invdomain.MovementDraft{
			Type:      entity.MovementTypeIN,
			UnitCost:  item.UnitCost,
			TotalCost: in.Quantity.Mul(item.UnitCost),
			Reason:    "compra " + o.Code,
			Actor:     in.Actor,
			OrderID:   o.ID,
			ReceiptID: rc.ID,
		}
		meta := in.Meta
		if meta.LotCode == "" {
			meta.LotCode = item.BatchRef
		}
		receivedAt := rc.ReceivedAt
		meta.ReceivedAt = &receivedAt
		b, err := uc.store.Receive(item.VariantID, batches, in.Quantity, item.UnitCost, meta)
		if err != nil {
			return nil, draft, err
		}
		idx := in.ItemIndex
		b.OrderID = o.ID
		b.ItemIndex = &idx
		rc.BatchRef = b.ID
		after := uc.costing.ApplyReceipt(batches, b)
		return invdomain.RefreshIncoming(after, pending), draft, nil
	}
}

// replaceOrder sustituye (o agrega) la versión en memoria de la orden y quita las que ya no están pendientes.
func replaceOrder(list []*entity.InventoryOrder, o *entity.InventoryOrder) []*entity.InventoryOrder {
	out := make([]*entity.InventoryOrder, 0, len(list)+1)
	for _, x := range list {
		if x.ID != o.ID {
			out = append(out, x)
		}
	}
	if o.IsPending() && o.Type == entity.OrderTypePurchase {
		out = append(out, o)
	}
	return out
}
