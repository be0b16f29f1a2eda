package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// OrderRepository persiste órdenes de inventario con sus ítems y recepciones.
type OrderRepository interface {
	Create(ctx context.Context, o *entity.InventoryOrder) error
	GetByID(ctx context.Context, id string) (*entity.InventoryOrder, error)
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryOrder, error)
	// Update guarda estado e ítems (receivedQuantity); las recepciones se agregan con AddReceipt.
	Update(ctx context.Context, o *entity.InventoryOrder) error
	AddReceipt(ctx context.Context, r *entity.Receipt) error
	UpdateReceipt(ctx context.Context, r *entity.Receipt) error
	// List órdenes por estado ("" = todas), más recientes primero. Paginación por offset para la API.
	List(ctx context.Context, status string, limit, offset int) ([]*entity.InventoryOrder, error)
	// ListAfter recorre todas las órdenes por (created_at, id) ascendente, estrictamente después de after.
	// Las órdenes creadas durante el recorrido quedan al final, así ninguna se salta.
	ListAfter(ctx context.Context, after OrderCursor, limit int) ([]*entity.InventoryOrder, error)
	// ListPendingPurchasesByVariant órdenes de compra pendientes con algún ítem de la variante.
	ListPendingPurchasesByVariant(ctx context.Context, variantID string) ([]*entity.InventoryOrder, error)
}

// OrderCursor posición de ListAfter. El valor cero arranca desde la primera orden.
type OrderCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorOf cursor que continúa después de o.
func CursorOf(o *entity.InventoryOrder) OrderCursor {
	return OrderCursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

// IsZero indica el inicio del recorrido.
func (c OrderCursor) IsZero() bool { return c.ID == "" && c.CreatedAt.IsZero() }
