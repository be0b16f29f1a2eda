package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes de inventario con ítems (order_items) y recepciones (receipts).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, code, type, status, created_by, created_at, updated_at, completed_at`

func scanOrder(row pgx.Row) (*entity.InventoryOrder, error) {
	var o entity.InventoryOrder
	if err := row.Scan(&o.ID, &o.Code, &o.Type, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// Create persiste la orden con sus ítems y recepciones iniciales.
func (r *OrderRepo) Create(ctx context.Context, o *entity.InventoryOrder) error {
	query := `
		INSERT INTO inventory_orders (id, code, type, status, created_by, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.q.Exec(ctx, query,
		o.ID, o.Code, o.Type, o.Status, o.CreatedBy, o.CreatedAt, o.UpdatedAt, o.CompletedAt,
	); err != nil {
		return mapError("insert order", err)
	}
	for i, it := range o.Items {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO order_items (order_id, item_index, variant_id, quantity, received_quantity, unit_cost, batch_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, i, it.VariantID, it.Quantity, it.ReceivedQuantity, it.UnitCost, it.BatchRef,
		); err != nil {
			return mapError("insert order item", err)
		}
	}
	for i := range o.Receipts {
		if err := r.AddReceipt(ctx, &o.Receipts[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByID obtiene la orden con ítems y recepciones.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.InventoryOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM inventory_orders WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila de la orden hasta el fin de la tx.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM inventory_orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) get(ctx context.Context, query, id string) (*entity.InventoryOrder, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get order", err)
	}
	if err := r.loadChildren(ctx, []*entity.InventoryOrder{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// Update guarda estado y acumulados recibidos de los ítems.
func (r *OrderRepo) Update(ctx context.Context, o *entity.InventoryOrder) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE inventory_orders SET status = $2, updated_at = $3, completed_at = $4
		WHERE id = $1`,
		o.ID, o.Status, o.UpdatedAt, o.CompletedAt)
	if err != nil {
		return mapError("update order", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update order %s: %w", o.ID, domain.ErrNotFound)
	}
	for i, it := range o.Items {
		if _, err := r.q.Exec(ctx, `
			UPDATE order_items SET received_quantity = $3
			WHERE order_id = $1 AND item_index = $2`,
			o.ID, i, it.ReceivedQuantity,
		); err != nil {
			return mapError("update order item", err)
		}
	}
	return nil
}

// AddReceipt agrega una recepción a la orden.
func (r *OrderRepo) AddReceipt(ctx context.Context, rc *entity.Receipt) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO receipts (id, order_id, item_index, quantity, batch_ref, movement_id, status, received_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rc.ID, rc.OrderID, rc.ItemIndex, rc.Quantity, rc.BatchRef, rc.MovementID, rc.Status, rc.ReceivedAt, rc.CreatedBy,
	)
	return mapError("insert receipt", err)
}

// UpdateReceipt guarda referencias y estado de una recepción existente.
func (r *OrderRepo) UpdateReceipt(ctx context.Context, rc *entity.Receipt) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE receipts SET quantity = $2, batch_ref = $3, movement_id = $4, status = $5
		WHERE id = $1`,
		rc.ID, rc.Quantity, rc.BatchRef, rc.MovementID, rc.Status)
	if err != nil {
		return mapError("update receipt", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update receipt %s: %w", rc.ID, domain.ErrNotFound)
	}
	return nil
}

// List órdenes por estado ("" = todas), más recientes primero.
func (r *OrderRepo) List(ctx context.Context, status string, limit, offset int) ([]*entity.InventoryOrder, error) {
	return r.list(ctx, "list orders", `
		SELECT `+orderColumns+` FROM inventory_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, status, limit, offset)
}

// ListAfter órdenes por (created_at, id) ascendente a partir del cursor (keyset).
func (r *OrderRepo) ListAfter(ctx context.Context, after repository.OrderCursor, limit int) ([]*entity.InventoryOrder, error) {
	if after.IsZero() {
		return r.list(ctx, "list orders after", `
			SELECT `+orderColumns+` FROM inventory_orders
			ORDER BY created_at, id
			LIMIT $1`, limit)
	}
	return r.list(ctx, "list orders after", `
		SELECT `+orderColumns+` FROM inventory_orders
		WHERE (created_at, id) > ($1, $2)
		ORDER BY created_at, id
		LIMIT $3`, after.CreatedAt, after.ID, limit)
}

// ListPendingPurchasesByVariant compras pendientes con algún ítem de la variante.
func (r *OrderRepo) ListPendingPurchasesByVariant(ctx context.Context, variantID string) ([]*entity.InventoryOrder, error) {
	return r.list(ctx, "list pending purchases", `
		SELECT `+orderColumns+` FROM inventory_orders o
		WHERE o.type = 'purchase' AND o.status = 'pending'
		  AND EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.variant_id = $1)
		ORDER BY o.created_at, o.id`, variantID)
}

func (r *OrderRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.InventoryOrder, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	var list []*entity.InventoryOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	if err := r.loadChildren(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadChildren carga ítems y recepciones de varias órdenes con dos consultas.
func (r *OrderRepo) loadChildren(ctx context.Context, orders []*entity.InventoryOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*entity.InventoryOrder, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.q.Query(ctx, `
		SELECT order_id, variant_id, quantity, received_quantity, unit_cost, batch_ref
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, item_index`, ids)
	if err != nil {
		return mapError("load order items", err)
	}
	for rows.Next() {
		var (
			orderID string
			it      entity.OrderItem
		)
		if err := rows.Scan(&orderID, &it.VariantID, &it.Quantity, &it.ReceivedQuantity, &it.UnitCost, &it.BatchRef); err != nil {
			rows.Close()
			return fmt.Errorf("scan order item: %w", err)
		}
		o := byID[orderID]
		o.Items = append(o.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapError("load order items", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT id, order_id, item_index, quantity, batch_ref, movement_id, status, received_at, created_by
		FROM receipts WHERE order_id = ANY($1) ORDER BY order_id, received_at, id`, ids)
	if err != nil {
		return mapError("load receipts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rc entity.Receipt
		if err := rows.Scan(&rc.ID, &rc.OrderID, &rc.ItemIndex, &rc.Quantity, &rc.BatchRef,
			&rc.MovementID, &rc.Status, &rc.ReceivedAt, &rc.CreatedBy); err != nil {
			return fmt.Errorf("scan receipt: %w", err)
		}
		o := byID[rc.OrderID]
		o.Receipts = append(o.Receipts, rc)
	}
	return mapError("load receipts", rows.Err())
}
