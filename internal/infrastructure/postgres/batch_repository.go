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

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, variant_id, warehouse_id, lot_code, quantity, received_quantity, unit_cost,
	incoming, received_at, expiry_date, order_id, item_index, created_at, updated_at`

func scanBatch(row pgx.Row) (entity.Batch, error) {
	var (
		b           entity.Batch
		warehouseID *string
		orderID     *string
	)
	err := row.Scan(
		&b.ID, &b.VariantID, &warehouseID, &b.LotCode, &b.Quantity, &b.ReceivedQuantity, &b.UnitCost,
		&b.Incoming, &b.ReceivedAt, &b.ExpiryDate, &orderID, &b.ItemIndex, &b.CreatedAt, &b.UpdatedAt,
	)
	b.WarehouseID = deref(warehouseID)
	b.OrderID = deref(orderID)
	return b, err
}

func (r *BatchRepo) list(ctx context.Context, op, query string, args ...any) ([]entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// ListByVariant lotes de la variante (incluidos los agotados) en orden FIFO.
func (r *BatchRepo) ListByVariant(ctx context.Context, variantID string) ([]entity.Batch, error) {
	return r.list(ctx, "list batches by variant",
		`SELECT `+batchColumns+` FROM batches WHERE variant_id = $1 ORDER BY received_at, created_at, id`,
		variantID)
}

// ListByOrder lotes creados por recepciones de la orden.
func (r *BatchRepo) ListByOrder(ctx context.Context, orderID string) ([]entity.Batch, error) {
	return r.list(ctx, "list batches by order",
		`SELECT `+batchColumns+` FROM batches WHERE order_id = $1 ORDER BY item_index, received_at, id`,
		orderID)
}

// GetByID obtiene un lote por ID.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get batch", err)
	}
	return &b, nil
}

// Create persiste un lote nuevo.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (id, variant_id, warehouse_id, lot_code, quantity, received_quantity, unit_cost,
			incoming, received_at, expiry_date, order_id, item_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.VariantID, nullable(b.WarehouseID), b.LotCode, b.Quantity, b.ReceivedQuantity, b.UnitCost,
		b.Incoming, b.ReceivedAt, b.ExpiryDate, nullable(b.OrderID), b.ItemIndex, b.CreatedAt, b.UpdatedAt,
	)
	return mapError("insert batch", err)
}

// Update guarda los campos mutables del lote (cantidades, costo, entrante, bodega).
func (r *BatchRepo) Update(ctx context.Context, b *entity.Batch) error {
	query := `
		UPDATE batches SET warehouse_id = $2, quantity = $3, received_quantity = $4, unit_cost = $5,
			incoming = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		b.ID, nullable(b.WarehouseID), b.Quantity, b.ReceivedQuantity, b.UnitCost, b.Incoming, b.UpdatedAt,
	)
	if err != nil {
		return mapError("update batch", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update batch %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}
