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

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL. La tabla rechaza UPDATE y DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, variant_id, sequence, type, quantity, previous_stock, new_stock,
	unit_cost, total_cost, reason, actor, order_id, receipt_id, created_at`

func scanMovement(row pgx.Row) (entity.Movement, error) {
	var (
		m         entity.Movement
		orderID   *string
		receiptID *string
	)
	err := row.Scan(
		&m.ID, &m.VariantID, &m.Sequence, &m.Type, &m.Quantity, &m.PreviousStock, &m.NewStock,
		&m.UnitCost, &m.TotalCost, &m.Reason, &m.Actor, &orderID, &receiptID, &m.CreatedAt,
	)
	m.OrderID = deref(orderID)
	m.ReceiptID = deref(receiptID)
	return m, err
}

// Append agrega un asiento. Una secuencia repetida para la variante → domain.ErrConflict.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (id, variant_id, sequence, type, quantity, previous_stock, new_stock,
			unit_cost, total_cost, reason, actor, order_id, receipt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.VariantID, m.Sequence, m.Type, m.Quantity, m.PreviousStock, m.NewStock,
		m.UnitCost, m.TotalCost, m.Reason, m.Actor, nullable(m.OrderID), nullable(m.ReceiptID), m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append movement %s#%d: %w", m.VariantID, m.Sequence, domain.ErrConflict)
		}
		return mapError("append movement", err)
	}
	return nil
}

// Last último asiento de la variante (nil si el libro está vacío).
func (r *MovementRepo) Last(ctx context.Context, variantID string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE variant_id = $1 ORDER BY sequence DESC LIMIT 1`,
		variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("last movement", err)
	}
	return &m, nil
}

// ListByVariant historial más reciente primero.
func (r *MovementRepo) ListByVariant(ctx context.Context, variantID string, limit, offset int) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE variant_id = $1 ORDER BY sequence DESC LIMIT $2 OFFSET $3`,
		variantID, limit, offset)
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// ListForReplay libro completo en orden de secuencia.
func (r *MovementRepo) ListForReplay(ctx context.Context, variantID string) ([]entity.Movement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE variant_id = $1 ORDER BY sequence`,
		variantID)
	if err != nil {
		return nil, mapError("replay movements", err)
	}
	defer rows.Close()
	var list []entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
