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

var _ repository.VariantRepository = (*VariantRepo)(nil)

// VariantRepo implementación de VariantRepository sobre PostgreSQL (usable con pool o tx).
type VariantRepo struct {
	q Querier
}

// NewVariantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

const variantColumns = `id, sku, name, version, created_at, updated_at`

func scanVariant(row pgx.Row) (*entity.Variant, error) {
	var v entity.Variant
	if err := row.Scan(&v.ID, &v.SKU, &v.Name, &v.Version, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create persiste una variante nueva. SKU repetido → domain.ErrDuplicate.
func (r *VariantRepo) Create(ctx context.Context, v *entity.Variant) error {
	query := `
		INSERT INTO variants (id, sku, name, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, v.ID, v.SKU, v.Name, v.Version, v.CreatedAt, v.UpdatedAt)
	return mapError("insert variant", err)
}

// GetByID obtiene una variante por ID.
func (r *VariantRepo) GetByID(ctx context.Context, id string) (*entity.Variant, error) {
	v, err := scanVariant(r.q.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get variant", err)
	}
	return v, nil
}

// GetForUpdate obtiene la variante y bloquea su fila (SELECT FOR UPDATE) hasta el fin de la tx.
// Si la fila está tomada más allá de lock_timeout, devuelve domain.ErrLockTimeout.
func (r *VariantRepo) GetForUpdate(ctx context.Context, id string) (*entity.Variant, error) {
	v, err := scanVariant(r.q.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get variant for update", err)
	}
	return v, nil
}

// BumpVersion incrementa la versión solo si sigue siendo expected.
func (r *VariantRepo) BumpVersion(ctx context.Context, id string, expected int64) (int64, error) {
	query := `
		UPDATE variants SET version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version`
	var next int64
	err := r.q.QueryRow(ctx, query, id, expected).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("variante %s versión %d: %w", id, expected, domain.ErrConflict)
		}
		return 0, mapError("bump variant version", err)
	}
	return next, nil
}

// List lista variantes por SKU con paginación.
func (r *VariantRepo) List(ctx context.Context, limit, offset int) ([]*entity.Variant, error) {
	rows, err := r.q.Query(ctx, `SELECT `+variantColumns+` FROM variants ORDER BY sku LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError("list variants", err)
	}
	defer rows.Close()
	var list []*entity.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
