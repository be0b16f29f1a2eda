package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementRepository libro de movimientos: solo agrega, nunca actualiza ni borra.
type MovementRepository interface {
	// Append falla con domain.ErrConflict si (variant_id, sequence) ya existe.
	Append(ctx context.Context, m *entity.Movement) error
	Last(ctx context.Context, variantID string) (*entity.Movement, error)
	// ListByVariant más recientes primero.
	ListByVariant(ctx context.Context, variantID string, limit, offset int) ([]*entity.Movement, error)
	// ListForReplay todo el libro de la variante en orden de secuencia ascendente.
	ListForReplay(ctx context.Context, variantID string) ([]entity.Movement, error)
}
