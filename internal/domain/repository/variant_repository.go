package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// VariantRepository define el puerto de persistencia para Variant (DIP).
// GetByID/GetForUpdate devuelven (nil, nil) si no existe.
type VariantRepository interface {
	Create(ctx context.Context, v *entity.Variant) error
	GetByID(ctx context.Context, id string) (*entity.Variant, error)
	// GetForUpdate bloquea la fila de la variante hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Variant, error)
	// BumpVersion incrementa la versión solo si coincide con expected; si no, domain.ErrConflict.
	BumpVersion(ctx context.Context, id string, expected int64) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Variant, error)
}
