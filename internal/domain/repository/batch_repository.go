package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// BatchRepository persiste los lotes de cada variante. Los lotes agotados se conservan con cantidad cero.
type BatchRepository interface {
	ListByVariant(ctx context.Context, variantID string) ([]entity.Batch, error)
	ListByOrder(ctx context.Context, orderID string) ([]entity.Batch, error)
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	Create(ctx context.Context, b *entity.Batch) error
	Update(ctx context.Context, b *entity.Batch) error
}
