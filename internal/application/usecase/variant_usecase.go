package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// VariantUseCase alta y consulta de variantes. El stock no se toca aquí:
// se deriva de los lotes y solo cambia a través de los movimientos.
type VariantUseCase struct {
	tx inventory.TxRunner
}

// NewVariantUseCase construye el caso de uso.
func NewVariantUseCase(tx inventory.TxRunner) *VariantUseCase {
	return &VariantUseCase{tx: tx}
}

// Create crea una variante con versión 0. SKU duplicado → domain.ErrDuplicate.
func (uc *VariantUseCase) Create(ctx context.Context, in dto.CreateVariantRequest) (*dto.VariantResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)
	if sku == "" || name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	variant := &entity.Variant{
		ID:        uuid.New().String(),
		SKU:       sku,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.tx.Run(ctx, func(ctx context.Context, r inventory.Repos) error {
		return r.Variants.Create(ctx, variant)
	})
	if err != nil {
		return nil, err
	}
	return toVariantResponse(variant), nil
}

// GetByID obtiene una variante por ID. (nil, nil) si no existe.
func (uc *VariantUseCase) GetByID(ctx context.Context, id string) (*dto.VariantResponse, error) {
	var variant *entity.Variant
	err := uc.tx.Run(ctx, func(ctx context.Context, r inventory.Repos) error {
		var err error
		variant, err = r.Variants.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toVariantResponse(variant), nil
}

// List lista variantes con paginación.
func (uc *VariantUseCase) List(ctx context.Context, limit, offset int) (*dto.VariantListResponse, error) {
	var list []*entity.Variant
	err := uc.tx.Run(ctx, func(ctx context.Context, r inventory.Repos) error {
		var err error
		list, err = r.Variants.List(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.VariantResponse, 0, len(list))
	for _, v := range list {
		items = append(items, *toVariantResponse(v))
	}
	return &dto.VariantListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toVariantResponse(v *entity.Variant) *dto.VariantResponse {
	if v == nil {
		return nil
	}
	return &dto.VariantResponse{
		ID:        v.ID,
		SKU:       v.SKU,
		Name:      v.Name,
		Version:   v.Version,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
