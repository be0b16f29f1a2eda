package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

func TestVariantUseCase_CreaYConsulta(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewVariantUseCase(memory.NewStore())

	created, err := uc.Create(ctx, dto.CreateVariantRequest{SKU: " CAM-001 ", Name: "Camisa azul"})
	require.NoError(t, err)
	assert.Equal(t, "CAM-001", created.SKU)
	assert.Equal(t, int64(0), created.Version)

	got, err := uc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := uc.GetByID(ctx, "no-existe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := uc.List(ctx, 20, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestVariantUseCase_SKUDuplicado(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewVariantUseCase(memory.NewStore())

	_, err := uc.Create(ctx, dto.CreateVariantRequest{SKU: "CAM-001", Name: "Camisa"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, dto.CreateVariantRequest{SKU: "CAM-001", Name: "Otra"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.Create(ctx, dto.CreateVariantRequest{SKU: "  ", Name: "Sin SKU"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWarehouseUseCase_CodigoUnico(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewWarehouseUseCase(memory.NewStore())

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "BOG", Name: "Bogotá"})
	require.NoError(t, err)
	assert.Equal(t, "BOG", w.Code)

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "BOG", Name: "Otra"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	list, err := uc.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, w.ID, list.Items[0].ID)
}
