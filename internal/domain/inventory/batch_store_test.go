package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func lot(id string, qty string, cost string, at time.Time) entity.Batch {
	return entity.Batch{
		ID: id, VariantID: "v1", Quantity: d(qty), ReceivedQuantity: d(qty),
		UnitCost: d(cost), ReceivedAt: at, CreatedAt: at,
	}
}

func TestConsume_FIFOAgotaPrimeroElLoteMasAntiguo(t *testing.T) {
	store := inventory.NewBatchStore(4)
	// el lote nuevo va primero en la lista para comprobar que se ordena por fecha
	batches := []entity.Batch{
		lot("feb", "5", "12", date(2020, 2, 1)),
		lot("ene", "5", "10", date(2020, 1, 1)),
	}

	out, portions, err := store.Consume("v1", batches, d("7"), "")
	require.NoError(t, err)

	byID := map[string]entity.Batch{}
	for _, b := range out {
		byID[b.ID] = b
	}
	assert.True(t, byID["ene"].Quantity.IsZero())
	assert.True(t, byID["feb"].Quantity.Equal(d("3")))
	require.Len(t, portions, 2)
	assert.Equal(t, "ene", portions[0].BatchID)
	assert.True(t, portions[0].Quantity.Equal(d("5")))
	assert.Equal(t, "feb", portions[1].BatchID)
	assert.True(t, portions[1].Quantity.Equal(d("2")))

	// la lista original no se toca
	assert.True(t, batches[0].Quantity.Equal(d("5")))
	assert.True(t, batches[1].Quantity.Equal(d("5")))
}

func TestConsume_StockInsuficienteNoMuta(t *testing.T) {
	store := inventory.NewBatchStore(4)
	batches := []entity.Batch{lot("a", "1", "1", date(2021, 1, 1)), lot("b", "2", "1", date(2021, 1, 2))}

	out, portions, err := store.Consume("v1", batches, d("5"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Nil(t, out)
	assert.Nil(t, portions)

	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.True(t, v.CurrentStock.Equal(d("3")))
	assert.True(t, v.Requested.Equal(d("5")))
	assert.True(t, inventory.ProjectedStock(batches).Equal(d("3")))
}

func TestConsume_RespetaBodega(t *testing.T) {
	store := inventory.NewBatchStore(4)
	a := lot("a", "4", "1", date(2021, 1, 1))
	a.WarehouseID = "w1"
	b := lot("b", "4", "1", date(2021, 1, 2))
	b.WarehouseID = "w2"

	_, _, err := store.Consume("v1", []entity.Batch{a, b}, d("5"), "w2")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	out, portions, err := store.Consume("v1", []entity.Batch{a, b}, d("3"), "w2")
	require.NoError(t, err)
	require.Len(t, portions, 1)
	assert.Equal(t, "b", portions[0].BatchID)
	assert.True(t, inventory.ProjectedStock(out).Equal(d("5")))
}

func TestConsume_CantidadInvalida(t *testing.T) {
	store := inventory.NewBatchStore(2)
	batches := []entity.Batch{lot("a", "10", "1", date(2021, 1, 1))}

	for _, q := range []string{"0", "-1", "0.001"} {
		_, _, err := store.Consume("v1", batches, d(q), "")
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity, q)
	}
}

func TestReceive(t *testing.T) {
	now := date(2024, 5, 1)
	store := inventory.NewBatchStore(4).WithClock(func() time.Time { return now })

	b, err := store.Receive("v1", nil, d("2.5"), d("3.10"), entity.BatchMeta{LotCode: "L-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "L-1", b.LotCode)
	assert.True(t, b.Quantity.Equal(d("2.5")))
	assert.True(t, b.ReceivedQuantity.Equal(d("2.5")))
	assert.Equal(t, now, b.ReceivedAt)

	_, err = store.Receive("v1", nil, decimal.Zero, d("1"), entity.BatchMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = store.Receive("v1", nil, d("1"), d("-1"), entity.BatchMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestReceive_RechazoInformaStockVigente(t *testing.T) {
	store := inventory.NewBatchStore(4)
	batches := []entity.Batch{lot("a", "6", "1", date(2021, 1, 1)), lot("b", "4", "1", date(2021, 1, 2))}

	_, err := store.Receive("v1", batches, decimal.Zero, d("1"), entity.BatchMeta{})
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "v1", v.VariantID)
	assert.True(t, v.CurrentStock.Equal(d("10")), v.CurrentStock.String())
	assert.True(t, v.Requested.IsZero())

	_, err = store.Receive("v1", batches, d("1"), d("-1"), entity.BatchMeta{})
	v, ok = domain.AsViolation(err)
	require.True(t, ok)
	assert.True(t, v.CurrentStock.Equal(d("10")))
}

func TestAdjust(t *testing.T) {
	store := inventory.NewBatchStore(4)
	batches := []entity.Batch{lot("a", "3", "1", date(2021, 1, 1)), lot("b", "2", "1", date(2021, 1, 2))}

	out, err := store.Adjust("v1", batches, "b", d("-2"))
	require.NoError(t, err)
	assert.True(t, inventory.ProjectedStock(out).Equal(d("3")))

	_, err = store.Adjust("v1", batches, "b", d("-2.5"))
	assert.ErrorIs(t, err, domain.ErrNegativeResult)
	v, ok := domain.AsViolation(err)
	require.True(t, ok)
	assert.True(t, v.CurrentStock.Equal(d("2")))

	_, err = store.Adjust("v1", batches, "zzz", d("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChanged(t *testing.T) {
	store := inventory.NewBatchStore(4)
	before := []entity.Batch{lot("a", "3", "1", date(2021, 1, 1)), lot("b", "2", "1", date(2021, 1, 2))}
	after, _, err := store.Consume("v1", before, d("1"), "")
	require.NoError(t, err)

	changed := inventory.Changed(before, after)
	require.Len(t, changed, 1)
	assert.Equal(t, "a", changed[0].ID)
}
