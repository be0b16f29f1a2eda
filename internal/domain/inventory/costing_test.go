package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func TestWeightedAverage(t *testing.T) {
	// (10*100 + 10*200) / 20 = 150
	got := inventory.WeightedAverage(d("10"), d("100"), d("10"), d("200"))
	assert.True(t, got.Equal(d("150")), got.String())

	assert.True(t, inventory.WeightedAverage(decimal.Zero, decimal.Zero, decimal.Zero, d("5")).IsZero())
}

func TestCostOfGoodsIssued_FIFO(t *testing.T) {
	store := inventory.NewBatchStore(4)
	batches := []entity.Batch{lot("a", "5", "10", date(2020, 1, 1)), lot("b", "5", "12", date(2020, 2, 1))}
	_, portions, err := store.Consume("v1", batches, d("7"), "")
	require.NoError(t, err)

	// 5*10 + 2*12
	assert.True(t, inventory.CostOfGoodsIssued(portions).Equal(d("74")))

	engine := inventory.NewCostingEngine(inventory.CostingFIFO)
	unit, total := engine.IssueCost(batches, portions)
	assert.True(t, total.Equal(d("74")))
	assert.True(t, unit.Equal(d("74").Div(d("7"))))
}

func TestIssueCost_PromedioPonderado(t *testing.T) {
	store := inventory.NewBatchStore(4)
	batches := []entity.Batch{lot("a", "5", "10", date(2020, 1, 1)), lot("b", "5", "12", date(2020, 2, 1))}
	_, portions, err := store.Consume("v1", batches, d("4"), "")
	require.NoError(t, err)

	engine := inventory.NewCostingEngine(inventory.CostingWeightedAverage)
	unit, total := engine.IssueCost(batches, portions)
	assert.True(t, unit.Equal(d("11")))
	assert.True(t, total.Equal(d("44")))
}

func TestApplyReceipt_PromedioPonderadoRevaluaLotes(t *testing.T) {
	engine := inventory.NewCostingEngine(inventory.CostingWeightedAverage)
	before := []entity.Batch{lot("a", "10", "100", date(2020, 1, 1))}
	received := lot("b", "10", "200", date(2020, 2, 1))

	out := engine.ApplyReceipt(before, received)
	require.Len(t, out, 2)
	for _, b := range out {
		assert.True(t, b.UnitCost.Equal(d("150")), b.ID)
	}
	assert.True(t, inventory.Valuation(out).Equal(d("3000")))
	assert.True(t, before[0].UnitCost.Equal(d("100")))
}

func TestApplyReceipt_PromedioPonderadoRedondeaALaEscalaPersistida(t *testing.T) {
	engine := inventory.NewCostingEngine(inventory.CostingWeightedAverage)
	before := []entity.Batch{lot("a", "2", "1", date(2020, 1, 1))}
	received := lot("b", "1", "2", date(2020, 2, 1))

	// (2*1 + 1*2) / 3 = 1.3333...
	out := engine.ApplyReceipt(before, received)
	require.Len(t, out, 2)
	for _, b := range out {
		assert.True(t, b.UnitCost.Equal(d("1.3333")), b.UnitCost.String())
		assert.True(t, b.UnitCost.Equal(b.UnitCost.Round(inventory.StoredScale)))
	}
	assert.True(t, inventory.Valuation(out).Equal(d("3.9999")))
}

func TestApplyReceipt_FIFOConservaCostos(t *testing.T) {
	engine := inventory.NewCostingEngine(inventory.CostingFIFO)
	out := engine.ApplyReceipt([]entity.Batch{lot("a", "1", "5", date(2020, 1, 1))}, lot("b", "1", "7", date(2020, 2, 1)))
	assert.True(t, inventory.Valuation(out).Equal(d("12")))
	assert.True(t, inventory.AverageCost(out).Equal(d("6")))
}

func TestParseCostingMethod(t *testing.T) {
	m, err := inventory.ParseCostingMethod("weighted_average")
	require.NoError(t, err)
	assert.Equal(t, inventory.CostingWeightedAverage, m)

	_, err = inventory.ParseCostingMethod("lifo")
	assert.Error(t, err)
}
