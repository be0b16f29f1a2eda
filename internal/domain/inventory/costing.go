package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// CostingMethod política de costeo de salidas.
type CostingMethod string

const (
	CostingFIFO            CostingMethod = "fifo"
	CostingWeightedAverage CostingMethod = "weighted_average"
)

// ParseCostingMethod valida el nombre configurado.
func ParseCostingMethod(s string) (CostingMethod, error) {
	switch CostingMethod(s) {
	case CostingFIFO, CostingWeightedAverage:
		return CostingMethod(s), nil
	}
	return "", fmt.Errorf("método de costeo desconocido %q", s)
}

// WeightedAverage implementa el costo promedio ponderado.
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func WeightedAverage(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// CostOfGoodsIssued Σ porción × costo del lote, en el orden en que se consumieron.
func CostOfGoodsIssued(portions []Portion) decimal.Decimal {
	total := decimal.Zero
	for _, p := range portions {
		total = total.Add(p.Quantity.Mul(p.UnitCost))
	}
	return total
}

// Valuation valor en libros del stock disponible: Σ cantidad × costo unitario.
func Valuation(batches []entity.Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Value())
	}
	return total
}

// AverageCost costo unitario promedio del disponible (cero si no hay stock).
func AverageCost(batches []entity.Batch) decimal.Decimal {
	onHand := ProjectedStock(batches)
	if !onHand.IsPositive() {
		return decimal.Zero
	}
	return Valuation(batches).Div(onHand)
}

// CostingEngine calcula costos de entradas y salidas según el método configurado.
type CostingEngine struct {
	method CostingMethod
}

// NewCostingEngine construye el motor con el método dado.
func NewCostingEngine(method CostingMethod) *CostingEngine {
	if method == "" {
		method = CostingFIFO
	}
	return &CostingEngine{method: method}
}

// Method método activo.
func (e *CostingEngine) Method() CostingMethod { return e.method }

// ApplyReceipt ajusta los costos tras agregar el lote received a before.
// En FIFO cada lote conserva su costo. En promedio ponderado todos los lotes con saldo
// pasan al nuevo promedio redondeado a StoredScale, de modo que valuación = disponible × promedio
// también después de persistir.
func (e *CostingEngine) ApplyReceipt(before []entity.Batch, received entity.Batch) []entity.Batch {
	out := append(SortFIFO(before), received)
	if e.method != CostingWeightedAverage {
		return out
	}
	avg := WeightedAverage(ProjectedStock(before), AverageCost(before), received.Quantity, received.UnitCost).Round(StoredScale)
	for i := range out {
		if out[i].Quantity.IsPositive() {
			out[i].UnitCost = avg
		}
	}
	return out
}

// IssueCost costo unitario y total de una salida ya consumida.
// FIFO: Σ porciones. Promedio ponderado: promedio previo × cantidad.
func (e *CostingEngine) IssueCost(before []entity.Batch, portions []Portion) (unit, total decimal.Decimal) {
	qty := decimal.Zero
	for _, p := range portions {
		qty = qty.Add(p.Quantity)
	}
	if qty.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	if e.method == CostingWeightedAverage {
		unit = AverageCost(before)
		return unit, unit.Mul(qty)
	}
	total = CostOfGoodsIssued(portions)
	return total.Div(qty), total
}
