package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StoredScale decimales que persisten las columnas de cantidad y costo (NUMERIC(20,4)).
const StoredScale int32 = 4

// Portion porción de un lote consumida por una salida, en el orden exacto de consumo.
type Portion struct {
	BatchID     string
	WarehouseID string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ReceivedAt  time.Time
}

// BatchStore aplica los cambios a nivel de lote de una variante (servicio de dominio puro).
// Opera sobre copias: la lista original nunca se modifica, así un rechazo no deja mutación parcial.
type BatchStore struct {
	scale int32
	now   func() time.Time
}

// NewBatchStore construye el store con la escala decimal permitida para cantidades.
func NewBatchStore(scale int32) *BatchStore {
	return &BatchStore{scale: scale, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *BatchStore) WithClock(now func() time.Time) *BatchStore {
	s.now = now
	return s
}

// ValidateQuantity exige cantidad > 0 y no más decimales que la escala configurada.
func (s *BatchStore) ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	return s.ValidateScale(q)
}

// ValidateScale exige no más decimales que la escala configurada (admite cualquier signo).
func (s *BatchStore) ValidateScale(q decimal.Decimal) error {
	if !q.Equal(q.Truncate(s.scale)) {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// Receive crea un lote nuevo. Falla con ErrInvalidQuantity si quantity <= 0 o unitCost < 0;
// el rechazo informa el stock proyectado de current.
func (s *BatchStore) Receive(variantID string, current []entity.Batch, quantity, unitCost decimal.Decimal, meta entity.BatchMeta) (entity.Batch, error) {
	if err := s.ValidateQuantity(quantity); err != nil {
		return entity.Batch{}, domain.NewViolation(err, "la cantidad recibida debe ser positiva", variantID, ProjectedStock(current), quantity)
	}
	if unitCost.IsNegative() {
		return entity.Batch{}, domain.NewViolation(domain.ErrInvalidQuantity, "el costo unitario no puede ser negativo", variantID, ProjectedStock(current), quantity)
	}
	now := s.now()
	receivedAt := now
	if meta.ReceivedAt != nil {
		receivedAt = *meta.ReceivedAt
	}
	return entity.Batch{
		ID:               uuid.New().String(),
		VariantID:        variantID,
		WarehouseID:      meta.WarehouseID,
		LotCode:          meta.LotCode,
		Quantity:         quantity,
		ReceivedQuantity: quantity,
		UnitCost:         unitCost,
		Incoming:         decimal.Zero,
		ReceivedAt:       receivedAt,
		ExpiryDate:       meta.ExpiryDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Consume descuenta quantity recorriendo los lotes del más antiguo al más nuevo.
// warehouseID vacío = todos los lotes. Devuelve la lista actualizada y las porciones consumidas.
// Si el disponible no alcanza falla con ErrInsufficientStock sin tocar nada.
func (s *BatchStore) Consume(variantID string, batches []entity.Batch, quantity decimal.Decimal, warehouseID string) ([]entity.Batch, []Portion, error) {
	if err := s.ValidateQuantity(quantity); err != nil {
		return nil, nil, domain.NewViolation(err, "la cantidad a descontar debe ser positiva", variantID, ProjectedStock(batches), quantity)
	}
	out := SortFIFO(batches)
	available := decimal.Zero
	for _, b := range out {
		if inScope(b, warehouseID) {
			available = available.Add(b.Quantity)
		}
	}
	if available.LessThan(quantity) {
		return nil, nil, domain.NewViolation(domain.ErrInsufficientStock,
			"el stock disponible no cubre la salida", variantID, available, quantity)
	}

	now := s.now()
	pending := quantity
	var portions []Portion
	for i := range out {
		if pending.IsZero() {
			break
		}
		b := &out[i]
		if !inScope(*b, warehouseID) || !b.Quantity.IsPositive() {
			continue
		}
		take := decimal.Min(b.Quantity, pending)
		b.Quantity = b.Quantity.Sub(take)
		b.UpdatedAt = now
		pending = pending.Sub(take)
		portions = append(portions, Portion{
			BatchID:     b.ID,
			WarehouseID: b.WarehouseID,
			Quantity:    take,
			UnitCost:    b.UnitCost,
			ReceivedAt:  b.ReceivedAt,
		})
	}
	return out, portions, nil
}

// Adjust corrige directamente un lote (toma física o reparación).
// Falla con ErrNegativeResult si el lote queda bajo cero y con ErrNotFound si no existe.
func (s *BatchStore) Adjust(variantID string, batches []entity.Batch, batchID string, delta decimal.Decimal) ([]entity.Batch, error) {
	if delta.IsZero() {
		return nil, domain.NewViolation(domain.ErrInvalidQuantity, "el ajuste no puede ser cero", variantID, ProjectedStock(batches), delta)
	}
	if err := s.ValidateScale(delta); err != nil {
		return nil, domain.NewViolation(err, "el ajuste excede la precisión permitida", variantID, ProjectedStock(batches), delta)
	}
	out := SortFIFO(batches)
	for i := range out {
		if out[i].ID != batchID {
			continue
		}
		next := out[i].Quantity.Add(delta)
		if next.IsNegative() {
			return nil, domain.NewViolation(domain.ErrNegativeResult,
				"el lote no puede quedar con cantidad negativa", variantID, out[i].Quantity, delta)
		}
		out[i].Quantity = next
		out[i].UpdatedAt = s.now()
		return out, nil
	}
	return nil, domain.ErrNotFound
}

// ProjectedStock stock disponible = Σ cantidad de los lotes. Es la única fuente del valor.
func ProjectedStock(batches []entity.Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Quantity)
	}
	return total
}

// SortFIFO devuelve una copia ordenada por ReceivedAt, luego CreatedAt, luego ID.
func SortFIFO(batches []entity.Batch) []entity.Batch {
	out := make([]entity.Batch, len(batches))
	copy(out, batches)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Changed devuelve los lotes de after que difieren de before o no existían (para persistir solo esos).
func Changed(before, after []entity.Batch) []entity.Batch {
	prev := make(map[string]entity.Batch, len(before))
	for _, b := range before {
		prev[b.ID] = b
	}
	var out []entity.Batch
	for _, b := range after {
		old, ok := prev[b.ID]
		if !ok || !old.Quantity.Equal(b.Quantity) || !old.UnitCost.Equal(b.UnitCost) ||
			!old.ReceivedQuantity.Equal(b.ReceivedQuantity) || !old.Incoming.Equal(b.Incoming) {
			out = append(out, b)
		}
	}
	return out
}

func inScope(b entity.Batch, warehouseID string) bool {
	return warehouseID == "" || b.WarehouseID == warehouseID
}
