// Package memory implementa un almacén transaccional en memoria (modo desarrollo y tests).
// Cada transacción lee de una instantánea inmutable y acumula sus escrituras en una capa propia;
// el commit revalida versiones y secuencias contra el estado vigente y publica un estado nuevo.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	variants   map[string]entity.Variant
	skus       map[string]string
	batches    map[string]entity.Batch
	orders     map[string]entity.InventoryOrder
	movements  map[string][]entity.Movement
	warehouses map[string]entity.Warehouse
	whCodes    map[string]string
}

func emptyState() *state {
	return &state{
		variants:   map[string]entity.Variant{},
		skus:       map[string]string{},
		batches:    map[string]entity.Batch{},
		orders:     map[string]entity.InventoryOrder{},
		movements:  map[string][]entity.Movement{},
		warehouses: map[string]entity.Warehouse{},
		whCodes:    map[string]string{},
	}
}

// clone copia los mapas; los valores se reemplazan completos al escribir, nunca se mutan en sitio.
func (s *state) clone() *state {
	n := emptyState()
	for k, v := range s.variants {
		n.variants[k] = v
	}
	for k, v := range s.skus {
		n.skus[k] = v
	}
	for k, v := range s.batches {
		n.batches[k] = v
	}
	for k, v := range s.orders {
		n.orders[k] = v
	}
	for k, v := range s.movements {
		n.movements[k] = v
	}
	for k, v := range s.warehouses {
		n.warehouses[k] = v
	}
	for k, v := range s.whCodes {
		n.whCodes[k] = v
	}
	return n
}

// Store almacén en memoria; implementa inventory.TxRunner.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[state]
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(emptyState())
	return s
}

// Run ejecuta fn sobre una instantánea consistente y confirma sus escrituras de forma atómica.
// Si fn falla o el contexto se cancela antes del commit, nada queda aplicado.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s.cur.Load())
	if err := fn(ctx, t.repos()); err != nil {
		return err
	}
	if !t.dirty() {
		return nil
	}
	return s.commit(ctx, t)
}

func (s *Store) commit(ctx context.Context, t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	cur := s.cur.Load()

	for id, expected := range t.versionChecks {
		v, ok := cur.variants[id]
		if !ok || v.Version != expected {
			return domain.ErrConflict
		}
	}
	for variantID, movs := range t.movements {
		var last int64
		if prev := cur.movements[variantID]; len(prev) > 0 {
			last = prev[len(prev)-1].Sequence
		}
		if len(movs) > 0 && movs[0].Sequence != last+1 {
			return domain.ErrConflict
		}
	}
	for id := range t.newVariants {
		v := t.variants[id]
		if _, dup := cur.skus[v.SKU]; dup {
			return domain.ErrDuplicate
		}
		if _, dup := cur.variants[id]; dup {
			return domain.ErrDuplicate
		}
	}
	for _, w := range t.warehouses {
		if _, dup := cur.whCodes[w.Code]; dup {
			return domain.ErrDuplicate
		}
	}
	for id := range t.newOrders {
		if _, dup := cur.orders[id]; dup {
			return domain.ErrDuplicate
		}
	}
	for id := range t.newBatches {
		if _, dup := cur.batches[id]; dup {
			return domain.ErrDuplicate
		}
	}

	next := cur.clone()
	for id, v := range t.variants {
		next.variants[id] = v
		next.skus[v.SKU] = id
	}
	for id, b := range t.batches {
		next.batches[id] = b
	}
	for id, o := range t.orders {
		next.orders[id] = o
	}
	for variantID, movs := range t.movements {
		prev := next.movements[variantID]
		merged := make([]entity.Movement, 0, len(prev)+len(movs))
		merged = append(merged, prev...)
		merged = append(merged, movs...)
		next.movements[variantID] = merged
	}
	for id, w := range t.warehouses {
		next.warehouses[id] = w
		next.whCodes[w.Code] = id
	}
	s.cur.Store(next)
	return nil
}
