package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// tx capa de escritura sobre una instantánea.
type tx struct {
	base          *state
	variants      map[string]entity.Variant
	newVariants   map[string]bool
	versionChecks map[string]int64
	batches       map[string]entity.Batch
	newBatches    map[string]bool
	orders        map[string]entity.InventoryOrder
	newOrders     map[string]bool
	movements     map[string][]entity.Movement
	warehouses    map[string]entity.Warehouse
}

func newTx(base *state) *tx {
	return &tx{
		base:          base,
		variants:      map[string]entity.Variant{},
		newVariants:   map[string]bool{},
		versionChecks: map[string]int64{},
		batches:       map[string]entity.Batch{},
		newBatches:    map[string]bool{},
		orders:        map[string]entity.InventoryOrder{},
		newOrders:     map[string]bool{},
		movements:     map[string][]entity.Movement{},
		warehouses:    map[string]entity.Warehouse{},
	}
}

func (t *tx) dirty() bool {
	return len(t.variants) > 0 || len(t.batches) > 0 || len(t.orders) > 0 ||
		len(t.movements) > 0 || len(t.warehouses) > 0
}

func (t *tx) repos() inventory.Repos {
	return inventory.Repos{
		Variants:   &variantRepo{t: t},
		Batches:    &batchRepo{t: t},
		Orders:     &orderRepo{t: t},
		Movements:  &movementRepo{t: t},
		Warehouses: &warehouseRepo{t: t},
	}
}

// ---- variantes ----

type variantRepo struct{ t *tx }

func (r *variantRepo) lookup(id string) (entity.Variant, bool) {
	if v, ok := r.t.variants[id]; ok {
		return v, true
	}
	v, ok := r.t.base.variants[id]
	return v, ok
}

func (r *variantRepo) Create(_ context.Context, v *entity.Variant) error {
	if _, ok := r.lookup(v.ID); ok {
		return domain.ErrDuplicate
	}
	if _, dup := r.t.base.skus[v.SKU]; dup {
		return domain.ErrDuplicate
	}
	for _, other := range r.t.variants {
		if other.SKU == v.SKU {
			return domain.ErrDuplicate
		}
	}
	r.t.variants[v.ID] = *v
	r.t.newVariants[v.ID] = true
	return nil
}

func (r *variantRepo) GetByID(_ context.Context, id string) (*entity.Variant, error) {
	v, ok := r.lookup(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// GetForUpdate en memoria no bloquea: la exclusión la da el Locker y el CAS de versión en el commit.
func (r *variantRepo) GetForUpdate(ctx context.Context, id string) (*entity.Variant, error) {
	return r.GetByID(ctx, id)
}

func (r *variantRepo) BumpVersion(_ context.Context, id string, expected int64) (int64, error) {
	v, ok := r.lookup(id)
	if !ok {
		return 0, domain.ErrNotFound
	}
	if v.Version != expected {
		return 0, domain.ErrConflict
	}
	if _, checked := r.t.versionChecks[id]; !checked && !r.t.newVariants[id] {
		r.t.versionChecks[id] = expected
	}
	v.Version++
	v.UpdatedAt = time.Now()
	r.t.variants[id] = v
	return v.Version, nil
}

func (r *variantRepo) List(_ context.Context, limit, offset int) ([]*entity.Variant, error) {
	all := map[string]entity.Variant{}
	for id, v := range r.t.base.variants {
		all[id] = v
	}
	for id, v := range r.t.variants {
		all[id] = v
	}
	list := make([]entity.Variant, 0, len(all))
	for _, v := range all {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SKU < list[j].SKU })
	out := make([]*entity.Variant, 0)
	for _, v := range page(list, limit, offset) {
		v := v
		out = append(out, &v)
	}
	return out, nil
}

// ---- lotes ----

type batchRepo struct{ t *tx }

func (r *batchRepo) all() map[string]entity.Batch {
	out := make(map[string]entity.Batch, len(r.t.base.batches)+len(r.t.batches))
	for id, b := range r.t.base.batches {
		out[id] = b
	}
	for id, b := range r.t.batches {
		out[id] = b
	}
	return out
}

func (r *batchRepo) ListByVariant(_ context.Context, variantID string) ([]entity.Batch, error) {
	var out []entity.Batch
	for _, b := range r.all() {
		if b.VariantID == variantID {
			out = append(out, b)
		}
	}
	return invdomain.SortFIFO(out), nil
}

func (r *batchRepo) ListByOrder(_ context.Context, orderID string) ([]entity.Batch, error) {
	var out []entity.Batch
	for _, b := range r.all() {
		if b.OrderID == orderID {
			out = append(out, b)
		}
	}
	return invdomain.SortFIFO(out), nil
}

func (r *batchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	if b, ok := r.t.batches[id]; ok {
		return &b, nil
	}
	if b, ok := r.t.base.batches[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r *batchRepo) Create(ctx context.Context, b *entity.Batch) error {
	if existing, _ := r.GetByID(ctx, b.ID); existing != nil {
		return domain.ErrDuplicate
	}
	r.t.batches[b.ID] = *b
	r.t.newBatches[b.ID] = true
	return nil
}

func (r *batchRepo) Update(ctx context.Context, b *entity.Batch) error {
	if existing, _ := r.GetByID(ctx, b.ID); existing == nil {
		return domain.ErrNotFound
	}
	r.t.batches[b.ID] = *b
	return nil
}

// ---- órdenes ----

type orderRepo struct{ t *tx }

func cloneOrder(o entity.InventoryOrder) entity.InventoryOrder {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	o.Receipts = append([]entity.Receipt(nil), o.Receipts...)
	if o.CompletedAt != nil {
		at := *o.CompletedAt
		o.CompletedAt = &at
	}
	return o
}

func (r *orderRepo) lookup(id string) (entity.InventoryOrder, bool) {
	if o, ok := r.t.orders[id]; ok {
		return o, true
	}
	o, ok := r.t.base.orders[id]
	return o, ok
}

func (r *orderRepo) Create(_ context.Context, o *entity.InventoryOrder) error {
	if _, ok := r.lookup(o.ID); ok {
		return domain.ErrDuplicate
	}
	r.t.orders[o.ID] = cloneOrder(*o)
	r.t.newOrders[o.ID] = true
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.InventoryOrder, error) {
	o, ok := r.lookup(id)
	if !ok {
		return nil, nil
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) Update(_ context.Context, o *entity.InventoryOrder) error {
	stored, ok := r.lookup(o.ID)
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneOrder(*o)
	next.Receipts = append([]entity.Receipt(nil), stored.Receipts...)
	r.t.orders[o.ID] = next
	return nil
}

func (r *orderRepo) AddReceipt(_ context.Context, rc *entity.Receipt) error {
	stored, ok := r.lookup(rc.OrderID)
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneOrder(stored)
	for _, existing := range next.Receipts {
		if existing.ID == rc.ID {
			return domain.ErrDuplicate
		}
	}
	next.Receipts = append(next.Receipts, *rc)
	r.t.orders[rc.OrderID] = next
	return nil
}

func (r *orderRepo) UpdateReceipt(_ context.Context, rc *entity.Receipt) error {
	stored, ok := r.lookup(rc.OrderID)
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneOrder(stored)
	for i := range next.Receipts {
		if next.Receipts[i].ID == rc.ID {
			next.Receipts[i] = *rc
			r.t.orders[rc.OrderID] = next
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *orderRepo) sorted(filter func(entity.InventoryOrder) bool) []entity.InventoryOrder {
	all := map[string]entity.InventoryOrder{}
	for id, o := range r.t.base.orders {
		all[id] = o
	}
	for id, o := range r.t.orders {
		all[id] = o
	}
	list := make([]entity.InventoryOrder, 0, len(all))
	for _, o := range all {
		if filter(o) {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (r *orderRepo) List(_ context.Context, status string, limit, offset int) ([]*entity.InventoryOrder, error) {
	list := r.sorted(func(o entity.InventoryOrder) bool { return status == "" || o.Status == status })
	// más recientes primero, como en postgres
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	out := make([]*entity.InventoryOrder, 0)
	for _, o := range page(list, limit, offset) {
		c := cloneOrder(o)
		out = append(out, &c)
	}
	return out, nil
}

func (r *orderRepo) ListAfter(_ context.Context, after repository.OrderCursor, limit int) ([]*entity.InventoryOrder, error) {
	list := r.sorted(func(o entity.InventoryOrder) bool {
		if after.IsZero() {
			return true
		}
		if !o.CreatedAt.Equal(after.CreatedAt) {
			return o.CreatedAt.After(after.CreatedAt)
		}
		return o.ID > after.ID
	})
	out := make([]*entity.InventoryOrder, 0)
	for _, o := range page(list, limit, 0) {
		c := cloneOrder(o)
		out = append(out, &c)
	}
	return out, nil
}

func (r *orderRepo) ListPendingPurchasesByVariant(_ context.Context, variantID string) ([]*entity.InventoryOrder, error) {
	list := r.sorted(func(o entity.InventoryOrder) bool {
		if o.Type != entity.OrderTypePurchase || o.Status != entity.OrderStatusPending {
			return false
		}
		for _, it := range o.Items {
			if it.VariantID == variantID {
				return true
			}
		}
		return false
	})
	out := make([]*entity.InventoryOrder, 0, len(list))
	for _, o := range list {
		c := cloneOrder(o)
		out = append(out, &c)
	}
	return out, nil
}

// ---- libro ----

type movementRepo struct{ t *tx }

func (r *movementRepo) all(variantID string) []entity.Movement {
	base := r.t.base.movements[variantID]
	extra := r.t.movements[variantID]
	out := make([]entity.Movement, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func (r *movementRepo) Append(_ context.Context, m *entity.Movement) error {
	var last int64
	if all := r.all(m.VariantID); len(all) > 0 {
		last = all[len(all)-1].Sequence
	}
	if m.Sequence != last+1 {
		return domain.ErrConflict
	}
	r.t.movements[m.VariantID] = append(r.t.movements[m.VariantID], *m)
	return nil
}

func (r *movementRepo) Last(_ context.Context, variantID string) (*entity.Movement, error) {
	all := r.all(variantID)
	if len(all) == 0 {
		return nil, nil
	}
	m := all[len(all)-1]
	return &m, nil
}

func (r *movementRepo) ListByVariant(_ context.Context, variantID string, limit, offset int) ([]*entity.Movement, error) {
	all := r.all(variantID)
	desc := make([]entity.Movement, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		desc = append(desc, all[i])
	}
	out := make([]*entity.Movement, 0)
	for _, m := range page(desc, limit, offset) {
		m := m
		out = append(out, &m)
	}
	return out, nil
}

func (r *movementRepo) ListForReplay(_ context.Context, variantID string) ([]entity.Movement, error) {
	return r.all(variantID), nil
}

// ---- bodegas ----

type warehouseRepo struct{ t *tx }

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	if _, dup := r.t.base.whCodes[w.Code]; dup {
		return domain.ErrDuplicate
	}
	for _, other := range r.t.warehouses {
		if other.Code == w.Code || other.ID == w.ID {
			return domain.ErrDuplicate
		}
	}
	r.t.warehouses[w.ID] = *w
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	if w, ok := r.t.warehouses[id]; ok {
		return &w, nil
	}
	if w, ok := r.t.base.warehouses[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (r *warehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	list := make([]entity.Warehouse, 0, len(r.t.base.warehouses)+len(r.t.warehouses))
	for _, w := range r.t.base.warehouses {
		list = append(list, w)
	}
	for _, w := range r.t.warehouses {
		list = append(list, w)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	out := make([]*entity.Warehouse, 0)
	for _, w := range page(list, limit, offset) {
		w := w
		out = append(out, &w)
	}
	return out, nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
