package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// Config parámetros del motor, entregados al construirlo.
type Config struct {
	CostingMethod   invdomain.CostingMethod
	LockTimeout     time.Duration
	// QuantityScale decimales admitidos en cantidades; nil usa StoredScale. Cero exige enteros.
	QuantityScale   *int32
	HistoryMaxLimit int
}

// Scale devuelve un puntero a s para Config.QuantityScale.
func Scale(s int32) *int32 { return &s }

func (c Config) withDefaults() Config {
	if c.CostingMethod == "" {
		c.CostingMethod = invdomain.CostingFIFO
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = 3 * time.Second
	}
	if c.QuantityScale == nil || *c.QuantityScale < 0 || *c.QuantityScale > invdomain.StoredScale {
		c.QuantityScale = Scale(invdomain.StoredScale)
	}
	if c.HistoryMaxLimit <= 0 {
		c.HistoryMaxLimit = 200
	}
	return c
}

// Engine reúne lo que comparten los casos de uso: transacciones, bloqueos, lotes, costeo y libro.
// Toda mutación de stock pasa por Engine.record.
type Engine struct {
	tx      TxRunner
	locker  Locker
	cfg     Config
	store   *invdomain.BatchStore
	costing *invdomain.CostingEngine
	log     zerolog.Logger
	metrics Metrics
	now     func() time.Time
}

// Option configura dependencias opcionales del Engine.
type Option func(*Engine)

// WithLogger asigna el logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics asigna el colector de métricas.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.store.WithClock(now)
	}
}

// NewEngine construye el motor.
func NewEngine(tx TxRunner, locker Locker, cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		tx:      tx,
		locker:  locker,
		cfg:     cfg,
		store:   invdomain.NewBatchStore(*cfg.QuantityScale),
		costing: invdomain.NewCostingEngine(cfg.CostingMethod),
		log:     zerolog.Nop(),
		metrics: noopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config devuelve la configuración efectiva.
func (e *Engine) Config() Config { return e.cfg }

// mutation aplica el cambio a nivel de lote sobre una copia y describe el asiento resultante.
type mutation func(batches []entity.Batch) ([]entity.Batch, invdomain.MovementDraft, error)

// record es el único camino que modifica stock: proyección antes, mutación, persistencia de lotes,
// proyección después, CAS de versión y asiento en el libro. Debe llamarse dentro de tx.Run con la
// variante ya bloqueada; si algo falla la transacción completa se revierte.
func (e *Engine) record(ctx context.Context, r Repos, variantID string, mutate mutation) (*entity.Movement, error) {
	v, err := r.Variants.GetForUpdate(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrNotFound
	}
	before, err := r.Batches.ListByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	previous := invdomain.ProjectedStock(before)

	after, draft, err := mutate(before)
	if err != nil {
		e.rejected(variantID, err)
		return nil, err
	}

	known := make(map[string]bool, len(before))
	for _, b := range before {
		known[b.ID] = true
	}
	for _, b := range invdomain.Changed(before, after) {
		b := b
		if known[b.ID] {
			err = r.Batches.Update(ctx, &b)
		} else {
			err = r.Batches.Create(ctx, &b)
		}
		if err != nil {
			return nil, fmt.Errorf("guardar lote %s: %w", b.ID, err)
		}
	}
	next := invdomain.ProjectedStock(after)

	if _, err := r.Variants.BumpVersion(ctx, variantID, v.Version); err != nil {
		return nil, err
	}
	last, err := r.Movements.Last(ctx, variantID)
	if err != nil {
		return nil, err
	}
	mov := invdomain.NewMovement(variantID, last, previous, next, draft, e.now())
	if err := r.Movements.Append(ctx, &mov); err != nil {
		e.log.Error().Err(err).
			Str("variant_id", variantID).
			Str("type", mov.Type).
			Str("delta", mov.Quantity.String()).
			Msg("no se pudo registrar el movimiento; la mutación se revierte")
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	e.metrics.MovementRecorded(mov.Type)
	e.log.Debug().
		Str("variant_id", variantID).
		Str("type", mov.Type).
		Int64("sequence", mov.Sequence).
		Str("delta", mov.Quantity.String()).
		Str("previous_stock", mov.PreviousStock.String()).
		Str("new_stock", mov.NewStock.String()).
		Msg("movimiento registrado")
	return &mov, nil
}

func (e *Engine) rejected(variantID string, err error) {
	reason := "other"
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidQuantity):
		reason = "invalid_quantity"
	case errors.Is(err, domain.ErrNegativeResult):
		reason = "negative_result"
	case errors.Is(err, domain.ErrOverReceipt):
		reason = "over_receipt"
	case errors.Is(err, domain.ErrLockTimeout):
		reason = "lock_timeout"
	}
	e.metrics.MutationRejected(reason)
	ev := e.log.Info().Str("variant_id", variantID).Str("reason", reason)
	if v, ok := domain.AsViolation(err); ok {
		ev = ev.Str("invariant", v.Invariant).Str("current_stock", v.CurrentStock.String())
	}
	ev.Msg("mutación rechazada")
}

// lock adquiere las claves en el orden recibido y devuelve una función que las libera en orden inverso.
func (e *Engine) lock(ctx context.Context, keys ...string) (func(), error) {
	var releases []func()
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, k := range keys {
		start := e.now()
		release, err := e.locker.Acquire(ctx, k, e.cfg.LockTimeout)
		e.metrics.LockWaited(e.now().Sub(start), err == nil)
		if err != nil {
			unlock()
			return nil, err
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

// withVariant ejecuta fn en una transacción con la variante bloqueada.
// Si el bloqueo vence, el error informa el stock vigente leído fuera del bloqueo.
func (e *Engine) withVariant(ctx context.Context, variantID string, requested decimal.Decimal, fn func(ctx context.Context, r Repos) error) error {
	unlock, err := e.lock(ctx, VariantLockKey(variantID))
	if err != nil {
		return e.lockFailure(ctx, variantID, requested, err)
	}
	defer unlock()
	err = e.tx.Run(ctx, fn)
	if errors.Is(err, domain.ErrLockTimeout) {
		// la base de datos no obtuvo el bloqueo de fila a tiempo (lock_timeout)
		if _, ok := domain.AsViolation(err); !ok {
			return e.lockFailure(ctx, variantID, requested, err)
		}
	}
	return err
}

// withOrder bloquea orden y luego sus variantes (orden → variante, variantes por ID) y abre la transacción.
// Un bloqueo vencido se informa como violación sobre la primera variante de la orden.
func (e *Engine) withOrder(ctx context.Context, orderID string, variantIDs []string, requested decimal.Decimal, fn func(ctx context.Context, r Repos) error) error {
	keys := []string{OrderLockKey(orderID)}
	ids := uniqueSorted(variantIDs)
	for _, id := range ids {
		keys = append(keys, VariantLockKey(id))
	}
	variantID := ""
	if len(ids) > 0 {
		variantID = ids[0]
	}
	unlock, err := e.lock(ctx, keys...)
	if err != nil {
		return e.orderLockFailure(ctx, variantID, requested, err)
	}
	defer unlock()
	err = e.tx.Run(ctx, fn)
	if errors.Is(err, domain.ErrLockTimeout) {
		if _, ok := domain.AsViolation(err); !ok {
			return e.orderLockFailure(ctx, variantID, requested, err)
		}
	}
	return err
}

// orderLockFailure como lockFailure; una orden sin variantes (cancelación) informa stock cero.
func (e *Engine) orderLockFailure(ctx context.Context, variantID string, requested decimal.Decimal, err error) error {
	if variantID != "" || !errors.Is(err, domain.ErrLockTimeout) {
		return e.lockFailure(ctx, variantID, requested, err)
	}
	v := domain.NewViolation(domain.ErrLockTimeout, "la orden está siendo modificada por otra operación", "", decimal.Zero, requested)
	e.rejected("", v)
	return v
}

func (e *Engine) lockFailure(ctx context.Context, variantID string, requested decimal.Decimal, err error) error {
	if !errors.Is(err, domain.ErrLockTimeout) {
		return err
	}
	current := decimal.Zero
	_ = e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		batches, rerr := r.Batches.ListByVariant(ctx, variantID)
		if rerr == nil {
			current = invdomain.ProjectedStock(batches)
		}
		return rerr
	})
	v := domain.NewViolation(domain.ErrLockTimeout, "la variante está siendo modificada por otra operación", variantID, current, requested)
	e.rejected(variantID, v)
	return v
}

// checkWarehouse valida que la bodega exista (vacío = sin bodega).
func (e *Engine) checkWarehouse(ctx context.Context, r Repos, warehouseID string) error {
	if warehouseID == "" {
		return nil
	}
	w, err := r.Warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if w == nil {
		return domain.ErrNotFound
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
