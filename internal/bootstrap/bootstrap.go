// Package bootstrap arma las dependencias compartidas por cmd/api, cmd/worker y cmd/repair:
// almacén (Postgres o memoria), bloqueo por variante (Redis o en proceso), métricas y casos de uso.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	invdomain "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

const lockPrefix = "inventario:lock:"

// Deps casos de uso listos para usar y los recursos que hay que cerrar.
type Deps struct {
	Metrics     *metrics.Metrics
	Engine      *inventory.Engine
	Stock       *inventory.StockUseCase
	Receipts    *inventory.ReceiptUseCase
	Reconcile   *inventory.ReconcileUseCase
	Repair      *inventory.RepairUseCase
	VariantUC   *usecase.VariantUseCase
	WarehouseUC *usecase.WarehouseUseCase

	closers []func()
}

// Build conecta el almacén y el locker según cfg. Con Postgres aplica las migraciones pendientes.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Deps, error) {
	method, err := invdomain.ParseCostingMethod(cfg.Inventory.CostingMethod)
	if err != nil {
		return nil, err
	}
	d := &Deps{Metrics: metrics.New()}

	var tx inventory.TxRunner
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		tx = memory.NewStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
			d.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		tx = postgres.NewTxRunner(pool, cfg.Lock.Timeout)
	}

	var locker inventory.Locker
	switch cfg.Lock.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("cierre de redis")
			}
		})
		if err := client.Ping(ctx).Err(); err != nil {
			d.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		locker = lock.NewRedisLocker(client, lockPrefix, cfg.Lock.TTL)
	default:
		locker = lock.NewMemoryLocker()
	}

	d.Engine = inventory.NewEngine(tx, locker, inventory.Config{
		CostingMethod:   method,
		LockTimeout:     cfg.Lock.Timeout,
		QuantityScale:   inventory.Scale(cfg.Inventory.QuantityScale),
		HistoryMaxLimit: cfg.Inventory.HistoryMaxLimit,
	},
		inventory.WithLogger(log.Component("ledger")),
		inventory.WithMetrics(d.Metrics),
	)
	d.Stock = inventory.NewStockUseCase(d.Engine)
	d.Receipts = inventory.NewReceiptUseCase(d.Engine)
	d.Reconcile = inventory.NewReconcileUseCase(d.Engine)
	d.Repair = inventory.NewRepairUseCase(d.Engine)
	d.VariantUC = usecase.NewVariantUseCase(tx)
	d.WarehouseUC = usecase.NewWarehouseUseCase(tx)

	log.Info().
		Str("store", cfg.Store.Driver).
		Str("lock", cfg.Lock.Driver).
		Str("costing", string(method)).
		Dur("lock_timeout", cfg.Lock.Timeout).
		Msg("motor de inventario listo")
	return d, nil
}

// Close libera pool y cliente de Redis en orden inverso.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
