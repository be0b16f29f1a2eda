package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/inventario-ledger/internal/bootstrap"
	"github.com/jhoicas/inventario-ledger/internal/jobs"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer deps.Close()

	now := time.Now().UTC()
	driftTask, err := jobs.NewDriftScanTask(false, now)
	if err != nil {
		log.Fatal().Err(err).Msg("construir tarea de desvíos")
	}
	incomingTask, err := jobs.NewIncomingRecomputeTask(now)
	if err != nil {
		log.Fatal().Err(err).Msg("construir tarea de entrante")
	}

	maintenance := jobs.NewMaintenanceJobs(deps.Repair, log.Component("worker"), deps.Metrics)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Concurrency: cfg.Worker.Concurrency,
		Logger:      log.Component("asynq"),
		Handlers:    maintenance.Handlers(),
		Cron: []jobs.CronRegistration{
			{Spec: cfg.Worker.DriftScanCron, Task: driftTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.Worker.IncomingRecomputeCron, Task: incomingTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar worker")
	}

	log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("worker iniciado")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker finalizado con error")
	}
	log.Info().Msg("worker detenido")
}
