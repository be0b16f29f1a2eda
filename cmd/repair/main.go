package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/inventario-ledger/internal/bootstrap"
	"github.com/jhoicas/inventario-ledger/internal/interfaces/cli"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("cargar configuración: " + err.Error() + "\n")
		return cli.ExitError
	}
	// los logs van a stderr; stdout queda para el JSON del resultado
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Out: os.Stderr})

	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("inicialización")
		return cli.ExitError
	}
	defer deps.Close()

	return cli.NewRepairCLI(deps.Reconcile, deps.Repair).Run(ctx, os.Args[1:])
}
