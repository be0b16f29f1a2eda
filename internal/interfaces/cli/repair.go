// Package cli comandos de mantenimiento para operadores. Se ejecutan fuera de la ruta de peticiones.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Códigos de salida.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitFindings = 10 // se encontraron desvíos o el libro no cuadra
)

const defaultActor = "repair-cli"

// Reconciler conciliación de órdenes.
type Reconciler interface {
	ReconcileOrder(ctx context.Context, orderID, actor string) (*inventory.ReconcileReport, error)
}

// Repairer rutinas de consistencia.
type Repairer interface {
	ReconcileAll(ctx context.Context, actor string) ([]*inventory.ReconcileReport, error)
	VerifyVariant(ctx context.Context, variantID string) (*inventory.VerifyReport, error)
	DetectDrift(ctx context.Context, strict bool) ([]entity.DriftFinding, error)
	RecomputeIncoming(ctx context.Context) (int, error)
	BackfillReceipts(ctx context.Context, actor string) (*inventory.BackfillReport, error)
}

// RepairCLI despacha los subcomandos de cmd/repair. El resultado sale como JSON por Stdout.
type RepairCLI struct {
	reconcile Reconciler
	repair    Repairer
	Stdout    io.Writer
	Stderr    io.Writer
}

// NewRepairCLI construye el CLI con salida estándar.
func NewRepairCLI(reconcile Reconciler, repair Repairer) *RepairCLI {
	return &RepairCLI{reconcile: reconcile, repair: repair, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Usage describe los subcomandos.
func (c *RepairCLI) Usage() {
	_, _ = fmt.Fprint(c.Stderr, `uso: repair <comando> [flags]

comandos:
  reconcile      -order ID [-actor NOMBRE]   concilia una orden
  reconcile-all  [-actor NOMBRE]             concilia todas las órdenes
  verify         -variant ID                 reproduce el libro de una variante
  drift          [-strict]                   reporta desvíos sin corregirlos
  incoming       recalcula el entrante de cada lote
  backfill       [-actor NOMBRE]             reconstruye recepciones faltantes
`)
}

// Run ejecuta args (sin el nombre del programa) y devuelve el código de salida.
func (c *RepairCLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.Usage()
		return ExitUsage
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	orderID := fs.String("order", "", "ID de la orden")
	variantID := fs.String("variant", "", "ID de la variante")
	actor := fs.String("actor", defaultActor, "actor registrado en los asientos REPAIR")
	strict := fs.Bool("strict", false, "falla si hay hallazgos")
	if err := fs.Parse(rest); err != nil {
		return ExitUsage
	}

	switch cmd {
	case "reconcile":
		if *orderID == "" {
			return c.usageError(cmd, "-order es obligatorio")
		}
		report, err := c.reconcile.ReconcileOrder(ctx, *orderID, *actor)
		if err != nil {
			return c.fail(cmd, err)
		}
		return c.emit(cmd, report, len(report.Findings) > 0)

	case "reconcile-all":
		reports, err := c.repair.ReconcileAll(ctx, *actor)
		if err != nil {
			return c.fail(cmd, err)
		}
		findings := false
		for _, r := range reports {
			findings = findings || len(r.Findings) > 0
		}
		if reports == nil {
			reports = []*inventory.ReconcileReport{}
		}
		return c.emit(cmd, reports, findings)

	case "verify":
		if *variantID == "" {
			return c.usageError(cmd, "-variant es obligatorio")
		}
		report, err := c.repair.VerifyVariant(ctx, *variantID)
		if err != nil {
			return c.fail(cmd, err)
		}
		return c.emit(cmd, report, !report.Consistent)

	case "drift":
		findings, err := c.repair.DetectDrift(ctx, *strict)
		if err != nil && !errors.Is(err, domain.ErrDriftDetected) {
			return c.fail(cmd, err)
		}
		if findings == nil {
			findings = []entity.DriftFinding{}
		}
		return c.emit(cmd, map[string]any{"count": len(findings), "findings": findings}, len(findings) > 0)

	case "incoming":
		n, err := c.repair.RecomputeIncoming(ctx)
		if err != nil {
			return c.fail(cmd, err)
		}
		return c.emit(cmd, map[string]int{"batches_updated": n}, false)

	case "backfill":
		report, err := c.repair.BackfillReceipts(ctx, *actor)
		if err != nil {
			return c.fail(cmd, err)
		}
		return c.emit(cmd, report, len(report.Findings) > 0)

	default:
		return c.usageError(cmd, "comando desconocido")
	}
}

func (c *RepairCLI) emit(cmd string, v any, findings bool) int {
	enc := json.NewEncoder(c.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return c.fail(cmd, fmt.Errorf("codificar json: %w", err))
	}
	if findings {
		return ExitFindings
	}
	return ExitOK
}

func (c *RepairCLI) fail(cmd string, err error) int {
	_, _ = fmt.Fprintf(c.Stderr, "%s: %v\n", cmd, err)
	return ExitError
}

func (c *RepairCLI) usageError(cmd, msg string) int {
	_, _ = fmt.Fprintf(c.Stderr, "%s: %s\n", cmd, msg)
	c.Usage()
	return ExitUsage
}
