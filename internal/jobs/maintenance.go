package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
)

// Repairer rutinas de consistencia que ejecutan las tareas programadas.
type Repairer interface {
	DetectDrift(ctx context.Context, strict bool) ([]entity.DriftFinding, error)
	RecomputeIncoming(ctx context.Context) (int, error)
}

// MaintenanceJobs handlers asynq de mantenimiento. Nunca corrigen desvíos: solo los reportan.
type MaintenanceJobs struct {
	repair  Repairer
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewMaintenanceJobs crea los handlers. m puede ser nil.
func NewMaintenanceJobs(repair Repairer, log zerolog.Logger, m *metrics.Metrics) *MaintenanceJobs {
	return &MaintenanceJobs{repair: repair, log: log, metrics: m}
}

// HandleDriftScan procesa TaskDriftScan.
func (j *MaintenanceJobs) HandleDriftScan(ctx context.Context, t *asynq.Task) error {
	var payload DriftScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
		}
	}
	tr := j.metrics.Track(TaskDriftScan)
	// cada hallazgo ya lo registra DetectDrift; aquí solo el resumen
	findings, err := j.repair.DetectDrift(ctx, payload.Strict)
	if err != nil {
		j.log.Error().Err(err).Int("findings", len(findings)).Msg("escaneo de desvíos fallido")
		return tr.End(err)
	}
	j.log.Info().Int("findings", len(findings)).Bool("strict", payload.Strict).Msg("escaneo de desvíos completado")
	return tr.End(nil)
}

// HandleIncomingRecompute procesa TaskIncomingRecompute.
func (j *MaintenanceJobs) HandleIncomingRecompute(ctx context.Context, t *asynq.Task) error {
	if len(t.Payload()) > 0 {
		var payload IncomingRecomputePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
		}
	}
	tr := j.metrics.Track(TaskIncomingRecompute)
	n, err := j.repair.RecomputeIncoming(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("recálculo de entrante fallido")
		return tr.End(err)
	}
	j.log.Info().Int("batches_updated", n).Msg("entrante recalculado")
	return tr.End(nil)
}

// Handlers registra ambas tareas para NewWorker.
func (j *MaintenanceJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskDriftScan, Handler: j.HandleDriftScan},
		{Type: TaskIncomingRecompute, Handler: j.HandleIncomingRecompute},
	}
}
