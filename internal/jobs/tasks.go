package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueMaintenance cola de las tareas de mantenimiento.
	QueueMaintenance = "maintenance"
	// TaskDriftScan busca desvíos entre libro, lotes y órdenes.
	TaskDriftScan = "inventory:drift_scan"
	// TaskIncomingRecompute recalcula el stock entrante de cada lote.
	TaskIncomingRecompute = "inventory:incoming_recompute"
)

// DriftScanPayload parámetros del escaneo de desvíos.
type DriftScanPayload struct {
	Strict       bool      `json:"strict"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// IncomingRecomputePayload metadatos de programación.
type IncomingRecomputePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewDriftScanTask construye la tarea de escaneo. Con strict la tarea falla si hay hallazgos.
func NewDriftScanTask(strict bool, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DriftScanPayload{Strict: strict, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDriftScan, body, asynq.Queue(QueueMaintenance)), nil
}

// NewIncomingRecomputeTask construye la tarea de recálculo del entrante.
func NewIncomingRecomputeTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(IncomingRecomputePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIncomingRecompute, body, asynq.Queue(QueueMaintenance)), nil
}
