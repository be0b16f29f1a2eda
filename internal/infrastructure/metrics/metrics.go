// Package metrics expone colectores Prometheus del motor de inventario, de las tareas
// de mantenimiento y de la API HTTP, todos registrados en un registry propio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inventario"

// Metrics agrupa los colectores. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	movements   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	lockWait    *prometheus.HistogramVec
	drift       *prometheus.CounterVec
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
}

// New crea el registry con los colectores del proceso y los del motor.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_total",
			Help:      "Asientos del libro confirmados por tipo de movimiento.",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_rejected_total",
			Help:      "Mutaciones de stock rechazadas por motivo.",
		}, []string{"reason"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Espera para obtener el bloqueo de variante u orden.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"result"}),
		drift: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_findings_total",
			Help:      "Hallazgos de inconsistencia reportados por tipo.",
		}, []string{"kind"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Ejecuciones de tareas de mantenimiento por tarea y resultado.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duración de las tareas de mantenimiento.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por ruta y código.",
		}, []string{"route", "code"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP por ruta.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registry.MustRegister(
		m.movements, m.rejections, m.lockWait, m.drift,
		m.jobRuns, m.jobDuration, m.requests, m.reqDuration,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler http.Handler para /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registerer expone el registry para colectores adicionales.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Gatherer expone el registry para lectura (tests).
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// MovementRecorded cuenta un asiento confirmado.
func (m *Metrics) MovementRecorded(movementType string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(movementType).Inc()
}

// MutationRejected cuenta una mutación rechazada.
func (m *Metrics) MutationRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// LockWaited observa la espera por un bloqueo.
func (m *Metrics) LockWaited(wait time.Duration, acquired bool) {
	if m == nil {
		return
	}
	result := "acquired"
	if !acquired {
		result = "timeout"
	}
	m.lockWait.WithLabelValues(result).Observe(wait.Seconds())
}

// DriftFound suma hallazgos de un tipo.
func (m *Metrics) DriftFound(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.drift.WithLabelValues(kind).Add(float64(n))
}

// Tracker mide una ejecución de tarea.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track inicia la medición de una tarea.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End registra duración y resultado y devuelve err sin tocarlo.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.jobRuns.WithLabelValues(t.job, status).Inc()
	t.metrics.jobDuration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Middleware mide cada petición de fiber por patrón de ruta.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" {
			route = "unknown"
		}
		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}
		m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		m.reqDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}
