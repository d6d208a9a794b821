// Package metrics holds the Prometheus collectors of the registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	EvaluationsRecorded prometheus.Counter
	ProjectionsSkipped  prometheus.Counter
	EvaluationConflicts prometheus.Counter
	DivergentReads      *prometheus.CounterVec
	CascadeSteps        *prometheus.CounterVec
	CascadeRetries      *prometheus.CounterVec
	ReconcileRepairs    *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	WSConnectionsActive prometheus.Gauge
	WSMessagesBroadcast prometheus.Counter
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		EvaluationsRecorded: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_recorded_total",
				Help:      "Evaluations written to the ledger",
			},
		),
		ProjectionsSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluation_projections_skipped_total",
				Help:      "Log projections skipped because a newer version was already present",
			},
		),
		EvaluationConflicts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluation_conflicts_total",
				Help:      "Evaluations rolled back because the profile started deleting",
			},
		),
		DivergentReads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluation_divergent_reads_total",
				Help:      "Merged evaluation reads that found ledger and log out of step",
			},
			[]string{"scope"},
		),
		CascadeSteps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_steps_total",
				Help:      "Cascade steps by outcome",
			},
			[]string{"step", "result"},
		),
		CascadeRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_retries_total",
				Help:      "Cascade step retries",
			},
			[]string{"step"},
		),
		ReconcileRepairs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_repairs_total",
				Help:      "Repairs applied by the reconciler",
			},
			[]string{"kind"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		WSConnectionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_connections_active",
				Help:      "Active WebSocket connections",
			},
		),
		WSMessagesBroadcast: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "websocket_messages_broadcast_total",
				Help:      "Events broadcast to WebSocket clients",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	if m == nil {
		return func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) }
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request count, latency and in-flight gauge. The path
// label is the matched route pattern, not the raw URL.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil && status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}

		path := c.Route().Path
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) EvaluationRecorded() {
	if m == nil {
		return
	}
	m.EvaluationsRecorded.Inc()
}

func (m *Metrics) ProjectionSkipped() {
	if m == nil {
		return
	}
	m.ProjectionsSkipped.Inc()
}

func (m *Metrics) EvaluationConflict() {
	if m == nil {
		return
	}
	m.EvaluationConflicts.Inc()
}

func (m *Metrics) DivergentRead(scope string) {
	if m == nil {
		return
	}
	m.DivergentReads.WithLabelValues(scope).Inc()
}

func (m *Metrics) CascadeStep(step string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CascadeSteps.WithLabelValues(step, result).Inc()
}

func (m *Metrics) CascadeRetry(step string) {
	if m == nil {
		return
	}
	m.CascadeRetries.WithLabelValues(step).Inc()
}

func (m *Metrics) ReconcileRepair(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReconcileRepairs.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) WSConnected(delta int) {
	if m == nil {
		return
	}
	m.WSConnectionsActive.Add(float64(delta))
}

func (m *Metrics) WSBroadcast() {
	if m == nil {
		return
	}
	m.WSMessagesBroadcast.Inc()
}
