// Package telemetry provides the Prometheus registry, request/PDP metrics,
// health checks, and optional OpenTelemetry stdout exporters for identityd.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for identityd.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	PolicyEvaluationsTotal *prometheus.CounterVec
	PolicyReloadsTotal     *prometheus.CounterVec
	TokensIssuedTotal      *prometheus.CounterVec
	AuditDropsTotal        prometheus.Gauge
}

// NewRegistry builds a Prometheus registry carrying the standard Go/process
// collectors alongside identityd's own metrics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "identityd",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "identityd",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		PolicyEvaluationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "identityd",
				Name:      "policy_evaluations_total",
				Help:      "Total PDP evaluations by decision",
			},
			[]string{"decision"},
		),
		PolicyReloadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "identityd",
				Name:      "policy_reloads_total",
				Help:      "Total policy document reloads by outcome",
			},
			[]string{"result"},
		),
		TokensIssuedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "identityd",
				Name:      "tokens_issued_total",
				Help:      "Total tokens issued by grant type and outcome",
			},
			[]string{"grant_type", "result"},
		),
		AuditDropsTotal: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "identityd",
				Name:      "audit_drops_total",
				Help:      "Total audit records dropped due to backpressure (polled from the audit service)",
			},
		),
	}
}

// Middleware wraps an http.Handler to record request counts and latency per
// route. Placed outermost in the chain so it captures the full request
// lifetime, including the request-id and bearer-auth middleware.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}
			m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
