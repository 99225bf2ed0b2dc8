// Package metrics exposes Prometheus collectors for the executor, the
// indicator engine and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"

	"StockSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	AttemptsTotal   *prometheus.CounterVec   // labels: op, outcome
	AttemptDuration *prometheus.HistogramVec // labels: op
	KDJComputations prometheus.Counter
	RequestsTotal   *prometheus.CounterVec // labels: route, status
}

// New registers and returns all collectors, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "executor_attempts_total",
			Help: "Executor attempts by operation and outcome",
		}, []string{"op", "outcome"}),
		AttemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "executor_attempt_duration_seconds",
			Help:    "Wall time of a single executor attempt",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"op"}),
		KDJComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdj_computations_total",
			Help: "Weekly KDJ series computed",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}

	m.Registry.MustRegister(
		m.AttemptsTotal,
		m.AttemptDuration,
		m.KDJComputations,
		m.RequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAttempt implements retry.Observer.
func (m *Metrics) ObserveAttempt(op string, a model.Attempt) {
	m.AttemptsTotal.WithLabelValues(op, string(a.Outcome)).Inc()
	m.AttemptDuration.WithLabelValues(op).Observe(a.Elapsed.Seconds())
}

func (m *Metrics) IncKDJ() {
	m.KDJComputations.Inc()
}

func (m *Metrics) ObserveRequest(route string, status int) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
