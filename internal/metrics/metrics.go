package metrics

import (
	"errors"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	Registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	operations *prometheus.CounterVec
}

// New builds the collectors on a private registry, so tests can create as
// many instances as they like.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_http_request_duration_seconds",
				Help:    "Request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_store_operations_total",
				Help: "Directory store operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	m.Registry.MustRegister(m.requests, m.latency, m.operations,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(path, method, status string, seconds float64) {
	m.requests.WithLabelValues(path, method, status).Inc()
	m.latency.WithLabelValues(path, method).Observe(seconds)
}

// ObserveOperation records the outcome of one store operation.
func (m *Metrics) ObserveOperation(operation string, err error) {
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

// Outcome classifies a store error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, directory.ErrNotFound):
		return "not_found"
	case errors.Is(err, directory.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, directory.ErrUnknownGroup), errors.Is(err, directory.ErrUnknownUser):
		return "unknown_reference"
	case errors.Is(err, directory.ErrIdentityMismatch):
		return "identity_mismatch"
	default:
		return "internal"
	}
}

// OperationCounter returns the counter for one operation and outcome.
func (m *Metrics) OperationCounter(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}
