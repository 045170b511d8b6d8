// Package metrics provides Prometheus metrics for the clover service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ramsey-B/clover/pkg/errors"
)

const outcomeOK = "ok"

var (
	// OperationsTotal counts correlation manager operations by outcome, which is "ok"
	// or the error kind.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "correlation",
			Name:      "operations_total",
			Help:      "Total number of correlation manager operations by outcome",
		},
		[]string{"method", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "correlation",
			Name:      "operation_duration_seconds",
			Help:      "Duration of correlation manager operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method"},
	)

	CorrelationMismatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "correlation",
			Name:      "mismatches_total",
			Help:      "Total number of operations rejected because the supplied identifier differs from the stored one",
		},
		[]string{"method"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// Observer records correlation manager outcomes.
type Observer struct{}

// NewObserver returns an observer that records into the package collectors.
func NewObserver() *Observer {
	return &Observer{}
}

// ObserveOperation counts the call by kind and records its duration.
func (o *Observer) ObserveOperation(method string, err error, duration time.Duration) {
	outcome := outcomeOK
	if err != nil {
		outcome = string(errors.KindOf(err))
	}
	OperationsTotal.WithLabelValues(method, outcome).Inc()
	OperationDuration.WithLabelValues(method).Observe(duration.Seconds())
	if errors.IsCorrelationMismatch(err) {
		CorrelationMismatchesTotal.WithLabelValues(method).Inc()
	}
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCodeLabel(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
