package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the submission
// engine and the HTTP surface.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	gateDecisions   *prometheus.CounterVec
	resolves        *prometheus.CounterVec
	cancellations   prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	gateDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_decisions_total",
		Help: "Submission gate decisions by reason",
	}, []string{"reason"})

	resolves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_resolved_total",
		Help: "Persisted submissions by outcome (create or amend)",
	}, []string{"outcome"})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submission_attempts_cancelled_total",
		Help: "Pending submission attempts cancelled before commit",
	})

	registry.MustRegister(requestDuration, requestTotal, gateDecisions, resolves, cancellations)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		gateDecisions:   gateDecisions,
		resolves:        resolves,
		cancellations:   cancellations,
	}
}

// Handler exposes the /metrics endpoint handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records request metrics.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveGate records a gate decision.
func (s *MetricsService) ObserveGate(reason GateReason) {
	if s == nil {
		return
	}
	s.gateDecisions.WithLabelValues(string(reason)).Inc()
}

// ObserveResolve records a persisted submission.
func (s *MetricsService) ObserveResolve(amended bool) {
	if s == nil {
		return
	}
	outcome := "create"
	if amended {
		outcome = "amend"
	}
	s.resolves.WithLabelValues(outcome).Inc()
}

// ObserveCancellation records a cancelled pending attempt.
func (s *MetricsService) ObserveCancellation() {
	if s == nil {
		return
	}
	s.cancellations.Inc()
}
