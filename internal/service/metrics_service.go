package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the scheduler's solve runs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	solveDuration         prometheus.Histogram
	solveIterations       prometheus.Histogram
	solveConflictsLeft    prometheus.Gauge
	solveFeasibilityWarns *prometheus.CounterVec
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

	solveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Wall-clock time spent inside the constraint solver per Generate/ApplySwap call",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	solveIterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_solve_iterations",
		Help:    "Number of simulated-annealing iterations a solve actually ran",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	})

	solveConflictsLeft := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_solve_conflicts_remaining",
		Help: "Unresolved conflict count of the most recently produced proposal",
	})

	solveFeasibilityWarns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_feasibility_warnings_total",
		Help: "Feasibility pre-check warnings raised before a solve, by kind",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, solveIterations, solveConflictsLeft, solveFeasibilityWarns, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		solveDuration:         solveDuration,
		solveIterations:       solveIterations,
		solveConflictsLeft:    solveConflictsLeft,
		solveFeasibilityWarns: solveFeasibilityWarns,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSolve records one Generate/ApplySwap run: how long the solver
// took, how many SA iterations it ran, and how many conflicts the
// resulting proposal still carries.
func (m *MetricsService) ObserveSolve(duration time.Duration, iterations int, conflictsRemaining int) {
	if m == nil {
		return
	}
	m.solveDuration.Observe(duration.Seconds())
	m.solveIterations.Observe(float64(iterations))
	m.solveConflictsLeft.Set(float64(conflictsRemaining))
}

// RecordFeasibilityWarning tags one feasibility pre-check warning by
// kind (e.g. "teacher", "class").
func (m *MetricsService) RecordFeasibilityWarning(kind string) {
	if m == nil {
		return
	}
	m.solveFeasibilityWarns.WithLabelValues(kind).Inc()
}
