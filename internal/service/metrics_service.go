package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the allocation engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	recomputeRuns     *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	unassignedTeams   prometheus.Gauge
}

// NewMetricsService registers the core Prometheus collectors.
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

	recomputeRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_recompute_runs_total",
		Help: "Total allocation recomputation runs by result",
	}, []string{"result"})

	recomputeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocation_recompute_duration_seconds",
		Help:    "Duration of one full allocation recomputation",
		Buckets: prometheus.DefBuckets,
	})

	unassignedTeams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allocation_unassigned_teams",
		Help: "Teams left unassigned by the latest recomputation",
	})

	registry.MustRegister(requestDuration, requestTotal, recomputeRuns, recomputeDuration, unassignedTeams)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		recomputeRuns:     recomputeRuns,
		recomputeDuration: recomputeDuration,
		unassignedTeams:   unassignedTeams,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveRecompute records one allocation engine run.
func (s *MetricsService) ObserveRecompute(duration time.Duration, success bool, unassigned int) {
	result := "success"
	if !success {
		result = "failure"
	}
	s.recomputeRuns.WithLabelValues(result).Inc()
	s.recomputeDuration.Observe(duration.Seconds())
	if success {
		s.unassignedTeams.Set(float64(unassigned))
	}
}
