package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// authorization engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	accessDecisions *prometheus.CounterVec
	trackedEvents   *prometheus.CounterVec
	approvals       *prometheus.CounterVec
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

	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_access_decisions_total",
		Help: "Access decisions made by the permission evaluator",
	}, []string{"outcome"})

	trackedEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_tracked_events_total",
		Help: "Tracked distribution access events by action",
	}, []string{"action"})

	approvals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_request_responses_total",
		Help: "Access request responses by decision",
	}, []string{"decision"})

	registry.MustRegister(requestDuration, requestTotal, accessDecisions, trackedEvents, approvals)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		accessDecisions: accessDecisions,
		trackedEvents:   trackedEvents,
		approvals:       approvals,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveAccessDecision records one permission evaluation outcome.
func (s *MetricsService) ObserveAccessDecision(allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	s.accessDecisions.WithLabelValues(outcome).Inc()
}

// ObserveTrackedEvent records one tracked access event.
func (s *MetricsService) ObserveTrackedEvent(action string) {
	s.trackedEvents.WithLabelValues(action).Inc()
}

// ObserveResponse records one access request decision.
func (s *MetricsService) ObserveResponse(decision string) {
	s.approvals.WithLabelValues(decision).Inc()
}
