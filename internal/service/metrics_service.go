package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backup scan outcome labels.
const (
	scanOutcomeRequestsSent = "requests_sent"
	scanOutcomeEscalated    = "escalated"
	scanOutcomeExpired      = "expired"
	scanOutcomeWarned       = "deadline_warning"
	scanOutcomeFailed       = "failed_trip"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and the assignment workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	scoringDuration prometheus.Histogram
	scoringDegraded prometheus.Counter
	assignments     *prometheus.CounterVec
	scanEvents      *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	notifyFailures  prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_cache_hits_total",
		Help: "Match score cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_cache_misses_total",
		Help: "Match score cache misses",
	})

	scoringDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_call_duration_seconds",
		Help:    "Latency of calls to the match scoring function",
		Buckets: prometheus.DefBuckets,
	})

	scoringDegraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scoring_degraded_total",
		Help: "Scoring calls that failed and were substituted with a zero match",
	})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_decisions_total",
		Help: "Assignment orchestrator outcomes",
	}, []string{"requirement", "outcome"})

	scanEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_scan_events_total",
		Help: "Events produced by backup coverage scans",
	}, []string{"outcome"})

	scanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backup_scan_duration_seconds",
		Help:    "Duration of a full backup coverage scan",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	notifyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backup_notification_failures_total",
		Help: "Backup request notifications dropped after exhausting retries",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, scoringDuration, scoringDegraded,
		assignments, scanEvents, scanDuration, notifyFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		scoringDuration: scoringDuration,
		scoringDegraded: scoringDegraded,
		assignments:     assignments,
		scanEvents:      scanEvents,
		scanDuration:    scanDuration,
		notifyFailures:  notifyFailures,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveScoring records one scoring call and whether it degraded.
func (m *MetricsService) ObserveScoring(duration time.Duration, degraded bool) {
	if m == nil {
		return
	}
	m.scoringDuration.Observe(duration.Seconds())
	if degraded {
		m.scoringDegraded.Inc()
	}
}

// RecordAssignment counts an orchestrator decision.
func (m *MetricsService) RecordAssignment(requirement, outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(requirement, outcome).Inc()
}

// RecordScan adds the totals of one backup scan.
func (m *MetricsService) RecordScan(requestsSent, escalated, expired, warned, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.scanEvents.WithLabelValues(scanOutcomeRequestsSent).Add(float64(requestsSent))
	m.scanEvents.WithLabelValues(scanOutcomeEscalated).Add(float64(escalated))
	m.scanEvents.WithLabelValues(scanOutcomeExpired).Add(float64(expired))
	m.scanEvents.WithLabelValues(scanOutcomeWarned).Add(float64(warned))
	m.scanEvents.WithLabelValues(scanOutcomeFailed).Add(float64(failed))
	m.scanDuration.Observe(duration.Seconds())
}

// RecordNotificationFailure counts a notification that ran out of retries.
func (m *MetricsService) RecordNotificationFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}
