package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/planner-api/internal/models"
)

// Resolution outcomes reported by the conflict tracker.
const (
	ResolutionApplied    = "applied"
	ResolutionSuperseded = "superseded"
	ResolutionReused     = "reused"
)

// MetricsService encapsulates Prometheus instrumentation for the planner API.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	conflictsDetected  *prometheus.CounterVec
	requisiteFailures  *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	evaluationDuration prometheus.Observer
	viewRefreshes      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_conflicts_detected_total",
		Help: "Conflicts reported by evaluations, by conflict type",
	}, []string{"type"})

	requisiteFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_requisite_lookup_failures_total",
		Help: "Requisite lookups that failed and were treated as empty",
	}, []string{"kind"})

	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_requisite_resolutions_total",
		Help: "Requisite resolutions by outcome",
	}, []string{"outcome"})

	evaluationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plan_evaluation_duration_seconds",
		Help:    "Duration of full conflict evaluations",
		Buckets: prometheus.DefBuckets,
	})

	viewRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_requisite_view_refreshes_total",
		Help: "Materialized requisite view refreshes by status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		conflictsDetected, requisiteFailures, resolutions, evaluationDuration, viewRefreshes,
		goroutines,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		conflictsDetected:  conflictsDetected,
		requisiteFailures:  requisiteFailures,
		resolutions:        resolutions,
		evaluationDuration: evaluationDuration,
		viewRefreshes:      viewRefreshes,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordConflicts adds one evaluation's per-type counts.
func (m *MetricsService) RecordConflicts(counts map[models.ConflictType]int) {
	if m == nil {
		return
	}
	for kind, n := range counts {
		if n > 0 {
			m.conflictsDetected.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
}

// RecordRequisiteFailure counts a failed prerequisite or corequisite lookup.
func (m *MetricsService) RecordRequisiteFailure(kind string) {
	if m == nil {
		return
	}
	m.requisiteFailures.WithLabelValues(kind).Inc()
}

// RecordResolution counts a requisite resolution outcome.
func (m *MetricsService) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveEvaluation records how long a full evaluation took.
func (m *MetricsService) ObserveEvaluation(duration time.Duration) {
	if m == nil {
		return
	}
	m.evaluationDuration.Observe(duration.Seconds())
}

// RecordViewRefresh counts a materialized view refresh attempt.
func (m *MetricsService) RecordViewRefresh(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.viewRefreshes.WithLabelValues(status).Inc()
}
