package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/regulars-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the report
// cache and the attendance engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	marks           *prometheus.CounterVec
	balanceChanges  *prometheus.CounterVec
	bulkMarkRetries prometheus.Counter
	bulkConflicts   prometheus.Counter
	invariantErrors *prometheus.CounterVec
	warnings        *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
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

	marks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marks_total",
		Help: "Attendance marks saved, by status",
	}, []string{"status"})

	balanceChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pass_balance_changes_total",
		Help: "Pass balance mutations applied by attendance saves",
	}, []string{"pass_type", "op"})

	bulkMarkRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_bulk_mark_retries_total",
		Help: "Bulk attendance saves retried after a transient conflict",
	})

	bulkConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_bulk_mark_conflicts_total",
		Help: "Bulk attendance saves that failed with a persisting conflict",
	})

	invariantErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invariant_violations_total",
		Help: "Operations aborted by an invariant violation",
	}, []string{"operation"})

	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_warnings_total",
		Help: "Renewal warnings returned from attendance saves",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		marks, balanceChanges, bulkMarkRetries, bulkConflicts, invariantErrors, warnings, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		marks:           marks,
		balanceChanges:  balanceChanges,
		bulkMarkRetries: bulkMarkRetries,
		bulkConflicts:   bulkConflicts,
		invariantErrors: invariantErrors,
		warnings:        warnings,
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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

// RecordMark counts one saved attendance mark.
func (m *MetricsService) RecordMark(status models.AttendanceStatus) {
	if m == nil {
		return
	}
	m.marks.WithLabelValues(string(status)).Inc()
}

// RecordBalanceChange counts a pass balance mutation; op is "consume" or "restore".
func (m *MetricsService) RecordBalanceChange(passType models.PassType, op string) {
	if m == nil {
		return
	}
	m.balanceChanges.WithLabelValues(string(passType), op).Inc()
}

// RecordBulkMarkRetry counts a retried attendance save.
func (m *MetricsService) RecordBulkMarkRetry() {
	if m == nil {
		return
	}
	m.bulkMarkRetries.Inc()
}

// RecordBulkMarkConflict counts a save that gave up after retrying.
func (m *MetricsService) RecordBulkMarkConflict() {
	if m == nil {
		return
	}
	m.bulkConflicts.Inc()
}

// RecordInvariantViolation counts an aborted operation.
func (m *MetricsService) RecordInvariantViolation(operation string) {
	if m == nil {
		return
	}
	m.invariantErrors.WithLabelValues(operation).Inc()
}

// RecordWarning counts a returned renewal warning.
func (m *MetricsService) RecordWarning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind).Inc()
}
