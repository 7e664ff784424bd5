package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "learnpath"

// MetricsSnapshot is the JSON view of the in-process counters served by /health.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	ImportedRows             uint64    `json:"imported_rows"`
	MailSent                 uint64    `json:"mail_sent"`
	MailFailed               uint64    `json:"mail_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// tally mirrors the Prometheus counters that /health reports without a scrape.
type tally struct {
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	requests     atomic.Uint64
	requestNanos atomic.Uint64
	importedRows atomic.Uint64
	mailSent     atomic.Uint64
	mailFailed   atomic.Uint64
}

// MetricsService owns a private Prometheus registry for HTTP, cache, import
// and mail instrumentation. All methods are safe on a nil receiver.
type MetricsService struct {
	handler http.Handler

	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	cacheDuration   *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	mailJobs        *prometheus.CounterVec

	tally tally
}

// NewMetricsService registers the collectors on a fresh registry, so several
// instances can coexist in tests.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsService{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache reads by result.",
		}, []string{"result"}),
		cacheDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_operation_seconds",
			Help:      "Latency of cache reads and writes.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		importRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bulk_import_rows_total",
			Help:      "Rows processed by bulk imports, by target and outcome.",
		}, []string{"target", "outcome"}),
		mailJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mail_jobs_total",
			Help:      "Outbound mail jobs by template and result.",
		}, []string{"template", "result"}),
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.tally.requests.Add(1)
	m.tally.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache read and whether it hit.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.tally.cacheHits.Add(1)
	} else {
		m.tally.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheDuration.WithLabelValues("get").Observe(duration.Seconds())
}

// ObserveCacheWrite records the latency of a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheDuration.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordImport counts the partition sizes of one bulk import.
func (m *MetricsService) RecordImport(target string, created, duplicates, invalid int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(target, "created").Add(float64(created))
	m.importRows.WithLabelValues(target, "duplicate").Add(float64(duplicates))
	m.importRows.WithLabelValues(target, "invalid").Add(float64(invalid))
	m.tally.importedRows.Add(uint64(created))
}

// RecordMail counts one delivery attempt outcome.
func (m *MetricsService) RecordMail(template string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
		m.tally.mailFailed.Add(1)
	} else {
		m.tally.mailSent.Add(1)
	}
	m.mailJobs.WithLabelValues(template, result).Inc()
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Goroutines: runtime.NumGoroutine(), GeneratedAt: time.Now().UTC()}
	if m == nil {
		return snap
	}
	snap.CacheHits = m.tally.cacheHits.Load()
	snap.CacheMisses = m.tally.cacheMisses.Load()
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRatio = float64(snap.CacheHits) / float64(lookups)
	}
	snap.RequestsTotal = m.tally.requests.Load()
	if snap.RequestsTotal > 0 {
		snap.AverageRequestDurationMs = float64(m.tally.requestNanos.Load()) / float64(snap.RequestsTotal) / float64(time.Millisecond)
	}
	snap.ImportedRows = m.tally.importedRows.Load()
	snap.MailSent = m.tally.mailSent.Load()
	snap.MailFailed = m.tally.mailFailed.Load()
	return snap
}
