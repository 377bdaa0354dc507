// Package metrics provides Prometheus metrics for crash video recording.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crashvideo"

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// Metrics holds all Prometheus metrics for the recorder.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Session metrics
	SessionsTotal    *prometheus.CounterVec
	SessionActive    prometheus.Gauge
	BufferSeconds    prometheus.Gauge
	FinalizeTotal    *prometheus.CounterVec
	FlushWait        prometheus.Histogram
	ArtifactBytes    prometheus.Histogram
	CrashesTotal     prometheus.Counter
	AttachmentsTotal *prometheus.CounterVec

	// Housekeeping metrics
	RetentionDeleted *prometheus.CounterVec
	RecoveryEntries  *prometheus.CounterVec

	// API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on the default registry (singleton pattern to avoid double registration)
func New() *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return globalMetrics
}

// NewWithRegistry creates metrics registered on reg, served from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "total",
				Help:      "Recording session start attempts by result",
			},
			[]string{"result"},
		),
		SessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "active",
				Help:      "1 while a circular-buffer session is recording",
			},
		),
		BufferSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "buffer_seconds",
				Help:      "Circular buffer length of the active session",
			},
		),
		FinalizeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "finalize",
				Name:      "total",
				Help:      "Finalize attempts by result",
			},
			[]string{"result"},
		),
		FlushWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "finalize",
				Name:      "flush_wait_seconds",
				Help:      "Time spent waiting for the recorder to flush",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		ArtifactBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "finalize",
				Name:      "artifact_bytes",
				Help:      "Size of finalized video artifacts",
				Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
			},
		),
		CrashesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "crashes",
				Name:      "total",
				Help:      "Crashes handled by the recorder",
			},
		),
		AttachmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "attachments",
				Name:      "total",
				Help:      "Attachment attempts by result",
			},
			[]string{"result"},
		),
		RetentionDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "files_total",
				Help:      "Retention deletions by result",
			},
			[]string{"result"},
		),
		RecoveryEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recovery",
				Name:      "entries_total",
				Help:      "Journal entries processed by the recovery scanner by outcome",
			},
			[]string{"outcome"},
		),
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		APILatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "API request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.SessionsTotal,
		m.SessionActive,
		m.BufferSeconds,
		m.FinalizeTotal,
		m.FlushWait,
		m.ArtifactBytes,
		m.CrashesTotal,
		m.AttachmentsTotal,
		m.RetentionDeleted,
		m.RecoveryEntries,
		m.APIRequests,
		m.APILatency,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordSessionStarted marks a session as recording.
func (m *Metrics) RecordSessionStarted(bufferSeconds float64) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues("started").Inc()
	m.SessionActive.Set(1)
	m.BufferSeconds.Set(bufferSeconds)
}

// RecordSessionRejected counts a failed start by reason.
func (m *Metrics) RecordSessionRejected(reason string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(reason).Inc()
}

// RecordSessionEnded clears the active gauges.
func (m *Metrics) RecordSessionEnded() {
	if m == nil {
		return
	}
	m.SessionActive.Set(0)
	m.BufferSeconds.Set(0)
}

// RecordFinalize records a finalize attempt and, on success, the artifact size.
func (m *Metrics) RecordFinalize(result string, flushSeconds float64, size int64) {
	if m == nil {
		return
	}
	m.FinalizeTotal.WithLabelValues(result).Inc()
	m.FlushWait.Observe(flushSeconds)
	if size > 0 {
		m.ArtifactBytes.Observe(float64(size))
	}
}

// RecordCrash counts a handled crash.
func (m *Metrics) RecordCrash() {
	if m == nil {
		return
	}
	m.CrashesTotal.Inc()
}

// RecordAttachment counts an attachment attempt.
func (m *Metrics) RecordAttachment(result string) {
	if m == nil {
		return
	}
	m.AttachmentsTotal.WithLabelValues(result).Inc()
}

// RecordRetention counts pruned and failed deletions.
func (m *Metrics) RecordRetention(deleted, failed int) {
	if m == nil {
		return
	}
	m.RetentionDeleted.WithLabelValues("deleted").Add(float64(deleted))
	m.RetentionDeleted.WithLabelValues("failed").Add(float64(failed))
}

// RecordRecovery counts one processed journal entry.
func (m *Metrics) RecordRecovery(outcome string) {
	if m == nil {
		return
	}
	m.RecoveryEntries.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an API request
func (m *Metrics) RecordAPIRequest(endpoint, method, status string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(endpoint, method, status).Inc()
	m.APILatency.WithLabelValues(endpoint, method).Observe(latencySeconds)
}
