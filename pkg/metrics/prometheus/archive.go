// Package prometheus implements the instrumentation interfaces of zipline
// components with Prometheus collectors.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/zipline/pkg/archive"
	"github.com/marmos91/zipline/pkg/metrics"
)

// ArchiveMetrics is the Prometheus implementation of archive.Metrics.
// All methods are nil-safe: calls on a nil *ArchiveMetrics are no-ops.
type ArchiveMetrics struct {
	// CompressorsStarted counts started compressors by backend.
	CompressorsStarted *prometheus.CounterVec

	// CompressorFailures counts compressors that could not be started.
	CompressorFailures *prometheus.CounterVec

	// CompressorsReaped counts reaped compressors by backend and result.
	// Result values: "success", "failed", "killed", "signaled".
	CompressorsReaped *prometheus.CounterVec

	// CompressorsRunning tracks started but not yet reaped compressors.
	CompressorsRunning *prometheus.GaugeVec

	// TransfersActive tracks transfers whose headers were sent and that
	// have not finished yet.
	TransfersActive prometheus.Gauge

	// Transfers counts finished transfers by terminal state and reason.
	Transfers *prometheus.CounterVec

	// BytesSent and ChunksSent count body data delivered to clients.
	BytesSent  prometheus.Counter
	ChunksSent prometheus.Counter

	// TransferDuration observes transfer wall time by terminal state.
	TransferDuration *prometheus.HistogramVec

	// TransferBytes observes the size of each delivered response body.
	TransferBytes prometheus.Histogram
}

// New returns archive metrics registered with the global registry, or nil
// when metrics are disabled.
func New() *ArchiveMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return NewArchiveMetrics(metrics.GetRegistry())
}

// NewArchiveMetrics creates and registers archive metrics with reg. If reg
// is nil, metrics are created but not registered (useful for testing).
// Collectors already present in reg are reused.
func NewArchiveMetrics(reg prometheus.Registerer) *ArchiveMetrics {
	const ns, sub = "zipline", "archive"

	m := &ArchiveMetrics{
		CompressorsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "compressors_started_total",
			Help: "Total number of compressors started",
		}, []string{"backend"}),
		CompressorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "compressor_spawn_failures_total",
			Help: "Total number of compressors that failed to start",
		}, []string{"backend"}),
		CompressorsReaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "compressors_reaped_total",
			Help: "Total number of compressors reaped, by result",
		}, []string{"backend", "result"}),
		CompressorsRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "compressors_running",
			Help: "Compressors started and not yet reaped",
		}, []string{"backend"}),
		TransfersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "transfers_active",
			Help: "Transfers currently streaming",
		}),
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "transfers_total",
			Help: "Total number of finished transfers by state and reason",
		}, []string{"state", "reason"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "bytes_sent_total",
			Help: "Archive bytes delivered to clients",
		}),
		ChunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "chunks_sent_total",
			Help: "Archive chunks delivered to clients",
		}),
		TransferDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "transfer_duration_seconds",
			Help:    "Transfer wall time by terminal state",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 9), // 10ms .. ~11min
		}, []string{"state"}),
		TransferBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "transfer_bytes",
			Help:    "Response body size per transfer",
			Buckets: prometheus.ExponentialBuckets(10*1024, 4, 10), // 10KiB .. ~2.5GiB
		}),
	}

	if reg != nil {
		m.CompressorsStarted = registerOrReuse(reg, m.CompressorsStarted).(*prometheus.CounterVec)
		m.CompressorFailures = registerOrReuse(reg, m.CompressorFailures).(*prometheus.CounterVec)
		m.CompressorsReaped = registerOrReuse(reg, m.CompressorsReaped).(*prometheus.CounterVec)
		m.CompressorsRunning = registerOrReuse(reg, m.CompressorsRunning).(*prometheus.GaugeVec)
		m.TransfersActive = registerOrReuse(reg, m.TransfersActive).(prometheus.Gauge)
		m.Transfers = registerOrReuse(reg, m.Transfers).(*prometheus.CounterVec)
		m.BytesSent = registerOrReuse(reg, m.BytesSent).(prometheus.Counter)
		m.ChunksSent = registerOrReuse(reg, m.ChunksSent).(prometheus.Counter)
		m.TransferDuration = registerOrReuse(reg, m.TransferDuration).(*prometheus.HistogramVec)
		m.TransferBytes = registerOrReuse(reg, m.TransferBytes).(prometheus.Histogram)
	}

	return m
}

var _ archive.Metrics = (*ArchiveMetrics)(nil)

// CompressorStarted implements archive.Metrics.
func (m *ArchiveMetrics) CompressorStarted(backend string) {
	if m == nil {
		return
	}
	m.CompressorsStarted.WithLabelValues(backend).Inc()
	m.CompressorsRunning.WithLabelValues(backend).Inc()
}

// CompressorFailed implements archive.Metrics.
func (m *ArchiveMetrics) CompressorFailed(backend string) {
	if m == nil {
		return
	}
	m.CompressorFailures.WithLabelValues(backend).Inc()
}

// CompressorReaped implements archive.Metrics.
func (m *ArchiveMetrics) CompressorReaped(backend string, status archive.ExitStatus) {
	if m == nil {
		return
	}
	m.CompressorsReaped.WithLabelValues(backend, reapResult(status)).Inc()
	m.CompressorsRunning.WithLabelValues(backend).Dec()
}

// TransferStarted implements archive.Metrics.
func (m *ArchiveMetrics) TransferStarted() {
	if m == nil {
		return
	}
	m.TransfersActive.Inc()
}

// ChunkWritten implements archive.Metrics.
func (m *ArchiveMetrics) ChunkWritten(n int) {
	if m == nil {
		return
	}
	m.ChunksSent.Inc()
	m.BytesSent.Add(float64(n))
}

// TransferFinished implements archive.Metrics.
func (m *ArchiveMetrics) TransferFinished(out *archive.Outcome) {
	if m == nil || out == nil {
		return
	}

	state := out.State.String()
	m.Transfers.WithLabelValues(state, string(out.Reason)).Inc()
	m.TransferDuration.WithLabelValues(state).Observe(out.Duration.Seconds())

	if streamed(out) {
		m.TransfersActive.Dec()
		m.TransferBytes.Observe(float64(out.Bytes))
	}
}

// streamed reports whether TransferStarted was called for out.
func streamed(out *archive.Outcome) bool {
	return out.HeadersSent && out.Reason != archive.ReasonSpawnFailure && out.Reason != archive.ReasonHeaderWrite
}

func reapResult(s archive.ExitStatus) string {
	switch {
	case s.Killed:
		return "killed"
	case s.Signaled:
		return "signaled"
	case s.Code != 0:
		return "failed"
	default:
		return "success"
	}
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
