// Package metrics exposes Prometheus counters/histograms for archive
// write/read/verify operations, with OpenTelemetry trace exemplars
// attached when a span is active on the call's context.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds every counter/histogram/gauge this package registers.
type Metrics struct {
	entriesWritten       *prometheus.CounterVec
	entriesRead          *prometheus.CounterVec
	pipelineDuration     *prometheus.HistogramVec
	pipelineBytes        *prometheus.CounterVec
	aeadFailures         *prometheus.CounterVec
	eccReconstructions   *prometheus.CounterVec
	bufferPoolHits       *prometheus.CounterVec
	bufferPoolMisses     *prometheus.CounterVec
	hardwareAcceleration *prometheus.GaugeVec
	goroutines           prometheus.Gauge
	memoryAllocBytes     prometheus.Gauge
}

// New registers every metric against reg (use prometheus.DefaultRegisterer
// in production, a fresh prometheus.NewRegistry() in tests to avoid
// collisions across runs).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		entriesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_entries_written_total", Help: "Total entries appended to an archive"},
			[]string{"compression", "encryption"},
		),
		entriesRead: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_entries_read_total", Help: "Total entries decoded from an archive"},
			[]string{"compression", "encryption", "result"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apack_chunk_pipeline_duration_seconds",
				Help:    "Per-chunk checksum/compress/encrypt pipeline duration",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"stage"},
		),
		pipelineBytes: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_pipeline_bytes_total", Help: "Total bytes processed by the chunk pipeline"},
			[]string{"direction"},
		),
		aeadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_aead_failures_total", Help: "Total AEAD open failures (wrong password or tampering)"},
			[]string{"cipher"},
		),
		eccReconstructions: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_ecc_reconstructions_total", Help: "Total entries recovered via Reed-Solomon reconstruction"},
			[]string{"result"},
		),
		bufferPoolHits: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_buffer_pool_hits_total", Help: "Total chunk buffer pool hits"},
			[]string{"size_class"},
		),
		bufferPoolMisses: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "apack_buffer_pool_misses_total", Help: "Total chunk buffer pool misses"},
			[]string{"size_class"},
		),
		hardwareAcceleration: factory.NewGaugeVec(
			prometheus.GaugeOpts{Name: "apack_hardware_acceleration_enabled", Help: "Hardware acceleration status (1=enabled, 0=disabled)"},
			[]string{"type"},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{Name: "apack_goroutines", Help: "Number of goroutines"},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{Name: "apack_memory_alloc_bytes", Help: "Bytes allocated and not yet freed"},
		),
	}
}

// RecordEntryWritten increments the written-entries counter.
func (m *Metrics) RecordEntryWritten(compression, encryption string) {
	m.entriesWritten.WithLabelValues(compression, encryption).Inc()
}

// RecordEntryRead increments the read-entries counter with a result
// label ("ok", "integrity_error", "aead_error").
func (m *Metrics) RecordEntryRead(compression, encryption, result string) {
	m.entriesRead.WithLabelValues(compression, encryption, result).Inc()
}

// ObservePipelineStage records one pipeline stage's duration, attaching
// a trace exemplar when ctx carries a valid span.
func (m *Metrics) ObservePipelineStage(ctx context.Context, stage string, d time.Duration) {
	observer := m.pipelineDuration.WithLabelValues(stage)
	if exemplar := traceExemplar(ctx); exemplar != nil {
		if eo, ok := observer.(prometheus.ExemplarObserver); ok {
			eo.ObserveWithExemplar(d.Seconds(), exemplar)
			return
		}
	}
	observer.Observe(d.Seconds())
}

// AddPipelineBytes records bytes moved through the pipeline in the
// given direction ("encode" or "decode").
func (m *Metrics) AddPipelineBytes(direction string, n int64) {
	m.pipelineBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordAEADFailure increments the AEAD-failure counter for cipher.
func (m *Metrics) RecordAEADFailure(cipher string) {
	m.aeadFailures.WithLabelValues(cipher).Inc()
}

// RecordECCReconstruction increments the ECC-reconstruction counter
// with a result label ("recovered" or "unrecoverable").
func (m *Metrics) RecordECCReconstruction(result string) {
	m.eccReconstructions.WithLabelValues(result).Inc()
}

// RecordBufferPoolHit/Miss mirror internal/bufpool's pool classes.
func (m *Metrics) RecordBufferPoolHit(sizeClass string)  { m.bufferPoolHits.WithLabelValues(sizeClass).Inc() }
func (m *Metrics) RecordBufferPoolMiss(sizeClass string) { m.bufferPoolMisses.WithLabelValues(sizeClass).Inc() }

// SetHardwareAcceleration publishes whether accelType acceleration is
// active, mirroring internal/hardware's detection result.
func (m *Metrics) SetHardwareAcceleration(accelType string, enabled bool) {
	v := 0.0
	if enabled {
		v = 1.0
	}
	m.hardwareAcceleration.WithLabelValues(accelType).Set(v)
}

// UpdateSystemMetrics refreshes the goroutine/memory gauges.
func (m *Metrics) UpdateSystemMetrics() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(stats.Alloc))
}

func traceExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return prometheus.Labels{"trace_id": sc.TraceID().String()}
}
