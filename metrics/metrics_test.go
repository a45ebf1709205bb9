package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.With(labels).Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordEntryWrittenIncrementsCounter(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordEntryWritten("zstd", "aes-256-gcm")
	m.RecordEntryWritten("zstd", "aes-256-gcm")

	assert.Equal(t, float64(2), counterValue(t, m.entriesWritten, prometheus.Labels{"compression": "zstd", "encryption": "aes-256-gcm"}))
}

func TestRecordEntryReadTracksResultLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordEntryRead("none", "none", "ok")
	m.RecordEntryRead("none", "none", "integrity_error")

	assert.Equal(t, float64(1), counterValue(t, m.entriesRead, prometheus.Labels{"compression": "none", "encryption": "none", "result": "ok"}))
	assert.Equal(t, float64(1), counterValue(t, m.entriesRead, prometheus.Labels{"compression": "none", "encryption": "none", "result": "integrity_error"}))
}

func TestObservePipelineStageWithoutSpanStillRecords(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObservePipelineStage(context.Background(), "compress", 0)

	hist := &dto.Metric{}
	require.NoError(t, m.pipelineDuration.WithLabelValues("compress").(prometheus.Metric).Write(hist))
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
}

func TestRecordAEADFailureAndECCReconstruction(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordAEADFailure("aes-256-gcm")
	m.RecordECCReconstruction("recovered")

	assert.Equal(t, float64(1), counterValue(t, m.aeadFailures, prometheus.Labels{"cipher": "aes-256-gcm"}))
	assert.Equal(t, float64(1), counterValue(t, m.eccReconstructions, prometheus.Labels{"result": "recovered"}))
}

func TestSetHardwareAccelerationGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetHardwareAcceleration("aes-ni", true)

	g := &dto.Metric{}
	require.NoError(t, m.hardwareAcceleration.WithLabelValues("aes-ni").Write(g))
	assert.Equal(t, float64(1), g.GetGauge().GetValue())
}

func TestUpdateSystemMetricsDoesNotPanic(t *testing.T) {
	m := New(prometheus.NewRegistry())
	assert.NotPanics(t, m.UpdateSystemMetrics)
}
