package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordJob_EmitsCounterAndHistogram(t *testing.T) {
	reader := metric.NewManualReader()
	obs, err := newWithReader("loan-advisor-test", reader)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	obs.RecordJob(context.Background(), "completed", 120*time.Millisecond)
	obs.RecordJob(context.Background(), "failed", 30*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "loan.jobs.processed" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			assert.Len(t, sum.DataPoints, 2)
		}
	}
	assert.True(t, names["loan.jobs.processed"])
	assert.True(t, names["loan.jobs.duration"])
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordJob(context.Background(), "completed", time.Second)
		_ = obs.Shutdown(context.Background())
	})
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, shutdown, err := NewTracerProvider("loan-advisor", "test", "", false)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(context.Background()))
}
