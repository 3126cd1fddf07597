package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
)

func newTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	m := findMetric(rm, name)
	require.NotNil(t, m, name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "lsp.didOpen", observability.StatusOK, 10*time.Millisecond)
	red.RecordRequest(ctx, "mcp.smellscan_scan", observability.StatusError, time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, rm, "smellscan.requests.total"))
	assert.Equal(t, int64(1), sumOf(t, rm, "smellscan.errors.total"))

	hist, ok := findMetric(rm, "smellscan.request.duration.seconds").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "lsp.didChange")
	assert.Equal(t, int64(1), sumOf(t, collectMetrics(t, reader), "smellscan.inflight.requests"))

	done()
	assert.Equal(t, int64(0), sumOf(t, collectMetrics(t, reader), "smellscan.inflight.requests"))
}

func TestMetrics_NilReceivers(t *testing.T) {
	t.Parallel()

	var (
		red  *observability.REDMetrics
		scan *observability.ScanMetrics
	)

	assert.NotPanics(t, func() {
		red.RecordRequest(context.Background(), "op", observability.StatusOK, time.Second)
		red.TrackInflight(context.Background(), "op")()
		scan.RecordFile(context.Background(), observability.FileStats{Bytes: 10})
	})
}

func TestScanMetrics_RecordFile(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	metrics, err := observability.NewScanMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordFile(ctx, observability.FileStats{
		Findings: map[string]int{"nested-loop": 2, "unused-import": 1},
		Duration: 5 * time.Millisecond,
		Bytes:    120,
	})
	metrics.RecordFile(ctx, observability.FileStats{Bytes: 30, Failed: true})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, rm, "smellscan.scan.files.total"))
	assert.Equal(t, int64(150), sumOf(t, rm, "smellscan.scan.bytes.total"))
	assert.Equal(t, int64(1), sumOf(t, rm, "smellscan.scan.parse.failures.total"))
	assert.Equal(t, int64(3), sumOf(t, rm, "smellscan.scan.findings.total"))

	sum, ok := findMetric(rm, "smellscan.scan.findings.total").Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byCategory := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		category, _ := dp.Attributes.Value(attribute.Key("category"))
		byCategory[category.AsString()] = dp.Value
	}

	assert.Equal(t, map[string]int64{"nested-loop": 2, "unused-import": 1}, byCategory)
}
