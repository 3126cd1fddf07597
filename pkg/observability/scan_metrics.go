package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal       = "smellscan.scan.files.total"
	metricFindingsTotal    = "smellscan.scan.findings.total"
	metricParseFailures    = "smellscan.scan.parse.failures.total"
	metricBytesTotal       = "smellscan.scan.bytes.total"
	metricFileScanDuration = "smellscan.scan.file.duration.seconds"

	attrCategory = "category"
)

// ScanMetrics holds the per-file scan instruments.
type ScanMetrics struct {
	filesTotal    metric.Int64Counter
	findingsTotal metric.Int64Counter
	parseFailures metric.Int64Counter
	bytesTotal    metric.Int64Counter
	fileDuration  metric.Float64Histogram
}

// FileStats is what one scanned file contributes to ScanMetrics.
type FileStats struct {
	// Findings counts findings per category name.
	Findings map[string]int
	Duration time.Duration
	Bytes    int
	// Failed marks a file that could not be read or parsed.
	Failed bool
}

// NewScanMetrics creates scan instruments from mt.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Total files scanned"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	findings, err := mt.Int64Counter(metricFindingsTotal,
		metric.WithDescription("Findings reported by category"),
		metric.WithUnit("{finding}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFindingsTotal, err)
	}

	failures, err := mt.Int64Counter(metricParseFailures,
		metric.WithDescription("Files that failed to load or parse"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricParseFailures, err)
	}

	scanned, err := mt.Int64Counter(metricBytesTotal,
		metric.WithDescription("Source bytes scanned"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBytesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricFileScanDuration,
		metric.WithDescription("Per-file parse and analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFileScanDuration, err)
	}

	return &ScanMetrics{
		filesTotal:    files,
		findingsTotal: findings,
		parseFailures: failures,
		bytesTotal:    scanned,
		fileDuration:  duration,
	}, nil
}

// RecordFile records one scanned file. Safe to call on a nil receiver.
func (sm *ScanMetrics) RecordFile(ctx context.Context, stats FileStats) {
	if sm == nil {
		return
	}

	sm.filesTotal.Add(ctx, 1)
	sm.bytesTotal.Add(ctx, int64(stats.Bytes))
	sm.fileDuration.Record(ctx, stats.Duration.Seconds())

	if stats.Failed {
		sm.parseFailures.Add(ctx, 1)

		return
	}

	for category, count := range stats.Findings {
		sm.findingsTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrCategory, category)))
	}
}
