// Package scan orchestrates loading, parsing and analyzing Python scripts.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/smellscan/pkg/lru"
	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
	"github.com/Sumatoshi-tech/smellscan/pkg/syntax"
)

// StdinName is the display name of a script read from standard input.
const StdinName = "<stdin>"

// DefaultMaxFileSize is the largest file ScanFile reads unless overridden.
const DefaultMaxFileSize int64 = 1 << 20

// Result is the outcome of scanning one script.
type Result struct {
	// Err is the load or parse failure; Findings is empty when set.
	Err      error
	File     string
	Findings []smell.Finding
	Bytes    int
	Duration time.Duration
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(analyzer *smell.Analyzer) Option {
	return func(s *Scanner) {
		if analyzer != nil {
			s.analyzer = analyzer
		}
	}
}

// WithLogger sets the logger used for per-file debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records every scanned file into metrics.
func WithMetrics(metrics *observability.ScanMetrics) Option {
	return func(s *Scanner) { s.metrics = metrics }
}

// WithTracer sets the tracer for per-file spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scanner) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithWorkers bounds ScanFiles parallelism; n <= 0 means runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// WithMaxFileSize sets the largest file ScanFile accepts; n <= 0 removes the limit.
func WithMaxFileSize(n int64) Option {
	return func(s *Scanner) { s.maxFileSize = n }
}

// WithCache keeps the outcome of the last n distinct sources, keyed by
// content hash; n <= 0 disables caching.
func WithCache(n int) Option {
	return func(s *Scanner) { s.cache = lru.New[contentKey, cachedScan](n) }
}

// contentKey identifies a source by hash and length.
type contentKey struct {
	sum  uint64
	size int
}

type cachedScan struct {
	err      error
	findings []smell.Finding
}

// Scanner parses and analyzes scripts. It is safe for concurrent use.
type Scanner struct {
	builder     *syntax.Builder
	analyzer    *smell.Analyzer
	logger      *slog.Logger
	metrics     *observability.ScanMetrics
	tracer      trace.Tracer
	cache       *lru.Cache[contentKey, cachedScan]
	workers     int
	maxFileSize int64
}

// New creates a Scanner. Without options it runs every rule with default
// options, logs nowhere and records no telemetry.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		builder:     syntax.NewBuilder(),
		analyzer:    smell.NewAnalyzer(smell.DefaultOptions()),
		logger:      slog.New(slog.DiscardHandler),
		tracer:      nooptrace.NewTracerProvider().Tracer("smellscan"),
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AnalyzerOptions returns the options of the scanner's analyzer.
func (s *Scanner) AnalyzerOptions() smell.Options {
	return s.analyzer.Options()
}

// Derive returns a scanner that analyzes with opts and shares the parser
// pool and telemetry of s. The source cache is not shared.
func (s *Scanner) Derive(opts smell.Options) *Scanner {
	derived := *s
	derived.analyzer = smell.NewAnalyzer(opts)
	derived.cache = nil

	return &derived
}

// ScanSource parses and analyzes content. A syntax error is returned as is
// and recorded in Result.Err; no findings accompany it.
func (s *Scanner) ScanSource(ctx context.Context, name string, content []byte) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "smellscan.scan.source",
		trace.WithAttributes(attribute.String("file", name), attribute.Int("bytes", len(content))))
	defer span.End()

	start := time.Now()
	res := Result{File: name, Bytes: len(content), Findings: []smell.Finding{}}

	findings, err := s.analyze(ctx, content)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		s.record(ctx, res)
		s.logger.DebugContext(ctx, "scan failed", "file", name, "error", err)

		return res, err
	}

	res.Findings = findings
	span.SetAttributes(attribute.Int("findings", len(findings)))
	s.record(ctx, res)
	s.logger.DebugContext(ctx, "scanned", "file", name, "findings", len(findings), "duration", res.Duration)

	return res, nil
}

// CacheStats reports the source cache counters; zero without WithCache.
func (s *Scanner) CacheStats() lru.Stats {
	return s.cache.Stats()
}

// analyze serves repeated sources from the cache when one is configured.
func (s *Scanner) analyze(ctx context.Context, content []byte) ([]smell.Finding, error) {
	if s.cache == nil {
		return s.parseAndAnalyze(ctx, content)
	}

	key := contentKey{sum: xxhash.Sum64(content), size: len(content)}

	if hit, ok := s.cache.Get(key); ok {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache_hit", true))

		return slices.Clone(hit.findings), hit.err
	}

	findings, err := s.parseAndAnalyze(ctx, content)
	s.cache.Put(key, cachedScan{err: err, findings: slices.Clone(findings)})

	return findings, err
}

func (s *Scanner) parseAndAnalyze(ctx context.Context, content []byte) ([]smell.Finding, error) {
	root, err := s.builder.Parse(ctx, content)
	if err != nil {
		return nil, err
	}

	findings, err := s.analyzer.Analyze(root)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	return findings, nil
}

func (s *Scanner) record(ctx context.Context, res Result) {
	stats := observability.FileStats{
		Duration: res.Duration,
		Bytes:    res.Bytes,
		Failed:   res.Err != nil,
	}

	if len(res.Findings) > 0 {
		stats.Findings = make(map[string]int)
		for _, f := range res.Findings {
			stats.Findings[string(f.Category)]++
		}
	}

	s.metrics.RecordFile(ctx, stats)
}

// ScanFile loads and scans the file at path. Result.File keeps path as given.
func (s *Scanner) ScanFile(ctx context.Context, path string) (Result, error) {
	content, err := readSource(path, s.maxFileSize)
	if err != nil {
		res := Result{File: path, Err: err, Findings: []smell.Finding{}}
		s.record(ctx, res)
		s.logger.DebugContext(ctx, "load failed", "file", path, "error", err)

		return res, err
	}

	return s.ScanSource(ctx, path, content)
}

// ScanFiles scans paths concurrently and returns results in input order.
// Per-file failures are kept in Result.Err; the returned error is only set
// when ctx is canceled before every file was scanned.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	workers := s.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	for idx, path := range paths {
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				results[idx] = Result{File: path, Err: err, Findings: []smell.Finding{}}

				return fmt.Errorf("scan %s: %w", path, err)
			}

			results[idx], _ = s.ScanFile(grpCtx, path)

			return nil
		})
	}

	err := grp.Wait()
	if err != nil {
		return results, err
	}

	return results, nil
}
