// Package mcp implements a Model Context Protocol server exposing smellscan
// as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
)

const (
	serverName = "smellscan"
	toolCount  = 2

	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use defaults.
type ServerDeps struct {
	// Scanner runs the scans; nil uses scan.New().
	Scanner *scan.Scanner

	// Logger is passed to the SDK server. Nil uses the SDK default.
	Logger *slog.Logger

	// Metrics records RED metrics per tool call. Nil disables them.
	Metrics *observability.REDMetrics

	// Tracer creates a span per tool call. Nil disables tracing.
	Tracer trace.Tracer

	// Version is reported as the implementation version.
	Version string
}

// Server wraps the MCP SDK server with the smellscan tools.
type Server struct {
	inner   *mcpsdk.Server
	scanner *scan.Scanner
	metrics *observability.REDMetrics
	tracer  trace.Tracer
	version string
	tools   []string
	mu      sync.RWMutex
}

// NewServer creates an MCP server with every smellscan tool registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	scanner := deps.Scanner
	if scanner == nil {
		scanner = scan.New()
	}

	srv := &Server{
		inner:   mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version}, opts),
		scanner: scanner,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		version: version,
		tools:   make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of the registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameScan,
		Description: scanToolDescription,
	}, withMetrics(s.metrics, ToolNameScan, withTracing(s.tracer, ToolNameScan, s.handleScan)))

	s.trackTool(ToolNameScan)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameRules,
		Description: rulesToolDescription,
	}, withMetrics(s.metrics, ToolNameRules, withTracing(s.tracer, ToolNameRules, handleRules)))

	s.trackTool(ToolNameRules)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// withTracing opens a span per call and appends the trace_id to the
// response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		if sc := span.SpanContext(); sc.IsSampled() && result != nil {
			result.Content = append(result.Content,
				&mcpsdk.TextContent{Text: traceIDMetaKey + "=" + sc.TraceID().String()})
		}

		return result, output, err
	}
}

// withMetrics records RED metrics per call. Error results count as errors.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		done := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer done()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}
