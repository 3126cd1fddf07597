// Package lsp provides a stdio Language Server that publishes smellscan
// findings as diagnostics for open Python documents.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/syntax"
)

const (
	serverName        = "smellscan"
	diagnosticSource  = "smellscan"
	methodDiagnostics = "textDocument/publishDiagnostics"
	syntaxErrorCode   = "syntax-error"
	opPrefix          = "lsp."
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// WithMetrics records RED metrics for every handled notification.
func WithMetrics(red *observability.REDMetrics) Option {
	return func(srv *Server) { srv.red = red }
}

// WithTracer sets the tracer for per-notification spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(srv *Server) {
		if tracer != nil {
			srv.tracer = tracer
		}
	}
}

// Server is the smellscan language server.
type Server struct {
	store   *DocumentStore
	scanner *scan.Scanner
	logger  *slog.Logger
	red     *observability.REDMetrics
	tracer  trace.Tracer
	handler protocol.Handler
	version string
}

// NewServer creates a language server that scans documents with scanner;
// nil uses scan.New().
func NewServer(scanner *scan.Scanner, version string, opts ...Option) *Server {
	if scanner == nil {
		scanner = scan.New()
	}

	srv := &Server{
		store:   NewDocumentStore(),
		scanner: scanner,
		logger:  slog.New(slog.DiscardHandler),
		tracer:  nooptrace.NewTracerProvider().Tracer(serverName),
		version: version,
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
	}

	return srv
}

// Handler exposes the protocol handler, for embedding in another transport.
func (srv *Server) Handler() *protocol.Handler {
	return &srv.handler
}

// Documents returns the open document store.
func (srv *Server) Documents() *DocumentStore {
	return srv.store
}

// RunStdio serves the protocol on stdin and stdout until the client exits.
func (srv *Server) RunStdio() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindFull

	version := srv.version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(glspCtx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Set(uri, params.TextDocument.Text)

	return srv.observe("didOpen", uri, func(ctx context.Context) {
		srv.publish(ctx, glspCtx.Notify, uri, params.TextDocument.Text)
	})
}

func (srv *Server) didChange(glspCtx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	text, ok := lastFullText(params.ContentChanges)
	if !ok {
		return nil
	}

	srv.store.Set(uri, text)

	return srv.observe("didChange", uri, func(ctx context.Context) {
		srv.publish(ctx, glspCtx.Notify, uri, text)
	})
}

func (srv *Server) didSave(glspCtx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil
	}

	return srv.observe("didSave", uri, func(ctx context.Context) {
		srv.publish(ctx, glspCtx.Notify, uri, text)
	})
}

func (srv *Server) didClose(glspCtx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	glspCtx.Notify(methodDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

// lastFullText returns the text of the last whole-document change.
func lastFullText(changes []any) (string, bool) {
	for idx := len(changes) - 1; idx >= 0; idx-- {
		switch change := changes[idx].(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			return change.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			return change.Text, true
		case map[string]any:
			if _, ranged := change["range"]; ranged {
				continue
			}

			if text, ok := change["text"].(string); ok {
				return text, true
			}
		}
	}

	return "", false
}

func (srv *Server) observe(op, uri string, fn func(ctx context.Context)) error {
	ctx, span := srv.tracer.Start(context.Background(), opPrefix+op,
		trace.WithAttributes(attribute.String("uri", uri)))
	defer span.End()

	done := srv.red.TrackInflight(ctx, opPrefix+op)
	defer done()

	start := time.Now()

	fn(ctx)

	srv.red.RecordRequest(ctx, opPrefix+op, observability.StatusOK, time.Since(start))

	return nil
}

func (srv *Server) publish(ctx context.Context, notify glsp.NotifyFunc, uri, text string) {
	diagnostics := srv.Diagnostics(ctx, uri, text)

	srv.logger.DebugContext(ctx, "publish diagnostics", "uri", uri, "count", len(diagnostics))

	notify(methodDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnostics scans text and converts the outcome to LSP diagnostics.
// Each finding becomes a Warning spanning its line; a syntax error becomes
// one Error diagnostic at its position.
func (srv *Server) Diagnostics(ctx context.Context, uri, text string) []protocol.Diagnostic {
	res, err := srv.scanner.ScanSource(ctx, uri, []byte(text))
	if err != nil {
		return []protocol.Diagnostic{errorDiagnostic(err, text)}
	}

	lines := strings.Split(text, "\n")
	diagnostics := make([]protocol.Diagnostic, 0, len(res.Findings))

	for _, f := range res.Findings {
		diagnostics = append(diagnostics, newDiagnostic(
			lineRange(lines, f.Line),
			protocol.DiagnosticSeverityWarning,
			string(f.Category),
			f.Message,
		))
	}

	return diagnostics
}

func errorDiagnostic(err error, text string) protocol.Diagnostic {
	var synErr *syntax.SyntaxError
	if !errors.As(err, &synErr) {
		return newDiagnostic(protocol.Range{}, protocol.DiagnosticSeverityError, "", err.Error())
	}

	lines := strings.Split(text, "\n")
	rng := lineRange(lines, synErr.Line)
	rng.Start.Character = utf16Offset(lineAt(lines, synErr.Line), synErr.Column-1)

	return newDiagnostic(rng, protocol.DiagnosticSeverityError, syntaxErrorCode, synErr.Error())
}

func newDiagnostic(rng protocol.Range, severity protocol.DiagnosticSeverity, code, message string) protocol.Diagnostic {
	source := diagnosticSource
	diag := protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}

	if code != "" {
		diag.Code = &protocol.IntegerOrString{Value: code}
	}

	return diag
}

func lineAt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}

	return strings.TrimSuffix(lines[line-1], "\r")
}

// lineRange spans the whole of the 1-based line; lines outside the text
// collapse to the start of the document.
func lineRange(lines []string, line int) protocol.Range {
	if line < 1 || line > len(lines) {
		return protocol.Range{}
	}

	row := protocol.UInteger(line - 1)

	return protocol.Range{
		Start: protocol.Position{Line: row},
		End:   protocol.Position{Line: row, Character: utf16Offset(lineAt(lines, line), -1)},
	}
}

// utf16Offset converts a byte offset in line into UTF-16 code units;
// a negative offset means the end of the line.
func utf16Offset(line string, byteOffset int) protocol.UInteger {
	if byteOffset < 0 || byteOffset > len(line) {
		byteOffset = len(line)
	}

	return protocol.UInteger(len(utf16.Encode([]rune(line[:byteOffset]))))
}
