package lsp_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/smellscan/pkg/lsp"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
)

const docURI = "file:///work/script.py"

const nestedScript = "import os\n" +
	"\n" +
	"for i in range(3):\n" +
	"    for j in range(3):\n" +
	"        print(i, j)\n"

// recorder captures published notifications.
type recorder struct {
	params []*protocol.PublishDiagnosticsParams
	mu     sync.Mutex
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != "textDocument/publishDiagnostics" {
				return
			}

			r.mu.Lock()
			defer r.mu.Unlock()

			if p, ok := params.(*protocol.PublishDiagnosticsParams); ok {
				r.params = append(r.params, p)
			}
		},
	}
}

func (r *recorder) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.params)

	return r.params[len(r.params)-1]
}

func TestDocumentStore(t *testing.T) {
	t.Parallel()

	store := lsp.NewDocumentStore()
	store.Set(docURI, "x = 1\n")
	store.Set(docURI, "x = 2\n")

	got, ok := store.Get(docURI)
	require.True(t, ok)
	assert.Equal(t, "x = 2\n", got)
	assert.Equal(t, 1, store.Len())

	store.Delete(docURI)

	_, ok = store.Get(docURI)
	assert.False(t, ok)
}

func TestDiagnostics_Findings(t *testing.T) {
	t.Parallel()

	srv := lsp.NewServer(scan.New(), "test")

	diags := srv.Diagnostics(context.Background(), docURI, nestedScript)
	require.Len(t, diags, 2)

	first := diags[0]
	assert.Equal(t, "Inefficient nested loop found at line 3", first.Message)
	assert.Equal(t, protocol.UInteger(2), first.Range.Start.Line)
	assert.Equal(t, protocol.UInteger(0), first.Range.Start.Character)
	assert.Equal(t, protocol.UInteger(18), first.Range.End.Character)
	require.NotNil(t, first.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *first.Severity)
	require.NotNil(t, first.Source)
	assert.Equal(t, "smellscan", *first.Source)
	require.NotNil(t, first.Code)
	assert.Equal(t, "nested-loop", first.Code.Value)

	assert.Equal(t, "unused-import", diags[1].Code.Value)
	assert.Equal(t, protocol.UInteger(0), diags[1].Range.Start.Line)
}

func TestDiagnostics_SyntaxError(t *testing.T) {
	t.Parallel()

	srv := lsp.NewServer(scan.New(), "test")

	diags := srv.Diagnostics(context.Background(), docURI, "x = 1\ndef broken(:\n    pass\n")
	require.Len(t, diags, 1)

	assert.Equal(t, protocol.DiagnosticSeverityError, *diags[0].Severity)
	assert.Equal(t, protocol.UInteger(1), diags[0].Range.Start.Line)
	assert.Contains(t, diags[0].Message, "syntax error at line 2")
	assert.Equal(t, "syntax-error", diags[0].Code.Value)
}

func TestDiagnostics_Clean(t *testing.T) {
	t.Parallel()

	srv := lsp.NewServer(scan.New(), "test")

	diags := srv.Diagnostics(context.Background(), docURI, "import sys\nprint(sys.argv)\n")
	assert.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestHandler_DocumentLifecycle(t *testing.T) {
	t.Parallel()

	srv := lsp.NewServer(scan.New(), "test")
	handler := srv.Handler()
	rec := &recorder{}

	require.NoError(t, handler.TextDocumentDidOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: docURI, LanguageID: "python", Version: 1, Text: nestedScript},
	}))

	published := rec.last(t)
	assert.Equal(t, docURI, published.URI)
	assert.Len(t, published.Diagnostics, 2)

	require.NoError(t, handler.TextDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "import os\nos.getcwd()\n"}},
	}))

	assert.Empty(t, rec.last(t).Diagnostics)

	text, ok := srv.Documents().Get(docURI)
	require.True(t, ok)
	assert.Equal(t, "import os\nos.getcwd()\n", text)

	require.NoError(t, handler.TextDocumentDidSave(rec.context(), &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}))
	assert.Empty(t, rec.last(t).Diagnostics)

	require.NoError(t, handler.TextDocumentDidClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}))

	assert.Empty(t, rec.last(t).Diagnostics)
	assert.Equal(t, 0, srv.Documents().Len())
}

func TestHandler_Initialize(t *testing.T) {
	t.Parallel()

	srv := lsp.NewServer(scan.New(), "1.2.3")

	result, err := srv.Handler().Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	init, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "smellscan", init.ServerInfo.Name)
	assert.Equal(t, "1.2.3", *init.ServerInfo.Version)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, init.Capabilities.TextDocumentSync)
}
