package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/smellscan/pkg/report"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

const nestedScript = "import os\n" +
	"\n" +
	"for i in range(3):\n" +
	"    for j in range(3):\n" +
	"        print(i, j)\n"

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestHandleScan_Findings(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{Version: "1.0.0"})

	result, output, err := srv.handleScan(context.Background(), &mcpsdk.CallToolRequest{}, ScanInput{
		Code: nestedScript,
		Name: "loops.py",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	require.NoError(t, report.ValidateJSON([]byte(text)))

	var doc report.Document

	require.NoError(t, json.Unmarshal([]byte(text), &doc))
	assert.Equal(t, "1.0.0", doc.Version)
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "loops.py", doc.Files[0].File)
	assert.Len(t, doc.Files[0].Findings, 2)
	assert.IsType(t, report.Document{}, output.Data)
}

func TestHandleScan_DefaultName(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleScan(context.Background(), &mcpsdk.CallToolRequest{}, ScanInput{Code: "x = 1\n"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"file": "script.py"`)
}

func TestHandleScan_Options(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleScan(context.Background(), &mcpsdk.CallToolRequest{}, ScanInput{
		Code:        "import numpy as np\nfor a in x:\n    for b in y:\n        pass\n",
		Rules:       []string{"unused-import"},
		ImportNames: "declared",
	})
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Unused import: numpy")
	assert.NotContains(t, text, "nested loop")
}

func TestHandleScan_OverridesKeepServerOptions(t *testing.T) {
	t.Parallel()

	base := smell.Options{ImportNames: smell.NamesDeclared}
	srv := NewServer(ServerDeps{Scanner: scan.New(scan.WithAnalyzer(smell.NewAnalyzer(base)))})

	result, _, err := srv.handleScan(context.Background(), &mcpsdk.CallToolRequest{}, ScanInput{
		Code:  "import numpy as np\nfor a in x:\n    for b in y:\n        pass\n",
		Rules: []string{"unused-import"},
	})
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Unused import: numpy", "server import policy survives a rules override")
	assert.NotContains(t, text, "nested loop")
	assert.Equal(t, smell.NamesDeclared, srv.scanner.AnalyzerOptions().ImportNames)
	assert.Nil(t, srv.scanner.AnalyzerOptions().Rules, "per-call rules do not leak into the server scanner")
}

func TestAnalyzerOptions(t *testing.T) {
	t.Parallel()

	base := smell.Options{ImportNames: smell.NamesDeclared, IncludeComprehensions: true}

	opts, err := analyzerOptions(base, ScanInput{Code: "x = 1\n"})
	require.NoError(t, err)
	assert.Nil(t, opts)

	opts, err = analyzerOptions(base, ScanInput{ImportNames: "bound"})
	require.NoError(t, err)
	require.NotNil(t, opts)
	assert.Equal(t, smell.NamesBound, opts.ImportNames)
	assert.True(t, opts.IncludeComprehensions)
	assert.Nil(t, opts.Rules)
}

func TestHandleScan_InvalidInput(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	tests := []struct {
		name  string
		want  string
		input ScanInput
	}{
		{name: "empty", input: ScanInput{Code: "  "}, want: "code parameter is required"},
		{name: "too large", input: ScanInput{Code: strings.Repeat("x", MaxCodeInputBytes+1)}, want: "exceeds maximum size"},
		{name: "syntax error", input: ScanInput{Code: "def broken(:\n"}, want: "syntax error at line 1"},
		{name: "unknown rule", input: ScanInput{Code: "x = 1\n", Rules: []string{"long-line"}}, want: "unknown rule category"},
		{name: "unknown policy", input: ScanInput{Code: "x = 1\n", ImportNames: "alias"}, want: "unknown import name policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, _, err := srv.handleScan(context.Background(), &mcpsdk.CallToolRequest{}, tt.input)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleRules(t *testing.T) {
	t.Parallel()

	result, _, err := handleRules(context.Background(), &mcpsdk.CallToolRequest{}, RulesInput{})
	require.NoError(t, err)

	var rules []ruleInfo

	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &rules))
	require.Len(t, rules, 2)
	assert.Equal(t, "nested-loop", rules[0].Category)
	assert.Equal(t, "note", rules[1].Level)
}
