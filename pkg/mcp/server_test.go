package mcp_test

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/smellscan/pkg/mcp"
	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
)

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{"smellscan_rules", "smellscan_scan"}, srv.ListToolNames())
}

func TestServer_Run_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	serverTransport, _ := mcpsdk.NewInMemoryTransports()

	err := mcp.NewServer(mcp.ServerDeps{}).RunWithTransport(ctx, serverTransport)
	require.Error(t, err)
}

func TestServer_CallToolOverTransport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := sdkmetric.NewManualReader()
	red, err := observability.NewREDMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	srv := mcp.NewServer(mcp.ServerDeps{Metrics: red, Version: "test"})

	go func() { _ = srv.RunWithTransport(ctx, serverTransport) }()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	defer session.Close()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{"code": "import os\n"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	assert.False(t, result.IsError)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Unused import: os")
}
