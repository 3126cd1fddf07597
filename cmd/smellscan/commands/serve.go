package commands

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smellscan/pkg/config"
	"github.com/Sumatoshi-tech/smellscan/pkg/lsp"
	"github.com/Sumatoshi-tech/smellscan/pkg/mcp"
	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
	"github.com/Sumatoshi-tech/smellscan/pkg/version"
)

// serverRuntime is the shared setup of the long-running stdio modes.
type serverRuntime struct {
	providers observability.Providers
	red       *observability.REDMetrics
	scanner   *scan.Scanner
	metrics   *http.Server
}

// startServerRuntime loads configuration and starts telemetry for mode.
// Logs go to stderr since stdout carries the protocol.
func startServerRuntime(global *globalOptions, mode observability.AppMode) (*serverRuntime, error) {
	cfg, err := global.loadConfig()
	if err != nil {
		return nil, err
	}

	providers, err := initObservability(cfg, mode, os.Stderr)
	if err != nil {
		return nil, err
	}

	rt := &serverRuntime{providers: providers}

	err = rt.wire(cfg)
	if err != nil {
		rt.close()

		return nil, err
	}

	return rt, nil
}

func (rt *serverRuntime) wire(cfg *config.Config) error {
	red, err := observability.NewREDMetrics(rt.providers.Meter)
	if err != nil {
		return err
	}

	scanMetrics, err := observability.NewScanMetrics(rt.providers.Meter)
	if err != nil {
		return err
	}

	maxSize, err := cfg.MaxFileSize()
	if err != nil {
		return err
	}

	rt.red = red
	rt.scanner = scan.New(
		scan.WithAnalyzer(smell.NewAnalyzer(cfg.AnalyzerOptions())),
		scan.WithLogger(rt.providers.Logger),
		scan.WithMetrics(scanMetrics),
		scan.WithTracer(rt.providers.Tracer),
		scan.WithMaxFileSize(maxSize),
		scan.WithCache(cfg.Scan.CacheEntries),
	)

	if addr := cfg.Telemetry.MetricsAddr; addr != "" && rt.providers.MetricsHandler != nil {
		rt.metrics = observability.ServeMetrics(addr, rt.providers.MetricsHandler, rt.providers.Tracer)
		rt.providers.Logger.Info("serving metrics", "addr", addr)
	}

	return nil
}

func (rt *serverRuntime) close() {
	if rt.scanner != nil {
		logCacheStats(context.Background(), rt.providers.Logger, rt.scanner)
	}

	if rt.metrics != nil {
		err := rt.metrics.Shutdown(context.Background())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.providers.Logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	shutdownObservability(rt.providers)
}

func newLSPCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server (LSP, stdio)",
		Long: `Start a Language Server Protocol server on stdio.

Open, changed and saved Python documents are scanned and the findings are
published as diagnostics; syntax errors are published as a single error.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := startServerRuntime(global, observability.ModeLSP)
			if err != nil {
				return err
			}
			defer rt.close()

			srv := lsp.NewServer(rt.scanner, version.Version,
				lsp.WithLogger(rt.providers.Logger),
				lsp.WithMetrics(rt.red),
				lsp.WithTracer(rt.providers.Tracer),
			)

			return srv.RunStdio()
		},
	}
}

func newMCPCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agent integration (stdio)",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes smellscan as tools that AI agents can discover and invoke:
  - smellscan_scan: scan an inline Python script and return the JSON report
  - smellscan_rules: list the detection rules`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := startServerRuntime(global, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer rt.close()

			srv := mcp.NewServer(mcp.ServerDeps{
				Scanner: rt.scanner,
				Logger:  rt.providers.Logger,
				Metrics: rt.red,
				Tracer:  rt.providers.Tracer,
				Version: version.Version,
			})

			return srv.Run(cmd.Context())
		},
	}
}
