// Package commands implements the smellscan cobra commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smellscan/pkg/config"
	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/version"
)

// Process exit codes.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitInvalidReport   = 2
	ExitFindingsPresent = 3
)

// ErrFindings is returned by scan --fail-on-findings when findings exist.
var ErrFindings = errors.New("findings reported")

// ExitError carries the process exit code for err.
type ExitError struct {
	Err  error
	Code int
}

// Error implements error.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitFailure
}

// globalOptions holds the persistent root flags.
type globalOptions struct {
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool
}

// NewRootCommand builds the smellscan command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "smellscan",
		Short: "smellscan - Python code smell scanner",
		Long: `smellscan parses Python scripts and reports code smells:
inefficient nested loops and unused top-level imports.

Commands:
  scan        Scan files, directories or stdin
  validate    Validate a JSON report against the report schema
  rules       List the detection rules
  lsp         Serve diagnostics to editors over LSP (stdio)
  mcp         Serve the scanner to AI agents over MCP (stdio)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is ./.smellscan.yaml, then $HOME/.smellscan.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress output")
	flags.BoolVar(&opts.logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(newScanCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newRulesCommand())
	rootCmd.AddCommand(newLSPCommand(opts))
	rootCmd.AddCommand(newMCPCommand(opts))
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newCompletionCommand())

	return rootCmd
}

// loadConfig reads the configuration and applies the global flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	switch {
	case o.verbose:
		cfg.Logging.Level = "debug"
	case o.quiet:
		cfg.Logging.Level = "error"
	}

	if o.logJSON {
		cfg.Logging.Format = "json"
	}

	return cfg, nil
}

// initObservability starts the providers for mode with logs written to logOut.
func initObservability(cfg *config.Config, mode observability.AppMode, logOut io.Writer) (observability.Providers, error) {
	obsCfg := cfg.Observability(mode, version.Version)
	obsCfg.LogOutput = logOut

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// shutdownObservability flushes providers and logs a failure.
func shutdownObservability(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
