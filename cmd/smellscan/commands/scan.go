package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smellscan/pkg/config"
	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/report"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
	"github.com/Sumatoshi-tech/smellscan/pkg/syntax"
	"github.com/Sumatoshi-tech/smellscan/pkg/version"
)

// stdinArg selects standard input as a scan target.
const stdinArg = "-"

// ErrScanFailed is returned when at least one target could not be scanned.
var ErrScanFailed = errors.New("scan failed")

// ScanCommand holds the flags of the scan command.
type ScanCommand struct {
	global *globalOptions

	format      string
	output      string
	importNames string
	rules       []string
	workers     int

	all                   bool
	failOnFindings        bool
	includeComprehensions bool
	noColor               bool
	stats                 bool
}

func newScanCommand(global *globalOptions) *cobra.Command {
	sc := &ScanCommand{global: global}

	cmd := &cobra.Command{
		Use:   "scan [paths...|-]",
		Short: "Scan Python scripts for code smells",
		Long: `Scan Python files, directories or standard input for inefficient nested
loops and unused top-level imports.

Directories are searched recursively for .py/.pyw files and Python shebang
scripts; hidden and vendored directories are skipped unless --all is given.

Examples:
  smellscan scan script.py
  smellscan scan ./src -f table
  smellscan scan - < script.py
  smellscan scan ./src -f sarif -o smellscan.sarif --fail-on-findings`,
		Args: cobra.MinimumNArgs(1),
		RunE: sc.run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&sc.format, "format", "f", "", "output format: text, table, json, yaml, sarif (default from config: text)")
	flags.StringVarP(&sc.output, "output", "o", "", "write the report to a file instead of stdout")
	flags.BoolVar(&sc.all, "all", false, "descend into hidden and vendored directories")
	flags.IntVarP(&sc.workers, "workers", "w", 0, "number of parallel scan workers (0 = one per CPU)")
	flags.BoolVar(&sc.failOnFindings, "fail-on-findings", false, "exit with status 3 when findings are reported")
	flags.StringSliceVar(&sc.rules, "rules", nil, "rule categories to run: nested-loop, unused-import (default all)")
	flags.BoolVar(&sc.includeComprehensions, "include-comprehensions", false, "treat comprehension clauses as loops")
	flags.StringVar(&sc.importNames, "import-names", "", "import name to track: bound (alias) or declared")
	flags.BoolVar(&sc.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&sc.stats, "stats", false, "print scanned files, bytes and duration after the text report")

	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion(formatNames()))
	_ = cmd.RegisterFlagCompletionFunc("rules", fixedCompletion(ruleNames()))
	_ = cmd.RegisterFlagCompletionFunc("import-names", fixedCompletion([]string{"bound", "declared"}))

	return cmd
}

func (sc *ScanCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := sc.global.loadConfig()
	if err != nil {
		return err
	}

	sc.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	scanner, providers, err := sc.newScanner(cmd, cfg)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	results, err := sc.scanTargets(cmd, scanner, args)
	if err != nil {
		return err
	}

	logCacheStats(cmd.Context(), providers.Logger, scanner)

	err = sc.writeReport(cmd, cfg, format, results)
	if err != nil {
		return err
	}

	if failed := scan.Failed(results); len(failed) > 0 {
		return &ExitError{
			Code: ExitFailure,
			Err:  fmt.Errorf("%w: %d of %d targets could not be scanned", ErrScanFailed, len(failed), len(results)),
		}
	}

	if sc.failOnFindings && scan.CountFindings(results) > 0 {
		return &ExitError{Code: ExitFindingsPresent, Err: ErrFindings}
	}

	return nil
}

// logCacheStats reports source cache usage at debug level.
func logCacheStats(ctx context.Context, logger *slog.Logger, scanner *scan.Scanner) {
	stats := scanner.CacheStats()
	if stats.MaxEntries == 0 {
		return
	}

	logger.DebugContext(ctx, "source cache",
		"hits", stats.Hits,
		"misses", stats.Misses,
		"evictions", stats.Evictions,
		"entries", stats.Entries,
		"hit_rate", stats.HitRate(),
	)
}

// applyFlags overrides the configuration with the flags the user set.
func (sc *ScanCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Output.Format = sc.format
	}

	if flags.Changed("workers") {
		cfg.Scan.Workers = sc.workers
	}

	if flags.Changed("rules") {
		cfg.Rules.Enabled = sc.rules
	}

	if flags.Changed("include-comprehensions") {
		cfg.Rules.IncludeComprehensions = sc.includeComprehensions
	}

	if flags.Changed("import-names") {
		cfg.Rules.ImportNames = sc.importNames
	}

	if sc.noColor {
		cfg.Output.Color = false
	}
}

func (sc *ScanCommand) newScanner(cmd *cobra.Command, cfg *config.Config) (*scan.Scanner, observability.Providers, error) {
	maxSize, err := cfg.MaxFileSize()
	if err != nil {
		return nil, observability.Providers{}, err
	}

	providers, err := initObservability(cfg, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return nil, observability.Providers{}, err
	}

	metrics, err := observability.NewScanMetrics(providers.Meter)
	if err != nil {
		shutdownObservability(providers)

		return nil, observability.Providers{}, err
	}

	scanner := scan.New(
		scan.WithAnalyzer(smell.NewAnalyzer(cfg.AnalyzerOptions())),
		scan.WithLogger(providers.Logger),
		scan.WithMetrics(metrics),
		scan.WithTracer(providers.Tracer),
		scan.WithWorkers(cfg.Scan.Workers),
		scan.WithCache(cfg.Scan.CacheEntries),
		scan.WithMaxFileSize(maxSize),
	)

	return scanner, providers, nil
}

// scanTargets scans every argument in order; "-" reads standard input once.
func (sc *ScanCommand) scanTargets(cmd *cobra.Command, scanner *scan.Scanner, args []string) ([]scan.Result, error) {
	var collectOpts []scan.CollectOption
	if sc.all {
		collectOpts = append(collectOpts, scan.IncludeAll())
	}

	ctx := cmd.Context()
	results := make([]scan.Result, 0, len(args))
	stdinDone := false

	for _, arg := range args {
		if arg == stdinArg {
			if stdinDone {
				continue
			}

			stdinDone = true

			res, err := scanStdin(cmd, scanner)
			if err != nil && !errors.Is(err, syntax.ErrSyntax) {
				return nil, err
			}

			results = append(results, res)

			continue
		}

		paths, err := scan.Collect(arg, collectOpts...)
		if err != nil {
			return nil, err
		}

		batch, err := scanner.ScanFiles(ctx, paths)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}

		results = append(results, batch...)
	}

	return results, nil
}

func scanStdin(cmd *cobra.Command, scanner *scan.Scanner) (scan.Result, error) {
	content, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return scan.Result{}, fmt.Errorf("read stdin: %w", err)
	}

	return scanner.ScanSource(cmd.Context(), scan.StdinName, content)
}

func (sc *ScanCommand) writeReport(cmd *cobra.Command, cfg *config.Config, format report.Format, results []scan.Result) error {
	opts := report.Options{
		Version: version.Version,
		Color:   cfg.Output.Color && sc.output == "" && !color.NoColor,
		Stats:   sc.stats,
	}

	if sc.output == "" {
		out := cmd.OutOrStdout()
		if sc.global.quiet {
			out = io.Discard
		}

		return report.Write(out, format, results, opts)
	}

	//nolint:gosec // the report path is chosen by the user.
	file, err := os.Create(sc.output)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	writeErr := report.Write(file, format, results, opts)

	return errors.Join(writeErr, file.Close())
}

func ruleNames() []string {
	rules := smell.Rules()
	names := make([]string, 0, len(rules))

	for _, rule := range rules {
		names = append(names, string(rule.Category))
	}

	return names
}

func formatNames() []string {
	formats := report.Formats()
	names := make([]string, 0, len(formats))

	for _, format := range formats {
		names = append(names, string(format))
	}

	return names
}

// fixedCompletion completes a flag value from a closed list.
func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
