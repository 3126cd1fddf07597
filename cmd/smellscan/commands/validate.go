package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smellscan/pkg/report"
)

// ErrMissingReport is returned when validate is given no report to check.
var ErrMissingReport = errors.New("missing report argument")

func newValidateCommand(global *globalOptions) *cobra.Command {
	var noColor, printSchema bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a smellscan JSON report against the embedded report schema.
Exits with status 2 when the report does not conform.

Examples:
  smellscan validate report.json
  smellscan scan src -f json | smellscan validate -
  smellscan validate --print-schema > smellscan.schema.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return writeSchema(cmd.OutOrStdout())
			}

			if len(args) == 0 {
				return fmt.Errorf("%w: pass a report path or - for stdin", ErrMissingReport)
			}

			return runValidate(cmd, args[0], global.quiet, noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "print the report JSON schema and exit")

	return cmd
}

func runValidate(cmd *cobra.Command, inputPath string, quiet, noColor bool) error {
	data, label, err := readInput(cmd, inputPath)
	if err != nil {
		return err
	}

	okColor := color.New(color.FgGreen)
	failColor := color.New(color.FgRed)

	if noColor {
		okColor.DisableColor()
		failColor.DisableColor()
	}

	err = report.ValidateJSON(data)
	if err == nil {
		if !quiet {
			okColor.Fprintf(cmd.OutOrStdout(), "Report is valid (%s)\n", label)
		}

		return nil
	}

	if !errors.Is(err, report.ErrInvalidReport) {
		return &ExitError{Code: ExitInvalidReport, Err: fmt.Errorf("%s: %w", label, err)}
	}

	failColor.Fprintf(cmd.OutOrStdout(), "Report validation failed (%s)\n", label)

	return &ExitError{Code: ExitInvalidReport, Err: err}
}

func writeSchema(w io.Writer) error {
	_, err := w.Write(report.Schema())
	if err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}

// readInput reads a file, or standard input for "-".
func readInput(cmd *cobra.Command, inputPath string) ([]byte, string, error) {
	if inputPath == stdinArg {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	//nolint:gosec // the input path is chosen by the user.
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}

	return data, inputPath, nil
}
