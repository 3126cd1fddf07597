package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

const (
	toolName = "smellscan"
	toolURI  = "https://github.com/Sumatoshi-tech/smellscan"
)

// writeSARIF renders a SARIF 2.1.0 log with one rule per category.
// Files that failed to scan carry no results.
func writeSARIF(w io.Writer, results []scan.Result, opts Options) error {
	log, err := NewSARIF(results, opts.Version)
	if err != nil {
		return err
	}

	err = log.PrettyWrite(w)
	if err != nil {
		return fmt.Errorf("write sarif report: %w", err)
	}

	return nil
}

// NewSARIF builds the SARIF log for results.
func NewSARIF(results []scan.Result, version string) (*sarif.Report, error) {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("create sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	if version != "" {
		run.Tool.Driver.SemanticVersion = &version
	}

	for _, rule := range smell.Rules() {
		run.AddRule(string(rule.Category)).
			WithName(rule.Title).
			WithDescription(rule.Title).
			WithFullDescription(sarif.NewMultiformatMessageString(rule.Description)).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: string(rule.Level)})
	}

	for _, res := range results {
		uri := filepath.ToSlash(res.File)

		for _, f := range res.Findings {
			region := sarif.NewRegion()
			if f.Line > 0 {
				region = region.WithStartLine(f.Line)
			}

			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
					WithRegion(region),
			)

			run.AddResult(sarif.NewRuleResult(string(f.Category)).
				WithMessage(sarif.NewTextMessage(f.Message)).
				WithLevel(string(levelOf(f.Category))).
				WithLocations([]*sarif.Location{location}))
		}
	}

	log.AddRun(run)

	return log, nil
}

func levelOf(category smell.Category) smell.Level {
	rule, ok := smell.LookupRule(category)
	if !ok {
		return smell.LevelWarning
	}

	return rule.Level
}
