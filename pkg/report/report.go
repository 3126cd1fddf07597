// Package report renders scan results as text, tables, JSON, YAML or SARIF.
package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatSARIF Format = "sarif"
)

// ErrUnknownFormat is returned for a format name no renderer handles.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatTable, FormatJSON, FormatYAML, FormatSARIF}
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Formats(), format) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}

	return format, nil
}

// Options tunes rendering.
type Options struct {
	// Version is stamped into JSON, YAML and SARIF documents.
	Version string
	// Color enables ANSI colors in text and table output.
	Color bool
	// Stats appends a scanned-files footer to text output.
	Stats bool
}

// Write renders results to w in format.
func Write(w io.Writer, format Format, results []scan.Result, opts Options) error {
	switch format {
	case FormatText:
		return writeText(w, results, opts)
	case FormatTable:
		return writeTable(w, results, opts)
	case FormatJSON:
		return writeJSON(w, results, opts)
	case FormatYAML:
		return writeYAML(w, results, opts)
	case FormatSARIF:
		return writeSARIF(w, results, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Document is the JSON and YAML report shape.
type Document struct {
	Version string       `json:"version" yaml:"version"`
	Files   []FileReport `json:"files"   yaml:"files"`
	Summary Summary      `json:"summary" yaml:"summary"`
}

// FileReport holds the findings or the failure of one scanned script.
type FileReport struct {
	File     string          `json:"file"            yaml:"file"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
	Findings []smell.Finding `json:"findings"        yaml:"findings"`
}

// Summary aggregates a Document.
type Summary struct {
	ByCategory map[smell.Category]int `json:"by_category" yaml:"by_category"`
	Files      int                    `json:"files"       yaml:"files"`
	Failed     int                    `json:"failed"      yaml:"failed"`
	Findings   int                    `json:"findings"    yaml:"findings"`
}

// NewDocument builds the report document for results.
func NewDocument(results []scan.Result, version string) Document {
	doc := Document{
		Version: version,
		Files:   make([]FileReport, 0, len(results)),
		Summary: Summary{ByCategory: make(map[smell.Category]int), Files: len(results)},
	}

	for _, res := range results {
		file := FileReport{File: res.File, Findings: res.Findings}
		if file.Findings == nil {
			file.Findings = []smell.Finding{}
		}

		if res.Err != nil {
			file.Error = res.Err.Error()
			doc.Summary.Failed++
		}

		for _, f := range res.Findings {
			doc.Summary.ByCategory[f.Category]++
		}

		doc.Summary.Findings += len(res.Findings)
		doc.Files = append(doc.Files, file)
	}

	return doc
}
