package report

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
)

// ErrInvalidReport is returned when a JSON report does not match the schema.
var ErrInvalidReport = errors.New("report does not match schema")

//go:embed schema.json
var reportSchema []byte

// Schema returns the JSON schema of the JSON report document.
func Schema() []byte {
	out := make([]byte, len(reportSchema))
	copy(out, reportSchema)

	return out
}

func writeJSON(w io.Writer, results []scan.Result, opts Options) error {
	data, err := json.MarshalIndent(NewDocument(results, opts.Version), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json report: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	if err != nil {
		return fmt.Errorf("write json report: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, results []scan.Result, opts Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(NewDocument(results, opts.Version))
	if err != nil {
		return fmt.Errorf("write yaml report: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("write yaml report: %w", err)
	}

	return nil
}

// ValidateJSON checks data against the report schema. Schema violations
// wrap ErrInvalidReport and list every failing field.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(reportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(details, "; "))
}
