package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/smellscan/pkg/report"
	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

// Tool names.
const (
	ToolNameScan  = "smellscan_scan"
	ToolNameRules = "smellscan_rules"
)

// MaxCodeInputBytes is the largest accepted inline script (1 MiB).
const MaxCodeInputBytes = 1 << 20

// defaultScriptName labels a script submitted without a name.
const defaultScriptName = "script.py"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
)

const (
	scanToolDescription = "Scan a Python script for code smells " +
		"(nested loops, unused top-level imports). " +
		"Accepts inline code and returns a JSON report."

	rulesToolDescription = "List the smellscan rules with their categories and default levels."
)

// ScanInput is the input schema for the smellscan_scan tool.
type ScanInput struct {
	Code                  string   `json:"code"                             jsonschema:"Python source code to scan"`
	Name                  string   `json:"name,omitempty"                   jsonschema:"optional file name used in the report (default: script.py)"`
	ImportNames           string   `json:"import_names,omitempty"           jsonschema:"which import name to report: bound (alias) or declared"`
	Rules                 []string `json:"rules,omitempty"                  jsonschema:"optional rule categories to run (default: all)"`
	IncludeComprehensions bool     `json:"include_comprehensions,omitempty" jsonschema:"treat comprehension clauses as loops"`
}

// RulesInput is the empty input of the smellscan_rules tool.
type RulesInput struct{}

// ToolOutput wraps structured tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ruleInfo is one entry of the smellscan_rules result.
type ruleInfo struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
}

func (s *Server) handleScan(ctx context.Context, _ *mcpsdk.CallToolRequest, input ScanInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	opts, err := analyzerOptions(s.scanner.AnalyzerOptions(), input)
	if err != nil {
		return errorResult(err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = defaultScriptName
	}

	scanner := s.scanner
	if opts != nil {
		scanner = s.scanner.Derive(*opts)
	}

	res, err := scanner.ScanSource(ctx, name, []byte(input.Code))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(report.NewDocument([]scan.Result{res}, s.version))
}

func handleRules(_ context.Context, _ *mcpsdk.CallToolRequest, _ RulesInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	rules := smell.Rules()
	out := make([]ruleInfo, 0, len(rules))

	for _, rule := range rules {
		out = append(out, ruleInfo{
			Category:    string(rule.Category),
			Title:       rule.Title,
			Description: rule.Description,
			Level:       string(rule.Level),
		})
	}

	return jsonResult(out)
}

// analyzerOptions applies the per-call overrides in input to base.
// It returns nil when the input keeps the server's options.
func analyzerOptions(base smell.Options, input ScanInput) (*smell.Options, error) {
	if input.Rules == nil && input.ImportNames == "" && !input.IncludeComprehensions {
		return nil, nil
	}

	opts := base

	if input.IncludeComprehensions {
		opts.IncludeComprehensions = true
	}

	if input.ImportNames != "" {
		policy, err := smell.ParseNamePolicy(input.ImportNames)
		if err != nil {
			return nil, err
		}

		opts.ImportNames = policy
	}

	if input.Rules != nil {
		opts.Rules = make([]smell.Category, 0, len(input.Rules))

		for _, name := range input.Rules {
			category, parseErr := smell.ParseCategory(name)
			if parseErr != nil {
				return nil, parseErr
			}

			opts.Rules = append(opts.Rules, category)
		}
	}

	return &opts, nil
}

func validateCodeInput(code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
