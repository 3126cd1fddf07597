// Package smell implements the diagnostic walker: it traverses a syntax tree
// and reports nested loops and unused imports as ordered findings.
package smell

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/smellscan/pkg/syntax/node"
)

// ErrInvalidTree reports a tree that violates the builder's output contract.
// It signals a programming error, not a problem in the analyzed script.
var ErrInvalidTree = errors.New("invalid syntax tree")

// Sentinel errors for option parsing.
var (
	ErrUnknownCategory = errors.New("unknown rule category")
	ErrUnknownPolicy   = errors.New("unknown import name policy")
)

// NamePolicy selects which name of an import is tracked and reported.
type NamePolicy string

// Import name policies.
const (
	// NamesBound tracks the locally bound name: the alias when present.
	NamesBound NamePolicy = "bound"
	// NamesDeclared tracks the name as written before any alias.
	NamesDeclared NamePolicy = "declared"
)

// ParseNamePolicy parses a policy name; the empty string selects NamesBound.
func ParseNamePolicy(s string) (NamePolicy, error) {
	switch NamePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", NamesBound:
		return NamesBound, nil
	case NamesDeclared:
		return NamesDeclared, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// ParseCategory parses a rule category name.
func ParseCategory(s string) (Category, error) {
	category := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := LookupRule(category); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}

	return category, nil
}

// Options configures an Analyzer.
type Options struct {
	// Rules lists the enabled categories; nil enables every rule.
	Rules []Category
	// ImportNames selects the tracked import name.
	ImportNames NamePolicy
	// IncludeComprehensions treats comprehension clauses as loops.
	IncludeComprehensions bool
}

// DefaultOptions enables every rule with the bound-name policy.
func DefaultOptions() Options {
	return Options{ImportNames: NamesBound}
}

// Analyzer applies the detection rules to syntax trees.
// An Analyzer holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an Analyzer with the given options.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.ImportNames == "" {
		opts.ImportNames = NamesBound
	}

	opts.Rules = slices.Clone(opts.Rules)

	return &Analyzer{opts: opts}
}

// Options returns a copy of the analyzer's options.
func (a *Analyzer) Options() Options {
	opts := a.opts
	opts.Rules = slices.Clone(a.opts.Rules)

	return opts
}

// Analyze runs every rule with DefaultOptions.
func Analyze(root *node.Node) ([]Finding, error) {
	return NewAnalyzer(DefaultOptions()).Analyze(root)
}

// Analyze returns the findings for root: nested-loop findings in pre-order
// discovery order, then unused-import findings in declaration order.
// A malformed tree fails with ErrInvalidTree and no findings.
func (a *Analyzer) Analyze(root *node.Node) ([]Finding, error) {
	err := validateTree(root)
	if err != nil {
		return nil, err
	}

	findings := []Finding{}

	if a.enabled(CategoryNestedLoop) {
		findings = append(findings, nestedLoops(root, a.opts.IncludeComprehensions)...)
	}

	if a.enabled(CategoryUnusedImport) {
		findings = append(findings, unusedImports(root, a.opts.ImportNames)...)
	}

	return findings, nil
}

func (a *Analyzer) enabled(category Category) bool {
	return a.opts.Rules == nil || slices.Contains(a.opts.Rules, category)
}

// validateTree checks the builder contract over the whole tree.
func validateTree(root *node.Node) error {
	if root == nil {
		return fmt.Errorf("%w: nil root", ErrInvalidTree)
	}

	if root.Kind != node.KindModule {
		return fmt.Errorf("%w: root kind %s, want Module", ErrInvalidTree, root.Kind)
	}

	var invalid error

	root.VisitPreOrder(func(n *node.Node) bool {
		if invalid != nil {
			return false
		}

		invalid = validateNode(n)

		return invalid == nil
	})

	return invalid
}

func validateNode(n *node.Node) error {
	switch {
	case !n.Kind.Valid():
		return fmt.Errorf("%w: %s node at line %d", ErrInvalidTree, n.Kind, n.Line)
	case n.Line < 1:
		return fmt.Errorf("%w: %s node without a source line", ErrInvalidTree, n.Kind)
	case (n.Kind == node.KindIdentifier || n.Kind == node.KindImportBinding) && n.Token == "":
		return fmt.Errorf("%w: %s node at line %d has no name", ErrInvalidTree, n.Kind, n.Line)
	}

	if slices.Contains(n.Children, nil) {
		return fmt.Errorf("%w: nil child under %s node at line %d", ErrInvalidTree, n.Kind, n.Line)
	}

	return nil
}
