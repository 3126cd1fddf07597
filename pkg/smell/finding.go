package smell

import (
	"fmt"
	"strconv"
)

// Category tags the class of smell a Finding reports.
type Category string

// Finding categories.
const (
	CategoryNestedLoop   Category = "nested-loop"
	CategoryUnusedImport Category = "unused-import"
)

// Level is the default severity a rule reports with.
type Level string

// Levels, named after their SARIF counterparts.
const (
	LevelWarning Level = "warning"
	LevelNote    Level = "note"
)

// Rule describes one detection rule.
type Rule struct {
	Category    Category
	Title       string
	Description string
	Level       Level
}

// rules is the closed rule catalog, in reporting order.
var rules = []Rule{
	{
		Category:    CategoryNestedLoop,
		Title:       "Nested loop",
		Description: "A loop whose body contains another loop; iteration cost multiplies with each level.",
		Level:       LevelWarning,
	},
	{
		Category:    CategoryUnusedImport,
		Title:       "Unused import",
		Description: "A top-level import binds a name that is never referenced in the script.",
		Level:       LevelNote,
	},
}

// Rules returns the rule catalog in reporting order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)

	return out
}

// LookupRule returns the rule for a category.
func LookupRule(category Category) (Rule, bool) {
	for _, rule := range rules {
		if rule.Category == category {
			return rule, true
		}
	}

	return Rule{}, false
}

// Finding is one reported diagnostic.
// Line is 1-based; 0 means the finding is not tied to a line.
type Finding struct {
	Category Category `json:"category" yaml:"category"`
	Message  string   `json:"message"  yaml:"message"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
}

// String renders the finding as its message.
func (f Finding) String() string {
	return f.Message
}

func nestedLoopFinding(line int) Finding {
	return Finding{
		Category: CategoryNestedLoop,
		Message:  "Inefficient nested loop found at line " + strconv.Itoa(line),
		Line:     line,
	}
}

func unusedImportFinding(name string, line int) Finding {
	return Finding{
		Category: CategoryUnusedImport,
		Message:  fmt.Sprintf("Unused import: %s", name),
		Name:     name,
		Line:     line,
	}
}
