package scan

import "github.com/Sumatoshi-tech/smellscan/pkg/smell"

// Summary header and success line.
const (
	NoIssuesLine = "No issues found."
	IssuesHeader = "Issues found:"
)

// Located is a finding together with the file it was found in.
type Located struct {
	File string
	smell.Finding
}

// Summary is the caller-facing outcome of a set of results.
type Summary struct {
	// Findings holds every finding in result order.
	Findings []Located
	// Failures holds the results whose scan failed.
	Failures []Result
}

// Summarize collects the findings and failures of results.
func Summarize(results []Result) Summary {
	var sum Summary

	for _, res := range results {
		for _, f := range res.Findings {
			sum.Findings = append(sum.Findings, Located{File: res.File, Finding: f})
		}
	}

	sum.Failures = Failed(results)

	return sum
}

// Clean reports whether every target was analyzed and none had findings.
func (s Summary) Clean() bool {
	return len(s.Findings) == 0 && len(s.Failures) == 0
}

// Header returns the first summary line: IssuesHeader when there are
// findings, NoIssuesLine when the scan is clean, and "" when targets failed
// without producing any findings.
func (s Summary) Header() string {
	switch {
	case len(s.Findings) > 0:
		return IssuesHeader
	case s.Clean():
		return NoIssuesLine
	default:
		return ""
	}
}

// CountFindings returns the total number of findings across results.
func CountFindings(results []Result) int {
	total := 0
	for _, res := range results {
		total += len(res.Findings)
	}

	return total
}

// Failed returns the results whose scan failed.
func Failed(results []Result) []Result {
	var out []Result

	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}

	return out
}
