package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

// palette holds the colorizers for one render.
type palette struct {
	ok      *color.Color
	header  *color.Color
	warning *color.Color
	note    *color.Color
	failure *color.Color
	dim     *color.Color
}

func newPalette(enabled bool) palette {
	pal := palette{
		ok:      color.New(color.FgGreen),
		header:  color.New(color.FgYellow, color.Bold),
		warning: color.New(color.FgYellow),
		note:    color.New(color.FgCyan),
		failure: color.New(color.FgRed),
		dim:     color.New(color.Faint),
	}

	for _, c := range []*color.Color{pal.ok, pal.header, pal.warning, pal.note, pal.failure, pal.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return pal
}

func (p palette) forCategory(category smell.Category) *color.Color {
	rule, ok := smell.LookupRule(category)
	if ok && rule.Level == smell.LevelNote {
		return p.note
	}

	return p.warning
}

// writeText renders the summary contract. With more than one result every
// line is prefixed with its file; failures are listed after the findings.
func writeText(w io.Writer, results []scan.Result, opts Options) error {
	pal := newPalette(opts.Color)
	multi := len(results) > 1
	sum := scan.Summarize(results)

	var sb strings.Builder

	switch header := sum.Header(); {
	case sum.Clean():
		sb.WriteString(pal.ok.Sprint(header) + "\n")
	case header != "":
		sb.WriteString(pal.header.Sprint(header) + "\n")
	}

	for _, f := range sum.Findings {
		if multi {
			sb.WriteString(pal.dim.Sprint(location(f.File, f.Line)) + " ")
		}

		sb.WriteString(pal.forCategory(f.Category).Sprint(f.Message))
		sb.WriteByte('\n')
	}

	for _, res := range sum.Failures {
		sb.WriteString(pal.failure.Sprintf("%s: %v", res.File, res.Err))
		sb.WriteByte('\n')
	}

	if opts.Stats {
		sb.WriteString(pal.dim.Sprint(statsLine(results)))
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func location(file string, line int) string {
	if line <= 0 {
		return file + ":"
	}

	return file + ":" + strconv.Itoa(line) + ":"
}

// statsLine reports how much was scanned, e.g. "Scanned 3 files (1.2 kB) in 4ms".
func statsLine(results []scan.Result) string {
	var (
		total    uint64
		duration time.Duration
	)

	for _, res := range results {
		if res.Bytes > 0 {
			total += uint64(res.Bytes)
		}

		duration += res.Duration
	}

	noun := "files"
	if len(results) == 1 {
		noun = "file"
	}

	return fmt.Sprintf("Scanned %d %s (%s) in %s",
		len(results), noun, humanize.Bytes(total), duration.Round(time.Microsecond))
}

// writeTable renders findings as a go-pretty table with a total footer.
func writeTable(w io.Writer, results []scan.Result, opts Options) error {
	sum := scan.Summarize(results)
	if sum.Clean() {
		return writeText(w, results, Options{Color: opts.Color})
	}

	pal := newPalette(opts.Color)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Line", "Category", "Message"})

	for _, res := range results {
		for _, f := range res.Findings {
			tbl.AppendRow(table.Row{res.File, f.Line, string(f.Category), pal.forCategory(f.Category).Sprint(f.Message)})
		}

		if res.Err != nil {
			tbl.AppendRow(table.Row{res.File, "", "error", pal.failure.Sprint(res.Err.Error())})
		}
	}

	tbl.AppendFooter(table.Row{"", "", "Total", fmt.Sprintf("%d findings", len(sum.Findings))})
	tbl.Style().Format.Footer = text.FormatDefault

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write table report: %w", err)
	}

	return nil
}
