// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jonathan/showstart-scout/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content.
// Widths are measured in terminal cells so CJK venue names line up.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", runewidth.FillRight(runewidth.Truncate(title, inner, "..."), inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		line = runewidth.Truncate(line, inner, "...")
		fmt.Fprintf(p.out, "│ %s │\n", runewidth.FillRight(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintOutcome outputs a human-readable summary of a search outcome.
func (p *Printer) PrintOutcome(outcome *types.SearchOutcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	status := "OK"
	if !outcome.Success {
		status = "FAILED"
	}
	sb.WriteString(fmt.Sprintf("Rapper:   %s\n", outcome.RapperName))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status))

	stats := outcome.ExecutionStats
	sb.WriteString(fmt.Sprintf("Steps:    %d in %.1fs", stats.TotalSteps, stats.DurationSeconds))
	if stats.Timeout {
		sb.WriteString(fmt.Sprintf(" (timed out at %ds)", stats.TimeoutSeconds))
	}
	sb.WriteString("\n")
	if outcome.ErrorMessage != nil {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", *outcome.ErrorMessage))
	}

	if ps := outcome.Persistence; ps != nil {
		sb.WriteString(fmt.Sprintf("Stored:   %d inserted, %d failed, %d expired\n", ps.Inserted, ps.Failed, ps.Expired))
		if ps.DateFallbacks > 0 {
			sb.WriteString(fmt.Sprintf("          %d dates defaulted to today\n", ps.DateFallbacks))
		}
		if ps.CleanupError != "" {
			sb.WriteString(fmt.Sprintf("Cleanup:  %s\n", ps.CleanupError))
		}
	}

	if len(outcome.Performances) > 0 {
		sb.WriteString("\n")
		count := min(len(outcome.Performances), maxItemsToShow)
		for i := 0; i < count; i++ {
			perf := outcome.Performances[i]
			sb.WriteString(fmt.Sprintf("  • %s  %s\n", perf.Date, perf.Venue))
		}
		if len(outcome.Performances) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(outcome.Performances)-maxItemsToShow))
		}
	}

	p.printBox("SEARCH OUTCOME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecords outputs stored performances for one rapper.
func (p *Printer) PrintRecords(rapperName string, records []types.PerformanceRecord) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total stored: %d\n", len(records)))

	count := min(len(records), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := records[i]
		sb.WriteString(fmt.Sprintf("\n%s  %s\n", r.PerformanceDateString(), r.Venue))
		if r.PriceRegular.Valid {
			sb.WriteString(fmt.Sprintf("    Regular: ¥%s\n", r.PriceRegular.Decimal.StringFixed(2)))
		}
		if len(r.Guests) > 0 {
			sb.WriteString(fmt.Sprintf("    Guests: %s\n", strings.Join(r.Guests, ", ")))
		}
	}
	if len(records) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(records)-maxItemsToShow))
	}

	p.printBox("STORED PERFORMANCES: "+rapperName, strings.TrimSuffix(sb.String(), "\n"))
}
