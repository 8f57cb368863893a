// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/arxiv-digest/internal/types"
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

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCandidateBatch outputs the fetch-stage counts and a preview of the
// deduplicated candidates.
func (p *Printer) PrintCandidateBatch(batch *types.CandidateBatch) {
	if batch == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Fetched:    %d\n", batch.Fetched))
	sb.WriteString(fmt.Sprintf("Malformed:  %d\n", batch.Malformed))
	sb.WriteString(fmt.Sprintf("Duplicates: %d\n", batch.Duplicates))
	sb.WriteString(fmt.Sprintf("Unique:     %d\n", len(batch.Candidates)))

	if len(batch.Candidates) > 0 {
		sb.WriteString("\n")
		count := min(len(batch.Candidates), maxItemsToShow)
		for i := 0; i < count; i++ {
			c := batch.Candidates[i]
			title := c.Title
			if len(title) > 38 {
				title = title[:35] + "..."
			}
			sb.WriteString(fmt.Sprintf("• %s  %s\n", c.ID, title))
		}
		if len(batch.Candidates) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(batch.Candidates)-maxItemsToShow))
		}
	}

	p.printBox("PAPER CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScoredPapers outputs the top ranked papers with their scores.
func (p *Printer) PrintScoredPapers(batch *types.ScoredBatch) {
	if batch == nil || len(batch.Papers) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyzed: %d  Failed: %d\n\n", batch.Analyzed, batch.Failed))

	count := min(len(batch.Papers), maxItemsToShow)
	for i := 0; i < count; i++ {
		paper := batch.Papers[i]
		title := paper.Paper.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("    Score: %d/10  %s  %s\n",
			paper.InnovationScore, paper.Paper.ID, types.CategoryDisplayName(paper.Paper.Category)))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(batch.Papers) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more papers", len(batch.Papers)-maxItemsToShow))
	}

	p.printBox("TOP RANKED PAPERS", sb.String())
}

// PrintDigest outputs the composed digest document grouped by category.
func (p *Printer) PrintDigest(digest *types.DigestDocument) {
	if digest == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Date:   %s\n", digest.Date))
	sb.WriteString(fmt.Sprintf("Papers: %d\n", len(digest.PaperIDs())))
	if digest.PersistFailed > 0 {
		sb.WriteString(fmt.Sprintf("Failed: %d\n", digest.PersistFailed))
	}

	for _, section := range digest.Highlights {
		sb.WriteString(fmt.Sprintf("\n%s:\n", section.Category))
		count := min(len(section.Papers), 3)
		for i := 0; i < count; i++ {
			ref := section.Papers[i]
			title := ref.Title
			if len(title) > 42 {
				title = title[:39] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • [%d/10] %s\n", ref.InnovationScore, title))
		}
		if len(section.Papers) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(section.Papers)-3))
		}
	}

	p.printBox("DAILY DIGEST", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the final counts for a pipeline run, including any
// per-paper failures collected along the way.
func (p *Printer) PrintRunSummary(summary *types.RunSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:   %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("Date:  %s\n", summary.Date))
	sb.WriteString(fmt.Sprintf("State: %s\n", summary.State))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Fetched:      %d\n", summary.Fetched))
	sb.WriteString(fmt.Sprintf("Deduplicated: %d\n", summary.Deduplicated))
	sb.WriteString(fmt.Sprintf("Analyzed:     %d\n", summary.Analyzed))
	sb.WriteString(fmt.Sprintf("Persisted:    %d\n", summary.Persisted))

	failed := summary.AnalysisFailed + summary.PersistFailed
	if failed > 0 {
		sb.WriteString(fmt.Sprintf("Failed:       %d\n", failed))
	}
	if summary.DigestPageID != "" {
		sb.WriteString(fmt.Sprintf("\nDigest page: %s\n", summary.DigestPageID))
	}

	if len(summary.Failures) > 0 {
		sb.WriteString("\n")
		count := min(len(summary.Failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			failure := summary.Failures[i]
			if len(failure) > 52 {
				failure = failure[:49] + "..."
			}
			sb.WriteString(fmt.Sprintf("⚠ %s\n", failure))
		}
		if len(summary.Failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(summary.Failures)-maxItemsToShow))
		}
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
