package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/factlens/internal/model"
)

// SummaryWriter prints a short plain-text overview for the terminal
type SummaryWriter struct {
	baseWriter
	taxonomy model.Taxonomy
}

// NewSummaryWriter creates a SummaryWriter
func NewSummaryWriter(output io.Writer, taxonomy model.Taxonomy) *SummaryWriter {
	return &SummaryWriter{baseWriter: newBaseWriter(output), taxonomy: taxonomy}
}

// Write prints the summary
func (w *SummaryWriter) Write(report *model.Report) (int, error) {
	counts := make(map[string]int)
	for _, item := range report.Items {
		counts[item.Category]++
	}

	var b strings.Builder
	b.WriteString("═══════════════════════════════════════════════════════════\n")
	b.WriteString("  Research Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "Question:    %s\n", report.Question)
	fmt.Fprintf(&b, "Iterations:  %d (%s)\n", report.Iterations, report.TerminationReason)
	fmt.Fprintf(&b, "Findings:    %d raw, %d in report\n", report.FindingsCount, len(report.Items))
	fmt.Fprintf(&b, "Sources:     %d attempted, %d failed\n", len(report.Sources), report.FailedSources)

	width := 0
	for _, name := range w.taxonomy.Names() {
		width = max(width, len(name))
	}
	b.WriteString("Categories:\n")
	for _, name := range w.taxonomy.Names() {
		marker := "✓"
		if counts[name] == 0 {
			marker = "✗"
		}
		fmt.Fprintf(&b, "  %s %-*s %d\n", marker, width, name, counts[name])
	}

	return io.WriteString(w.output, b.String())
}
