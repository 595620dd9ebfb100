package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/ppiankov/factlens/internal/model"
)

// MarkdownWriter outputs reports as Markdown grouped by category
type MarkdownWriter struct {
	baseWriter
	taxonomy      model.Taxonomy
	includeFooter bool
}

// NewMarkdownWriter creates a MarkdownWriter. Items are grouped in the
// category order of taxonomy.
func NewMarkdownWriter(output io.Writer, taxonomy model.Taxonomy, includeFooter bool) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter:    newBaseWriter(output),
		taxonomy:      taxonomy,
		includeFooter: includeFooter,
	}
}

// Write renders the full report
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeItems(md, report)
	w.writeSources(md, report)
	if w.includeFooter {
		w.writeFooter(md, report)
	}

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Research Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Question", report.Question},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Taxonomy", report.Taxonomy},
			{"Iterations", strconv.Itoa(report.Iterations)},
			{"Findings", strconv.Itoa(report.FindingsCount)},
			{"Report items", strconv.Itoa(len(report.Items))},
			{"Sources", strconv.Itoa(len(report.Sources))},
			{"Stopped", report.TerminationReason},
		},
	})
	md.PlainText("")

	switch {
	case len(report.Items) == 0:
		md.Warningf("No findings were collected for this question.")
	case report.TerminationReason == "budget_exceeded":
		md.Importantf("Research stopped after %d iterations; some categories may be incomplete.", report.Iterations)
	case report.FailedSources > 0:
		md.Note(fmt.Sprintf("%d source(s) could not be fetched or processed.", report.FailedSources))
	default:
		md.Tip("Research finished with every attempted source processed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeItems(md *markdown.Markdown, report *model.Report) {
	grouped := make(map[string][]model.ReportItem)
	for _, item := range report.Items {
		key := item.Category
		if !w.taxonomy.Has(key) {
			key = ""
		}
		grouped[key] = append(grouped[key], item)
	}

	for _, c := range w.taxonomy.Categories {
		items := grouped[c.Name]
		md.H2(c.Name)
		md.PlainText("")
		if c.Description != "" {
			md.PlainText("*" + c.Description + "*")
			md.PlainText("")
		}
		if len(items) == 0 {
			md.PlainText("No findings.")
			md.PlainText("")
			continue
		}
		w.writeItemList(md, items)
	}

	if other := grouped[""]; len(other) > 0 {
		md.H2("Other")
		md.PlainText("")
		w.writeItemList(md, other)
	}
}

func (w *MarkdownWriter) writeItemList(md *markdown.Markdown, items []model.ReportItem) {
	for _, item := range items {
		md.H3(item.Topic)
		md.PlainText("")
		md.PlainText(item.Details)
		md.PlainText("")

		source := item.SourceTitle
		if item.SourceURL != "" {
			source = markdown.Link(item.SourceTitle, item.SourceURL)
		}
		md.BulletList(
			markdown.Bold("Stance:")+" "+item.Stance,
			markdown.Bold("Source:")+" "+source,
			markdown.Bold("ID:")+" `"+item.ID+"`",
		)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, report *model.Report) {
	md.H2("Sources")
	md.PlainText("")
	if len(report.Sources) == 0 {
		md.PlainText("No sources were attempted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Sources))
	for i, s := range report.Sources {
		rows[i] = []string{s.Domain, s.Authority.String(), s.URL}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Authority", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, report *model.Report) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText(fmt.Sprintf("*Generated by factlens (tools: %s, structured: %s, chunk: %s). "+
		"Findings are extracted by language models from public web pages; verify them against their sources.*",
		report.LLM.ToolsModel, report.LLM.StructuredModel, report.LLM.ChunkModel))
}
