package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/supervisor"
)

func testReport(t *testing.T) *model.Report {
	t.Helper()

	session, err := supervisor.NewSession("Did A sue B?", model.DramaTaxonomy())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Iterations = 3
	session.TerminationReason = supervisor.ReasonFinished
	session.FailedSources = 1
	session.AppendFindings([]model.RawFinding{
		model.NewRawFinding("A sued B", nil, "conflict", "https://court.gov/1"),
		model.NewRawFinding("B responded", nil, "reaction", "https://news.com/2"),
	})
	session.MarkUsed([]model.SourceCandidate{
		{URL: "https://court.gov/1", Domain: "court.gov", Authority: model.TierPrimary},
		{URL: "https://news.com/2", Domain: "news.com", Authority: model.TierSecondary},
	})

	items := []model.ReportItem{
		{ID: "aaaa1111", Topic: "Lawsuit filed", Details: "A sued B.", Stance: "Confirmed", SourceTitle: "court.gov", SourceURL: "https://court.gov/1", Category: "conflict"},
		{ID: "bbbb2222", Topic: "Statement", Details: "B responded.", Stance: model.FallbackStance, SourceTitle: "news.com", SourceURL: "https://news.com/2", Category: "reaction"},
		{ID: "cccc3333", Topic: "Loose end", Details: "Unclassified.", Stance: model.FallbackStance, SourceTitle: "Source"},
	}
	info := model.LLMInfo{ToolsModel: "fake:tools", StructuredModel: "fake:structured", ChunkModel: "fake:chunk"}
	return Build(session, items, info, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestBuild(t *testing.T) {
	r := testReport(t)

	if r.Question != "Did A sue B?" || r.Taxonomy != model.TaxonomyDrama {
		t.Errorf("unexpected header: %q %q", r.Question, r.Taxonomy)
	}
	if r.FindingsCount != 2 || r.FailedSources != 1 || r.Iterations != 3 {
		t.Errorf("unexpected counts: findings=%d failed=%d iterations=%d", r.FindingsCount, r.FailedSources, r.Iterations)
	}
	if r.TerminationReason != "finished" {
		t.Errorf("TerminationReason = %q", r.TerminationReason)
	}
	if len(r.Sources) != 2 {
		t.Errorf("Sources = %d, want 2", len(r.Sources))
	}

	empty, err := supervisor.NewSession("q", model.DramaTaxonomy())
	if err != nil {
		t.Fatal(err)
	}
	r = Build(empty, nil, model.LLMInfo{}, time.Now())
	if r.Items == nil || r.Sources == nil {
		t.Error("empty report should carry empty slices, not nil")
	}
}

func TestJSONWriter(t *testing.T) {
	r := testReport(t)

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Error("expected trailing newline")
	}
	if !strings.Contains(buf.String(), `"sourceUrl": "https://court.gov/1"`) {
		t.Errorf("expected camelCase item fields, got:\n%s", buf.String())
	}

	var decoded model.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if diff := cmp.Diff(r.Items, decoded.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdownWriter(t *testing.T) {
	r := testReport(t)

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf, model.DramaTaxonomy(), true).Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Research Report",
		"Did A sue B?",
		"## context",
		"No findings.",
		"## conflict",
		"### Lawsuit filed",
		"[court.gov](https://court.gov/1)",
		"## Other",
		"### Loose end",
		"## Sources",
		"primary",
		"fake:structured",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if strings.Index(out, "## conflict") > strings.Index(out, "## reaction") {
		t.Error("categories should follow taxonomy order")
	}

	buf.Reset()
	if _, err := NewMarkdownWriter(&buf, model.DramaTaxonomy(), false).Write(r); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Generated by factlens") {
		t.Error("footer should be omitted")
	}
}

func TestSummaryWriter(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewSummaryWriter(&buf, model.DramaTaxonomy()).Write(testReport(t)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Iterations:  3 (finished)",
		"Findings:    2 raw, 3 in report",
		"Sources:     2 attempted, 1 failed",
		"✓ conflict 1",
		"✗ outcome  0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	err := WriteFile(path, testReport(t), func(w io.Writer) Writer { return NewJSONWriter(w) })
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(bytes.TrimSpace(data)) {
		t.Error("file does not hold valid JSON")
	}
}
