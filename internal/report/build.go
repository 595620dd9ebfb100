package report

import (
	"time"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/supervisor"
)

// Build assembles the report of a finished session
func Build(session *supervisor.Session, items []model.ReportItem, info model.LLMInfo, now time.Time) *model.Report {
	if items == nil {
		items = []model.ReportItem{}
	}
	sources := session.Sources
	if sources == nil {
		sources = []model.SourceCandidate{}
	}
	return &model.Report{
		Question:          session.Question,
		GeneratedAt:       now.UTC(),
		Taxonomy:          session.Taxonomy.Name,
		Items:             items,
		Aggregate:         session.Aggregate,
		Sources:           sources,
		Iterations:        session.Iterations,
		TerminationReason: string(session.TerminationReason),
		FindingsCount:     len(session.Findings),
		FailedSources:     session.FailedSources,
		LLM:               info,
	}
}
