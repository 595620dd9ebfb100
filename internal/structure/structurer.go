// Package structure turns the raw findings of a session into report items.
package structure

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/util"
)

const structureSystemPrompt = `You are a meticulous research archivist and chief editor.
Convert a raw list of findings into a polished, structured record.

<Guidelines>
1. Topic: a short, punchy headline for each item.
2. Details: summarize the finding in complete sentences. Fix incomplete sentences and remove a trailing "\".
3. Stance: one short label for how the item bears on the research question.
4. Deduplication: merge findings that describe the same fact into one item.
5. Sources: keep the source URL of the finding an item is based on and set "finding" to that finding's number.
6. Category: keep the category of the underlying finding.
</Guidelines>

Return only the structured JSON.`

type structuredItem struct {
	ID          string `json:"id"`
	Topic       string `json:"topic"`
	Details     string `json:"details"`
	Stance      string `json:"stance"`
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
	Category    string `json:"category"`
	Finding     int    `json:"finding"`
}

type structuredAnswer struct {
	Items []structuredItem `json:"items"`
}

// Structurer produces the final report items of a session
type Structurer struct {
	client    *llm.Client
	taxonomy  model.Taxonomy
	threshold float64
	schema    jsonschema.Definition
	logger    *zap.Logger
}

// NewStructurer creates a structurer. A non-positive threshold uses
// DefaultSimilarityThreshold.
func NewStructurer(client *llm.Client, taxonomy model.Taxonomy, threshold float64, logger *zap.Logger) *Structurer {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Structurer{
		client:    client,
		taxonomy:  taxonomy,
		threshold: threshold,
		schema:    itemsSchema(taxonomy),
		logger:    logging.OrNop(logger),
	}
}

func itemsSchema(t model.Taxonomy) jsonschema.Definition {
	str := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.String, Description: desc}
	}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"items": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"id":           str("Leave empty unless merging into an existing id"),
						"topic":        str("Short headline"),
						"details":      str("Complete-sentence summary"),
						"stance":       str("How the item bears on the question"),
						"source_title": str("Name of the publication or site"),
						"source_url":   str("URL of the underlying finding"),
						"category":     {Type: jsonschema.String, Enum: t.Names()},
						"finding": {
							Type:        jsonschema.Integer,
							Description: "Number of the finding this item is based on",
						},
					},
					Required: []string{"topic", "details", "stance", "source_url", "category"},
				},
			},
		},
		Required: []string{"items"},
	}
}

// Structure deduplicates findings and asks the structured model to shape
// them into report items. When the call fails, or returns nothing for a
// non-empty input, minimally shaped items are built from the deduplicated
// findings instead.
func (s *Structurer) Structure(ctx context.Context, question string, findings []model.RawFinding) []model.ReportItem {
	if len(findings) == 0 {
		return []model.ReportItem{}
	}

	deduped := Dedup(findings, s.threshold)
	s.logger.Debug("deduplicated findings", zap.Int("before", len(findings)), zap.Int("after", len(deduped)))

	answer, err := llm.Structured[structuredAnswer](ctx, s.client, llm.CompletionRequest{
		System:     structureSystemPrompt,
		Messages:   llm.UserPrompt(structurePrompt(question, deduped)),
		Schema:     &s.schema,
		SchemaName: "report_items",
	})
	if err != nil {
		s.logger.Warn("structuring failed, using unstructured findings", zap.Error(err))
		return Fallback(deduped)
	}

	items := s.postProcess(answer.Items, deduped)
	if len(items) == 0 {
		s.logger.Warn("structuring returned no items, using unstructured findings")
		return Fallback(deduped)
	}
	return items
}

func structurePrompt(question string, findings []model.RawFinding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Research Question>\n%s\n</Research Question>\n\n<Findings>\n", question)
	for i, f := range findings {
		fmt.Fprintf(&b, "Finding %d [%s]: %s", i+1, f.Category, f.Description)
		if f.DateOrContext != nil {
			fmt.Fprintf(&b, " (%s)", *f.DateOrContext)
		}
		if f.SourceURL != "" {
			fmt.Fprintf(&b, " (Source: %s)\n", f.SourceURL)
		} else {
			b.WriteString(" (Source: Unknown)\n")
		}
	}
	b.WriteString("</Findings>")
	return b.String()
}

// postProcess sanitizes model output, fills ids and stances, and points every
// item back at a source URL that was actually crawled
func (s *Structurer) postProcess(raw []structuredItem, findings []model.RawFinding) []model.ReportItem {
	known := make(map[string]bool, len(findings))
	for _, f := range findings {
		if f.SourceURL != "" {
			known[f.SourceURL] = true
		}
	}

	seenIDs := make(map[string]bool, len(raw))
	items := make([]model.ReportItem, 0, len(raw))
	for _, r := range raw {
		item := model.ReportItem{
			ID:          strings.TrimSpace(r.ID),
			Topic:       model.SanitizeText(r.Topic),
			Details:     model.SanitizeText(r.Details),
			Stance:      model.SanitizeText(r.Stance),
			SourceTitle: model.SanitizeText(r.SourceTitle),
			SourceURL:   strings.TrimSpace(r.SourceURL),
			Category:    s.category(r.Category),
		}
		if item.Topic == "" && item.Details == "" {
			continue
		}

		source, matched := matchFinding(r, item.Details, item.Category, findings)
		if !known[item.SourceURL] && matched {
			item.SourceURL = source.SourceURL
		}
		if item.Category == "" && matched {
			item.Category = source.Category
		}

		if item.ID == "" || seenIDs[item.ID] {
			item.ID = newID()
		}
		seenIDs[item.ID] = true
		if item.Stance == "" {
			item.Stance = model.FallbackStance
		}
		if item.SourceTitle == "" {
			item.SourceTitle = sourceTitle(item.SourceURL)
		}
		items = append(items, item)
	}
	return items
}

// matchFinding resolves the finding an item came from: by its finding number
// when that is valid, otherwise by the most similar description. With no
// overlap at all it settles on the first finding of the item's category, then
// the first finding, so an item never loses its source.
func matchFinding(r structuredItem, details, category string, findings []model.RawFinding) (model.RawFinding, bool) {
	if r.Finding >= 1 && r.Finding <= len(findings) {
		return findings[r.Finding-1], true
	}

	best, bestScore := -1, 0.0
	for i, f := range findings {
		if score := Similarity(details, f.Description); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return findings[best], true
	}

	if len(findings) == 0 {
		return model.RawFinding{}, false
	}
	for _, f := range findings {
		if category != "" && f.Category == category {
			return f, true
		}
	}
	return findings[0], true
}

func (s *Structurer) category(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range s.taxonomy.Categories {
		if strings.EqualFold(c.Name, name) {
			return c.Name
		}
	}
	return ""
}

// Fallback shapes findings into report items without a model
func Fallback(findings []model.RawFinding) []model.ReportItem {
	items := make([]model.ReportItem, 0, len(findings))
	for _, f := range findings {
		details := f.Description
		if f.DateOrContext != nil {
			details += " (" + *f.DateOrContext + ")"
		}
		items = append(items, model.ReportItem{
			ID:          newID(),
			Topic:       fmt.Sprintf("Finding (%s)", f.Category),
			Details:     details,
			Stance:      model.FallbackStance,
			SourceTitle: sourceTitle(f.SourceURL),
			SourceURL:   f.SourceURL,
			Category:    f.Category,
		})
	}
	return items
}

func sourceTitle(rawURL string) string {
	if domain, err := util.NormalizeDomain(rawURL); err == nil && domain != "" {
		return domain
	}
	return "Source"
}

func newID() string {
	return uuid.New().String()[:8]
}
