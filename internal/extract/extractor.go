package extract

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/telemetry"
)

type extractedFinding struct {
	Description   string  `json:"description"`
	DateOrContext *string `json:"date_or_context"`
	Category      string  `json:"category"`
}

type extractionAnswer struct {
	Findings []extractedFinding `json:"findings"`
}

// Extractor pulls categorized findings out of a relevant chunk
type Extractor struct {
	client   *llm.Client
	taxonomy model.Taxonomy
	schema   jsonschema.Definition
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// NewExtractor creates an extractor whose findings are restricted to taxonomy
func NewExtractor(client *llm.Client, taxonomy model.Taxonomy, logger *zap.Logger, metrics *telemetry.Metrics) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		client:   client,
		taxonomy: taxonomy,
		schema:   findingsSchema(taxonomy),
		logger:   logger,
		metrics:  metrics,
	}
}

// findingsSchema describes {"findings":[{description, date_or_context, category}]}
func findingsSchema(t model.Taxonomy) jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"findings": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"description": {
							Type:        jsonschema.String,
							Description: "One atomic finding written as a complete sentence",
						},
						"date_or_context": {
							Type:        jsonschema.String,
							Description: "Date or time context, exact or approximate",
						},
						"category": {
							Type: jsonschema.String,
							Enum: t.Names(),
						},
					},
					Required: []string{"description", "category"},
				},
			},
		},
		Required: []string{"findings"},
	}
}

// Extract returns the findings of one chunk, each stamped with the chunk's
// source URL. A failed call yields no findings.
func (e *Extractor) Extract(ctx context.Context, chunk model.ContentChunk, topic string) []model.RawFinding {
	answer, err := llm.Structured[extractionAnswer](ctx, e.client, llm.CompletionRequest{
		System:     extractionSystemPrompt,
		Messages:   llm.UserPrompt(extractionPrompt(topic, e.taxonomy, chunk)),
		Schema:     &e.schema,
		SchemaName: "finding_list",
	})
	if err != nil {
		e.logger.Warn("extraction failed, chunk yields no findings",
			zap.String("url", chunk.SourceURL),
			zap.Int("chunk", chunk.Index),
			zap.Error(err),
		)
		return nil
	}

	findings := make([]model.RawFinding, 0, len(answer.Findings))
	for _, f := range answer.Findings {
		category, ok := e.category(f.Category)
		if !ok {
			e.logger.Debug("dropping finding with unknown category",
				zap.String("url", chunk.SourceURL),
				zap.String("category", f.Category),
			)
			continue
		}
		finding := model.NewRawFinding(f.Description, f.DateOrContext, category, chunk.SourceURL)
		if finding.Description == "" {
			continue
		}
		findings = append(findings, finding)
	}

	e.metrics.RecordFindings(ctx, len(findings))
	return findings
}

// category matches name against the taxonomy, ignoring case and surrounding space
func (e *Extractor) category(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range e.taxonomy.Categories {
		if strings.EqualFold(c.Name, name) {
			return c.Name, true
		}
	}
	return "", false
}

// Aggregate renders findings as per-category bullet text in finding order
func Aggregate(t model.Taxonomy, findings []model.RawFinding) model.CategoryAggregate {
	agg := model.NewAggregate(t)
	for _, f := range findings {
		if _, ok := agg[f.Category]; !ok {
			continue
		}
		if agg[f.Category] == "" {
			agg[f.Category] = f.Line()
		} else {
			agg[f.Category] += "\n" + f.Line()
		}
	}
	return agg
}
