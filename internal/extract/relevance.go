// Package extract turns text chunks into categorized findings with model calls.
package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/telemetry"
)

// DefaultMinChunkChars is the shortest chunk, in characters, worth a model call
const DefaultMinChunkChars = 50

var relevanceSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"contains_relevant_information": {
			Type:        jsonschema.Boolean,
			Description: "True when the chunk holds factual information about the topic",
		},
	},
	Required: []string{"contains_relevant_information"},
}

type relevanceAnswer struct {
	ContainsRelevantInformation bool `json:"contains_relevant_information"`
}

// RelevanceFilter decides whether a chunk is worth extracting from
type RelevanceFilter struct {
	client   *llm.Client
	minChars int
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// NewRelevanceFilter creates a filter; minChars <= 0 uses DefaultMinChunkChars
func NewRelevanceFilter(client *llm.Client, minChars int, logger *zap.Logger, metrics *telemetry.Metrics) *RelevanceFilter {
	if minChars <= 0 {
		minChars = DefaultMinChunkChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelevanceFilter{client: client, minChars: minChars, logger: logger, metrics: metrics}
}

// Check classifies one chunk. Short chunks are rejected without a model call
// and a failed call rejects the chunk.
func (f *RelevanceFilter) Check(ctx context.Context, chunk model.ContentChunk, topic string) model.RelevanceVerdict {
	verdict := model.RelevanceVerdict{ChunkIndex: chunk.Index}
	if utf8.RuneCountInString(strings.TrimSpace(chunk.Text)) < f.minChars {
		f.metrics.RecordVerdict(ctx, false)
		return verdict
	}

	answer, err := llm.Structured[relevanceAnswer](ctx, f.client, llm.CompletionRequest{
		System:     relevanceSystemPrompt,
		Messages:   llm.UserPrompt(relevancePrompt(topic, chunk)),
		Schema:     &relevanceSchema,
		SchemaName: "relevance_check",
	})
	if err != nil {
		f.logger.Warn("relevance check failed, skipping chunk",
			zap.String("url", chunk.SourceURL),
			zap.Int("chunk", chunk.Index),
			zap.Error(err),
		)
		f.metrics.RecordVerdict(ctx, false)
		return verdict
	}

	verdict.IsRelevant = answer.ContainsRelevantInformation
	f.metrics.RecordVerdict(ctx, verdict.IsRelevant)
	return verdict
}
