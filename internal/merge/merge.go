// Package merge combines per-chunk category text into the session aggregate.
package merge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/model"
)

const mergeSystemPrompt = `You maintain one section of a research dossier.
Merge the new findings into the existing section.

Rules:
1. Keep every existing line. Never drop or reword prior entries.
2. Add new facts as bullet lines. Skip new lines that only repeat an existing fact.
3. Keep dates, numbers and source URLs in square brackets exactly as given.
4. If new findings contradict existing ones, keep both and say the evidence is mixed.
5. Return only the merged section text, one bullet per line.`

// Flatten concatenates aggregates category by category in input order.
// Every taxonomy category is present in the result.
func Flatten(t model.Taxonomy, aggs []model.CategoryAggregate) model.CategoryAggregate {
	out := model.NewAggregate(t)
	for _, name := range t.Names() {
		var parts []string
		for _, agg := range aggs {
			if text := strings.TrimSpace(agg[name]); text != "" {
				parts = append(parts, text)
			}
		}
		out[name] = strings.Join(parts, "\n")
	}
	return out
}

// Merger reconciles incoming category text with the accumulated aggregate
type Merger struct {
	client      *llm.Client
	taxonomy    model.Taxonomy
	concurrency int
	logger      *zap.Logger
}

// NewMerger creates a merger; concurrency <= 0 runs every category at once
func NewMerger(client *llm.Client, taxonomy model.Taxonomy, concurrency int, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{client: client, taxonomy: taxonomy, concurrency: concurrency, logger: logger}
}

// Reconcile merges incoming into prior with one model call per category that
// has new text. The calls run concurrently and are joined before the result is
// assembled. A failed category keeps its prior text, and prior lines the model
// dropped are appended back, so no prior line is ever lost.
func (m *Merger) Reconcile(ctx context.Context, prior, incoming model.CategoryAggregate) model.CategoryAggregate {
	if incoming.IsEmpty() {
		return prior
	}

	names := m.taxonomy.Names()
	merged := make([]string, len(names))

	g := new(errgroup.Group)
	if m.concurrency > 0 {
		g.SetLimit(m.concurrency)
	}
	for i, name := range names {
		old := strings.TrimSpace(prior[name])
		fresh := strings.TrimSpace(incoming[name])
		if fresh == "" {
			merged[i] = old
			continue
		}
		g.Go(func() error {
			text, err := m.mergeCategory(ctx, name, old, fresh)
			if err != nil {
				m.logger.Warn("category merge failed, keeping prior text",
					zap.String("category", name),
					zap.Error(err),
				)
				merged[i] = old
				return nil
			}
			merged[i] = PreservePrior(old, text)
			return nil
		})
	}
	_ = g.Wait()

	out := prior.Clone()
	for i, name := range names {
		out[name] = merged[i]
	}
	return out
}

func (m *Merger) mergeCategory(ctx context.Context, name, prior, incoming string) (string, error) {
	description := name
	for _, c := range m.taxonomy.Categories {
		if c.Name == name {
			description = c.Description
		}
	}

	prompt := fmt.Sprintf("<Section>\n%s: %s\n</Section>\n\n<Existing>\n%s\n</Existing>\n\n<New Findings>\n%s\n</New Findings>",
		name, description, prior, incoming)

	resp, err := m.client.Complete(ctx, llm.CompletionRequest{
		System:   mergeSystemPrompt,
		Messages: llm.UserPrompt(prompt),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// PreservePrior appends every line of prior that is missing from merged
func PreservePrior(prior, merged string) string {
	present := make(map[string]bool)
	lines := model.SplitLines(merged)
	for _, l := range lines {
		present[l] = true
	}
	for _, l := range model.SplitLines(prior) {
		if !present[l] {
			lines = append(lines, l)
			present[l] = true
		}
	}
	return strings.Join(lines, "\n")
}
