// Package crawl runs one research pass: discover sources, fetch them, and
// turn their relevant chunks into findings.
package crawl

import (
	"context"
	"errors"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/factlens/internal/chunk"
	"github.com/ppiankov/factlens/internal/extract"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/merge"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/telemetry"
)

// Sourcer finds candidate sources for a question
type Sourcer interface {
	Discover(ctx context.Context, question string, usedDomains map[string]bool) ([]model.SourceCandidate, error)
}

// Result is the outcome of one crawl
type Result struct {
	// Findings in candidate order, then chunk order
	Findings []model.RawFinding
	// Aggregate is the flattened per-chunk category text
	Aggregate model.CategoryAggregate
	// Attempted lists every candidate tried, failed ones included
	Attempted []model.SourceCandidate
	Failures  []*FetchError
}

// Options bounds a crawl
type Options struct {
	MaxContentLength int
	MaxChunks        int
	URLConcurrency   int
	ChunkConcurrency int
}

// Orchestrator runs DISCOVER, then FETCH, CHUNK, FILTER and EXTRACT for
// every candidate concurrently
type Orchestrator struct {
	sourcer   Sourcer
	fetcher   PageFetcher
	chunker   *chunk.Chunker
	filter    *extract.RelevanceFilter
	extractor *extract.Extractor
	taxonomy  model.Taxonomy
	opts      Options
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

// NewOrchestrator wires the crawl stages together
func NewOrchestrator(
	sourcer Sourcer,
	fetcher PageFetcher,
	chunker *chunk.Chunker,
	filter *extract.RelevanceFilter,
	extractor *extract.Extractor,
	taxonomy model.Taxonomy,
	opts Options,
	tel *telemetry.Telemetry,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		sourcer:   sourcer,
		fetcher:   fetcher,
		chunker:   chunker,
		filter:    filter,
		extractor: extractor,
		taxonomy:  taxonomy,
		opts:      opts,
		telemetry: tel,
		logger:    logging.OrNop(logger),
	}
}

// urlOutcome is the result slot of one URL branch
type urlOutcome struct {
	findings []model.RawFinding
	chunks   []model.CategoryAggregate
	failure  *FetchError
}

// Run crawls sources for question. Domains in usedDomains are skipped.
// A failing URL contributes no findings and is recorded in Failures; the
// other URLs are unaffected. Run never returns an error.
func (o *Orchestrator) Run(ctx context.Context, question string, usedDomains map[string]bool) *Result {
	ctx, span := o.telemetry.StartSpan(ctx, "crawl.run", attribute.String("question", question))
	defer span.End()

	result := &Result{Aggregate: model.NewAggregate(o.taxonomy)}

	candidates, err := o.sourcer.Discover(ctx, question, usedDomains)
	if err != nil {
		o.logger.Warn("source discovery failed", zap.String("question", question), zap.Error(err))
		o.telemetry.Metrics().RecordURLFailure(ctx, StageDiscover)
		result.Failures = append(result.Failures, &FetchError{Stage: StageDiscover, Err: err})
		span.SetAttributes(attribute.Int("candidates", 0))
		return result
	}
	result.Attempted = candidates
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	outcomes := make([]urlOutcome, len(candidates))
	g := new(errgroup.Group)
	if o.opts.URLConcurrency > 0 {
		g.SetLimit(o.opts.URLConcurrency)
	}
	for i, candidate := range candidates {
		g.Go(func() error {
			outcomes[i] = o.processURL(ctx, question, candidate)
			return nil
		})
	}
	_ = g.Wait()

	var chunkAggs []model.CategoryAggregate
	for _, out := range outcomes {
		result.Findings = append(result.Findings, out.findings...)
		chunkAggs = append(chunkAggs, out.chunks...)
		if out.failure != nil {
			result.Failures = append(result.Failures, out.failure)
		}
	}
	result.Aggregate = merge.Flatten(o.taxonomy, chunkAggs)

	span.SetAttributes(
		attribute.Int("findings", len(result.Findings)),
		attribute.Int("failures", len(result.Failures)),
	)
	return result
}

// processURL runs one candidate through fetch, chunk, filter and extract
func (o *Orchestrator) processURL(ctx context.Context, question string, candidate model.SourceCandidate) (out urlOutcome) {
	ctx, span := o.telemetry.StartSpan(ctx, "crawl.url",
		attribute.String("url", candidate.URL),
		attribute.String("authority", candidate.Authority.String()),
	)
	defer func() {
		if out.failure != nil {
			telemetry.EndSpan(span, out.failure)
			return
		}
		telemetry.EndSpan(span, nil)
	}()

	page, err := o.fetcher.Fetch(ctx, candidate.URL)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{URL: candidate.URL, Stage: StageFetch, Err: err}
		}
		o.logger.Warn("skipping source",
			zap.String("url", candidate.URL),
			zap.String("stage", fe.Stage),
			zap.Error(fe.Err),
		)
		o.telemetry.Metrics().RecordURLFailure(ctx, fe.Stage)
		out.failure = fe
		return out
	}

	text := chunk.Truncate(page.Text, o.opts.MaxContentLength)
	chunks := chunk.Take(o.chunker.Chunks(candidate.URL, text), o.opts.MaxChunks)
	span.SetAttributes(attribute.Int("chunks", len(chunks)))

	perChunk := make([][]model.RawFinding, len(chunks))
	g := new(errgroup.Group)
	if o.opts.ChunkConcurrency > 0 {
		g.SetLimit(o.opts.ChunkConcurrency)
	}
	for j, ch := range chunks {
		g.Go(func() error {
			if !o.filter.Check(ctx, ch, question).IsRelevant {
				return nil
			}
			perChunk[j] = o.extractor.Extract(ctx, ch, question)
			return nil
		})
	}
	_ = g.Wait()

	for _, findings := range perChunk {
		if len(findings) == 0 {
			continue
		}
		out.findings = append(out.findings, findings...)
		out.chunks = append(out.chunks, extract.Aggregate(o.taxonomy, findings))
	}
	out.findings = slices.Clip(out.findings)

	o.logger.Debug("source processed",
		zap.String("url", candidate.URL),
		zap.Int("chunks", len(chunks)),
		zap.Int("findings", len(out.findings)),
	)
	return out
}

// Domains returns the domains of the attempted candidates
func (r *Result) Domains() []string {
	domains := make([]string, 0, len(r.Attempted))
	for _, c := range r.Attempted {
		domains = append(domains, c.Domain)
	}
	return domains
}
