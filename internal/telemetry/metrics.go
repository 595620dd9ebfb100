package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	modelCalls        metric.Int64Counter
	tokensUsed        metric.Int64Counter
	findingsExtracted metric.Int64Counter
	chunkVerdicts     metric.Int64Counter
	urlFailures       metric.Int64Counter
	toolChoices       metric.Int64Counter
}

// NewMetrics creates every counter on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.modelCalls, err = meter.Int64Counter(
		"factlens_model_calls_total",
		metric.WithDescription("Model invocations by stage and outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.tokensUsed, err = meter.Int64Counter(
		"factlens_model_tokens_total",
		metric.WithDescription("Tokens reported by model providers"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.findingsExtracted, err = meter.Int64Counter(
		"factlens_findings_extracted_total",
		metric.WithDescription("Raw findings extracted from chunks"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.chunkVerdicts, err = meter.Int64Counter(
		"factlens_chunk_verdicts_total",
		metric.WithDescription("Relevance verdicts by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.urlFailures, err = meter.Int64Counter(
		"factlens_url_failures_total",
		metric.WithDescription("Source URLs that failed to fetch or process"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.toolChoices, err = meter.Int64Counter(
		"factlens_supervisor_actions_total",
		metric.WithDescription("Supervisor actions by kind"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordModelCall counts one model invocation (after retries) and its token use
func (m *Metrics) RecordModelCall(ctx context.Context, stage, outcome string, tokens int) {
	if m == nil {
		return
	}
	m.modelCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
	if tokens > 0 {
		m.tokensUsed.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordFindings counts findings extracted from one chunk
func (m *Metrics) RecordFindings(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.findingsExtracted.Add(ctx, int64(n))
}

// RecordVerdict counts one relevance decision
func (m *Metrics) RecordVerdict(ctx context.Context, relevant bool) {
	if m == nil {
		return
	}
	m.chunkVerdicts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("relevant", relevant)))
}

// RecordURLFailure counts one failed source URL
func (m *Metrics) RecordURLFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.urlFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordAction counts one supervisor action
func (m *Metrics) RecordAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.toolChoices.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}
