package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/telemetry"
)

// Stage names the pipeline step a client serves
type Stage string

const (
	StageTools      Stage = "tools"      // Supervisor tool selection
	StageStructured Stage = "structured" // Category merge and report structuring
	StageChunk      Stage = "chunk"      // Relevance checks and extraction
)

// retrySleepFunc is overridden in tests
var retrySleepFunc = time.Sleep

// ClientOptions configures a Client for one stage
type ClientOptions struct {
	Stage       Stage
	Model       string // Provider-specific model name
	MaxTokens   int
	MaxAttempts int
	RetryDelay  time.Duration
	Temperature float32
}

// Client is a retrying, stage-bound wrapper around a Provider
type Client struct {
	provider Provider
	opts     ClientOptions
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// NewClient creates a client for one stage
func NewClient(provider Provider, opts ClientOptions, logger *zap.Logger, metrics *telemetry.Metrics) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: provider,
		opts:     opts,
		logger:   logger.With(zap.String("stage", string(opts.Stage))),
		metrics:  metrics,
	}
}

// Stage returns the stage this client serves
func (c *Client) Stage() Stage {
	return c.opts.Stage
}

// ModelID returns "provider:model" for reporting
func (c *Client) ModelID() string {
	return c.provider.Name() + ":" + c.opts.Model
}

// Complete runs req with retries. Model, token limit and temperature are
// filled from the client options when the request leaves them unset.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	return c.do(ctx, req, nil)
}

// do retries until the provider succeeds and accept, if set, accepts the result
func (c *Client) do(ctx context.Context, req CompletionRequest, accept func(*Completion) error) (*Completion, error) {
	if req.Model == "" {
		req.Model = c.opts.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.opts.MaxTokens
	}
	if req.Temperature == nil {
		t := c.opts.Temperature
		req.Temperature = &t
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts = attempt

		resp, err := c.provider.Complete(ctx, req)
		if err == nil && resp.Text == "" && len(resp.ToolCalls) == 0 && len(req.Tools) == 0 {
			err = ErrEmptyResponse
		}
		if err == nil && accept != nil {
			err = accept(resp)
		}
		if err == nil {
			c.metrics.RecordModelCall(ctx, string(c.opts.Stage), "success", resp.TokensUsed)
			return resp, nil
		}

		lastErr = err
		c.logger.Debug("model call failed",
			zap.String("model", req.Model),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < c.opts.MaxAttempts && !errors.Is(err, context.Canceled) {
			retrySleepFunc(backoff(c.opts.RetryDelay, attempt))
		}
	}

	c.metrics.RecordModelCall(ctx, string(c.opts.Stage), "error", 0)
	return nil, &ModelInvocationError{
		Stage:    c.opts.Stage,
		Model:    c.ModelID(),
		Attempts: attempts,
		Err:      lastErr,
	}
}

// backoff doubles base per attempt, capped at 30s
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << (attempt - 1)
	if d > 30*time.Second || d <= 0 {
		d = 30 * time.Second
	}
	return d
}
