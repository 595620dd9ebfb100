// Package supervisor drives the research loop: plan a tool call, act on it,
// and stop on finish, idleness or the iteration budget.
package supervisor

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/crawl"
	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/telemetry"
)

const systemPromptTemplate = `You are an elite investigative researcher.
Your goal is to build a comprehensive, well-sourced record for: %s

<Critical Instruction>
You are a robotic agent. Do not generate conversational text.
On every turn you must call exactly one tool.
If you are just starting, call reflect or research_events.
</Critical Instruction>

<Core Execution Cycle>
1. Check for completion: if every category below has findings, call finish.
2. Otherwise call research_events with a focused question that targets the missing categories.
3. Use reflect to plan when the last research returned little.
</Core Execution Cycle>

<Constraints>
- Never call research_events twice with the same question.
- Never call reflect twice in a row.
- Always call exactly one tool per turn.
</Constraints>

<Categories>
%s
</Categories>

<Progress>
%s
</Progress>

<Last Message>
%s
</Last Message>`

// Crawler runs one research pass
type Crawler interface {
	Run(ctx context.Context, question string, usedDomains map[string]bool) *crawl.Result
}

// Reconciler merges a crawl's aggregate into the session aggregate
type Reconciler interface {
	Reconcile(ctx context.Context, prior, incoming model.CategoryAggregate) model.CategoryAggregate
}

// Options bounds the loop
type Options struct {
	MaxIterations int
	MaxIdleTurns  int
}

// Supervisor owns the planning loop of a session
type Supervisor struct {
	client    *llm.Client
	crawler   Crawler
	merger    Reconciler
	taxonomy  model.Taxonomy
	opts      Options
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

// New creates a supervisor. Non-positive limits fall back to 5 iterations
// and 2 idle turns.
func New(client *llm.Client, crawler Crawler, merger Reconciler, taxonomy model.Taxonomy, opts Options, tel *telemetry.Telemetry, logger *zap.Logger) *Supervisor {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}
	if opts.MaxIdleTurns <= 0 {
		opts.MaxIdleTurns = 2
	}
	return &Supervisor{
		client:    client,
		crawler:   crawler,
		merger:    merger,
		taxonomy:  taxonomy,
		opts:      opts,
		telemetry: tel,
		logger:    logging.OrNop(logger),
	}
}

// Run researches question until the model finishes, goes idle too often or
// the iteration budget is spent. Only an empty question is an error; every
// other path returns the session with its termination reason set.
func (s *Supervisor) Run(ctx context.Context, question string) (*Session, error) {
	session, err := NewSession(question, s.taxonomy)
	if err != nil {
		return nil, err
	}

	ctx, span := s.telemetry.StartSpan(ctx, "research.session",
		attribute.String("session.id", session.ID),
		attribute.String("question", session.Question),
	)
	defer span.End()

	logger := s.logger.With(zap.String("session", session.ID))
	logger.Info("research started", zap.String("question", session.Question))

	for !session.Terminated {
		if ctx.Err() != nil {
			session.terminate(ReasonCancelled)
			break
		}
		if session.Iterations >= s.opts.MaxIterations {
			logger.Info("stopping research", zap.Error(ErrBudgetExceeded), zap.Int("iterations", session.Iterations))
			session.terminate(ReasonBudgetExceeded)
			break
		}
		s.turn(ctx, session, logger)
	}

	span.SetAttributes(
		attribute.Int("iterations", session.Iterations),
		attribute.Int("findings", len(session.Findings)),
		attribute.String("termination", string(session.TerminationReason)),
	)
	logger.Info("research finished",
		zap.String("reason", string(session.TerminationReason)),
		zap.Int("iterations", session.Iterations),
		zap.Int("findings", len(session.Findings)),
	)
	return session, nil
}

// turn runs one PLAN and ACT step
func (s *Supervisor) turn(ctx context.Context, session *Session, logger *zap.Logger) {
	session.Iterations++
	ctx, span := s.telemetry.StartSpan(ctx, "research.turn", attribute.Int("iteration", session.Iterations))
	defer span.End()

	action := s.plan(ctx, session, logger)
	span.SetAttributes(attribute.String("action", action.action()))
	s.telemetry.Metrics().RecordAction(ctx, action.action())

	switch a := action.(type) {
	case Finish:
		session.IdleTurns = 0
		session.Record("assistant", ToolFinish, "Research finished.")
		session.terminate(ReasonFinished)

	case Reflect:
		session.IdleTurns = 0
		reflection := a.Reflection
		if reflection == "" {
			reflection = "Reflection recorded."
		}
		session.Record("tool", ToolReflect, reflection)

	case Research:
		session.IdleTurns = 0
		s.research(ctx, session, a, logger)

	case Idle:
		session.IdleTurns++
		logger.Debug("idle turn", zap.String("reason", a.Reason), zap.Int("idle_turns", session.IdleTurns))
		session.Record("tool", "", fmt.Sprintf("No action taken: %s. Call exactly one tool.", a.Reason))
		if session.IdleTurns >= s.opts.MaxIdleTurns {
			session.terminate(ReasonIdle)
		}

	default:
		panic(fmt.Sprintf("supervisor: unhandled action %T", action))
	}
}

// plan asks the tools model for the next action. Model failures are idle turns.
func (s *Supervisor) plan(ctx context.Context, session *Session, logger *zap.Logger) Action {
	prompt := fmt.Sprintf(systemPromptTemplate,
		session.Question,
		categoryList(s.taxonomy),
		session.Summary(),
		session.LastMessage(),
	)

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:   prompt,
		Messages: llm.UserPrompt("Start the investigation process."),
		Tools:    Tools(),
	})
	if err != nil {
		logger.Warn("planning call failed", zap.Error(err))
		return Idle{Reason: "model error"}
	}

	action, err := decodeAction(resp)
	if err != nil {
		logger.Warn("tool arguments ignored", zap.Error(err))
	}
	if len(resp.ToolCalls) > 1 {
		logger.Debug("multiple tool calls, using the first", zap.Int("calls", len(resp.ToolCalls)))
	}
	return action
}

// research runs one crawl and folds its results into the session
func (s *Supervisor) research(ctx context.Context, session *Session, a Research, logger *zap.Logger) {
	question := a.Question
	if question == "" {
		question = session.Question
	}
	logger.Info("investigating", zap.String("research_question", question))

	result := s.crawler.Run(ctx, question, session.UsedDomains)

	session.MarkUsed(result.Attempted)
	session.FailedSources += len(result.Failures)
	session.AppendFindings(result.Findings)
	if len(result.Findings) > 0 {
		session.ReplaceAggregate(s.merger.Reconcile(ctx, session.Aggregate, result.Aggregate))
	}

	session.Record("tool", ToolResearch, fmt.Sprintf("Found %d findings related to %s.", len(result.Findings), question))
}

func categoryList(t model.Taxonomy) string {
	lines := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		lines[i] = fmt.Sprintf("- %s: %s", c.Name, c.Description)
	}
	return strings.Join(lines, "\n")
}
