package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factlens/internal/crawl"
	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/llm/llmtest"
	"github.com/ppiankov/factlens/internal/model"
)

func toolCall(name, args string) *llm.Completion {
	return &llm.Completion{ToolCalls: []llm.ToolCall{{ID: "1", Name: name, Arguments: args}}}
}

// script answers planning calls in order and finishes once it runs out
type script struct {
	mu      sync.Mutex
	steps   []func() (*llm.Completion, error)
	prompts []string
}

func (s *script) provider() *llmtest.FakeProvider {
	return llmtest.NewFakeProvider(func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.prompts = append(s.prompts, req.System)
		if len(s.steps) == 0 {
			return toolCall(ToolFinish, "{}"), nil
		}
		next := s.steps[0]
		s.steps = s.steps[1:]
		return next()
	})
}

func answer(c *llm.Completion) func() (*llm.Completion, error) {
	return func() (*llm.Completion, error) { return c, nil }
}

type stubCrawler struct {
	questions []string
	used      []map[string]bool
	results   []*crawl.Result
}

func (c *stubCrawler) Run(_ context.Context, question string, used map[string]bool) *crawl.Result {
	snapshot := make(map[string]bool, len(used))
	for k, v := range used {
		snapshot[k] = v
	}
	c.questions = append(c.questions, question)
	c.used = append(c.used, snapshot)
	if len(c.results) == 0 {
		return &crawl.Result{Aggregate: model.NewAggregate(model.DramaTaxonomy())}
	}
	r := c.results[0]
	c.results = c.results[1:]
	return r
}

type stubReconciler struct {
	calls int
}

func (r *stubReconciler) Reconcile(_ context.Context, prior, incoming model.CategoryAggregate) model.CategoryAggregate {
	r.calls++
	out := prior.Clone()
	for k, v := range incoming {
		if v != "" {
			out[k] = strings.TrimSpace(out[k] + "\n" + v)
		}
	}
	return out
}

func newTestSupervisor(s *script, crawler Crawler, merger Reconciler, opts Options) *Supervisor {
	return New(s.provider().Client(llm.StageTools), crawler, merger, model.DramaTaxonomy(), opts, nil, nil)
}

func TestRun_EmptyQuestion(t *testing.T) {
	sup := newTestSupervisor(&script{}, &stubCrawler{}, &stubReconciler{}, Options{})
	_, err := sup.Run(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestRun_FinishImmediately(t *testing.T) {
	crawler := &stubCrawler{}
	sup := newTestSupervisor(&script{}, crawler, &stubReconciler{}, Options{})

	session, err := sup.Run(context.Background(), "Who is X?")
	require.NoError(t, err)
	assert.True(t, session.Terminated)
	assert.Equal(t, ReasonFinished, session.TerminationReason)
	assert.Equal(t, 1, session.Iterations)
	assert.Empty(t, crawler.questions)
	assert.NotEmpty(t, session.ID)
}

func TestRun_ResearchThenFinish(t *testing.T) {
	date := "2021"
	first := &crawl.Result{
		Findings: []model.RawFinding{
			model.NewRawFinding("A met B", &date, "context", "https://a.com/1"),
			model.NewRawFinding("A sued B", nil, "conflict", "https://b.com/1"),
		},
		Aggregate: model.CategoryAggregate{"context": "- A met B", "conflict": "- A sued B"},
		Attempted: []model.SourceCandidate{
			{URL: "https://a.com/1", Domain: "a.com"},
			{URL: "https://b.com/1", Domain: "b.com"},
			{URL: "https://c.com/1", Domain: "c.com"},
		},
		Failures: []*crawl.FetchError{{URL: "https://c.com/1", Stage: crawl.StageFetch, Err: errors.New("404")}},
	}

	s := &script{steps: []func() (*llm.Completion, error){
		answer(toolCall(ToolResearch, `{"research_question":"A and B lawsuit"}`)),
		answer(toolCall(ToolResearch, `{"research_question":""}`)),
	}}
	crawler := &stubCrawler{results: []*crawl.Result{first}}
	merger := &stubReconciler{}
	sup := newTestSupervisor(s, crawler, merger, Options{MaxIterations: 5})

	session, err := sup.Run(context.Background(), "A vs B")
	require.NoError(t, err)

	assert.Equal(t, ReasonFinished, session.TerminationReason)
	assert.Equal(t, 3, session.Iterations)
	assert.Equal(t, []string{"A and B lawsuit", "A vs B"}, crawler.questions, "empty research question falls back to the session question")
	assert.Empty(t, crawler.used[0])
	assert.Equal(t, map[string]bool{"a.com": true, "b.com": true, "c.com": true}, crawler.used[1])

	assert.Len(t, session.Findings, 2)
	assert.Len(t, session.Sources, 3)
	assert.Equal(t, 1, session.FailedSources)
	assert.Equal(t, 1, merger.calls, "empty crawl results skip reconciliation")
	assert.Equal(t, "- A met B", session.Aggregate["context"])

	require.GreaterOrEqual(t, len(session.History), 2)
	assert.Equal(t, "Found 2 findings related to A and B lawsuit.", session.History[0].Content)
	assert.Equal(t, "Found 0 findings related to A vs B.", session.History[1].Content)

	require.Len(t, s.prompts, 3)
	assert.Contains(t, s.prompts[1], "Currently have 2 findings collected.")
	assert.Contains(t, s.prompts[1], "Found 2 findings related to A and B lawsuit.")
	assert.Contains(t, s.prompts[1], "Categories with no findings yet: reaction, outcome")
}

func TestRun_IdleTermination(t *testing.T) {
	s := &script{steps: []func() (*llm.Completion, error){
		answer(&llm.Completion{}),
		answer(toolCall("web_browse", "{}")),
		answer(toolCall(ToolResearch, `{"research_question":"never reached"}`)),
	}}
	crawler := &stubCrawler{}
	sup := newTestSupervisor(s, crawler, &stubReconciler{}, Options{MaxIterations: 10, MaxIdleTurns: 2})

	session, err := sup.Run(context.Background(), "topic")
	require.NoError(t, err)
	assert.Equal(t, ReasonIdle, session.TerminationReason)
	assert.Equal(t, 2, session.Iterations)
	assert.Empty(t, crawler.questions)
}

func TestRun_IdleCounterResets(t *testing.T) {
	s := &script{steps: []func() (*llm.Completion, error){
		answer(&llm.Completion{}),
		answer(toolCall(ToolReflect, `{"reflection":"need sources"}`)),
		func() (*llm.Completion, error) { return nil, errors.New("model down") },
	}}
	sup := newTestSupervisor(s, &stubCrawler{}, &stubReconciler{}, Options{MaxIterations: 10, MaxIdleTurns: 2})

	session, err := sup.Run(context.Background(), "topic")
	require.NoError(t, err)
	assert.Equal(t, ReasonFinished, session.TerminationReason)
	assert.Equal(t, 4, session.Iterations)
	assert.Equal(t, "need sources", session.History[1].Content)
}

func TestRun_BudgetExceeded(t *testing.T) {
	var steps []func() (*llm.Completion, error)
	for i := 0; i < 10; i++ {
		steps = append(steps, answer(toolCall(ToolReflect, `{"reflection":"thinking"}`)))
	}
	sup := newTestSupervisor(&script{steps: steps}, &stubCrawler{}, &stubReconciler{}, Options{MaxIterations: 3})

	session, err := sup.Run(context.Background(), "topic")
	require.NoError(t, err)
	assert.Equal(t, ReasonBudgetExceeded, session.TerminationReason)
	assert.Equal(t, 3, session.Iterations)
}

func TestRun_MalformedArgumentsUseSessionQuestion(t *testing.T) {
	s := &script{steps: []func() (*llm.Completion, error){
		answer(toolCall(ToolResearch, `{"research_question": "unterminated`)),
	}}
	crawler := &stubCrawler{}
	sup := newTestSupervisor(s, crawler, &stubReconciler{}, Options{})

	_, err := sup.Run(context.Background(), "the topic")
	require.NoError(t, err)
	assert.Equal(t, []string{"the topic"}, crawler.questions)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sup := newTestSupervisor(&script{}, &stubCrawler{}, &stubReconciler{}, Options{})
	session, err := sup.Run(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, session.TerminationReason)
	assert.Equal(t, 0, session.Iterations)
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name    string
		resp    *llm.Completion
		want    Action
		wantErr error
	}{
		{name: "nil", resp: nil, want: Idle{Reason: "no tool call"}},
		{name: "text only", resp: &llm.Completion{Text: "I will research"}, want: Idle{Reason: "no tool call"}},
		{name: "research", resp: toolCall(ToolResearch, `{"research_question":" q "}`), want: Research{Question: "q"}},
		{name: "camel case alias", resp: toolCall("ResearchEventsTool", `{"research_question":"q"}`), want: Research{Question: "q"}},
		{name: "reflect", resp: toolCall(ToolReflect, `{"reflection":"r"}`), want: Reflect{Reflection: "r"}},
		{name: "think alias", resp: toolCall("think_tool", `{"reflection":"r"}`), want: Reflect{Reflection: "r"}},
		{name: "finish", resp: toolCall(ToolFinish, ""), want: Finish{}},
		{name: "unknown", resp: toolCall("search", "{}"), want: Idle{Reason: `unknown tool "search"`}},
		{name: "malformed", resp: toolCall(ToolResearch, "{oops"), want: Research{}, wantErr: ErrMalformedToolArguments},
		{name: "array args", resp: toolCall(ToolReflect, "[1,2]"), want: Reflect{}, wantErr: ErrMalformedToolArguments},
		{name: "wrong type", resp: toolCall(ToolResearch, `{"research_question": 42}`), want: Research{}},
		{
			name: "first call wins",
			resp: &llm.Completion{ToolCalls: []llm.ToolCall{{Name: ToolFinish}, {Name: ToolResearch, Arguments: `{}`}}},
			want: Finish{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAction(tt.resp)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionSummary(t *testing.T) {
	session, err := NewSession("q", model.FactCheckTaxonomy())
	require.NoError(t, err)
	assert.Equal(t, "Currently have 0 findings collected.\nCategories with no findings yet: origin_of_belief, scientific_evidence, expert_consensus, final_verdict", session.Summary())

	for i := 0; i < 7; i++ {
		session.AppendFindings([]model.RawFinding{model.NewRawFinding(strings.Repeat("x", i+1), nil, "scientific_evidence", "")})
	}
	session.ReplaceAggregate(model.CategoryAggregate{
		"origin_of_belief": "- a", "scientific_evidence": "- b", "expert_consensus": "- c", "final_verdict": "- d",
	})

	summary := session.Summary()
	assert.Contains(t, summary, "Currently have 7 findings collected.")
	assert.Equal(t, 5, strings.Count(summary, "\n- [scientific_evidence]"))
	assert.NotContains(t, summary, "] xx\n", "only the five most recent findings are listed")
	assert.Contains(t, summary, "Every category has findings.")
}

func TestSessionMarkUsed(t *testing.T) {
	session, err := NewSession("q", model.DramaTaxonomy())
	require.NoError(t, err)

	session.MarkUsed([]model.SourceCandidate{{Domain: "a.com"}, {Domain: ""}, {Domain: "a.com"}, {Domain: "b.com"}})
	assert.Equal(t, map[string]bool{"a.com": true, "b.com": true}, session.UsedDomains)
	assert.Len(t, session.Sources, 2)
}
