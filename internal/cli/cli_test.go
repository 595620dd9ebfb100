package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factlens/internal/crawl"
	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/llm/llmtest"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/search"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, setDefaults(v, model.DefaultConfig()))
	return v
}

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg, err := decodeConfig(newTestViper(t), env(nil))
	require.NoError(t, err)

	if diff := cmp.Diff(model.DefaultConfig(), cfg); diff != "" {
		t.Errorf("decoded defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeConfig_EnvironmentAndOverrides(t *testing.T) {
	t.Setenv("FACTLENS_SEARCH_PROVIDER", "duckduckgo")
	t.Setenv("FACTLENS_HTTP_TIMEOUT", "45s")

	v := newTestViper(t)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.Set("research.max_tool_iterations", 9)

	cfg, err := decodeConfig(v, env(map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"GOOGLE_API_KEY":  "g-test",
		"TAVILY_API_KEY":  "tvly-test",
		"OLLAMA_BASE_URL": "http://gpu:11434",
	}))
	require.NoError(t, err)

	assert.Equal(t, "duckduckgo", cfg.Search.Provider)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 9, cfg.Research.MaxToolIterations)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAIKey)
	assert.Equal(t, "g-test", cfg.LLM.GeminiKey, "GOOGLE_API_KEY is the Gemini fallback")
	assert.Equal(t, "tvly-test", cfg.Search.TavilyKey)
	assert.Equal(t, "http://gpu:11434", cfg.LLM.OllamaBaseURL)
}

func TestDecodeConfig_Invalid(t *testing.T) {
	v := newTestViper(t)
	v.Set("research.chunk_size", 0)

	_, err := decodeConfig(v, env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".factlens", "config.yaml")

	require.NoError(t, writeDefaultConfig(path))
	require.Error(t, writeDefaultConfig(path), "existing files are never overwritten")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# factlens configuration file"))
	assert.NotContains(t, string(data), "sk-")

	var decoded model.Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	if diff := cmp.Diff(model.DefaultConfig(), &decoded); diff != "" {
		t.Errorf("written config mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Equal(t, "factlens v"+version+"\n", out.String())
}

type stubSearcher struct {
	results []search.Result
}

func (s *stubSearcher) Name() string { return "stub" }

func (s *stubSearcher) Search(context.Context, string, int) ([]search.Result, error) {
	return s.results, nil
}

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (*crawl.Page, error) {
	text, ok := f.pages[rawURL]
	if !ok {
		return nil, &crawl.FetchError{URL: rawURL, Stage: crawl.StageFetch, Err: &crawl.StatusError{Code: 404, Status: "Not Found"}}
	}
	return &crawl.Page{URL: rawURL, FinalURL: rawURL, Text: text, ContentType: "text/html"}, nil
}

// pipelineModel answers every stage of one research session
func pipelineModel() *llmtest.FakeProvider {
	var (
		mu       sync.Mutex
		planning int
	)
	return llmtest.NewFakeProvider(func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
		if len(req.Tools) > 0 {
			mu.Lock()
			planning++
			n := planning
			mu.Unlock()
			if n == 1 {
				return &llm.Completion{ToolCalls: []llm.ToolCall{{Name: "research_events", Arguments: `{"research_question":"A v B lawsuit"}`}}}, nil
			}
			return &llm.Completion{ToolCalls: []llm.ToolCall{{Name: "finish", Arguments: "{}"}}}, nil
		}

		prompt := req.Messages[0].Content
		switch req.SchemaName {
		case "relevance_check":
			return &llm.Completion{Text: `{"contains_relevant_information": true}`}, nil
		case "finding_list":
			desc, category := "A filed a lawsuit against B", "conflict"
			if strings.Contains(prompt, "vowed to fight") {
				desc, category = "B called the lawsuit baseless and vowed to fight", "reaction"
			}
			return &llm.Completion{Text: fmt.Sprintf(`{"findings":[{"description":%q,"date_or_context":"2021","category":%q}]}`, desc, category)}, nil
		case "report_items":
			return &llm.Completion{Text: `{"items":[
				{"topic":"Lawsuit","details":"A filed a lawsuit against B.","stance":"Confirmed","source_url":"","category":"conflict","finding":1},
				{"topic":"Denial","details":"B called the lawsuit baseless.","stance":"Disputed","source_url":"","category":"reaction","finding":2}
			]}`}, nil
		default:
			// category merge
			return &llm.Completion{Text: "- merged text"}, nil
		}
	})
}

func TestResearchPipeline(t *testing.T) {
	cfg := model.DefaultConfig()
	taxonomy := model.DramaTaxonomy()
	provider := pipelineModel()

	searcher := &stubSearcher{results: []search.Result{
		{URL: "https://www.reuters.com/a", Title: "Court filing"},
		{URL: "https://blog.example.com/b", Title: "Statement"},
		{URL: "https://gone.example.net/c", Title: "Missing"},
	}}
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.reuters.com/a":  strings.Repeat("Court records show that A filed a lawsuit against B. ", 5),
		"https://blog.example.com/b": strings.Repeat("In a statement B called the lawsuit baseless and vowed to fight. ", 5),
	}}

	a := buildApp(cfg, taxonomy, provider.Stages(), searcher, fetcher, nil, nil)
	require.NotNil(t, a.logger, "a nil logger is replaced with a no-op one")
	rep, err := a.research(context.Background(), "What happened between A and B?")
	require.NoError(t, err)

	assert.Equal(t, "finished", rep.TerminationReason)
	assert.Equal(t, 2, rep.Iterations)
	assert.Equal(t, 2, rep.FindingsCount)
	assert.Equal(t, 1, rep.FailedSources)
	assert.Len(t, rep.Sources, 3)
	assert.Equal(t, "fake:fake-model", rep.LLM.StructuredModel)

	require.Len(t, rep.Items, 2)
	assert.Equal(t, "https://www.reuters.com/a", rep.Items[0].SourceURL)
	assert.Equal(t, "reuters.com", rep.Items[0].SourceTitle)
	assert.Equal(t, "https://blog.example.com/b", rep.Items[1].SourceURL)
	assert.Equal(t, "- merged text", rep.Aggregate["conflict"])

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")
	var summary bytes.Buffer
	require.NoError(t, a.render(rep, jsonPath, mdPath, &summary))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.Question, decoded.Question)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "### Lawsuit")
	assert.Contains(t, summary.String(), "Findings:    2 raw, 2 in report")
}
