package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/chunk"
	"github.com/ppiankov/factlens/internal/crawl"
	"github.com/ppiankov/factlens/internal/discover"
	"github.com/ppiankov/factlens/internal/extract"
	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/merge"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/report"
	"github.com/ppiankov/factlens/internal/search"
	"github.com/ppiankov/factlens/internal/structure"
	"github.com/ppiankov/factlens/internal/supervisor"
	"github.com/ppiankov/factlens/internal/telemetry"
)

var (
	outJSON  string
	outMD    string
	timeout  time.Duration
	noCache  bool
	noFooter bool
)

// researchCmd represents the research command
var researchCmd = &cobra.Command{
	Use:   "research <question>",
	Short: "Research a question and write a categorized, sourced report",
	Long: `Research runs an autonomous investigation loop:
- A planning model chooses the next search question
- Search results are ranked by source authority and fetched
- Page text is chunked, filtered for relevance and mined for findings
- Findings are merged per category, deduplicated and structured

Example:
  factlens research "What happened between A and B?"
  factlens research "Does cracking knuckles cause arthritis?" --taxonomy factcheck --md report.md
  factlens research "..." --model openai:gpt-4o-mini --search duckduckgo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)

	flags := researchCmd.Flags()
	flags.StringVar(&outJSON, "json", "report.json", "output JSON path (empty to skip)")
	flags.StringVar(&outMD, "md", "", "output Markdown path (optional)")
	flags.DurationVar(&timeout, "timeout", 15*time.Minute, "overall research timeout (0 for none)")
	flags.BoolVar(&noCache, "no-cache", false, "disable the page and search cache")
	flags.BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Defaults for these come from the configuration
	flags.Int("max-iterations", 0, "maximum supervisor iterations")
	flags.String("taxonomy", "", "category taxonomy (drama, factcheck)")
	flags.String("model", "", "model for every stage, as provider:model")
	flags.String("search", "", "search provider (tavily, duckduckgo)")
	flags.Bool("json-logs", false, "log as JSON")

	for key, flag := range map[string]string{
		"research.max_tool_iterations": "max-iterations",
		"research.taxonomy":            "taxonomy",
		"llm.model":                    "model",
		"search.provider":              "search",
		"output.json_logs":             "json-logs",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runResearch(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	logger, err := logging.New(cfg.Output.Verbose, cfg.Output.JSONLogs)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	app, err := newApp(ctx, cfg, tel, logger)
	if err != nil {
		return err
	}

	rep, err := app.research(ctx, question)
	if err != nil {
		return err
	}
	return app.render(rep, outJSON, outMD, cmd.ErrOrStderr())
}

// app is one wired research pipeline
type app struct {
	cfg        *model.Config
	taxonomy   model.Taxonomy
	stages     *llm.Stages
	supervisor *supervisor.Supervisor
	structurer *structure.Structurer
	logger     *zap.Logger
}

func newApp(ctx context.Context, cfg *model.Config, tel *telemetry.Telemetry, logger *zap.Logger) (*app, error) {
	taxonomy, err := cfg.Research.ResolveTaxonomy()
	if err != nil {
		return nil, err
	}

	stages, err := llm.NewStages(ctx, cfg.LLM, cfg.HTTP, logger, tel.Metrics())
	if err != nil {
		return nil, err
	}

	var sessionCache cache.Cache
	fetcherOpts := []crawl.FetcherOption{crawl.WithLogger(logger)}
	if cfg.Cache.Enabled {
		sessionCache = cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
		fetcherOpts = append(fetcherOpts, crawl.WithCache(sessionCache, cfg.Cache.TTL))
	}

	searcher, err := search.New(cfg.Search, cfg.HTTP, sessionCache, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}

	return buildApp(cfg, taxonomy, stages, searcher, crawl.NewFetcher(cfg.HTTP, fetcherOpts...), tel, logger), nil
}

// buildApp wires the pipeline from its external edges
func buildApp(
	cfg *model.Config,
	taxonomy model.Taxonomy,
	stages *llm.Stages,
	searcher search.Searcher,
	fetcher crawl.PageFetcher,
	tel *telemetry.Telemetry,
	logger *zap.Logger,
) *app {
	logger = logging.OrNop(logger)

	discoverer := discover.NewDiscoverer(
		searcher,
		discover.NewAuthorityClassifier(&cfg.Authority),
		cfg.Search.MaxResults,
		cfg.Search.TopK,
		logger,
	)

	orchestrator := crawl.NewOrchestrator(
		discoverer,
		fetcher,
		chunk.NewChunker(cfg.Research.ChunkSize, cfg.Research.ChunkOverlap),
		extract.NewRelevanceFilter(stages.Chunk, cfg.Research.MinChunkChars, logger, tel.Metrics()),
		extract.NewExtractor(stages.Chunk, taxonomy, logger, tel.Metrics()),
		taxonomy,
		crawl.Options{
			MaxContentLength: cfg.Research.MaxContentLength,
			MaxChunks:        cfg.Research.MaxChunks,
			URLConcurrency:   cfg.Research.URLConcurrency,
			ChunkConcurrency: cfg.Research.ChunkConcurrency,
		},
		tel,
		logger,
	)

	merger := merge.NewMerger(stages.Structured, taxonomy, cfg.Research.MergeConcurrency, logger)

	return &app{
		cfg:      cfg,
		taxonomy: taxonomy,
		stages:   stages,
		supervisor: supervisor.New(stages.Tools, orchestrator, merger, taxonomy, supervisor.Options{
			MaxIterations: cfg.Research.MaxToolIterations,
			MaxIdleTurns:  cfg.Research.MaxIdleTurns,
		}, tel, logger),
		structurer: structure.NewStructurer(stages.Structured, taxonomy, cfg.Research.SimilarityThreshold, logger),
		logger:     logger,
	}
}

// research runs the loop and structures its findings into a report
func (a *app) research(ctx context.Context, question string) (*model.Report, error) {
	session, err := a.supervisor.Run(ctx, question)
	if err != nil {
		return nil, err
	}

	// An interrupted session still gets a report; structuring falls back to
	// unstructured items when the context is already done.
	items := a.structurer.Structure(ctx, session.Question, session.Findings)

	return report.Build(session, items, model.LLMInfo{
		ToolsModel:      a.stages.Tools.ModelID(),
		StructuredModel: a.stages.Structured.ModelID(),
		ChunkModel:      a.stages.Chunk.ModelID(),
	}, time.Now()), nil
}

// render writes the requested report files and prints the summary to summaryOut
func (a *app) render(rep *model.Report, jsonPath, mdPath string, summaryOut io.Writer) error {
	if jsonPath != "" {
		err := report.WriteFile(jsonPath, rep, func(w io.Writer) report.Writer {
			return report.NewJSONWriter(w, report.WithPrettyPrint())
		})
		if err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		a.logger.Info("wrote JSON report", zap.String("path", jsonPath))
	}

	if mdPath != "" {
		err := report.WriteFile(mdPath, rep, func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w, a.taxonomy, a.cfg.Output.IncludeFooter)
		})
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		a.logger.Info("wrote Markdown report", zap.String("path", mdPath))
	}

	_, err := report.NewSummaryWriter(summaryOut, a.taxonomy).Write(rep)
	return err
}
