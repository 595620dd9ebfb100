package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete configuration of one research session
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Authority AuthorityConfig `yaml:"authority" mapstructure:"authority"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// LLMConfig selects models per pipeline stage.
// Model identifiers use the "provider:model" form, e.g. "openai:gpt-4o-mini".
type LLMConfig struct {
	Model           string `yaml:"model" mapstructure:"model"`                       // Default for every stage
	ToolsModel      string `yaml:"tools_model" mapstructure:"tools_model"`           // Supervisor tool selection
	StructuredModel string `yaml:"structured_model" mapstructure:"structured_model"` // Merge and structuring
	ChunkModel      string `yaml:"chunk_model" mapstructure:"chunk_model"`           // Relevance and extraction

	MaxTokens       int `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries      int `yaml:"max_retries" mapstructure:"max_retries"`
	ChunkMaxTokens  int `yaml:"chunk_max_tokens" mapstructure:"chunk_max_tokens"`
	ChunkMaxRetries int `yaml:"chunk_max_retries" mapstructure:"chunk_max_retries"`

	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryDelay  time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`

	OpenAIBaseURL    string `yaml:"openai_base_url,omitempty" mapstructure:"openai_base_url"`
	AnthropicBaseURL string `yaml:"anthropic_base_url,omitempty" mapstructure:"anthropic_base_url"`
	OllamaBaseURL    string `yaml:"ollama_base_url,omitempty" mapstructure:"ollama_base_url"`

	// Credentials come from the environment only
	OpenAIKey    string `yaml:"-" mapstructure:"-"`
	AnthropicKey string `yaml:"-" mapstructure:"-"`
	GeminiKey    string `yaml:"-" mapstructure:"-"`
}

// StageModel returns the model identifier for a stage override, falling back to Model
func (c LLMConfig) StageModel(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return c.Model
}

// ResearchConfig bounds the research loop and the crawl pipeline
type ResearchConfig struct {
	Taxonomy            string     `yaml:"taxonomy" mapstructure:"taxonomy"`
	CustomCategories    []Category `yaml:"custom_categories,omitempty" mapstructure:"custom_categories"`
	ChunkSize           int        `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap        int        `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	MaxContentLength    int        `yaml:"max_content_length" mapstructure:"max_content_length"`
	MaxChunks           int        `yaml:"max_chunks" mapstructure:"max_chunks"`
	MinChunkChars       int        `yaml:"min_chunk_chars" mapstructure:"min_chunk_chars"`
	MaxToolIterations   int        `yaml:"max_tool_iterations" mapstructure:"max_tool_iterations"`
	MaxIdleTurns        int        `yaml:"max_idle_turns" mapstructure:"max_idle_turns"`
	URLConcurrency      int        `yaml:"url_concurrency" mapstructure:"url_concurrency"`
	ChunkConcurrency    int        `yaml:"chunk_concurrency" mapstructure:"chunk_concurrency"`
	MergeConcurrency    int        `yaml:"merge_concurrency" mapstructure:"merge_concurrency"`
	SimilarityThreshold float64    `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ResolveTaxonomy returns the custom taxonomy when categories are configured, else a built-in one
func (c ResearchConfig) ResolveTaxonomy() (Taxonomy, error) {
	if len(c.CustomCategories) > 0 {
		name := c.Taxonomy
		if name == "" {
			name = "custom"
		}
		t := Taxonomy{Name: name, Categories: c.CustomCategories}
		return t, t.Validate()
	}
	return BuiltinTaxonomy(c.Taxonomy)
}

// SearchConfig configures source discovery
type SearchConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // tavily, duckduckgo
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
	TopK       int    `yaml:"top_k" mapstructure:"top_k"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	TavilyKey string `yaml:"-" mapstructure:"-"`
}

// HTTPConfig configures page fetching
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the in-memory session cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// AuthorityConfig drives source ranking during discovery
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"` // host -> primary|secondary|tertiary
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
}

// PathPattern assigns a tier to URLs whose path matches a regular expression
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// TelemetryConfig configures tracing and metrics export
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty" mapstructure:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure" mapstructure:"otlp_insecure"`
	PrometheusPort int    `yaml:"prometheus_port,omitempty" mapstructure:"prometheus_port"`
}

// OutputConfig configures logging and report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	JSONLogs      bool `yaml:"json_logs" mapstructure:"json_logs"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:           "google_genai:gemini-2.5-flash",
			MaxTokens:       4096,
			MaxRetries:      3,
			ChunkMaxTokens:  1024,
			ChunkMaxRetries: 2,
			Temperature:     0,
			Timeout:         60 * time.Second,
			RetryDelay:      time.Second,
		},
		Research: ResearchConfig{
			Taxonomy:            TaxonomyDrama,
			ChunkSize:           800,
			ChunkOverlap:        20,
			MaxContentLength:    100000,
			MaxChunks:           5,
			MinChunkChars:       50,
			MaxToolIterations:   5,
			MaxIdleTurns:        2,
			URLConcurrency:      4,
			ChunkConcurrency:    4,
			MergeConcurrency:    4,
			SimilarityThreshold: 0.85,
		},
		Search: SearchConfig{
			Provider:   "tavily",
			MaxResults: 3,
			TopK:       3,
		},
		HTTP: HTTPConfig{
			Timeout:           20 * time.Second,
			UserAgent:         "factlens/0.1 (+https://github.com/ppiankov/factlens)",
			MaxBodyBytes:      2_000_000,
			MaxRetries:        3,
			RespectRobots:     true,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     30 * time.Minute,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"reuters.com",
				"apnews.com",
				"doi.org",
				"nih.gov",
				"who.int",
				"courtlistener.com",
				"sec.gov",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"bbc.co.uk",
				"bbc.com",
				"nytimes.com",
				"theguardian.com",
				"washingtonpost.com",
				"nature.com",
				"snopes.com",
			},
			PathPatterns: []PathPattern{
				{Pattern: `/press-releases?/`, Tier: "primary"},
				{Pattern: `/(blog|forum|community)/`, Tier: "tertiary"},
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "factlens",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate checks bounds that would otherwise stall or break the pipeline
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Research.ChunkSize <= 0 {
		return fmt.Errorf("research.chunk_size must be positive, got %d", c.Research.ChunkSize)
	}
	if c.Research.ChunkOverlap < 0 {
		return fmt.Errorf("research.chunk_overlap must not be negative, got %d", c.Research.ChunkOverlap)
	}
	if c.Research.MaxToolIterations <= 0 {
		return fmt.Errorf("research.max_tool_iterations must be positive, got %d", c.Research.MaxToolIterations)
	}
	if c.Research.MaxIdleTurns <= 0 {
		return fmt.Errorf("research.max_idle_turns must be positive, got %d", c.Research.MaxIdleTurns)
	}
	if c.Research.SimilarityThreshold <= 0 || c.Research.SimilarityThreshold > 1 {
		return fmt.Errorf("research.similarity_threshold must be in (0, 1], got %v", c.Research.SimilarityThreshold)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if _, err := c.Research.ResolveTaxonomy(); err != nil {
		return err
	}
	return nil
}
