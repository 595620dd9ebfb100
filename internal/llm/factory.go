package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/telemetry"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "google_genai", "gemini", "google":
		return NewGeminiProvider(ctx, config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, google_genai)", config.Provider)
	}
}

// ParseModelID splits "provider:model" into its parts.
// The split is on the first colon so Ollama tags like "ollama:llama3.1:8b" survive.
// A bare model name is matched to a provider by its well-known prefix.
func ParseModelID(id string) (provider, modelName string, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("empty model identifier")
	}

	if p, m, ok := strings.Cut(id, ":"); ok {
		p = strings.ToLower(strings.TrimSpace(p))
		m = strings.TrimSpace(m)
		if p == "" || m == "" {
			return "", "", fmt.Errorf("invalid model identifier %q (want provider:model)", id)
		}
		return p, m, nil
	}

	lower := strings.ToLower(id)
	switch {
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return "openai", id, nil
	case strings.HasPrefix(lower, "claude"):
		return "anthropic", id, nil
	case strings.HasPrefix(lower, "gemini"):
		return "google_genai", id, nil
	default:
		return "", "", fmt.Errorf("cannot infer provider for model %q (use provider:model)", id)
	}
}

// ConfigFromModel builds provider configuration for one model identifier
func ConfigFromModel(id string, llmCfg model.LLMConfig, httpCfg model.HTTPConfig) (Config, error) {
	provider, modelName, err := ParseModelID(id)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = modelName
	cfg.MaxTokens = llmCfg.MaxTokens
	cfg.Timeout = int(llmCfg.Timeout.Seconds())
	cfg.HTTPProxy = httpCfg.HTTPProxy
	cfg.HTTPSProxy = httpCfg.HTTPSProxy
	cfg.NoProxy = httpCfg.NoProxy

	switch provider {
	case "openai":
		cfg.APIKey = llmCfg.OpenAIKey
		cfg.BaseURL = llmCfg.OpenAIBaseURL
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.APIKey = llmCfg.AnthropicKey
		cfg.BaseURL = llmCfg.AnthropicBaseURL
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "google_genai", "gemini", "google":
		cfg.APIKey = llmCfg.GeminiKey
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY environment variable not set")
		}
	case "ollama":
		cfg.BaseURL = llmCfg.OllamaBaseURL
	}

	return cfg, nil
}

// Stages holds one client per pipeline stage
type Stages struct {
	Tools      *Client
	Structured *Client
	Chunk      *Client
}

// NewStages builds the three stage clients from configuration.
// Stages that resolve to the same model identifier share one provider.
func NewStages(ctx context.Context, llmCfg model.LLMConfig, httpCfg model.HTTPConfig, logger *zap.Logger, metrics *telemetry.Metrics) (*Stages, error) {
	providers := make(map[string]Provider)
	build := func(stage Stage, override string, maxTokens, maxAttempts int) (*Client, error) {
		id := llmCfg.StageModel(override)
		cfg, err := ConfigFromModel(id, llmCfg, httpCfg)
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", stage, err)
		}
		p, ok := providers[id]
		if !ok {
			p, err = NewProvider(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("%s model: %w", stage, err)
			}
			providers[id] = p
		}
		return NewClient(p, ClientOptions{
			Stage:       stage,
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			MaxAttempts: maxAttempts,
			RetryDelay:  llmCfg.RetryDelay,
			Temperature: float32(llmCfg.Temperature),
		}, logger, metrics), nil
	}

	tools, err := build(StageTools, llmCfg.ToolsModel, llmCfg.MaxTokens, llmCfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	structured, err := build(StageStructured, llmCfg.StructuredModel, llmCfg.MaxTokens, llmCfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	chunk, err := build(StageChunk, llmCfg.ChunkModel, llmCfg.ChunkMaxTokens, llmCfg.ChunkMaxRetries)
	if err != nil {
		return nil, err
	}

	return &Stages{Tools: tools, Structured: structured, Chunk: chunk}, nil
}
