package llm

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one chat completion. It does not retry.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Role of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history
type Message struct {
	Role    Role
	Content string
}

// ToolSpec declares a tool the model may call
type ToolSpec struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ToolCall is a tool invocation chosen by the model.
// Arguments is the raw JSON text as produced by the model and may be malformed.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// CompletionRequest contains the input for one model call
type CompletionRequest struct {
	// System is the system instruction
	System string

	// Messages is the conversation, oldest first
	Messages []Message

	// Schema constrains the response to a JSON document when set
	Schema     *jsonschema.Definition
	SchemaName string

	// Tools the model must choose from when set; exactly one call is requested
	Tools []ToolSpec

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature overrides the client default when set; an explicit 0 is kept
	Temperature *float32
}

// temperature returns the sampling temperature, 0 when none was set
func (r CompletionRequest) temperature() float32 {
	if r.Temperature == nil {
		return 0
	}
	return *r.Temperature
}

// Completion contains the model's output
type Completion struct {
	// Text is the assistant text, possibly empty when tools were called
	Text string

	// ToolCalls are the tool invocations, in the order the model produced them
	ToolCalls []ToolCall

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "google_genai"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   60,
		MaxTokens: 4096,
	}
}

// UserPrompt wraps a single prompt as a conversation
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}
