// Package aiconnectors wraps the interchangeable LLM extraction backends
// behind a single interface the extraction chain can iterate over. One
// connector per backend; the chain holds no backend-specific logic.
package aiconnectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider identifies an extraction backend type.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderOllama Provider = "ollama"
)

// ModelConfig bounds a single extraction call.
type ModelConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Model       string  `json:"model,omitempty"`
}

// ConnectorOptions configures a connector instance.
type ConnectorOptions struct {
	Provider    Provider    `json:"provider"`
	APIKey      string      `json:"api_key"`
	BaseURL     string      `json:"base_url,omitempty"`
	ModelConfig ModelConfig `json:"model_config,omitempty"`
}

// RunResult is the outcome of one backend invocation.
type RunResult struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	RateLimited      bool
	Err              error
}

// Extractor is the interface the chain runner iterates over.
type Extractor interface {
	Name() string
	Available() bool
	Run(ctx context.Context, prompt string, cfg ModelConfig) RunResult
}

// Connector is a live connection to one LLM backend.
type Connector struct {
	provider Provider
	llm      llms.Model
	options  ConnectorOptions
}

// NewConnector creates a connector for the given provider.
func NewConnector(ctx context.Context, options ConnectorOptions) (*Connector, error) {
	var model llms.Model
	var err error

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.ModelConfig.Model).
		Msg("Creating connector")

	switch options.Provider {
	case ProviderOpenAI:
		model, err = createOpenAIModel(options)
	case ProviderGemini:
		model, err = createGeminiModel(ctx, options)
	case ProviderClaude:
		model, err = createAnthropicModel(options)
	case ProviderOllama:
		model, err = createOllamaModel(options)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}

	return &Connector{
		provider: options.Provider,
		llm:      model,
		options:  options,
	}, nil
}

// Name returns the provider identifier this connector serves.
func (c *Connector) Name() string {
	return string(c.provider)
}

// Available reports whether the connector can be invoked at all. A connector
// with no client or no credentials is skipped by the chain, not errored.
func (c *Connector) Available() bool {
	if c == nil || c.llm == nil {
		return false
	}
	if c.provider == ProviderOllama {
		return true // local model, no key needed
	}
	return c.options.APIKey != ""
}

// Run invokes the backend once with the bounded model configuration. Errors
// are reported in the result, never panicked; rate-limit responses are
// flagged so the chain can move on without counting them as hard failures.
func (c *Connector) Run(ctx context.Context, prompt string, cfg ModelConfig) RunResult {
	callOpts := []llms.CallOption{}
	if cfg.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(cfg.Temperature))
	}
	model := cfg.Model
	if model == "" {
		model = c.options.ModelConfig.Model
	}
	if model != "" {
		callOpts = append(callOpts, llms.WithModel(model))
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, callOpts...)
	if err != nil {
		log.Debug().Err(err).
			Str("provider", string(c.provider)).
			Dur("latency", time.Since(start)).
			Msg("Backend call failed")
		return RunResult{Model: model, Err: err, RateLimited: IsRateLimited(err)}
	}
	if len(resp.Choices) == 0 {
		return RunResult{Model: model, Err: fmt.Errorf("backend %s returned no choices", c.provider)}
	}

	choice := resp.Choices[0]
	result := RunResult{
		Content: choice.Content,
		Model:   model,
	}
	if info := choice.GenerationInfo; info != nil {
		result.PromptTokens = intFromInfo(info, "PromptTokens", "input_tokens")
		result.CompletionTokens = intFromInfo(info, "CompletionTokens", "output_tokens")
	}
	return result
}

// IsRateLimited reports whether an error is an explicit rate-limit signal
// from the backend.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "too many requests", "quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func intFromInfo(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return 0
}

func createOpenAIModel(options ConnectorOptions) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(options.APIKey),
	}
	if options.ModelConfig.Model != "" {
		opts = append(opts, openai.WithModel(options.ModelConfig.Model))
	}
	if options.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(options.BaseURL))
	}
	return openai.New(opts...)
}

func createGeminiModel(ctx context.Context, options ConnectorOptions) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(options.APIKey),
	}
	if options.ModelConfig.Model != "" {
		opts = append(opts, googleai.WithDefaultModel(options.ModelConfig.Model))
	}
	return googleai.New(ctx, opts...)
}

func createAnthropicModel(options ConnectorOptions) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(options.APIKey),
	}
	if options.ModelConfig.Model != "" {
		opts = append(opts, anthropic.WithModel(options.ModelConfig.Model))
	}
	return anthropic.New(opts...)
}

func createOllamaModel(options ConnectorOptions) (llms.Model, error) {
	opts := []ollama.Option{}
	if options.ModelConfig.Model != "" {
		opts = append(opts, ollama.WithModel(options.ModelConfig.Model))
	}
	if options.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(options.BaseURL))
	}
	return ollama.New(opts...)
}
