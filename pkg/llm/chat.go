package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature *float64
	MaxTokens   int
}

// ChatEngine sends single-turn completions to a hosted model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine backed by the configured provider.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.Model == "" {
		return nil, eris.New("llm: model is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
			openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
		}
		if config.Endpoint != "" {
			opts = append(opts, openai.WithBaseURL(config.Endpoint))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.Endpoint != "" {
			opts = append(opts, ollama.WithServerURL(config.Endpoint))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", config.Provider)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "llm: initialize %s client", config.Provider)
	}

	return NewWithModel(config, model), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) *ChatEngine {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &ChatEngine{config: config, llm: model}
}

func (ce *ChatEngine) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if ce.config.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*ce.config.Temperature))
	}
	if ce.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(ce.config.MaxTokens))
	}
	return opts
}

// Complete sends prompt as a single user message and returns the first
// choice verbatim.
func (ce *ChatEngine) Complete(ctx context.Context, prompt string) (string, error) {
	return ce.generate(ctx, prompt, ce.callOptions())
}

// CompleteStream is Complete with each chunk handed to onChunk as it
// arrives. The full text is returned once the model finishes.
func (ce *ChatEngine) CompleteStream(ctx context.Context, prompt string, onChunk func(chunk string) error) (string, error) {
	opts := append(ce.callOptions(), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return onChunk(string(chunk))
	}))
	return ce.generate(ctx, prompt, opts)
}

func (ce *ChatEngine) generate(ctx context.Context, prompt string, opts []llms.CallOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	start := time.Now()
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", eris.Wrap(err, "llm: generate content")
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", eris.New("llm: empty response")
	}

	zap.L().Debug("llm: completion finished",
		zap.String("model", ce.config.Model),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return resp.Choices[0].Content, nil
}
