package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/askweb/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainModel implements Generator on top of a langchaingo model, for
// providers other than the native Ollama endpoint.
type LangchainModel struct {
	llm          llms.Model
	provider     string
	defaultModel string
}

// Compile-time check that LangchainModel implements Generator.
var _ Generator = (*LangchainModel)(nil)

// NewLangchainModel creates a model for cfg.LLMProvider. The first
// configured model is the default; Generate may override it per call.
func NewLangchainModel(cfg config.Config) (*LangchainModel, error) {
	var defaultModel string
	if len(cfg.Models) > 0 {
		defaultModel = cfg.Models[0]
	}

	var model llms.Model
	var provider string
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		provider = "Ollama"
		model, err = ollama.New(
			ollama.WithModel(defaultModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		provider = "OpenAI"
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(defaultModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		provider = "Anthropic"
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(defaultModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.LLMProvider)
	}

	return &LangchainModel{
		llm:          model,
		provider:     provider,
		defaultModel: defaultModel,
	}, nil
}

// Provider returns the backend name.
func (m *LangchainModel) Provider() string {
	return m.provider
}

// Generate sends prompt as a single human message.
func (m *LangchainModel) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = m.defaultModel
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt, llms.WithModel(model))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}
