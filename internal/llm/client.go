// Package llm sends prompts to a language model and returns its answer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/askweb/internal/config"
	"github.com/raphaelgruber/askweb/internal/metrics"
)

// ErrorMarker prefixes every answer that reports a failed inference call.
const ErrorMarker = "❌"

// ErrUnsupportedProvider is returned by New for an unknown provider.
var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// Generator produces a completion for a prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)

	// Provider is the human-readable backend name used in error answers.
	Provider() string
}

// New creates the Generator selected by cfg.LLMProvider.
func New(cfg config.Config) (Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllamaNative, "":
		return NewOllamaClient(cfg.OllamaHost, nil)
	case config.ProviderOllama, config.ProviderOpenAI, config.ProviderAnthropic:
		return NewLangchainModel(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.LLMProvider)
	}
}

// Client wraps a Generator with a request deadline, logging and metrics.
// Its Ask method never fails: errors come back as answer text.
type Client struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each Ask call. Zero or negative means no deadline.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// NewClient creates an inference client around gen.
func NewClient(gen Generator, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		gen:     gen,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Ask sends prompt to model and returns the generated text. Any failure,
// including the deadline expiring, is returned as an answer starting with
// ErrorMarker.
func (c *Client) Ask(ctx context.Context, prompt, model string) string {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := c.gen.Generate(ctx, model, prompt)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("inference failed",
			"provider", c.gen.Provider(),
			"model", model,
			"prompt_len", len(prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		c.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, metrics.OutcomeError, int64(len(prompt)), 0)
		return c.errorAnswer(err)
	}

	outcome := metrics.OutcomeOK
	if answer == "" {
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, outcome, int64(len(prompt)), int64(len(answer)))

	c.logger.Debug("inference complete",
		"provider", c.gen.Provider(),
		"model", model,
		"prompt_len", len(prompt),
		"answer_len", len(answer),
		"duration_ms", duration.Milliseconds(),
	)
	return answer
}

func (c *Client) errorAnswer(err error) string {
	if c.timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s %s request failed: timed out after %s", ErrorMarker, c.gen.Provider(), c.timeout)
	}
	return fmt.Sprintf("%s %s request failed: %v", ErrorMarker, c.gen.Provider(), err)
}
