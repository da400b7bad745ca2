package service

import (
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/askweb/internal/config"
	"github.com/raphaelgruber/askweb/internal/llm"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/search"
)

// NewFromConfig builds an Asker with the search client and inference
// backend described by cfg.
func NewFromConfig(cfg config.Config, logger *slog.Logger, collector *metrics.Collector) (*Asker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	searcher := search.New(search.Config{
		Endpoint: cfg.SearchURL,
		APIKey:   cfg.GoogleAPIKey,
		EngineID: cfg.GoogleCSEID,
		Timeout:  cfg.SearchTimeout,
		Logger:   logger,
		Metrics:  collector,
	})

	gen, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init inference backend: %w", err)
	}
	inference := llm.NewClient(gen, llm.Options{
		Timeout: cfg.InferenceTimeout,
		Logger:  logger,
		Metrics: collector,
	})

	logger.Debug("asker configured",
		"provider", gen.Provider(),
		"models", cfg.Models,
		"inference_timeout", cfg.InferenceTimeout,
		"search_timeout", cfg.SearchTimeout,
	)

	return NewAsker(searcher, inference, Options{
		Models:  cfg.Models,
		Logger:  logger,
		Metrics: collector,
	}), nil
}
