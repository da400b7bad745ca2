// Package main provides the askweb web server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/askweb/internal/chat"
	"github.com/raphaelgruber/askweb/internal/config"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/server"
	"github.com/raphaelgruber/askweb/internal/service"
)

const version = "0.1.0"

func main() {
	// Parse flags
	addr := flag.String("addr", "", "listen address (default \":$ASKWEB_SERVER_PORT\")")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *addr == "" {
		*addr = ":" + cfg.ServerPort
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg, os.Stderr)
	defer func() { _ = cleanup() }()

	logger.Info("askweb-server starting",
		"version", version,
		"addr", *addr,
		"provider", cfg.LLMProvider,
		"ollama_host", cfg.OllamaHost,
		"models", cfg.Models,
		"inference_timeout", cfg.InferenceTimeout,
	)
	if cfg.GoogleAPIKey == "" || cfg.GoogleCSEID == "" {
		logger.Warn("GOOGLE_API_KEY or GOOGLE_CSE_ID not set, searches will return no results")
	}

	collector := metrics.NewCollector()

	asker, err := service.NewFromConfig(cfg, logger, collector)
	if err != nil {
		logger.Error("failed to create asker", "error", err)
		os.Exit(1)
	}

	store := chat.NewStore(cfg.SessionTTL)
	srv := server.New(server.Options{
		Asker:   asker,
		Store:   store,
		Metrics: collector,
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.RunSweeper(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:        *addr,
		Handler:     srv.Handler(),
		ReadTimeout: 5 * time.Second,
		// A form submit waits for search plus inference.
		WriteTimeout: cfg.InferenceTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Web UI available", "url", fmt.Sprintf("http://localhost%s/", *addr))
		logger.Info("metrics available", "url", fmt.Sprintf("http://localhost%s/metrics", *addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down server...", "signal", sig)
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped", "sessions", store.Len())
}
