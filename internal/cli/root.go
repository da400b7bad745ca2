// Package cli provides the command-line interface for askweb.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/askweb/internal/client"
	"github.com/raphaelgruber/askweb/internal/config"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// Global config and logger
	cfg         config.Config
	logger      *slog.Logger
	closeLogger = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "askweb",
	Short: "Ask a local LLM, grounded on web search results",
	Long: `askweb answers questions with a language model served by Ollama,
using the top Google Programmable Search results as context.

Questions run in-process by default. With --server (or ASKWEB_SERVER_URL)
they go to a running askweb-server instead and share its session handling.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		// stderr belongs to the spinner unless verbose output is requested.
		if verbose {
			cfg.LogLevel = slog.LevelDebug
			logger, closeLogger = config.SetupLogger(cfg, os.Stderr)
		} else {
			logger, closeLogger = config.SetupLogger(cfg, nil)
		}
		slog.SetDefault(logger)

		if serverURL == "" {
			serverURL = os.Getenv("ASKWEB_SERVER_URL")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	},
}

// remote reports whether commands should talk to a server.
func remote() bool { return serverURL != "" }

// newClient creates a client for the configured server.
func newClient() *client.Client { return client.New(serverURL) }

// newAsker builds the in-process orchestrator from the loaded config.
func newAsker() (*service.Asker, error) {
	return service.NewFromConfig(cfg, logger, metrics.NewCollector())
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "askweb-server URL (default: in-process)")

	// Add subcommands
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(statsCmd)
}
