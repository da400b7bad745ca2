package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/raphaelgruber/askweb/internal/client"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show runtime statistics of a running askweb-server: live sessions and
timings for search, inference and whole submits.

Examples:
  askweb stats --server http://localhost:8501`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	if !remote() {
		return errors.New("stats needs --server or ASKWEB_SERVER_URL")
	}

	stats, err := newClient().Stats(context.Background())
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}
	printServerStats(cmd.OutOrStdout(), stats)
	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(out io.Writer, stats *client.ServerStats) {
	fmt.Fprintf(out, "Server Statistics (in-memory, since restart)\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════\n")
	fmt.Fprintf(out, "Uptime: %.1f seconds\n", stats.UptimeSeconds)
	fmt.Fprintf(out, "Sessions: %d\n", stats.Sessions)

	if stats.Search != nil {
		fmt.Fprintf(out, "\nSearch:\n")
		printOpStats(out, stats.Search)
	}

	if stats.LLMGenerate != nil {
		fmt.Fprintf(out, "\nLLM Generate:\n")
		printOpStats(out, stats.LLMGenerate)
	}

	if stats.Submit != nil {
		fmt.Fprintf(out, "\nQuestions:\n")
		printOpStats(out, stats.Submit)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(out io.Writer, op *client.OperationStats) {
	fmt.Fprintf(out, "  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	fmt.Fprintf(out, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
