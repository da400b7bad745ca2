package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raphaelgruber/askweb/internal/chat"
	"github.com/spf13/cobra"
)

var (
	chatModel string
	chatRaw   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions line by line in one session",
	Long: `Read questions from stdin, one per line, and answer each in the same
session. Blank lines are ignored.

Commands:
  /history   print the session transcript
  /reset     start a new, empty session
  /quit      exit

Examples:
  askweb chat
  askweb chat --model llama3.1 < questions.txt`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to ask (default: first configured model)")
	chatCmd.Flags().BoolVar(&chatRaw, "raw", false, "print plain Markdown even on a terminal")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	q, err := newQuestioner()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	interactive := isTerminal(os.Stdin)
	printer := newTurnPrinter(out, !chatRaw && isTerminal(os.Stdout), terminalWidth(80))

	return chatLoop(ctx, cmd.InOrStdin(), out, q, printer, interactive)
}

// chatLoop answers each input line until EOF or /quit.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, q questioner, printer *turnPrinter, interactive bool) error {
	scanner := bufio.NewScanner(in)
	var history []chat.Turn

	for {
		if interactive {
			fmt.Fprint(out, defaultTheme.statusStyle().Render("> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			for _, t := range history {
				if err := printer.print(t); err != nil {
					return err
				}
			}
			continue
		case "/reset":
			switch cur := q.(type) {
			case remoteQuestioner:
				if err := cur.client.Reset(ctx); err != nil {
					return fmt.Errorf("reset session: %w", err)
				}
			case localQuestioner:
				q = localQuestioner{asker: cur.asker, session: chat.NewSession()}
			}
			history = nil
			fmt.Fprintln(out, defaultTheme.hintStyle().Render("Session cleared."))
			continue
		}

		turn, err := runWithProgress(ctx, q.label(chatModel), func(ctx context.Context) (*chat.Turn, error) {
			return q.ask(ctx, line, chatModel)
		})
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, defaultTheme.hintStyle().Render("Canceled."))
			continue
		}
		if err != nil {
			fmt.Fprintln(out, defaultTheme.errorStyle().Render("✗ "+askError(err).Error()))
			continue
		}

		history = append(history, *turn)
		if err := printer.print(*turn); err != nil {
			return err
		}
	}
}
