package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/askweb/internal/chat"
	"github.com/raphaelgruber/askweb/internal/client"
	"github.com/raphaelgruber/askweb/internal/service"
	"github.com/spf13/cobra"
)

var (
	askModel string
	askRaw   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question, grounded on web search results",
	Long: `Ask one question. The top two search results are passed to the model as
context and the answer is printed as Markdown.

Examples:
  askweb ask "capital of France"
  askweb ask --model mistral "who maintains the Go toolchain?"
  askweb ask --server http://localhost:8501 "latest Ollama release"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model to ask (default: first configured model)")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "print plain Markdown even on a terminal")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := context.Background()

	q, err := newQuestioner()
	if err != nil {
		return err
	}

	turn, err := runWithProgress(ctx, q.label(askModel), func(ctx context.Context) (*chat.Turn, error) {
		return q.ask(ctx, query, askModel)
	})
	if err != nil {
		return askError(err)
	}

	styled := !askRaw && isTerminal(os.Stdout)
	return newTurnPrinter(cmd.OutOrStdout(), styled, terminalWidth(80)).print(*turn)
}

// questioner answers questions in one session, in-process or on a server.
type questioner interface {
	ask(ctx context.Context, query, model string) (*chat.Turn, error)
	label(model string) string
}

func newQuestioner() (questioner, error) {
	if remote() {
		return remoteQuestioner{client: newClient()}, nil
	}
	asker, err := newAsker()
	if err != nil {
		return nil, err
	}
	return localQuestioner{asker: asker, session: chat.NewSession()}, nil
}

type localQuestioner struct {
	asker   *service.Asker
	session *chat.Session
}

func (l localQuestioner) ask(ctx context.Context, query, model string) (*chat.Turn, error) {
	turn, err := l.asker.Submit(ctx, l.session, query, model)
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

func (l localQuestioner) label(model string) string {
	return fmt.Sprintf("Searching with Google CSE, then asking %s via Ollama...", l.asker.ResolveModel(model))
}

type remoteQuestioner struct {
	client *client.Client
}

func (r remoteQuestioner) ask(ctx context.Context, query, model string) (*chat.Turn, error) {
	return r.client.Ask(ctx, query, model)
}

func (r remoteQuestioner) label(model string) string {
	if model == "" {
		model = "the default model"
	}
	return fmt.Sprintf("Asking %s on %s...", model, r.client.Endpoint())
}

// askError turns orchestration errors into user-facing messages.
func askError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, client.ErrEmptyQuery):
		return errors.New("question must not be empty")
	case errors.Is(err, context.Canceled):
		return errors.New("canceled")
	default:
		return err
	}
}
