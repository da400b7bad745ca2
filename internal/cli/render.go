package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/raphaelgruber/askweb/internal/chat"
)

// turnMarkdown lays a turn out the way the web page does.
func turnMarkdown(turn chat.Turn) string {
	return fmt.Sprintf("**You:** %s\n\n**🤖 %s**: %s\n\n---\n", turn.Question, turn.Model, turn.Answer)
}

// turnPrinter writes turns as styled Markdown on a terminal, plain Markdown
// otherwise.
type turnPrinter struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newTurnPrinter(out io.Writer, styled bool, width int) *turnPrinter {
	p := &turnPrinter{out: out}
	if !styled {
		return p
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		slog.Warn("markdown renderer unavailable, printing plain text", "error", err)
		return p
	}
	p.renderer = r
	return p
}

func (p *turnPrinter) print(turn chat.Turn) error {
	md := turnMarkdown(turn)
	if p.renderer != nil {
		if out, err := p.renderer.Render(md); err == nil {
			md = out
		}
	}
	_, err := io.WriteString(p.out, strings.TrimRight(md, "\n")+"\n")
	return err
}
