package cli

import (
	"context"
	"fmt"
	"os"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/askweb/internal/chat"
	"golang.org/x/term"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// askFunc answers one question. It must return once ctx is canceled.
type askFunc func(ctx context.Context) (*chat.Turn, error)

// turnMsg carries the finished question.
type turnMsg struct {
	turn *chat.Turn
	err  error
}

// progressModel is the bubbletea model shown while a question is answered.
type progressModel struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ask      askFunc
	label    string
	spinner  spinner.Model
	theme    Theme
	turn     *chat.Turn
	err      error
	done     bool
	quitting bool
}

func newProgressModel(ctx context.Context, label string, ask askFunc) progressModel {
	ctx, cancel := context.WithCancel(ctx)
	return progressModel{
		ctx:     ctx,
		cancel:  cancel,
		ask:     ask,
		label:   label,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:   defaultTheme,
	}
}

// Init starts the spinner and the question.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run())
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case turnMsg:
		m.turn, m.err = msg.turn, msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	switch {
	case m.quitting:
		return m.theme.hintStyle().Render("Canceled.") + "\n"
	case m.done && m.err != nil:
		return m.theme.errorStyle().Render(fmt.Sprintf("✗ %s", m.err)) + "\n"
	case m.done:
		return m.theme.completedStyle().Render("✓ Answered") + "\n"
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	return fmt.Sprintf("%s %s\n%s\n", m.spinner.View(), m.theme.statusStyle().Render(m.label), hint)
}

// run answers the question off the update loop.
func (m progressModel) run() tea.Cmd {
	return func() tea.Msg {
		turn, err := m.ask(m.ctx)
		return turnMsg{turn: turn, err: err}
	}
}

// runWithProgress answers a question, showing a spinner on stderr when it is
// a terminal.
func runWithProgress(ctx context.Context, label string, ask askFunc) (*chat.Turn, error) {
	if !isTerminal(os.Stderr) {
		return ask(ctx)
	}

	model := newProgressModel(ctx, label, ask)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(progressModel)
	if !ok {
		return nil, fmt.Errorf("progress UI returned %T", finalModel)
	}
	if m.quitting {
		return nil, context.Canceled
	}
	return m.turn, m.err
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of stdout, or fallback when unknown.
func terminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
