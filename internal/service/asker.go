// Package service runs the question → search → prompt → answer chain for a
// chat session.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/raphaelgruber/askweb/internal/chat"
	"github.com/raphaelgruber/askweb/internal/llm"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/prompt"
	"github.com/raphaelgruber/askweb/internal/search"
)

// WarningMarker prefixes answers for failures outside the inference client.
const WarningMarker = "⚠️"

var (
	// ErrEmptyQuery means the submit was a no-op: nothing was searched,
	// asked or recorded.
	ErrEmptyQuery = errors.New("empty query")

	// ErrBusy means the session already has a submit in flight.
	ErrBusy = errors.New("session is processing another question")
)

// State is the orchestrator state of a session.
type State int

const (
	Idle State = iota
	Processing
)

func (s State) String() string {
	if s == Processing {
		return "processing"
	}
	return "idle"
}

// Inference answers a prompt with a model. Failures are reported in the
// returned text, not as errors.
type Inference interface {
	Ask(ctx context.Context, prompt, model string) string
}

// Asker wires the search and inference clients to session transcripts.
type Asker struct {
	search    search.Searcher
	inference Inference
	models    []string
	logger    *slog.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

// Options configures an Asker.
type Options struct {
	// Models is the selectable model list; the first entry is the default.
	Models  []string
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// NewAsker creates an orchestrator.
func NewAsker(s search.Searcher, inf Inference, opts Options) *Asker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Asker{
		search:    s,
		inference: inf,
		models:    slices.Clone(opts.Models),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       time.Now,
	}
}

// Models returns the selectable models.
func (a *Asker) Models() []string {
	return slices.Clone(a.models)
}

// ResolveModel returns model if it is selectable, else the default model.
func (a *Asker) ResolveModel(model string) string {
	if slices.Contains(a.models, model) || len(a.models) == 0 {
		return model
	}
	return a.models[0]
}

// StateOf reports whether sess is idle or processing.
func StateOf(sess *chat.Session) State {
	if sess.Processing() {
		return Processing
	}
	return Idle
}

// Submit answers query with model and appends the turn to the session
// transcript. An empty query returns ErrEmptyQuery without any outbound
// call. Inference failures never surface as errors; they become the turn's
// answer.
func (a *Asker) Submit(ctx context.Context, sess *chat.Session, query, model string) (chat.Turn, error) {
	if strings.TrimSpace(query) == "" {
		return chat.Turn{}, ErrEmptyQuery
	}
	if !sess.Begin() {
		return chat.Turn{}, ErrBusy
	}
	defer sess.End()

	model = a.ResolveModel(model)
	start := time.Now()

	results := a.search.Search(ctx, query)
	snippets := prompt.BuildContext(results)
	full := prompt.Format(query, snippets)

	answer := a.infer(ctx, full, model)

	turn := chat.Turn{
		Question: query,
		Answer:   answer,
		Model:    model,
		AskedAt:  a.now(),
	}
	n := sess.Transcript().Append(turn)

	duration := time.Since(start)
	a.metrics.RecordTiming(metrics.OpSubmit, duration, submitOutcome(answer))
	a.logger.Info("question answered",
		"session", sess.ID(),
		"model", model,
		"results", len(results),
		"turns", n,
		"duration_ms", duration.Milliseconds(),
	)

	return turn, nil
}

// infer calls the inference client, turning a panic into a warning answer.
func (a *Asker) infer(ctx context.Context, full, model string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("inference panicked", "model", model, "panic", r)
			answer = fmt.Sprintf("%s An error occurred: %v", WarningMarker, r)
		}
	}()
	return a.inference.Ask(ctx, full, model)
}

func submitOutcome(answer string) string {
	switch {
	case strings.HasPrefix(answer, WarningMarker), strings.HasPrefix(answer, llm.ErrorMarker):
		return metrics.OutcomeError
	case answer == "":
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeOK
	}
}
