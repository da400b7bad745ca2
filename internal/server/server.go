// Package server serves the askweb page, its JSON API and a websocket
// endpoint on top of the session orchestrator.
package server

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raphaelgruber/askweb/internal/chat"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/service"
)

//go:embed templates/index.html
var templates embed.FS

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "askweb_session"

// Server wires HTTP handlers to the orchestrator and the session store.
type Server struct {
	asker    *service.Asker
	store    *chat.Store
	metrics  *metrics.Collector
	logger   *slog.Logger
	page     *template.Template
	upgrader websocket.Upgrader
}

// Options configures a Server.
type Options struct {
	Asker   *service.Asker
	Store   *chat.Store
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// New creates a server. The page template is parsed at startup; a broken
// embedded template is a programming error and panics.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = chat.NewStore(0)
	}

	return &Server{
		asker:   opts.Asker,
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		page:    template.Must(template.ParseFS(templates, "templates/index.html")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /ask", s.handleAskForm)
	mux.HandleFunc("POST /reset", s.handleReset)

	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	mux.HandleFunc("POST /api/ask", s.handleAskJSON)
	mux.HandleFunc("POST /api/reset", s.handleResetJSON)
	mux.HandleFunc("GET /ws", s.handleWebsocket)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /stats", s.handleStats)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return LoggingMiddleware(s.logger)(mux)
}

// RunSweeper drops idle sessions every interval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Sweep(); n > 0 {
				s.logger.Info("expired sessions removed", "count", n, "remaining", s.store.Len())
			}
		}
	}
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries no known id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *chat.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess := s.store.Ensure(id)
	if sess.ID() != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// clearSession removes the caller's session and expires the cookie.
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.store.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// submit runs one question for sess. The request context only contributes
// its values: a client that disconnects mid-answer still gets the turn
// recorded, bounded by the inference deadline.
func (s *Server) submit(r *http.Request, sess *chat.Session, query, model string) (chat.Turn, error) {
	return s.asker.Submit(context.WithoutCancel(r.Context()), sess, query, model)
}
