package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/raphaelgruber/askweb/internal/chat"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/service"
)

// AskRequest is the body of POST /api/ask and of each websocket message.
type AskRequest struct {
	Query string `json:"query"`
	Model string `json:"model,omitempty"`
}

// TranscriptResponse is returned by GET /api/transcript.
type TranscriptResponse struct {
	Session string      `json:"session"`
	State   string      `json:"state"`
	Turns   []chat.Turn `json:"turns"`
}

// ErrorResponse carries a request error.
type ErrorResponse struct {
	Error string `json:"error"`
}

type statsResponse struct {
	metrics.Snapshot
	Sessions int `json:"sessions"`
}

type pageData struct {
	Models     []string
	Selected   string
	Processing bool
	Turns      []turnView
}

type turnView struct {
	Question string
	Model    string
	Answer   template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	turns := sess.Transcript().Turns()

	selected := r.URL.Query().Get("model")
	if selected == "" && len(turns) > 0 {
		selected = turns[len(turns)-1].Model
	}

	data := pageData{
		Models:     s.asker.Models(),
		Selected:   s.asker.ResolveModel(selected),
		Processing: sess.Processing(),
		Turns:      make([]turnView, 0, len(turns)),
	}
	for _, t := range turns {
		data.Turns = append(data.Turns, turnView{
			Question: t.Question,
			Model:    t.Model,
			Answer:   renderMarkdown(t.Answer),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) handleAskForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := s.session(w, r)
	model := s.asker.ResolveModel(r.PostFormValue("model"))

	_, err := s.submit(r, sess, r.PostFormValue("query"), model)
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
	case errors.Is(err, service.ErrBusy):
		s.logger.Info("submit rejected", "session", sess.ID(), "error", err)
	case err != nil:
		s.logger.Error("submit", "session", sess.ID(), "error", err)
	}

	http.Redirect(w, r, "/?model="+url.QueryEscape(model), http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.asker.Models())
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	writeJSON(w, http.StatusOK, TranscriptResponse{
		Session: sess.ID(),
		State:   service.StateOf(sess).String(),
		Turns:   sess.Transcript().Turns(),
	})
}

func (s *Server) handleAskJSON(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	sess := s.session(w, r)

	turn, err := s.submit(r, sess, req.Query, req.Model)
	if err != nil {
		writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleResetJSON(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Snapshot: s.metrics.Snapshot(),
		Sessions: s.store.Len(),
	})
}

// statusFor maps orchestrator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
