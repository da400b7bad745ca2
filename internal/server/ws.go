package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/askweb/internal/chat"
)

// WSReply is sent for every websocket question: the recorded turn, or an
// error and the HTTP status the JSON API would have used.
type WSReply struct {
	Turn   *chat.Turn `json:"turn,omitempty"`
	Error  string     `json:"error,omitempty"`
	Status int        `json:"status,omitempty"`
}

// handleWebsocket answers AskRequest messages on one connection, in order,
// against the caller's session.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	conn, err := s.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("websocket connected", "session", sess.ID())

	for {
		var req AskRequest
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("websocket read", "session", sess.ID(), "error", err)
			}
			return
		}

		var reply WSReply
		turn, err := s.submit(r, sess, req.Query, req.Model)
		if err != nil {
			reply.Error = err.Error()
			reply.Status = statusFor(err)
		} else {
			reply.Turn = &turn
		}

		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug("websocket write", "session", sess.ID(), "error", err)
			return
		}
	}
}
