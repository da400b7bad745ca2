// Package client provides an HTTP client for the askweb server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/askweb/internal/chat"
)

// DefaultEndpoint is used when neither an endpoint nor ASKWEB_SERVER_URL is set.
const DefaultEndpoint = "http://localhost:8501"

var (
	// ErrEmptyQuery mirrors the server's rejection of a blank question.
	ErrEmptyQuery = errors.New("empty query")

	// ErrBusy means the session is still answering an earlier question.
	ErrBusy = errors.New("session is busy")
)

// Client talks to one askweb server and keeps one session across calls.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses ASKWEB_SERVER_URL env var or defaults to localhost:8501.
// Timeout can be configured via ASKWEB_CLIENT_TIMEOUT env var (default 2m, above
// the server's inference deadline).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("ASKWEB_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("ASKWEB_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	// cookiejar.New never fails without options.
	jar, _ := cookiejar.New(nil)

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// Endpoint returns the server base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Transcript is a session's recorded turns.
type Transcript struct {
	Session string      `json:"session"`
	State   string      `json:"state"`
	Turns   []chat.Turn `json:"turns"`
}

// OperationStats is the server's summary of one operation type.
type OperationStats struct {
	Count       int64   `json:"count"`
	Failures    int64   `json:"failures"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// ServerStats is returned by GET /stats.
type ServerStats struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	Sessions      int             `json:"sessions"`
	Search        *OperationStats `json:"search,omitempty"`
	LLMGenerate   *OperationStats `json:"llm_generate,omitempty"`
	Submit        *OperationStats `json:"submit,omitempty"`
}

type askRequest struct {
	Query string `json:"query"`
	Model string `json:"model,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// do sends a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return replyError(resp.StatusCode, serverMessage(body))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// replyError maps a rejected request's status to the client's sentinel errors.
func replyError(status int, msg string) error {
	switch status {
	case http.StatusBadRequest:
		return ErrEmptyQuery
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrBusy, msg)
	default:
		return fmt.Errorf("server error: %d %s - %s", status, http.StatusText(status), msg)
	}
}

func serverMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Ask submits a question to the session and returns the recorded turn.
// Inference failures come back as a turn whose answer carries the error marker.
func (c *Client) Ask(ctx context.Context, query, model string) (*chat.Turn, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	var turn chat.Turn
	if err := c.do(ctx, http.MethodPost, "/api/ask", askRequest{Query: query, Model: model}, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

// Transcript returns the session's turns in submission order.
func (c *Client) Transcript(ctx context.Context) (*Transcript, error) {
	var t Transcript
	if err := c.do(ctx, http.MethodGet, "/api/transcript", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Models lists the models the server offers.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var models []string
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// Reset discards the session; the next call starts an empty one.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reset", nil, nil)
}

// Stats returns the server's runtime statistics.
func (c *Client) Stats(ctx context.Context) (*ServerStats, error) {
	var s ServerStats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// =============================================================================
// WEBSOCKET
// =============================================================================

type wsReply struct {
	Turn   *chat.Turn `json:"turn,omitempty"`
	Error  string     `json:"error,omitempty"`
	Status int        `json:"status,omitempty"`
}

// AskAll sends the questions over one websocket connection, in order, and
// calls onTurn with each recorded turn. It stops at the first question the
// server rejects and returns the rejection.
func (c *Client) AskAll(ctx context.Context, queries []string, model string, onTurn func(chat.Turn) error) error {
	wsEndpoint := strings.Replace(c.endpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/ws")
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Jar:              c.httpClient.Jar,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for _, q := range queries {
		if err := conn.WriteJSON(askRequest{Query: q, Model: model}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("send question: %w", err)
		}

		var reply wsReply
		if err := conn.ReadJSON(&reply); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read reply: %w", err)
		}

		if reply.Error != "" {
			return replyError(reply.Status, reply.Error)
		}
		if reply.Turn == nil {
			return errors.New("reply without turn")
		}

		if err := onTurn(*reply.Turn); err != nil {
			return err
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
