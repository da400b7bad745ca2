// Package search queries a web search API for result snippets.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/raphaelgruber/askweb/internal/metrics"
)

// Placeholders used when a result lacks a field.
const (
	DefaultTitle   = "No Title"
	DefaultSnippet = "No Content"
)

// DefaultEndpoint is the Google Programmable Search JSON API.
const DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// DefaultTimeout bounds a search request when Config.Timeout is unset.
const DefaultTimeout = 20 * time.Second

// maxBodyBytes caps how much of a search response is read.
const maxBodyBytes = 4 << 20

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Line renders the result as "title: snippet".
func (r Result) Line() string {
	return r.Title + ": " + r.Snippet
}

// Searcher returns search results for a free-text query.
// Implementations never fail: errors are logged and yield no results.
type Searcher interface {
	Search(ctx context.Context, query string) []Result
}

// Config holds the parameters for a Client.
type Config struct {
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string
	// APIKey and EngineID are passed through unvalidated.
	APIKey   string
	EngineID string
	// Timeout bounds each request, including reading the body. Non-positive
	// values mean DefaultTimeout.
	Timeout  time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// Client calls a Programmable Search style API: GET with key, cx and q.
type Client struct {
	endpoint   string
	apiKey     string
	engineID   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Compile-time check that Client implements Searcher.
var _ Searcher = (*Client)(nil)

// New creates a search client.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		engineID:   cfg.EngineID,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// apiItem decodes one entry of the results array. Both fields are optional.
type apiItem struct {
	Title   *string `json:"title"`
	Snippet *string `json:"snippet"`
}

// apiResponse decodes the search response. Items is absent when the query
// had no hits or the request was rejected.
type apiResponse struct {
	Items []apiItem `json:"items"`
}

// Search performs one request and returns its results, or an empty list on
// any failure. It never retries and never outlives the client's timeout,
// even when ctx has no deadline.
func (c *Client) Search(ctx context.Context, query string) []Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results, err := c.fetch(ctx, query)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("search request failed",
			"query_len", len(query),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		c.metrics.RecordTiming(metrics.OpSearch, duration, metrics.OutcomeError)
		return []Result{}
	}

	outcome := metrics.OutcomeOK
	if len(results) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.RecordTiming(metrics.OpSearch, duration, outcome)

	c.logger.Debug("search complete",
		"query_len", len(query),
		"results", len(results),
		"duration_ms", duration.Milliseconds(),
	)
	return results
}

func (c *Client) fetch(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	params := u.Query()
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error: %s", resp.Status)
	}

	return decode(body)
}

// decode maps a raw response body to results, applying placeholders for
// missing fields.
func decode(body []byte) ([]Result, error) {
	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(raw.Items))
	for _, item := range raw.Items {
		results = append(results, Result{
			Title:   valueOr(item.Title, DefaultTitle),
			Snippet: valueOr(item.Snippet, DefaultSnippet),
		})
	}
	return results, nil
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
