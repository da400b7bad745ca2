package search_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/raphaelgruber/askweb/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient starts a fake search API answering every request with handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*search.Client, *bytes.Buffer, *metrics.Collector) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	collector := metrics.NewCollector()
	client := search.New(search.Config{
		Endpoint:   srv.URL + "/customsearch/v1",
		APIKey:     "test-key",
		EngineID:   "test-cx",
		HTTPClient: srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Metrics:    collector,
	})
	return client, &logs, collector
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestSearchSendsCredentialsAndQuery(t *testing.T) {
	var got *http.Request
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		respond(http.StatusOK, `{"items":[]}`)(w, r)
	})

	client.Search(context.Background(), "capital of France")

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/customsearch/v1", got.URL.Path)
	assert.Equal(t, "test-key", got.URL.Query().Get("key"))
	assert.Equal(t, "test-cx", got.URL.Query().Get("cx"))
	assert.Equal(t, "capital of France", got.URL.Query().Get("q"))
}

func TestSearchReturnsItems(t *testing.T) {
	client, _, collector := newTestClient(t, respond(http.StatusOK, `{
		"kind": "customsearch#search",
		"items": [
			{"title": "France", "snippet": "Paris is the capital...", "link": "https://example.com/fr"},
			{"title": "Geo", "snippet": "France is in Europe..."}
		]
	}`))

	results := client.Search(context.Background(), "capital of France")

	assert.Equal(t, []search.Result{
		{Title: "France", Snippet: "Paris is the capital..."},
		{Title: "Geo", Snippet: "France is in Europe..."},
	}, results)
	assert.Equal(t, int64(1), collector.Snapshot().Search.Count)
}

func TestSearchMissingFieldsUsePlaceholders(t *testing.T) {
	client, _, _ := newTestClient(t, respond(http.StatusOK, `{
		"items": [
			{"snippet": "only a snippet"},
			{"title": "only a title"},
			{}
		]
	}`))

	results := client.Search(context.Background(), "q")

	require.Len(t, results, 3)
	assert.Equal(t, search.Result{Title: search.DefaultTitle, Snippet: "only a snippet"}, results[0])
	assert.Equal(t, search.Result{Title: "only a title", Snippet: search.DefaultSnippet}, results[1])
	assert.Equal(t, search.Result{Title: "No Title", Snippet: "No Content"}, results[2])
}

func TestSearchFailuresYieldEmptyList(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"missing items field", respond(http.StatusOK, `{"kind":"customsearch#search","searchInformation":{"totalResults":"0"}}`)},
		{"invalid credentials", respond(http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid."}}`)},
		{"malformed json", respond(http.StatusOK, `{"items": [`)},
		{"wrong items type", respond(http.StatusOK, `{"items": "nope"}`)},
		{"server error", respond(http.StatusInternalServerError, `oops`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, tt.handler)

			var results []search.Result
			assert.NotPanics(t, func() {
				results = client.Search(context.Background(), "anything")
			})
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestSearchLogsFailure(t *testing.T) {
	client, logs, collector := newTestClient(t, respond(http.StatusForbidden, `{}`))

	results := client.Search(context.Background(), "anything")

	assert.Empty(t, results)
	assert.Contains(t, logs.String(), "search request failed")
	assert.Contains(t, logs.String(), "403")
	assert.Equal(t, int64(1), collector.Snapshot().Search.Failures)
}

func TestSearchUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	client := search.New(search.Config{
		Endpoint: endpoint,
		Logger:   slog.New(slog.DiscardHandler),
	})

	assert.Empty(t, client.Search(context.Background(), "anything"))
}

func TestSearchCanceledContext(t *testing.T) {
	client, _, _ := newTestClient(t, respond(http.StatusOK, `{"items":[{"title":"t","snippet":"s"}]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, client.Search(ctx, "anything"))
}

func TestSearchStalledEndpointTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	var logs bytes.Buffer
	collector := metrics.NewCollector()
	client := search.New(search.Config{
		Endpoint:   srv.URL,
		Timeout:    50 * time.Millisecond,
		HTTPClient: srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
		Metrics:    collector,
	})

	start := time.Now()
	results := client.Search(context.Background(), "capital of France")

	assert.Less(t, time.Since(start), 2*time.Second)
	require.NotNil(t, results)
	assert.Empty(t, results)
	assert.Contains(t, logs.String(), "search request failed")

	snap := collector.Snapshot()
	require.NotNil(t, snap.Search)
	assert.Equal(t, int64(1), snap.Search.Failures)
}

func TestResultLine(t *testing.T) {
	assert.Equal(t, "France: Paris is the capital...", search.Result{Title: "France", Snippet: "Paris is the capital..."}.Line())
}
