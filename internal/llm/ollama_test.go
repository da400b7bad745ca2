package llm_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/askweb/internal/llm"
	"github.com/raphaelgruber/askweb/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/generate with handler.
func fakeOllama(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOllama(t *testing.T, srv *httptest.Server) *llm.OllamaClient {
	t.Helper()

	client, err := llm.NewOllamaClient(srv.URL, srv.Client())
	require.NoError(t, err)
	return client
}

func TestNewOllamaClientDefaults(t *testing.T) {
	client, err := llm.NewOllamaClient("", nil)
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultOllamaHost, client.Host())
	assert.Equal(t, "Ollama", client.Provider())
}

func TestNewOllamaClientRejectsRelativeHost(t *testing.T) {
	_, err := llm.NewOllamaClient("localhost-without-scheme", nil)
	assert.Error(t, err)
}

func TestOllamaGenerateRequestShape(t *testing.T) {
	var body map[string]any
	srv := fakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gemma3","response":"Paris","done":true}`))
	})

	answer, err := newOllama(t, srv).Generate(context.Background(), "gemma3", "Question: capital of France")
	require.NoError(t, err)

	assert.Equal(t, "Paris", answer)
	assert.Equal(t, "gemma3", body["model"])
	assert.Equal(t, "Question: capital of France", body["prompt"])
	assert.Equal(t, false, body["stream"])
}

func TestOllamaGenerateMissingResponseField(t *testing.T) {
	srv := fakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"gemma3","done":true}`))
	})

	answer, err := newOllama(t, srv).Generate(context.Background(), "gemma3", "p")
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := fakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"openhermes\" not found, try pulling it first"}`))
	})

	_, err := newOllama(t, srv).Generate(context.Background(), "openhermes", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAskReturnsAnswer(t *testing.T) {
	srv := fakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Paris","done":true}`))
	})
	collector := metrics.NewCollector()
	client := llm.NewClient(newOllama(t, srv), llm.Options{
		Timeout: 5 * time.Second,
		Logger:  slog.New(slog.DiscardHandler),
		Metrics: collector,
	})

	assert.Equal(t, "Paris", client.Ask(context.Background(), "prompt", "gemma3"))

	snap := collector.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(1), snap.LLMGenerate.Count)
	assert.Equal(t, int64(0), snap.LLMGenerate.Failures)
}

func TestAskFailureReturnsMarkedAnswer(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"out of memory"}`))
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>proxy error</html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeOllama(t, tt.handler)
			var logs bytes.Buffer
			client := llm.NewClient(newOllama(t, srv), llm.Options{
				Logger: slog.New(slog.NewTextHandler(&logs, nil)),
			})

			var answer string
			assert.NotPanics(t, func() {
				answer = client.Ask(context.Background(), "prompt", "gemma3")
			})
			assert.True(t, strings.HasPrefix(answer, llm.ErrorMarker), "answer %q should carry the error marker", answer)
			assert.Contains(t, answer, "Ollama request failed")
			assert.Contains(t, logs.String(), "inference failed")
		})
	}
}

func TestAskUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	gen, err := llm.NewOllamaClient(host, nil)
	require.NoError(t, err)
	client := llm.NewClient(gen, llm.Options{Logger: slog.New(slog.DiscardHandler)})

	answer := client.Ask(context.Background(), "prompt", "gemma3")
	assert.True(t, strings.HasPrefix(answer, llm.ErrorMarker+" Ollama request failed: "))
}

func TestAskEnforcesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := fakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Unblock the handler before srv.Close (cleanups run in LIFO order).
	t.Cleanup(func() { close(release) })

	client := llm.NewClient(newOllama(t, srv), llm.Options{
		Timeout: 50 * time.Millisecond,
		Logger:  slog.New(slog.DiscardHandler),
	})

	start := time.Now()
	answer := client.Ask(context.Background(), "prompt", "gemma3")

	assert.Less(t, time.Since(start), 2*time.Second, "hung backend must be cut off by the deadline")
	assert.Equal(t, llm.ErrorMarker+" Ollama request failed: timed out after 50ms", answer)
}
