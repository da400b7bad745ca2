package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaHost is where a local Ollama server listens.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaClient implements Generator with Ollama's native /api/generate endpoint.
type OllamaClient struct {
	client *api.Client
	host   string
}

// Compile-time check that OllamaClient implements Generator.
var _ Generator = (*OllamaClient)(nil)

// NewOllamaClient creates a client for the Ollama server at host.
// If host is empty, uses DefaultOllamaHost. If httpClient is nil, uses
// http.DefaultClient; deadlines come from the request context.
func NewOllamaClient(host string, httpClient *http.Client) (*OllamaClient, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse ollama host: %q is not an absolute URL", host)
	}

	return &OllamaClient{
		client: api.NewClient(base, httpClient),
		host:   host,
	}, nil
}

// Host returns the server URL.
func (c *OllamaClient) Host() string {
	return c.host
}

// Provider returns the backend name.
func (c *OllamaClient) Provider() string {
	return "Ollama"
}

// Generate issues one non-streaming generation request.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}

	var answer strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		answer.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	return answer.String(), nil
}
