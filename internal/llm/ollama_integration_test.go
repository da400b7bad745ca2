//go:build integration

package llm_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/askweb/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// integrationModel is small enough to pull and run on CPU.
const integrationModel = "qwen2.5:0.5b"

var ollamaHost string

// TestMain starts an Ollama container with one small model pulled.
func TestMain(m *testing.M) {
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "ollama/ollama:0.6.0",
			ExposedPorts: []string{"11434/tcp"},
			WaitingFor:   wait.ForHTTP("/").WithPort("11434/tcp").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start Ollama container: %v", err)
	}

	code, output, err := container.Exec(ctx, []string{"ollama", "pull", integrationModel})
	if err != nil || code != 0 {
		out, _ := io.ReadAll(output)
		log.Fatalf("Failed to pull %s (exit %d): %v\n%s", integrationModel, code, err, out)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "11434")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}
	ollamaHost = fmt.Sprintf("http://%s:%s", host, port.Port())

	exitCode := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(exitCode)
}

func TestOllamaGenerateIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen, err := llm.NewOllamaClient(ollamaHost, nil)
	require.NoError(t, err)

	answer, err := gen.Generate(ctx, integrationModel, "Reply with the single word: Paris")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(answer))
}

func TestAskUnknownModelIntegration(t *testing.T) {
	gen, err := llm.NewOllamaClient(ollamaHost, nil)
	require.NoError(t, err)
	client := llm.NewClient(gen, llm.Options{Timeout: 30 * time.Second})

	answer := client.Ask(context.Background(), "hello", "openhermes")
	assert.True(t, strings.HasPrefix(answer, llm.ErrorMarker), "got %q", answer)
}
