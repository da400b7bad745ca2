package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies the inference backend.
type Provider string

const (
	// ProviderOllamaNative talks to Ollama's /api/generate endpoint directly.
	ProviderOllamaNative Provider = "ollama-native"
	ProviderOllama       Provider = "ollama"
	ProviderOpenAI       Provider = "openai"
	ProviderAnthropic    Provider = "anthropic"
)

// DefaultModels is the model list offered in the UI when none is configured.
var DefaultModels = []string{"gemma3", "mistral", "llama3.1", "codellama", "openhermes"}

// Config holds all configuration values.
type Config struct {
	// Search API credentials. Absence is not validated: requests simply
	// come back without results.
	GoogleAPIKey  string
	GoogleCSEID   string
	SearchURL     string
	SearchTimeout time.Duration

	// Inference
	LLMProvider      Provider
	OllamaHost       string
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	Models           []string
	InferenceTimeout time.Duration

	// Web UI
	ServerPort string
	SessionTTL time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the optional YAML overlay pointed to by ASKWEB_CONFIG.
type fileConfig struct {
	Models           []string `yaml:"models"`
	SearchURL        string   `yaml:"search_url"`
	SearchTimeout    string   `yaml:"search_timeout"`
	OllamaHost       string   `yaml:"ollama_host"`
	LLMProvider      string   `yaml:"llm_provider"`
	InferenceTimeout string   `yaml:"inference_timeout"`
}

// Load reads configuration from environment variables.
// If ASKWEB_CONFIG names a YAML file, its values override the environment.
func Load() Config {
	cfg := Config{
		// Search
		GoogleAPIKey:  os.Getenv("GOOGLE_API_KEY"),
		GoogleCSEID:   os.Getenv("GOOGLE_CSE_ID"),
		SearchURL:     getEnv("ASKWEB_SEARCH_URL", "https://www.googleapis.com/customsearch/v1"),
		SearchTimeout: parseDuration(getEnv("ASKWEB_SEARCH_TIMEOUT", "20s"), 20*time.Second),

		// Inference
		LLMProvider:      Provider(strings.ToLower(getEnv("ASKWEB_LLM_PROVIDER", string(ProviderOllamaNative)))),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		Models:           parseList(getEnv("ASKWEB_MODELS", strings.Join(DefaultModels, ","))),
		InferenceTimeout: parseDuration(getEnv("ASKWEB_INFERENCE_TIMEOUT", "30s"), 30*time.Second),

		// Web UI
		ServerPort: getEnv("ASKWEB_SERVER_PORT", "8501"),
		SessionTTL: parseDuration(getEnv("ASKWEB_SESSION_TTL", "24h"), 24*time.Hour),

		// Logging
		LogFile:  getEnv("ASKWEB_LOG_FILE", "/tmp/askweb.log"),
		LogLevel: parseLogLevel(getEnv("ASKWEB_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("ASKWEB_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			slog.Warn("ignoring config file", "file", path, "error", err)
		}
	}

	if len(cfg.Models) == 0 {
		cfg.Models = append([]string(nil), DefaultModels...)
	}

	return cfg
}

// applyFile overlays values from a YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if len(fc.Models) > 0 {
		c.Models = parseList(strings.Join(fc.Models, ","))
	}
	if fc.SearchURL != "" {
		c.SearchURL = fc.SearchURL
	}
	if fc.SearchTimeout != "" {
		c.SearchTimeout = parseDuration(fc.SearchTimeout, c.SearchTimeout)
	}
	if fc.OllamaHost != "" {
		c.OllamaHost = fc.OllamaHost
	}
	if fc.LLMProvider != "" {
		c.LLMProvider = Provider(strings.ToLower(fc.LLMProvider))
	}
	if fc.InferenceTimeout != "" {
		c.InferenceTimeout = parseDuration(fc.InferenceTimeout, c.InferenceTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// parseList splits a comma-separated list, dropping blanks and duplicates.
func parseList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
