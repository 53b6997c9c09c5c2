// Package config loads application configuration from the environment
// with an optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names accepted for LLM and dense-embedding backends.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// Qdrant connection
	QdrantURL    string `yaml:"qdrant_url"`
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	Collection   string `yaml:"collection"`

	// Dense embedding
	EmbedProvider  string `yaml:"embed_provider"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension"`

	// Chat LLM
	LLMProvider     string  `yaml:"llm_provider"`
	LLMModel        string  `yaml:"llm_model"`
	LLMTemperature  float64 `yaml:"llm_temperature"`
	OpenAIAPIKey    string  `yaml:"-"`
	AnthropicAPIKey string  `yaml:"-"`
	OllamaHost      string  `yaml:"ollama_host"`

	// HTTP server
	ListenAddr string `yaml:"listen_addr"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables. Defaults match
// a local Qdrant plus a local Ollama setup.
func Load() Config {
	return Config{
		QdrantURL:    getEnv("CARTPILOT_QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey: getEnv("CARTPILOT_QDRANT_API_KEY", ""),
		Collection:   getEnv("CARTPILOT_COLLECTION", "amazon_products"),

		EmbedProvider:  getEnv("CARTPILOT_EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("CARTPILOT_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("CARTPILOT_EMBED_DIMENSION", 384),

		LLMProvider:     getEnv("CARTPILOT_LLM_PROVIDER", ProviderOpenAI),
		LLMModel:        getEnv("CARTPILOT_LLM_MODEL", "gpt-4.1-nano"),
		LLMTemperature:  getEnvFloat("CARTPILOT_LLM_TEMPERATURE", 0.0),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		ListenAddr: getEnv("CARTPILOT_LISTEN_ADDR", ":8080"),

		LogFile:  getEnv("CARTPILOT_LOG_FILE", "/tmp/cartpilot.log"),
		LogLevel: parseLogLevel(getEnv("CARTPILOT_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays values from a YAML file onto cfg. Unset YAML fields
// leave the environment-derived values untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
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
