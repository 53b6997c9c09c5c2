package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "http://localhost:6333", cfg.QdrantURL)
	assert.Equal(t, "amazon_products", cfg.Collection)
	assert.Equal(t, ProviderOllama, cfg.EmbedProvider)
	assert.Equal(t, 384, cfg.EmbedDimension)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CARTPILOT_QDRANT_URL", "http://qdrant:6333")
	t.Setenv("CARTPILOT_EMBED_DIMENSION", "768")
	t.Setenv("CARTPILOT_LLM_TEMPERATURE", "0.7")
	t.Setenv("CARTPILOT_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "http://qdrant:6333", cfg.QdrantURL)
	assert.Equal(t, 768, cfg.EmbedDimension)
	assert.Equal(t, 0.7, cfg.LLMTemperature)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CARTPILOT_EMBED_DIMENSION", "not-a-number")
	cfg := Load()
	assert.Equal(t, 384, cfg.EmbedDimension)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection: staging_products\nlisten_addr: \":9090\"\n"), 0o644))

	cfg := Load()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, "staging_products", cfg.Collection)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:6333", cfg.QdrantURL, "unset yaml fields keep env values")
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Load()
	assert.Error(t, LoadFile("/nonexistent/config.yaml", &cfg))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("garbage"))
}

func TestBuildLoggerFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := buildLogger(slog.LevelInfo, logSink{w: &stderr}, logSink{w: &file, json: true})

	logger.Info("hello", "key", "value")

	assert.Contains(t, stderr.String(), "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "cartpilot", entry["service"])
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartpilot.log")
	cfg := Config{LogFile: path, LogLevel: slog.LevelInfo}

	logger, closeFile := NewLogger(&cfg)
	logger.Info("started")
	require.NoError(t, closeFile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "started", entry["msg"])
	assert.Equal(t, "cartpilot", entry["service"])
}

func TestNewLoggerFallsBackWithoutFile(t *testing.T) {
	cfg := Config{LogFile: "/nonexistent-dir/cartpilot.log", LogLevel: slog.LevelInfo}
	logger, closeFile := NewLogger(&cfg)
	require.NotNil(t, logger)
	assert.NoError(t, closeFile())
}

func TestNewLoggerNoFileSink(t *testing.T) {
	cfg := Config{LogLevel: slog.LevelInfo}
	logger, closeFile := NewLogger(&cfg)
	require.NotNil(t, logger)
	assert.NoError(t, closeFile())
}
