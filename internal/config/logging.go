package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

const serviceName = "cartpilot"

// logSink pairs an output with its encoding. Stderr gets text for
// humans, file sinks get JSON for machine parsing.
type logSink struct {
	w    io.Writer
	json bool
}

// NewLogger builds the process logger from the loaded config: text to
// stderr, JSON appended to cfg.LogFile. An empty LogFile disables the
// file sink; an unopenable one falls back to stderr only. The returned
// close func flushes the file sink.
func NewLogger(cfg *Config) (*slog.Logger, func() error) {
	sinks := []logSink{{w: os.Stderr}}
	closeFile := func() error { return nil }

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Error("failed to open log file, using stderr only", "error", err, "file", cfg.LogFile)
		} else {
			sinks = append(sinks, logSink{w: file, json: true})
			closeFile = file.Close
		}
	}

	return buildLogger(cfg.LogLevel, sinks...), closeFile
}

// buildLogger fans records out to every sink and stamps them with the
// service name so aggregated logs stay attributable.
func buildLogger(level slog.Level, sinks ...logSink) *slog.Logger {
	handlers := make([]slog.Handler, len(sinks))
	for i, s := range sinks {
		opts := &slog.HandlerOptions{Level: level}
		if s.json {
			handlers[i] = slog.NewJSONHandler(s.w, opts)
		} else {
			handlers[i] = slog.NewTextHandler(s.w, opts)
		}
	}
	return slog.New(slogmulti.Fanout(handlers...)).With("service", serviceName)
}
