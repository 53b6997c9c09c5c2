package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"cartpilot/internal/metrics"
	"cartpilot/internal/models"
)

// ErrProviderFailure indicates the completion provider errored, timed
// out, or returned output that doesn't match the requested schema.
// Callers take their documented fallback instead of surfacing this to
// the end user. Check with errors.Is.
var ErrProviderFailure = errors.New("completion provider failure")

// Completer is the structured completion contract: one system prompt,
// a message window, and a target the JSON response is decoded into.
// A failed call returns an error wrapping ErrProviderFailure; the
// target is left untouched in that case.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []models.Message, out any) error
}

var _ Completer = (*Model)(nil)

// Complete calls the chat model in JSON mode and decodes the response
// into out. Any provider or decode failure wraps ErrProviderFailure.
func (m *Model) Complete(ctx context.Context, systemPrompt string, history []models.Message, out any) error {
	content := make([]llms.MessageContent, 0, len(history)+1)
	content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	for _, msg := range history {
		role := schema.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, content,
		llms.WithJSONMode(),
		llms.WithTemperature(m.temperature),
	)
	duration := time.Since(start)
	metrics.Record(metrics.OpCompletion, duration)

	if err != nil {
		slog.Warn("completion failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if len(response.Choices) == 0 {
		return fmt.Errorf("%w: no response choices", ErrProviderFailure)
	}

	raw := stripFences(response.Choices[0].Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("completion response did not match schema", "model", m.modelName, "error", err)
		return fmt.Errorf("%w: decode response: %v", ErrProviderFailure, err)
	}

	slog.Debug("completion complete", "model", m.modelName, "duration_ms", duration.Milliseconds())
	return nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
