package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"cartpilot/internal/config"
	"cartpilot/internal/models"
)

// stubLLM returns a fixed response content or error.
type stubLLM struct {
	content string
	err     error
}

func (s *stubLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.content}},
	}, nil
}

func (s *stubLLM) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return s.content, s.err
}

func TestCompleteDecodesResponse(t *testing.T) {
	m := &Model{llm: &stubLLM{content: `{"message": "hi"}`}, modelName: "stub"}

	var out struct {
		Message string `json:"message"`
	}
	err := m.Complete(context.Background(), "system", []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "previous"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Message)
}

func TestCompleteStripsCodeFences(t *testing.T) {
	m := &Model{llm: &stubLLM{content: "```json\n{\"message\": \"hi\"}\n```"}, modelName: "stub"}

	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, m.Complete(context.Background(), "system", nil, &out))
	assert.Equal(t, "hi", out.Message)
}

func TestCompleteWrapsProviderErrors(t *testing.T) {
	m := &Model{llm: &stubLLM{err: fmt.Errorf("rate limited")}, modelName: "stub"}

	var out struct{}
	err := m.Complete(context.Background(), "system", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))
}

func TestCompleteWrapsSchemaMismatch(t *testing.T) {
	m := &Model{llm: &stubLLM{content: "not json at all"}, modelName: "stub"}

	var out struct{}
	err := m.Complete(context.Background(), "system", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare json", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "plain fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "whitespace", in: "  {\"a\": 1}  ", want: `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestNewModelUnknownProvider(t *testing.T) {
	_, err := NewModel(config.Config{LLMProvider: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewModelRequiresKeys(t *testing.T) {
	_, err := NewModel(config.Config{LLMProvider: config.ProviderOpenAI})
	assert.Error(t, err)

	_, err = NewModel(config.Config{LLMProvider: config.ProviderAnthropic})
	assert.Error(t, err)
}
