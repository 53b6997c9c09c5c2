package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartpilot/internal/models"
)

// fakeCompleter replays canned JSON responses, one per Complete call.
type fakeCompleter struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, _ []models.Message, out any) error {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, systemPrompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return f.errs[i]
	}
	if i >= len(f.responses) {
		return fmt.Errorf("unexpected completion call %d", i)
	}
	return json.Unmarshal([]byte(f.responses[i]), out)
}

func TestHasSufficientPreferences(t *testing.T) {
	tests := []struct {
		name  string
		prefs models.UserPreferences
		want  bool
	}{
		{
			name: "nothing set",
			want: false,
		},
		{
			name:  "query only",
			prefs: models.UserPreferences{Query: models.StrPtr("headphones")},
			want:  false,
		},
		{
			name: "query category and min price",
			prefs: models.UserPreferences{
				Query:        models.StrPtr("headphones"),
				MainCategory: models.StrPtr("electronics"),
				PriceMin:     models.FloatPtr(10),
			},
			want: true,
		},
		{
			name: "three filters but no query",
			prefs: models.UserPreferences{
				MainCategory: models.StrPtr("electronics"),
				PriceMin:     models.FloatPtr(10),
				PriceMax:     models.FloatPtr(50),
			},
			want: false,
		},
		{
			name: "all four set",
			prefs: models.UserPreferences{
				Query:        models.StrPtr("headphones"),
				MainCategory: models.StrPtr("electronics"),
				PriceMin:     models.FloatPtr(10),
				PriceMax:     models.FloatPtr(50),
			},
			want: true,
		},
		{
			name: "color and brand do not count",
			prefs: models.UserPreferences{
				Query: models.StrPtr("headphones"),
				Color: models.StrPtr("black"),
				Brand: models.StrPtr("boAt"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasSufficientPreferences(tt.prefs))
		})
	}
}

func TestExtractMergesPreferences(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"message": "What's your budget?", "preferences": {"query": "wireless headphones", "main_category": "electronics"}}`,
	}}
	ex := NewExtractor(completer, nil)

	current := models.UserPreferences{PriceMax: models.FloatPtr(50)}
	history := []models.Message{{Role: models.RoleUser, Content: "I want wireless headphones"}}

	updated, message, ok := ex.Extract(context.Background(), history, current)
	require.True(t, ok)
	assert.Equal(t, "What's your budget?", message)
	require.NotNil(t, updated.Query)
	assert.Equal(t, "wireless headphones", *updated.Query)
	require.NotNil(t, updated.PriceMax)
	assert.Equal(t, 50.0, *updated.PriceMax, "existing fields survive the merge")
}

func TestExtractNilNeverErases(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"message": "Anything else?", "preferences": {"price_min": 20}}`,
	}}
	ex := NewExtractor(completer, nil)

	current := models.UserPreferences{
		Query:        models.StrPtr("headphones"),
		MainCategory: models.StrPtr("electronics"),
	}
	updated, _, ok := ex.Extract(context.Background(), nil, current)
	require.True(t, ok)
	assert.Equal(t, "headphones", *updated.Query)
	assert.Equal(t, "electronics", *updated.MainCategory)
	assert.Equal(t, 20.0, *updated.PriceMin)
}

func TestExtractProviderFailure(t *testing.T) {
	completer := &fakeCompleter{errs: []error{fmt.Errorf("provider down")}}
	ex := NewExtractor(completer, nil)

	current := models.UserPreferences{Query: models.StrPtr("headphones")}
	updated, message, ok := ex.Extract(context.Background(), nil, current)
	assert.False(t, ok)
	assert.Equal(t, apologyMessage, message)
	assert.Equal(t, current, updated, "failure must not mutate preferences")
}

func TestExtractorPromptCarriesCategories(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"message": "ok", "preferences": {}}`}}
	ex := NewExtractor(completer, []string{"garden & outdoors"})

	_, _, ok := ex.Extract(context.Background(), nil, models.UserPreferences{})
	require.True(t, ok)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], `"garden & outdoors"`)
}

func TestTailWindow(t *testing.T) {
	history := make([]models.Message, 15)
	for i := range history {
		history[i] = models.Message{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)}
	}
	window := tailWindow(history, 10)
	require.Len(t, window, 10)
	assert.Equal(t, "m5", window[0].Content)
	assert.Equal(t, "m14", window[9].Content)

	assert.Len(t, tailWindow(history[:3], 10), 3)
}
