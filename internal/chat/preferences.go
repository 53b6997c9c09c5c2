// Package chat implements the conversational engine: preference
// collection, the per-turn state machine, and conversation storage.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cartpilot/internal/llm"
	"cartpilot/internal/models"
)

const (
	// lastNMessages is the trailing history window passed to the
	// completion provider.
	lastNMessages = 10

	// minFieldsForSearch is how many of the four core preference
	// fields must be set before a search is allowed.
	minFieldsForSearch = 3

	// apologyMessage is the canned user-facing fallback for any
	// provider failure during a conversation.
	apologyMessage = "I'm sorry, I couldn't find any products."
)

// HasSufficientPreferences reports whether prefs carry enough intent to
// search: at least minFieldsForSearch of the four core fields are set,
// and the free-text query specifically is set. A search without
// free-text intent is not permitted even with three filters present.
func HasSufficientPreferences(prefs models.UserPreferences) bool {
	filled := 0
	if prefs.Query != nil {
		filled++
	}
	if prefs.MainCategory != nil {
		filled++
	}
	if prefs.PriceMin != nil {
		filled++
	}
	if prefs.PriceMax != nil {
		filled++
	}
	return filled >= minFieldsForSearch && prefs.Query != nil
}

// collectionResponse is the schema of the preference-collection call.
type collectionResponse struct {
	Message     string                 `json:"message"`
	Preferences models.UserPreferences `json:"preferences"`
}

// Extractor turns free-text user turns plus running preference state
// into an updated preference object and an assistant utterance.
type Extractor struct {
	completer  llm.Completer
	categories []string
}

// NewExtractor creates a preference extractor. An empty categories
// slice falls back to DefaultMainCategories.
func NewExtractor(completer llm.Completer, categories []string) *Extractor {
	if len(categories) == 0 {
		categories = DefaultMainCategories
	}
	return &Extractor{completer: completer, categories: categories}
}

// Extract runs one structured completion over the trailing history
// window and merges the result onto current. On provider failure it
// returns current unchanged, the canned apology, and ok=false; this is
// a recoverable user-facing degradation, not an error.
func (e *Extractor) Extract(ctx context.Context, history []models.Message, current models.UserPreferences) (models.UserPreferences, string, bool) {
	window := tailWindow(history, lastNMessages)

	var sb strings.Builder
	if data, err := json.Marshal(current); err == nil {
		fmt.Fprintf(&sb, "Current preferences: %s", data)
	}

	var resp collectionResponse
	err := e.completer.Complete(ctx, collectionPrompt(e.categories, sb.String()), window, &resp)
	if err != nil {
		slog.Warn("preference extraction failed", "error", err)
		return current, apologyMessage, false
	}

	return current.Merge(resp.Preferences), resp.Message, true
}

// tailWindow returns the last n messages of history.
func tailWindow(history []models.Message, n int) []models.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
