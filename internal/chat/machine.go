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

// State identifies a node of the conversation state machine.
type State string

const (
	// StateCollect gathers structured preferences from free text.
	StateCollect State = "collect_preferences"
	// StateSearch executes the catalog search over merged preferences.
	StateSearch State = "search_products"
	// StatePresent summarizes the found products for the user.
	StatePresent State = "present_products"
	// StateAnswer handles questions about already-presented products.
	StateAnswer State = "answer_questions"
	// stateEnd terminates the per-turn traversal.
	stateEnd State = "end"
)

const (
	// stepLimit bounds one traversal so a routing misconfiguration can
	// never loop forever.
	stepLimit = 10

	// presentLimit caps how many products one search presents.
	presentLimit = 5
)

// Searcher is the retrieval capability the engine needs.
type Searcher interface {
	Search(ctx context.Context, collection string, q models.SearchQuery) ([]models.Product, error)
}

// node is one entry of the precompiled transition table: an action and
// a routing decision over the mutated state.
type node struct {
	run  func(ctx context.Context, st *models.ConversationState) error
	next func(st *models.ConversationState) State
}

// Engine drives one conversation turn per Turn call. The transition
// table is built once at construction; a turn is a bounded
// lookup-and-execute loop over it.
type Engine struct {
	searcher   Searcher
	completer  llm.Completer
	extractor  *Extractor
	collection string
	nodes      map[State]node
}

// NewEngine builds the conversation engine and its transition table.
func NewEngine(searcher Searcher, completer llm.Completer, collection string, categories []string) *Engine {
	e := &Engine{
		searcher:   searcher,
		completer:  completer,
		extractor:  NewExtractor(completer, categories),
		collection: collection,
	}
	e.nodes = map[State]node{
		StateCollect: {
			run: e.collectPreferences,
			next: func(st *models.ConversationState) State {
				if HasSufficientPreferences(st.Preferences) {
					return StateSearch
				}
				return stateEnd
			},
		},
		StateSearch: {
			run:  e.searchProducts,
			next: func(*models.ConversationState) State { return StatePresent },
		},
		StatePresent: {
			run:  e.presentProducts,
			next: func(*models.ConversationState) State { return stateEnd },
		},
		StateAnswer: {
			run: e.answerQuestions,
			next: func(st *models.ConversationState) State {
				if st.RestartRequested {
					return StateCollect
				}
				return stateEnd
			},
		},
	}
	return e
}

// Turn processes exactly one user message: it appends the message,
// picks the entry state, and walks the transition table to an end
// node. Any failure inside a node is caught here and surfaced as a
// generic assistant message; mutations made before the failure stand.
func (e *Engine) Turn(ctx context.Context, st *models.ConversationState, userInput string) {
	st.History = append(st.History, models.Message{Role: models.RoleUser, Content: userInput})
	st.RestartRequested = false

	// Entry selection: answer questions once products were presented,
	// otherwise collect.
	cur := StateCollect
	if len(st.Products) > 0 {
		cur = StateAnswer
	}

	for steps := 0; cur != stateEnd && steps < stepLimit; steps++ {
		n, ok := e.nodes[cur]
		if !ok {
			slog.Error("unknown conversation state", "state", cur)
			break
		}
		if err := n.run(ctx, st); err != nil {
			slog.Error("conversation step failed", "state", cur, "error", err)
			st.History = append(st.History, models.Message{
				Role:    models.RoleAssistant,
				Content: fmt.Sprintf("I encountered an error: %v. Let's try again.", err),
			})
			return
		}
		cur = n.next(st)
	}
}

// collectPreferences runs the extractor and merges its output. The
// assistant reply is only appended when the turn ends here; when the
// preferences are already sufficient the search result presentation
// speaks instead.
func (e *Engine) collectPreferences(ctx context.Context, st *models.ConversationState) error {
	updated, message, ok := e.extractor.Extract(ctx, st.History, st.Preferences)
	if !ok {
		st.History = append(st.History, models.Message{Role: models.RoleAssistant, Content: message})
		return nil
	}
	st.Preferences = updated
	if !HasSufficientPreferences(st.Preferences) {
		st.History = append(st.History, models.Message{Role: models.RoleAssistant, Content: message})
	}
	return nil
}

// searchProducts replaces the result set wholesale from one catalog
// search. A retrieval failure degrades to an empty result set; the
// presentation step still answers the user.
func (e *Engine) searchProducts(ctx context.Context, st *models.ConversationState) error {
	q := preferencesToQuery(st.Preferences, presentLimit)
	products, err := e.searcher.Search(ctx, e.collection, q)
	if err != nil {
		slog.Warn("search failed, presenting empty result set", "error", err)
		products = []models.Product{}
	}
	st.Products = products
	return nil
}

// presentationResponse is the schema of the presentation call.
type presentationResponse struct {
	Message string `json:"message"`
}

func (e *Engine) presentProducts(ctx context.Context, st *models.ConversationState) error {
	var sb strings.Builder
	if data, err := json.Marshal(st.Preferences); err == nil {
		fmt.Fprintf(&sb, "User preferences: %s\n", data)
	}
	fmt.Fprintf(&sb, "Products found: %d\n", len(st.Products))
	if data, err := json.Marshal(st.Products); err == nil {
		fmt.Fprintf(&sb, "Products:\n%s", data)
	}

	var resp presentationResponse
	err := e.completer.Complete(ctx, fmt.Sprintf(presentationPrompt, sb.String()), tailWindow(st.History, lastNMessages), &resp)
	message := resp.Message
	if err != nil {
		slog.Warn("presentation generation failed", "error", err)
		message = apologyMessage
	}
	st.History = append(st.History, models.Message{Role: models.RoleAssistant, Content: message})
	return nil
}

// questionsResponse is the schema of the product-QA call.
type questionsResponse struct {
	Message string `json:"message"`
	Restart bool   `json:"restart"`
}

// answerQuestions answers over the presented products, or flags a
// restart. A restart clears products and preferences but preserves
// history, and defers the acknowledgment to the collection step so the
// user doesn't get two messages for one turn.
func (e *Engine) answerQuestions(ctx context.Context, st *models.ConversationState) error {
	var sb strings.Builder
	sb.WriteString("PRODUCTS PRESENTED TO USER:\n")
	for _, p := range st.Products {
		sb.WriteString(formatProduct(p))
	}
	if data, err := json.Marshal(st.Preferences); err == nil {
		fmt.Fprintf(&sb, "\nUSER PREFERENCES:\n%s\n", data)
	}

	var resp questionsResponse
	err := e.completer.Complete(ctx, questionsPrompt(sb.String()), tailWindow(st.History, lastNMessages), &resp)
	if err != nil {
		slog.Warn("question answering failed", "error", err)
		st.History = append(st.History, models.Message{Role: models.RoleAssistant, Content: apologyMessage})
		return nil
	}

	if resp.Restart {
		st.RestartRequested = true
		st.Products = []models.Product{}
		st.Preferences = models.UserPreferences{}
		return nil
	}

	st.History = append(st.History, models.Message{Role: models.RoleAssistant, Content: resp.Message})
	return nil
}

// preferencesToQuery maps accumulated preferences onto one search.
func preferencesToQuery(prefs models.UserPreferences, limit int) models.SearchQuery {
	q := models.SearchQuery{
		MainCategory: prefs.MainCategory,
		PriceMin:     prefs.PriceMin,
		PriceMax:     prefs.PriceMax,
		Limit:        limit,
	}
	if prefs.Query != nil {
		q.Query = *prefs.Query
	}
	// Color and brand sharpen the free-text phrase; they are not
	// payload filters.
	if prefs.Brand != nil {
		q.Query = *prefs.Brand + " " + q.Query
	}
	if prefs.Color != nil {
		q.Query = *prefs.Color + " " + q.Query
	}
	return q
}

func formatProduct(p models.Product) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Product: %s (ID %d)\n", p.Name, p.ID)
	if p.MainCategory != nil {
		sub := ""
		if p.SubCategory != nil {
			sub = " > " + *p.SubCategory
		}
		fmt.Fprintf(&sb, "- Category: %s%s\n", *p.MainCategory, sub)
	}
	if p.DiscountPrice != nil {
		fmt.Fprintf(&sb, "- Price: $%.2f", *p.DiscountPrice)
		if p.ActualPrice != nil {
			fmt.Fprintf(&sb, " (original: $%.2f)", *p.ActualPrice)
		}
		sb.WriteString("\n")
	}
	if p.Ratings != nil {
		fmt.Fprintf(&sb, "- Rating: %.1f/5", *p.Ratings)
		if p.NoOfRatings != nil {
			fmt.Fprintf(&sb, " (%d reviews)", *p.NoOfRatings)
		}
		sb.WriteString("\n")
	}
	if p.Link != nil {
		fmt.Fprintf(&sb, "- Link: %s\n", *p.Link)
	}
	return sb.String()
}
