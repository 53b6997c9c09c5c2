// Package recommend suggests complementary products for a shopping
// cart by asking a language model for search ideas and retrieving one
// product per idea from the catalog.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cartpilot/internal/llm"
	"cartpilot/internal/models"
)

// DefaultLimit is how many recommendations one call returns when the
// caller passes no limit.
const DefaultLimit = 3

const ideasPrompt = `You are a shopping assistant suggesting complementary products.
Given the items in the user's cart, propose %d short search phrases for
products that go well with them. Phrases must describe DIFFERENT products
than the ones in the cart, not variants of them.

Return JSON with exactly this shape:
{"queries": ["<phrase>", ...]}

CART:
%s`

// Searcher is the retrieval capability the engine needs.
type Searcher interface {
	Search(ctx context.Context, collection string, q models.SearchQuery) ([]models.Product, error)
}

// Engine turns a cart into complementary product suggestions.
type Engine struct {
	searcher   Searcher
	completer  llm.Completer
	collection string
}

func NewEngine(searcher Searcher, completer llm.Completer, collection string) *Engine {
	return &Engine{searcher: searcher, completer: completer, collection: collection}
}

type ideasResponse struct {
	Queries []string `json:"queries"`
}

// Recommend returns up to limit products complementing the cart. Cart
// products never appear in the result. A provider failure degrades to
// searching on the cart summary itself; a retrieval failure at any
// stage discards the whole call and yields an empty result set rather
// than an error or partial results.
func (e *Engine) Recommend(ctx context.Context, cart []models.Product, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(cart) == 0 {
		return []models.Product{}, nil
	}

	summary := cartSummary(cart)
	queries := e.searchIdeas(ctx, summary, limit)

	inCart := make(map[int]bool, len(cart))
	for _, p := range cart {
		inCart[p.ID] = true
	}

	var out []models.Product
	seen := make(map[int]bool)
	add := func(products []models.Product) {
		for _, p := range products {
			if inCart[p.ID] || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}

	for _, q := range queries {
		if len(out) >= limit {
			break
		}
		products, err := e.searcher.Search(ctx, e.collection, models.SearchQuery{Query: q, Limit: 1})
		if err != nil {
			slog.Warn("recommendation search failed, discarding results", "query", q, "error", err)
			return []models.Product{}, nil
		}
		add(products)
	}

	// Broaden with one combined search when the per-idea passes came
	// up short, e.g. because ideas collided with cart items.
	if len(out) < limit {
		combined := strings.Join(queries, " ")
		products, err := e.searcher.Search(ctx, e.collection, models.SearchQuery{Query: combined, Limit: limit + len(cart)})
		if err != nil {
			slog.Warn("recommendation broadening failed, discarding results", "error", err)
			return []models.Product{}, nil
		}
		add(products)
	}

	if out == nil {
		out = []models.Product{}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// searchIdeas asks the completion provider for search phrases, falling
// back to the cart summary itself when the provider fails.
func (e *Engine) searchIdeas(ctx context.Context, summary string, limit int) []string {
	var resp ideasResponse
	err := e.completer.Complete(ctx, fmt.Sprintf(ideasPrompt, limit, summary), nil, &resp)
	if err != nil || len(resp.Queries) == 0 {
		slog.Warn("idea generation failed, falling back to cart summary", "error", err)
		return []string{summary}
	}
	if len(resp.Queries) > limit {
		resp.Queries = resp.Queries[:limit]
	}
	return resp.Queries
}

func cartSummary(cart []models.Product) string {
	var sb strings.Builder
	for _, p := range cart {
		sb.WriteString("- ")
		sb.WriteString(p.Name)
		if p.MainCategory != nil {
			fmt.Fprintf(&sb, " (%s)", *p.MainCategory)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
