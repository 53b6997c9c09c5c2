package chat

import (
	"fmt"
	"strings"
)

// DefaultMainCategories mirrors the main categories of the ingested
// Amazon catalog. The collection prompt is templated with whatever set
// the engine is configured with; this is the fallback.
var DefaultMainCategories = []string{
	"Appliances",
	"Bags & Luggage",
	"Beauty & Health",
	"Car & Motorbike",
	"Electronics",
	"Grocery & Gourmet Foods",
	"Home & Kitchen",
	"Industrial Supplies",
	"Kids' Fashion",
	"Men's Clothing",
	"Men's Shoes",
	"Music",
	"Pets",
	"Sports & Fitness",
	"Stores",
	"Toys & Games",
	"TV, Audio & Cameras",
	"Women's Clothing",
	"Women's Shoes",
}

const collectionPromptTemplate = `You are a shopping assistant that helps users find products.
Your job in this phase is to collect the user's shopping preferences.

Extract any preferences stated or implied by the user's latest message and
return JSON with exactly this shape:
{"message": "<your reply to the user>", "preferences": {"query": null, "main_category": null, "price_min": null, "price_max": null, "color": null, "brand": null}}

Rules:
- "query" is a short free-text search phrase describing the product itself
  (e.g. "dog bed", "wireless headphones"). No prices, no category names.
- "main_category" must be one of: %s. Use null if none clearly applies.
- "price_min"/"price_max" are numbers in US dollars. "around 20 dollars"
  means price_max 20.
- Set a field to null when the user has not stated it; never invent values.
- "message" asks for the most useful missing detail, one question at a time,
  in a friendly tone.

%s`

const presentationPrompt = `You are a shopping assistant presenting search results.
Given the user's preferences and the products found, write a short, friendly
message introducing the products: name them, mention price and rating where
available, and invite follow-up questions.

Return JSON with exactly this shape:
{"message": "<your message to the user>"}

%s`

const questionsPromptTemplate = `You are a shopping assistant answering questions about products that
were already presented to the user.

Answer using ONLY the product details given below. If the user asks to see
different products, start a new search, or otherwise abandon the current
results, set "restart" to true and leave "message" empty.

Return JSON with exactly this shape:
{"message": "<your answer>", "restart": false}

%s`

// collectionPrompt renders the preference-collection system prompt.
func collectionPrompt(categories []string, context string) string {
	quoted := make([]string, len(categories))
	for i, c := range categories {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf(collectionPromptTemplate, strings.Join(quoted, ", "), context)
}

// questionsPrompt renders the product-QA system prompt.
func questionsPrompt(context string) string {
	return fmt.Sprintf(questionsPromptTemplate, context)
}
