package models

// Message roles. The conversation history only ever holds these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn entry in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserPreferences is the accumulated search intent of one conversation.
// Nil means "not stated yet". Once set, a field is only cleared by an
// explicit restart.
type UserPreferences struct {
	Query        *string  `json:"query,omitempty"`
	MainCategory *string  `json:"main_category,omitempty"`
	PriceMin     *float64 `json:"price_min,omitempty"`
	PriceMax     *float64 `json:"price_max,omitempty"`
	Color        *string  `json:"color,omitempty"`
	Brand        *string  `json:"brand,omitempty"`
}

// Merge overlays upd onto p field by field. Non-nil values in upd win;
// nil values never erase what is already known.
func (p UserPreferences) Merge(upd UserPreferences) UserPreferences {
	if upd.Query != nil {
		p.Query = upd.Query
	}
	if upd.MainCategory != nil {
		p.MainCategory = upd.MainCategory
	}
	if upd.PriceMin != nil {
		p.PriceMin = upd.PriceMin
	}
	if upd.PriceMax != nil {
		p.PriceMax = upd.PriceMax
	}
	if upd.Color != nil {
		p.Color = upd.Color
	}
	if upd.Brand != nil {
		p.Brand = upd.Brand
	}
	return p
}

// ConversationState is the full mutable state of one conversation
// thread. Instances are owned by a single conversation identifier; the
// caller serializes concurrent turns against the same identifier.
type ConversationState struct {
	History     []Message       `json:"history"`
	Preferences UserPreferences `json:"preferences"`
	// Products is the most recent result set, replaced wholesale on
	// each search.
	Products []Product `json:"products"`
	// RestartRequested is transient and reset at the start of each turn.
	RestartRequested bool `json:"restart_requested"`
}

// NewConversationState returns an empty state for a fresh conversation.
func NewConversationState() *ConversationState {
	return &ConversationState{
		History:  []Message{},
		Products: []Product{},
	}
}

// LastAssistantMessage returns the content of the most recent assistant
// entry, or "" if none exists yet.
func (s *ConversationState) LastAssistantMessage() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i].Content
		}
	}
	return ""
}
