package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNonNilWins(t *testing.T) {
	base := UserPreferences{
		Query:    StrPtr("headphones"),
		PriceMax: FloatPtr(50),
	}
	merged := base.Merge(UserPreferences{
		Query:        StrPtr("wireless headphones"),
		MainCategory: StrPtr("electronics"),
	})

	assert.Equal(t, "wireless headphones", *merged.Query)
	assert.Equal(t, "electronics", *merged.MainCategory)
	assert.Equal(t, 50.0, *merged.PriceMax)
}

func TestMergeNilNeverErases(t *testing.T) {
	base := UserPreferences{
		Query:        StrPtr("headphones"),
		MainCategory: StrPtr("electronics"),
		PriceMin:     FloatPtr(10),
		PriceMax:     FloatPtr(50),
		Color:        StrPtr("black"),
		Brand:        StrPtr("boAt"),
	}
	merged := base.Merge(UserPreferences{})
	assert.Equal(t, base, merged)
}

func TestMergeDoesNotMutateReceiver(t *testing.T) {
	base := UserPreferences{Query: StrPtr("headphones")}
	_ = base.Merge(UserPreferences{Query: StrPtr("shoes")})
	assert.Equal(t, "headphones", *base.Query)
}

func TestLastAssistantMessage(t *testing.T) {
	st := NewConversationState()
	assert.Empty(t, st.LastAssistantMessage())

	st.History = append(st.History,
		Message{Role: RoleUser, Content: "hi"},
		Message{Role: RoleAssistant, Content: "hello"},
		Message{Role: RoleUser, Content: "bye"},
	)
	assert.Equal(t, "hello", st.LastAssistantMessage())
}

func TestProductValidate(t *testing.T) {
	assert.NoError(t, Product{ID: 1, Name: "ok"}.Validate())
	assert.ErrorIs(t, Product{ID: -1, Name: "ok"}.Validate(), ErrValidation)
	assert.ErrorIs(t, Product{ID: 1}.Validate(), ErrValidation)
}

func TestSearchQueryValidate(t *testing.T) {
	assert.NoError(t, SearchQuery{Query: "x"}.Validate())
	assert.ErrorIs(t, SearchQuery{SubCategory: StrPtr("audio")}.Validate(), ErrValidation)
	assert.ErrorIs(t, SearchQuery{Limit: -1}.Validate(), ErrValidation)
	assert.NoError(t, SearchQuery{MainCategory: StrPtr("electronics"), SubCategory: StrPtr("audio")}.Validate())
}
