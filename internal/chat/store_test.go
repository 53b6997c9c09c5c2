package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartpilot/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	id := NewConversationID()
	fresh := store.Get(id)
	require.NotNil(t, fresh)
	assert.Empty(t, fresh.History, "unknown id yields an empty conversation")

	fresh.History = append(fresh.History, models.Message{Role: models.RoleUser, Content: "hi"})
	store.Put(id, fresh)

	got := store.Get(id)
	require.Len(t, got.History, 1)
	assert.Equal(t, "hi", got.History[0].Content)

	store.Delete(id)
	assert.Empty(t, store.Get(id).History)
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore()
	store.Put("b", models.NewConversationState())
	store.Put("a", models.NewConversationState())

	assert.Equal(t, []string{"a", "b"}, store.List())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewConversationID()
			store.Put(id, models.NewConversationState())
			store.Get(id)
			store.List()
			store.Delete(id)
		}()
	}
	wg.Wait()
	assert.Empty(t, store.List())
}
