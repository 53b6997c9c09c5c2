package chat

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"cartpilot/internal/models"
)

// Store keeps conversation state keyed by id. Implementations must be
// safe for concurrent use. Get on an unknown id returns a fresh empty
// conversation so callers never special-case first contact.
type Store interface {
	Get(id string) *models.ConversationState
	Put(id string, st *models.ConversationState)
	Delete(id string)
	List() []string
}

// NewConversationID mints a conversation identifier.
func NewConversationID() string {
	return uuid.NewString()
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.ConversationState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*models.ConversationState)}
}

func (s *MemoryStore) Get(id string) *models.ConversationState {
	s.mu.RLock()
	st, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return models.NewConversationState()
	}
	return st
}

func (s *MemoryStore) Put(id string, st *models.ConversationState) {
	s.mu.Lock()
	s.conversations[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.conversations, id)
	s.mu.Unlock()
}

func (s *MemoryStore) List() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
