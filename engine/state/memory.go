package state

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryStore keeps dialogue state in process memory. Meant for tests and
// single-instance development runs; production uses the Redis store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, conversationID string) (*DialogueState, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}

	m.mu.RLock()
	blob, ok := m.blobs[conversationID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	var st DialogueState
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, st *DialogueState) error {
	if st == nil {
		return ErrNilState
	}
	if strings.TrimSpace(st.ConversationID) == "" {
		return ErrInvalidConversation
	}

	blob, err := json.Marshal(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.blobs[st.ConversationID] = blob
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}

	m.mu.Lock()
	delete(m.blobs, conversationID)
	m.mu.Unlock()
	return nil
}
