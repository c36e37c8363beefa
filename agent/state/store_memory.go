package state

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*SessionState)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*SessionState, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, st *SessionState) error {
	if err := prepareForSave(st); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.SessionID] = st.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
