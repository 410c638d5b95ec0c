package session

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore builds an in-process session store for tests and local development.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]Session), now: time.Now}
}

func (m *memoryStore) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[hashToken(s.ID)] = s
	return nil
}

func (m *memoryStore) Get(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[hashToken(token)]
	if !ok || token == "" || s.Expired(m.now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hashToken(token))
	return nil
}
