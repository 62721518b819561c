package tokenstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps tokens in process memory. Tokens do not survive a
// process restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tokens: make(map[string]string)}
}

func (m *MemoryBackend) Load(_ context.Context, sid string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[sid]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

func (m *MemoryBackend) Save(_ context.Context, sid, token string) error {
	m.mu.Lock()
	m.tokens[sid] = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	delete(m.tokens, sid)
	m.mu.Unlock()
	return nil
}

// Len reports the number of persisted tokens.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
