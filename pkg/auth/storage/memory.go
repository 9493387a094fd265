package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStorage implements in-memory token storage.
// Tokens are lost when the process exits.
type MemoryStorage struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tokens: make(map[string]string)}
}

// SaveToken saves a token to memory.
func (m *MemoryStorage) SaveToken(ctx context.Context, user, token string) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[user] = token
	return nil
}

// LoadToken loads a token from memory.
func (m *MemoryStorage) LoadToken(ctx context.Context, user string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[user]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

// DeleteToken deletes the token from memory.
func (m *MemoryStorage) DeleteToken(ctx context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, user)
	return nil
}
