package silosession

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local [Store]. It is the browser-client analog:
// tokens live for the lifetime of the process and vanish with it.
type MemoryStore struct {
	mu        sync.RWMutex
	access    string
	refresh   string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AccessToken(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, nil
}

func (s *MemoryStore) RefreshToken(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh, nil
}

func (s *MemoryStore) SaveTokens(_ context.Context, access, refresh string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	s.expiresAt = expiresAt
	return nil
}

func (s *MemoryStore) ExpiresAt(context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.expiresAt = time.Time{}
	return nil
}
