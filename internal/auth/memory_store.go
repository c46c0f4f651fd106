package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRefreshStore keeps refresh tokens in-memory. It is safe for
// concurrent use and intended for development or single-instance
// deployments.
type MemoryRefreshStore struct {
	mu     sync.RWMutex
	tokens map[string]RefreshRecord
}

// NewMemoryRefreshStore constructs an in-memory store implementation.
func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: make(map[string]RefreshRecord)}
}

// Save records the refresh token for the provided user.
func (s *MemoryRefreshStore) Save(token, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	s.tokens[token] = RefreshRecord{Token: token, UserID: userID, ExpiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Get retrieves the record for the provided token.
func (s *MemoryRefreshStore) Get(token string) (RefreshRecord, bool, error) {
	s.mu.RLock()
	record, ok := s.tokens[token]
	s.mu.RUnlock()
	return record, ok, nil
}

// Delete removes the token from the store.
func (s *MemoryRefreshStore) Delete(token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}

// DeleteForUser removes every token issued to the user.
func (s *MemoryRefreshStore) DeleteForUser(userID string) error {
	s.mu.Lock()
	for token, record := range s.tokens {
		if record.UserID == userID {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()
	return nil
}

// PurgeExpired removes any expired tokens from the store.
func (s *MemoryRefreshStore) PurgeExpired(now time.Time) error {
	s.mu.Lock()
	for token, record := range s.tokens {
		if now.After(record.ExpiresAt) {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()
	return nil
}

// Ping always reports success for the in-memory store.
func (s *MemoryRefreshStore) Ping(context.Context) error {
	return nil
}
