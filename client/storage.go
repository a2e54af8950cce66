package client

import "sync"

// Storage keys. These match what the mobile apps keep in secure storage so a
// store backed by the same medium stays compatible.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUserID       = "user_id"
)

// TokenStore is the secure-storage analog the client reads and writes tokens
// through. Implementations must be safe for concurrent use.
type TokenStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Clear()
}

// MemoryTokenStore is an in-memory TokenStore, suitable for tests and
// short-lived tools.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryTokenStore creates an empty MemoryTokenStore
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

func (s *MemoryTokenStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryTokenStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryTokenStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}
