package keys

import (
	"sync"

	"smartlink/internal/crypto"
)

// SessionKeyStore holds derived session secrets keyed by conversation id and
// user id. Lookups are the hot path (one per encrypted message) and only take
// the read lock.
type SessionKeyStore struct {
	mu   sync.RWMutex
	keys map[string]map[string]crypto.SharedSecret // conversation id -> user id -> secret
}

// NewSessionKeyStore returns an empty session key store.
func NewSessionKeyStore() *SessionKeyStore {
	return &SessionKeyStore{keys: make(map[string]map[string]crypto.SharedSecret)}
}

// Store records the secret for (conversationID, userID), replacing any
// previous value.
func (s *SessionKeyStore) Store(conversationID, userID string, secret crypto.SharedSecret) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.keys[conversationID]
	if !ok {
		users = make(map[string]crypto.SharedSecret)
		s.keys[conversationID] = users
	}
	users[userID] = secret
}

// Get returns the secret for (conversationID, userID) if one is stored.
func (s *SessionKeyStore) Get(conversationID, userID string) (crypto.SharedSecret, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, ok := s.keys[conversationID]
	if !ok {
		return crypto.SharedSecret{}, false
	}
	secret, ok := users[userID]
	return secret, ok
}

// RemoveUser deletes only the named user's secret within the conversation.
// Remaining participants keep their secrets; no rotation happens.
func (s *SessionKeyStore) RemoveUser(conversationID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if users, ok := s.keys[conversationID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.keys, conversationID)
		}
	}
}

// RemoveConversation deletes every secret scoped to the conversation.
func (s *SessionKeyStore) RemoveConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, conversationID)
}
