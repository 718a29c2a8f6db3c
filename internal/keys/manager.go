package keys

import (
	"sync"

	"smartlink/internal/crypto"
	"smartlink/internal/domain"
)

// KeyManager caches one long-lived X25519 key pair per user, created lazily.
type KeyManager struct {
	mu    sync.Mutex
	pairs map[string]crypto.KeyPair
}

// NewKeyManager returns an empty key-pair cache.
func NewKeyManager() *KeyManager {
	return &KeyManager{pairs: make(map[string]crypto.KeyPair)}
}

// GetOrCreateKeyPair returns the user's public key, generating and caching a
// key pair on first use. created reports whether a new pair was generated.
func (m *KeyManager) GetOrCreateKeyPair(userID string) (public [crypto.KeySize]byte, created bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kp, ok := m.pairs[userID]; ok {
		return kp.Public, false, nil
	}
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return public, false, err
	}
	m.pairs[userID] = kp
	return kp.Public, true, nil
}

// DeriveSharedSecret computes the shared secret between the user's cached
// private key and a peer's public key. The key pair must already exist.
// Derivation borrows the private key, so repeat calls with the same peer are
// deterministic.
func (m *KeyManager) DeriveSharedSecret(userID string, peerPublic [crypto.KeySize]byte) (crypto.SharedSecret, error) {
	m.mu.Lock()
	kp, ok := m.pairs[userID]
	m.mu.Unlock()

	if !ok {
		return crypto.SharedSecret{}, domain.NotFoundErrorf("no key pair for user %s", userID)
	}
	return crypto.DeriveSharedSecret(kp.Private, peerPublic)
}
