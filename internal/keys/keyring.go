package keys

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"smartlink/internal/crypto"
	"smartlink/internal/domain"
)

// Keyring composes the key manager and session key store and orchestrates
// pairwise channel establishment for encrypted conversations.
type Keyring struct {
	manager  *KeyManager
	sessions *SessionKeyStore
	log      *logrus.Logger
}

// NewKeyring builds a keyring around fresh caches. A nil logger falls back to
// the logrus standard logger.
func NewKeyring(log *logrus.Logger) *Keyring {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Keyring{
		manager:  NewKeyManager(),
		sessions: NewSessionKeyStore(),
		log:      log,
	}
}

// Manager exposes the underlying key-pair cache.
func (k *Keyring) Manager() *KeyManager { return k.manager }

// Sessions exposes the underlying session key store.
func (k *Keyring) Sessions() *SessionKeyStore { return k.sessions }

// EstablishSecureChannel makes sure both users hold key pairs, derives the
// two directional secrets of the pair, and stores them under the
// conversation. Each direction is an independent short critical section, so a
// failure can leave one side set; callers treat establishment as best-effort
// and re-attempt on decrypt failure.
func (k *Keyring) EstablishSecureChannel(userA, userB, conversationID string) error {
	pubA, _, err := k.manager.GetOrCreateKeyPair(userA)
	if err != nil {
		return err
	}
	pubB, _, err := k.manager.GetOrCreateKeyPair(userB)
	if err != nil {
		return err
	}

	secretA, err := k.manager.DeriveSharedSecret(userA, pubB)
	if err != nil {
		return err
	}
	k.sessions.Store(conversationID, userA, secretA)

	secretB, err := k.manager.DeriveSharedSecret(userB, pubA)
	if err != nil {
		return err
	}
	k.sessions.Store(conversationID, userB, secretB)

	k.log.WithFields(logrus.Fields{
		"conversation": conversationID,
		"user_a":       userA,
		"user_b":       userB,
	}).Debug("secure channel established")
	return nil
}

// InitializeConversation establishes channels for every unordered pair of
// participants. Conversation creation calls this exactly once.
func (k *Keyring) InitializeConversation(conversationID string, participants []string) error {
	for i, userA := range participants {
		for _, userB := range participants[i+1:] {
			if err := k.EstablishSecureChannel(userA, userB, conversationID); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddMember establishes a channel between the new member and every existing
// member. Existing pairs are not re-keyed.
func (k *Keyring) AddMember(conversationID, newMember string, existing []string) error {
	for _, member := range existing {
		if member == newMember {
			continue
		}
		if err := k.EstablishSecureChannel(member, newMember, conversationID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMember deletes the removed member's own secrets for the
// conversation. Remaining participants keep theirs; rotating them is a known
// forward-secrecy gap left open on purpose.
func (k *Keyring) RemoveMember(conversationID, userID string) {
	k.sessions.RemoveUser(conversationID, userID)
}

// EncryptContent encrypts a message body with the sender's session secret
// and returns the JSON-encoded ciphertext+nonce pair that replaces the
// plaintext content.
func (k *Keyring) EncryptContent(conversationID, userID, plaintext string) (string, error) {
	secret, ok := k.sessions.Get(conversationID, userID)
	if !ok {
		return "", domain.EncryptionErrorf("no session key for user %s in conversation %s", userID, conversationID)
	}
	ciphertext, nonce, err := crypto.Encrypt([]byte(plaintext), secret)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(domain.EncryptedContent{Ciphertext: ciphertext, Nonce: nonce})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecryptContent reverses EncryptContent using the reader's own session
// secret for the conversation.
func (k *Keyring) DecryptContent(conversationID, userID, content string) (string, error) {
	secret, ok := k.sessions.Get(conversationID, userID)
	if !ok {
		return "", domain.EncryptionErrorf("no session key for user %s in conversation %s", userID, conversationID)
	}
	var enc domain.EncryptedContent
	if err := json.Unmarshal([]byte(content), &enc); err != nil {
		return "", domain.EncryptionErrorf("malformed encrypted content: %v", err)
	}
	plaintext, err := crypto.Decrypt(enc.Ciphertext, enc.Nonce, secret)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
