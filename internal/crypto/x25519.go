package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length of X25519 keys and derived shared secrets.
const KeySize = 32

// KeyPair is an X25519 key pair. The private half stays inside the key
// manager; only the public half ever leaves the process.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// SharedSecret is the symmetric key derived for one (conversation, user)
// pair. It doubles as the AES-256-GCM key for that user's outgoing messages.
type SharedSecret [KeySize]byte

// Slice returns the secret as a byte slice without copying.
func (s SharedSecret) Slice() []byte { return s[:] }

// GenerateKeyPair returns a fresh Curve25519 key pair. The private key is
// clamped per RFC 7748. Failure means the system RNG is unavailable, which
// callers treat as fatal.
func GenerateKeyPair() (KeyPair, error) {
	var kp KeyPair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return KeyPair{}, fmt.Errorf("generate x25519 key: %w", err)
	}
	clamp(&kp.Private)
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("derive x25519 public key: %w", err)
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// DeriveSharedSecret computes the X25519 shared secret between a private key
// and a peer's public key. The private key is borrowed, not consumed: the
// same inputs always produce the same secret.
func DeriveSharedSecret(private [KeySize]byte, peerPublic [KeySize]byte) (SharedSecret, error) {
	out, err := curve25519.X25519(private[:], peerPublic[:])
	if err != nil {
		return SharedSecret{}, fmt.Errorf("compute shared secret: %w", err)
	}
	var secret SharedSecret
	copy(secret[:], out)
	Wipe(out)
	return secret, nil
}

func clamp(k *[KeySize]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
