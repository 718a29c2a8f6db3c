package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"smartlink/internal/domain"
)

// NonceSize is the GCM nonce length in bytes (96 bits).
const NonceSize = 12

// Encrypt seals plaintext under the shared secret with AES-256-GCM and a
// fresh random nonce. Empty plaintext is legal and yields a tag-only
// ciphertext.
func Encrypt(plaintext []byte, secret SharedSecret) (ciphertext, nonce []byte, err error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens a ciphertext produced by Encrypt. It returns
// domain.ErrInvalidNonce unless the nonce is exactly 12 bytes and
// domain.ErrDecrypt when the authentication tag does not verify.
func Decrypt(ciphertext, nonce []byte, secret SharedSecret) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d: %w",
			NonceSize, len(nonce), domain.ErrInvalidNonce)
	}
	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrDecrypt
	}
	return plaintext, nil
}

func newAEAD(secret SharedSecret) (cipher.AEAD, error) {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
