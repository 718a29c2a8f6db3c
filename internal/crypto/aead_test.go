package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlink/internal/domain"
)

func testSecret(t *testing.T) SharedSecret {
	t.Helper()
	var s SharedSecret
	_, err := rand.Read(s[:])
	require.NoError(t, err)
	return s
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	secret := testSecret(t)

	cases := []struct {
		name      string
		plaintext string
	}{
		{"short text", "hello"},
		{"empty", ""},
		{"unicode", "我的银行密码是123456"},
		{"binary-ish", string([]byte{0, 1, 2, 255, 254})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ct, nonce, err := Encrypt([]byte(tc.plaintext), secret)
			require.NoError(t, err)
			require.Len(t, nonce, NonceSize)
			require.NotEmpty(t, ct, "even empty plaintext carries a tag")

			got, err := Decrypt(ct, nonce, secret)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, string(got))
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	ct, nonce, err := Encrypt([]byte("secret message"), testSecret(t))
	require.NoError(t, err)

	_, err = Decrypt(ct, nonce, testSecret(t))
	assert.ErrorIs(t, err, domain.ErrDecrypt)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	secret := testSecret(t)
	ct, nonce, err := Encrypt([]byte("tamper me"), secret)
	require.NoError(t, err)

	// Flipping any single bit must fail authentication, never return wrong
	// plaintext.
	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01
		_, err := Decrypt(tampered, nonce, secret)
		assert.ErrorIs(t, err, domain.ErrDecrypt, "ciphertext byte %d", i)
	}
}

func TestDecrypt_TamperedNonce(t *testing.T) {
	secret := testSecret(t)
	ct, nonce, err := Encrypt([]byte("tamper me"), secret)
	require.NoError(t, err)

	for i := range nonce {
		tampered := append([]byte(nil), nonce...)
		tampered[i] ^= 0x01
		_, err := Decrypt(ct, tampered, secret)
		assert.ErrorIs(t, err, domain.ErrDecrypt, "nonce byte %d", i)
	}
}

func TestDecrypt_InvalidNonceSize(t *testing.T) {
	secret := testSecret(t)
	ct, _, err := Encrypt([]byte("payload"), secret)
	require.NoError(t, err)

	for _, n := range []int{0, 8, 11, 13, 24} {
		_, err := Decrypt(ct, make([]byte, n), secret)
		assert.ErrorIs(t, err, domain.ErrInvalidNonce, "nonce length %d", n)
	}
}

func TestEncrypt_NonceUniqueness(t *testing.T) {
	secret := testSecret(t)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		_, nonce, err := Encrypt([]byte("x"), secret)
		require.NoError(t, err)
		_, dup := seen[string(nonce)]
		require.False(t, dup, "nonce collision after %d encryptions", i)
		seen[string(nonce)] = struct{}{}
	}
}

func TestEncrypt_CiphertextDiffersFromPlaintext(t *testing.T) {
	secret := testSecret(t)
	plaintext := []byte("not secret enough")
	ct, _, err := Encrypt(plaintext, secret)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ct)
	assert.Greater(t, len(ct), len(plaintext), "GCM appends a 16-byte tag")
}
