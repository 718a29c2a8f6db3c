// Package crypto is the encryption engine: X25519 key agreement and
// AES-256-GCM authenticated encryption of message bodies.
//
// Contents
//
//   - X25519 key generation and Diffie-Hellman (GenerateKeyPair,
//     DeriveSharedSecret)
//   - Authenticated encryption with a fresh 96-bit nonce per call
//     (Encrypt, Decrypt)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// The derived shared secret is used directly as the AES-256 key. Derivation
// borrows the private key; deriving twice against the same peer yields the
// same secret.
package crypto
